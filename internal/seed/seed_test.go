package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/knowledge"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

func TestDefaultSeedParses(t *testing.T) {
	f := Default()
	if len(f.Departments) != 5 || len(f.Articles) == 0 || len(f.Users) == 0 {
		t.Fatalf("unexpected default seed: %+v", f)
	}
	if _, ok := knowledge.Match("I forgot my password", toArticles(f)); !ok {
		t.Fatalf("default articles should answer password questions")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse(strings.NewReader("departments:\n  - name: IT\n    colour: red\n")); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	f, err := Parse(strings.NewReader(""))
	if err != nil || len(f.Users) != 0 {
		t.Fatalf("empty file should parse: %v", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	users := service.NewUserService(db, clk).WithHashCost(bcrypt.MinCost)
	deps := Deps{
		Departments: service.NewDepartmentService(db),
		Knowledge:   service.NewKnowledgeService(db),
		Users:       users,
	}
	ctx := context.Background()
	f := Default()

	first, err := Apply(ctx, f, deps)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if first.Articles != len(f.Articles) || first.Users != len(f.Users) || first.Skipped != 0 {
		t.Fatalf("first run: %+v", first)
	}
	second, err := Apply(ctx, f, deps)
	if err != nil {
		t.Fatalf("apply again: %v", err)
	}
	if second.Articles != 0 || second.Users != 0 || second.Skipped != len(f.Articles)+len(f.Users) {
		t.Fatalf("second run: %+v", second)
	}
	depts, _ := deps.Departments.List(ctx)
	if len(depts) != 5 {
		t.Fatalf("departments duplicated: %d", len(depts))
	}
	if _, err := users.Authenticate(ctx, "admin", "admin123"); err != nil {
		t.Fatalf("seeded admin cannot log in: %v", err)
	}
}

func toArticles(f *File) []model.KnowledgeArticle {
	out := make([]model.KnowledgeArticle, 0, len(f.Articles))
	for _, a := range f.Articles {
		out = append(out, model.KnowledgeArticle{Title: a.Title, Solution: a.Solution, Keywords: a.Keywords})
	}
	return out
}
