package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

func TestTicketCreateRoutesByCategory(t *testing.T) {
	svc := NewTicketService(newTestDB(t), newTestClock())
	ctx := context.Background()

	cases := map[string]string{
		"Network":       "IT",
		"Mobile App":    "Digital Banking",
		"Loan Question": "Loan",
		"Misc":          "IT",
	}
	for category, want := range cases {
		tk, err := svc.Create(ctx, NewTicket{Title: "t", Description: "d", Category: category, CreatedBy: 1})
		if err != nil {
			t.Fatalf("create %s: %v", category, err)
		}
		if tk.Department != want {
			t.Errorf("category %q routed to %q, want %q", category, tk.Department, want)
		}
		if tk.Status != model.TicketStatusOpen || tk.Priority != model.PriorityMedium {
			t.Errorf("unexpected defaults: %s / %s", tk.Status, tk.Priority)
		}
		if !tk.CreatedAt.Equal(testEpoch) || !tk.UpdatedAt.Equal(testEpoch) {
			t.Errorf("timestamps not taken from clock: %s", tk.CreatedAt)
		}
	}
}

func TestTicketCreateValidation(t *testing.T) {
	svc := NewTicketService(newTestDB(t), newTestClock())
	_, err := svc.Create(context.Background(), NewTicket{Title: " ", Description: "d", Category: "c"})
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = svc.Create(context.Background(), NewTicket{Title: "t", Description: "d", Category: "c", Priority: "Urgent"})
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected invalid priority, got %v", err)
	}
}

func TestTicketListFilters(t *testing.T) {
	clk := newTestClock()
	svc := NewTicketService(newTestDB(t), clk)
	ctx := context.Background()

	mk := func(category string, by uint64) *model.Ticket {
		clk.Advance(time.Minute)
		tk, err := svc.Create(ctx, NewTicket{Title: category, Description: "d", Category: category, CreatedBy: by})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return tk
	}
	net := mk("Network", 1)
	app := mk("App", 1)
	loan := mk("Loan", 2)

	agent := uint64(9)
	if _, err := svc.Update(ctx, loan.ID, TicketChanges{AssignedTo: &agent}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	closed := model.TicketStatusClosed
	if _, err := svc.Update(ctx, net.ID, TicketChanges{Status: &closed}); err != nil {
		t.Fatalf("close: %v", err)
	}

	mine, total, err := svc.List(ctx, TicketFilter{CreatedBy: 1}, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(mine) != 2 || mine[0].ID != app.ID {
		t.Fatalf("my tickets: total=%d first=%+v", total, mine)
	}

	queue, _, err := svc.List(ctx, TicketFilter{Queue: true, QueueDepartment: "Operations", QueueUser: agent, ExcludeClosed: true}, 0, 0)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != loan.ID {
		t.Fatalf("queue should hold only the assigned loan ticket, got %+v", queue)
	}

	page, total, err := svc.List(ctx, TicketFilter{}, 1, 1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].ID != app.ID {
		t.Fatalf("pagination mismatch: total=%d page=%+v", total, page)
	}
}

func TestTicketUpdateAndUnassign(t *testing.T) {
	clk := newTestClock()
	svc := NewTicketService(newTestDB(t), clk)
	ctx := context.Background()
	tk, err := svc.Create(ctx, NewTicket{Title: "t", Description: "d", Category: "Network", CreatedBy: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clk.Advance(time.Hour)
	agent := uint64(4)
	st := model.TicketStatusInProgress
	got, err := svc.Update(ctx, tk.ID, TicketChanges{Status: &st, AssignedTo: &agent})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != st || got.AssignedTo == nil || *got.AssignedTo != agent {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.UpdatedAt.Equal(testEpoch.Add(time.Hour)) {
		t.Fatalf("updatedAt not refreshed: %s", got.UpdatedAt)
	}

	got, err = svc.Update(ctx, tk.ID, TicketChanges{Unassign: true})
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if got.AssignedTo != nil {
		t.Fatalf("expected unassigned, got %v", *got.AssignedTo)
	}

	bad := model.TicketStatus("Done")
	if _, err := svc.Update(ctx, tk.ID, TicketChanges{Status: &bad}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if _, err := svc.Update(ctx, 999, TicketChanges{Status: &st}); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTicketAddComment(t *testing.T) {
	clk := newTestClock()
	svc := NewTicketService(newTestDB(t), clk)
	ctx := context.Background()
	tk, err := svc.Create(ctx, NewTicket{Title: "t", Description: "d", Category: "Network", CreatedBy: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddComment(ctx, tk.ID, model.Comment{AuthorID: 1, Content: "first"}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	got, err := svc.AddComment(ctx, tk.ID, model.Comment{AuthorID: 2, Content: "staff note", Internal: true})
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if len(got.Comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(got.Comments))
	}
	if got.Comments[1].ID <= got.Comments[0].ID {
		t.Fatalf("comment ids must increase: %d, %d", got.Comments[0].ID, got.Comments[1].ID)
	}

	stored, err := svc.GetByID(ctx, tk.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.VisibleTo(model.RoleEndUser).Comments) != 1 {
		t.Fatalf("internal comment visible to end user")
	}
	if _, err := svc.AddComment(ctx, tk.ID, model.Comment{Content: "  "}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestTicketStats(t *testing.T) {
	svc := NewTicketService(newTestDB(t), newTestClock())
	ctx := context.Background()
	for _, c := range []string{"Network", "Network", "Mobile App", "Loan"} {
		if _, err := svc.Create(ctx, NewTicket{Title: c, Description: "d", Category: c, CreatedBy: 1}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	resolved := model.TicketStatusResolved
	if _, err := svc.Update(ctx, 1, TicketChanges{Status: &resolved}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	closed := model.TicketStatusClosed
	if _, err := svc.Update(ctx, 4, TicketChanges{Status: &closed}); err != nil {
		t.Fatalf("close: %v", err)
	}

	depts := []model.Department{{Name: "Digital Banking"}, {Name: "IT"}, {Name: "Loan"}}
	st, err := svc.Stats(ctx, depts)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 4 || st.Open != 2 || st.Resolved != 1 {
		t.Fatalf("unexpected totals: %+v", st)
	}
	want := []DepartmentCount{{"Digital Banking", 1}, {"IT", 2}, {"Loan", 0}}
	for i, w := range want {
		if st.Departments[i] != w {
			t.Fatalf("department %d: got %+v want %+v", i, st.Departments[i], w)
		}
	}
}
