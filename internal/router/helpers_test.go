package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/psds-microservice/helpdesk-service/internal/chatbot"
	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/events"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/identity"
	"github.com/psds-microservice/helpdesk-service/internal/limiter"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/oauth"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"github.com/psds-microservice/helpdesk-service/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPublisher struct {
	events chan string
}

func (p *recordingPublisher) Publish(_ context.Context, event string, _ map[string]interface{}) {
	p.events <- event
}

type testApp struct {
	handler http.Handler
	clock   *clock.FakeClock
	users   *service.UserService
	store   *store.Store
	events  *recordingPublisher
}

func newTestApp(t *testing.T, bot chatbot.Bot) *testApp {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clk := clock.Fake(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	users := service.NewUserService(db, clk).WithHashCost(bcrypt.MinCost)
	tickets := service.NewTicketService(db, clk)
	chats := service.NewChatService(db, clk)
	st := store.New(store.Deps{
		Knowledge:   service.NewKnowledgeService(db),
		Departments: service.NewDepartmentService(db),
		Tickets:     tickets,
		Chats:       chats,
		Clock:       clk,
	})
	ctx := context.Background()
	for _, u := range []service.NewUser{
		{Username: "admin", Password: "admin-pass", Role: model.RoleAdmin, Department: "IT"},
		{Username: "agent", Password: "agent-pass", Role: model.RoleSupportAgent, Department: "IT"},
		{Username: "alice", Password: "alice-pass", Role: model.RoleEndUser},
		{Username: "bob", Password: "bob-pass", Role: model.RoleEndUser},
	} {
		if _, err := users.Create(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", u.Username, err)
		}
	}
	for _, name := range []string{"IT", "Digital Banking", "Loan"} {
		if _, err := st.EnsureDepartment(ctx, model.Department{Name: name}); err != nil {
			t.Fatalf("seed department: %v", err)
		}
	}

	mgr := identity.NewManager(identity.Deps{
		Users:   users,
		Codec:   identity.NewCodec("test-secret", 24*time.Hour, clk),
		Revoker: identity.NewMemoryRevoker(clk),
	})
	assistant := service.NewAssistant(service.AssistantDeps{
		Chats:      chats,
		Articles:   st,
		Bot:        bot,
		Timeout:    time.Second,
		OfferDelay: 1500 * time.Millisecond,
		Clock:      clk,
	})
	pingDB := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	pub := &recordingPublisher{events: make(chan string, 32)}
	disp := events.NewDispatcher(time.Second, pub)
	t.Cleanup(disp.Wait)

	h := New(Handlers{
		Health:        handler.NewHealthHandler("helpdesk-service", map[string]handler.Check{"database": pingDB}),
		Auth:          handler.NewAuthHandler(mgr, users, limiter.NewMemoryFixedWindow(5, time.Minute, clk), oauth.NewGoogle(oauth.GoogleConfig{})),
		Tickets:       handler.NewTicketHandler(tickets, disp),
		Knowledge:     handler.NewKnowledgeHandler(st),
		Chat:          handler.NewChatHandler(assistant, chats, clk),
		Admin:         handler.NewAdminHandler(users, st),
		Authenticator: mgr,
		CORSOrigins:   []string{"http://localhost:3000"},
	})
	return &testApp{handler: h, clock: clk, users: users, store: st, events: pub}
}

func doJSONRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, want, rec.Body.String())
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := doJSONRequest(t, a.handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	assertStatus(t, rec, http.StatusOK)
	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	decodeJSON(t, rec, &out)
	if !out.Success || out.Token == "" {
		t.Fatalf("login response without token: %s", rec.Body.String())
	}
	return out.Token
}
