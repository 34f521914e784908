package chat

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

func newTestSessions(existing ...model.ChatSession) (*Sessions, *clock.FakeClock) {
	fc := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
	return Load(42, existing, WithClock(fc), WithIDGenerator(ids)), fc
}

func activeCount(s *Sessions) int {
	n := 0
	for _, cs := range s.List() {
		if cs.IsActive {
			n++
		}
	}
	return n
}

func userMsg(content string) model.ChatMessage {
	return model.ChatMessage{Role: model.MessageRoleUser, Content: content}
}

func TestStartNewChatPrependsActive(t *testing.T) {
	s, _ := newTestSessions()
	first := s.StartNewChat()
	second := s.StartNewChat()
	list := s.List()
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
	if !list[0].IsActive || list[1].IsActive {
		t.Fatalf("only the newest session should be active")
	}
	if list[0].Title != DefaultTitle || len(list[0].Messages) != 0 || list[0].UserID != 42 {
		t.Fatalf("unexpected new session: %+v", list[0])
	}
}

func TestSwitchUnknownIsNoop(t *testing.T) {
	s, _ := newTestSessions()
	cs := s.StartNewChat()
	if s.Switch("missing") {
		t.Fatalf("switch to unknown id should report false")
	}
	if a := s.Active(); a == nil || a.ID != cs.ID {
		t.Fatalf("active session changed on unknown switch")
	}
}

func TestSwitchActivatesTarget(t *testing.T) {
	s, _ := newTestSessions()
	first := s.StartNewChat()
	s.StartNewChat()
	if !s.Switch(first.ID) {
		t.Fatalf("switch failed")
	}
	if a := s.Active(); a == nil || a.ID != first.ID {
		t.Fatalf("expected %s active", first.ID)
	}
	if activeCount(s) != 1 {
		t.Fatalf("expected exactly one active session")
	}
}

func TestAddMessageNeedsSession(t *testing.T) {
	s, _ := newTestSessions()
	res := s.AddMessage(userMsg("hello"))
	if res.Status != NeedsSession || res.Session != nil {
		t.Fatalf("expected NeedsSession, got %v", res.Status)
	}
	if s.Len() != 0 {
		t.Fatalf("AddMessage must not create sessions")
	}
	upserts, deletes := s.Changes()
	if len(upserts) != 0 || len(deletes) != 0 {
		t.Fatalf("no changes expected")
	}
}

func TestAddMessageTitlesOnce(t *testing.T) {
	s, fc := newTestSessions()
	s.StartNewChat()
	fc.Advance(time.Minute)
	res := s.AddMessage(userMsg("network is down"))
	if res.Status != Sent {
		t.Fatalf("expected Sent")
	}
	s.AddMessage(userMsg("also the printer"))
	a := s.Active()
	if a.Title != "network is down" {
		t.Fatalf("title should reflect only the first message, got %q", a.Title)
	}
	if len(a.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(a.Messages))
	}
	if !a.UpdatedAt.Equal(fc.Now()) {
		t.Fatalf("updatedAt not refreshed")
	}
}

func TestAddMessageAssistantDoesNotTitle(t *testing.T) {
	s, _ := newTestSessions()
	s.StartNewChat()
	s.AddMessage(model.ChatMessage{Role: model.MessageRoleAssistant, Content: "Hi! How can I help?"})
	if s.Active().Title != DefaultTitle {
		t.Fatalf("assistant message must not set the title")
	}
	s.AddMessage(userMsg("card blocked"))
	if s.Active().Title != "card blocked" {
		t.Fatalf("first user message should set title, got %q", s.Active().Title)
	}
}

func TestAppendToInactiveSession(t *testing.T) {
	s, fc := newTestSessions()
	first := s.StartNewChat()
	s.AddMessage(userMsg("network is down"))
	s.StartNewChat()
	fc.Advance(time.Minute)

	reply := model.ChatMessage{Role: model.MessageRoleAssistant, Content: "check the cable"}
	got, ok := s.AppendTo(first.ID, reply)
	if !ok || got.ID != first.ID {
		t.Fatalf("append to %s failed", first.ID)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "check the cable" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.IsActive || s.Active().ID == first.ID {
		t.Fatalf("append must not change the active session")
	}
	if !got.UpdatedAt.Equal(fc.Now().UTC()) {
		t.Fatalf("updatedAt not refreshed: %v", got.UpdatedAt)
	}
	if activeCount(s) != 1 {
		t.Fatalf("expected one active session")
	}
	if _, ok := s.AppendTo("missing", reply); ok {
		t.Fatalf("append to unknown session should fail")
	}
}

func TestTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 60)
	if got := Title(long); got != strings.Repeat("a", 50)+"..." {
		t.Fatalf("unexpected title %q", got)
	}
	exact := strings.Repeat("b", 50)
	if got := Title(exact); got != exact {
		t.Fatalf("50 chars must not be truncated, got %q", got)
	}
	cyr := strings.Repeat("ж", 55)
	if got := Title(cyr); got != strings.Repeat("ж", 50)+"..." {
		t.Fatalf("truncation must count characters, got %q", got)
	}
}

func TestDeleteOnlySessionStartsNew(t *testing.T) {
	s, _ := newTestSessions()
	only := s.StartNewChat()
	if !s.Delete(only.ID) {
		t.Fatalf("delete failed")
	}
	list := s.List()
	if len(list) != 1 || list[0].ID == only.ID || !list[0].IsActive || len(list[0].Messages) != 0 {
		t.Fatalf("expected exactly one new empty active session, got %+v", list)
	}
	_, deletes := s.Changes()
	if len(deletes) != 1 || deletes[0] != only.ID {
		t.Fatalf("expected deleted id recorded, got %v", deletes)
	}
}

func TestDeleteActivePicksMostRecentlyUpdated(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	existing := []model.ChatSession{
		{ID: "a", UserID: 42, Title: "a", UpdatedAt: base.Add(3 * time.Hour), IsActive: true},
		{ID: "b", UserID: 42, Title: "b", UpdatedAt: base.Add(1 * time.Hour)},
		{ID: "c", UserID: 42, Title: "c", UpdatedAt: base.Add(2 * time.Hour)},
	}
	s, _ := newTestSessions(existing...)
	s.Delete("a")
	if a := s.Active(); a == nil || a.ID != "c" {
		t.Fatalf("expected c active, got %+v", a)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 sessions left")
	}
}

func TestDeleteInactiveKeepsActive(t *testing.T) {
	s, _ := newTestSessions()
	first := s.StartNewChat()
	second := s.StartNewChat()
	s.Delete(first.ID)
	if a := s.Active(); a == nil || a.ID != second.ID {
		t.Fatalf("active session should stay %s", second.ID)
	}
	if s.Delete("missing") {
		t.Fatalf("deleting unknown id should report false")
	}
}

func TestChangesTrackDirtySessions(t *testing.T) {
	existing := []model.ChatSession{
		{ID: "old", UserID: 42, Title: "old", IsActive: true},
		{ID: "idle", UserID: 42, Title: "idle"},
	}
	s, _ := newTestSessions(existing...)
	s.StartNewChat()
	upserts, _ := s.Changes()
	ids := map[string]bool{}
	for _, cs := range upserts {
		ids[cs.ID] = true
	}
	if !ids["old"] || !ids["s1"] || ids["idle"] {
		t.Fatalf("unexpected upserts: %v", ids)
	}
}

func TestAtMostOneActiveUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s, fc := newTestSessions()
	for i := 0; i < 500; i++ {
		fc.Advance(time.Second)
		list := s.List()
		switch rng.Intn(4) {
		case 0:
			s.StartNewChat()
		case 1:
			if len(list) > 0 {
				s.Switch(list[rng.Intn(len(list))].ID)
			} else {
				s.Switch("nope")
			}
		case 2:
			if len(list) > 0 {
				s.Delete(list[rng.Intn(len(list))].ID)
			}
		case 3:
			if res := s.AddMessage(userMsg(fmt.Sprintf("msg %d", i))); res.Status == NeedsSession {
				s.StartNewChat()
			}
		}
		if n := activeCount(s); n > 1 {
			t.Fatalf("step %d: %d active sessions", i, n)
		}
	}
}
