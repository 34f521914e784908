// Package chat keeps one user's chat sessions and enforces that at most one
// of them is active after every transition.
package chat

import (
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

const (
	DefaultTitle  = "New Chat"
	titleMaxRunes = 50
	titleEllipsis = "..."
)

type AddStatus int

const (
	// Sent: the message was appended to the active session.
	Sent AddStatus = iota
	// NeedsSession: no session is active; nothing was changed.
	NeedsSession
)

func (s AddStatus) String() string {
	if s == NeedsSession {
		return "needs_session"
	}
	return "sent"
}

type AddResult struct {
	Status  AddStatus
	Session *model.ChatSession
}

type Option func(*Sessions)

func WithClock(c clock.Clock) Option {
	return func(s *Sessions) { s.clock = c }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Sessions) { s.newID = f }
}

// Sessions is the in-memory session list of one user, most recent first.
// It records which sessions changed so a caller can persist only those.
type Sessions struct {
	userID  uint64
	list    []*model.ChatSession
	clock   clock.Clock
	newID   func() string
	dirty   map[string]bool
	deleted []string
}

// Load wraps existing sessions. They are expected ordered by updatedAt desc.
func Load(userID uint64, existing []model.ChatSession, opts ...Option) *Sessions {
	s := &Sessions{
		userID: userID,
		clock:  clock.Real(),
		newID:  uuid.NewString,
		dirty:  make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	for i := range existing {
		cp := existing[i]
		s.list = append(s.list, &cp)
	}
	return s
}

func (s *Sessions) UserID() uint64 { return s.userID }

// List returns copies of the sessions in display order.
func (s *Sessions) List() []model.ChatSession {
	out := make([]model.ChatSession, len(s.list))
	for i, cs := range s.list {
		out[i] = *cs
	}
	return out
}

func (s *Sessions) Len() int { return len(s.list) }

// Active returns the active session, or nil.
func (s *Sessions) Active() *model.ChatSession {
	for _, cs := range s.list {
		if cs.IsActive {
			return cs
		}
	}
	return nil
}

func (s *Sessions) find(id string) int {
	for i, cs := range s.list {
		if cs.ID == id {
			return i
		}
	}
	return -1
}

func (s *Sessions) deactivateAll() {
	for _, cs := range s.list {
		if cs.IsActive {
			cs.IsActive = false
			s.dirty[cs.ID] = true
		}
	}
}

// StartNewChat deactivates every session and prepends a new active one.
func (s *Sessions) StartNewChat() *model.ChatSession {
	s.deactivateAll()
	now := s.clock.Now().UTC()
	cs := &model.ChatSession{
		ID:        s.newID(),
		UserID:    s.userID,
		Title:     DefaultTitle,
		Messages:  []model.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	s.list = append([]*model.ChatSession{cs}, s.list...)
	s.dirty[cs.ID] = true
	return cs
}

// Switch activates the session with id. Unknown ids leave everything as is.
func (s *Sessions) Switch(id string) bool {
	i := s.find(id)
	if i < 0 {
		return false
	}
	s.deactivateAll()
	s.list[i].IsActive = true
	s.dirty[id] = true
	return true
}

// AddMessage appends msg to the active session. The first user message
// replaces the default title.
func (s *Sessions) AddMessage(msg model.ChatMessage) AddResult {
	cs := s.Active()
	if cs == nil {
		return AddResult{Status: NeedsSession}
	}
	now := s.clock.Now().UTC()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	cs.Messages = append(cs.Messages, msg)
	cs.UpdatedAt = now
	if cs.Title == DefaultTitle && msg.Role == model.MessageRoleUser {
		cs.Title = Title(msg.Content)
	}
	s.dirty[cs.ID] = true
	return AddResult{Status: Sent, Session: cs}
}

// AppendTo appends msg to session id whether or not it is active. It
// reports false, changing nothing, when the session no longer exists.
func (s *Sessions) AppendTo(id string, msg model.ChatMessage) (*model.ChatSession, bool) {
	i := s.find(id)
	if i < 0 {
		return nil, false
	}
	cs := s.list[i]
	now := s.clock.Now().UTC()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	cs.Messages = append(cs.Messages, msg)
	cs.UpdatedAt = now
	s.dirty[cs.ID] = true
	return cs, true
}

// Delete removes the session. When it was active, the most recently updated
// remaining session takes over, or a new chat is started if none remain.
func (s *Sessions) Delete(id string) bool {
	i := s.find(id)
	if i < 0 {
		return false
	}
	removed := s.list[i]
	s.list = append(s.list[:i], s.list[i+1:]...)
	delete(s.dirty, id)
	s.deleted = append(s.deleted, id)
	if !removed.IsActive {
		return true
	}
	if len(s.list) == 0 {
		s.StartNewChat()
		return true
	}
	next := s.list[0]
	for _, cs := range s.list[1:] {
		if cs.UpdatedAt.After(next.UpdatedAt) {
			next = cs
		}
	}
	s.deactivateAll()
	next.IsActive = true
	s.dirty[next.ID] = true
	return true
}

// Changes reports sessions to upsert and ids to delete since Load.
func (s *Sessions) Changes() (upserts []model.ChatSession, deletes []string) {
	for _, cs := range s.list {
		if s.dirty[cs.ID] {
			upserts = append(upserts, *cs)
		}
	}
	return upserts, append([]string(nil), s.deleted...)
}

// Title derives a session title from the first user message.
func Title(content string) string {
	if utf8.RuneCountInString(content) <= titleMaxRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:titleMaxRunes]) + titleEllipsis
}

