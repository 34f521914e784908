package service

import (
	"context"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/psds-microservice/helpdesk-service/internal/chat"
	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

type ChatServicer interface {
	List(ctx context.Context, userID uint64) ([]model.ChatSession, error)
	Start(ctx context.Context, userID uint64) (*model.ChatSession, error)
	Switch(ctx context.Context, userID uint64, id string) (*model.ChatSession, error)
	AddMessage(ctx context.Context, userID uint64, msg model.ChatMessage) (chat.AddResult, error)
	AppendTo(ctx context.Context, userID uint64, sessionID string, msg model.ChatMessage) (*model.ChatSession, error)
	Delete(ctx context.Context, userID uint64, id string) ([]model.ChatSession, error)
}

// ChatService persists chat.Sessions. Each operation loads the user's
// sessions, applies one transition and writes back only what changed.
type ChatService struct {
	db    *gorm.DB
	opts  []chat.Option
	locks sync.Map // userID -> *sync.Mutex
}

func NewChatService(db *gorm.DB, clk clock.Clock, opts ...chat.Option) *ChatService {
	if clk == nil {
		clk = clock.Real()
	}
	return &ChatService{db: db, opts: append([]chat.Option{chat.WithClock(clk)}, opts...)}
}

func (s *ChatService) lock(userID uint64) func() {
	m, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func loadSessions(tx *gorm.DB, userID uint64) ([]model.ChatSession, error) {
	var rows []model.ChatSession
	err := tx.Where(&model.ChatSession{UserID: userID}).
		Clauses(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: col("updatedAt"), Desc: true},
			{Column: col("createdAt"), Desc: true},
		}}).
		Find(&rows).Error
	return rows, err
}

// do runs fn on the user's sessions inside a transaction and persists the changes.
func (s *ChatService) do(ctx context.Context, userID uint64, fn func(*chat.Sessions) error) (*chat.Sessions, error) {
	unlock := s.lock(userID)
	defer unlock()

	var out *chat.Sessions
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := loadSessions(tx, userID)
		if err != nil {
			return err
		}
		sess := chat.Load(userID, rows, s.opts...)
		if err := fn(sess); err != nil {
			return err
		}
		upserts, deletes := sess.Changes()
		if len(deletes) > 0 {
			if err := tx.Where("id IN ?", deletes).Where(&model.ChatSession{UserID: userID}).
				Delete(&model.ChatSession{}).Error; err != nil {
				return err
			}
		}
		for i := range upserts {
			if err := tx.Save(&upserts[i]).Error; err != nil {
				return err
			}
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the user's sessions, most recently updated first.
func (s *ChatService) List(ctx context.Context, userID uint64) ([]model.ChatSession, error) {
	return loadSessions(s.db.WithContext(ctx), userID)
}

// Active returns the active session, or errs.ErrNoActiveSession.
func (s *ChatService) Active(ctx context.Context, userID uint64) (*model.ChatSession, error) {
	rows, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a := chat.Load(userID, rows).Active(); a != nil {
		return a, nil
	}
	return nil, errs.ErrNoActiveSession
}

func (s *ChatService) Start(ctx context.Context, userID uint64) (*model.ChatSession, error) {
	var cs *model.ChatSession
	_, err := s.do(ctx, userID, func(sess *chat.Sessions) error {
		cp := *sess.StartNewChat()
		cs = &cp
		return nil
	})
	return cs, err
}

// Switch activates session id. An id the user does not own changes nothing
// and yields errs.ErrSessionNotFound.
func (s *ChatService) Switch(ctx context.Context, userID uint64, id string) (*model.ChatSession, error) {
	id = strings.TrimSpace(id)
	var cs *model.ChatSession
	_, err := s.do(ctx, userID, func(sess *chat.Sessions) error {
		if !sess.Switch(id) {
			return errs.ErrSessionNotFound
		}
		cp := *sess.Active()
		cs = &cp
		return nil
	})
	return cs, err
}

// AddMessage appends msg to the active session. A NeedsSession result is
// returned without error and without changes.
func (s *ChatService) AddMessage(ctx context.Context, userID uint64, msg model.ChatMessage) (chat.AddResult, error) {
	var res chat.AddResult
	_, err := s.do(ctx, userID, func(sess *chat.Sessions) error {
		res = sess.AddMessage(msg)
		if res.Session != nil {
			cp := *res.Session
			res.Session = &cp
		}
		return nil
	})
	return res, err
}

// AppendTo appends msg to session id even if another session became active
// meanwhile. A deleted session yields errs.ErrSessionNotFound.
func (s *ChatService) AppendTo(ctx context.Context, userID uint64, sessionID string, msg model.ChatMessage) (*model.ChatSession, error) {
	var cs *model.ChatSession
	_, err := s.do(ctx, userID, func(sess *chat.Sessions) error {
		got, ok := sess.AppendTo(sessionID, msg)
		if !ok {
			return errs.ErrSessionNotFound
		}
		cp := *got
		cs = &cp
		return nil
	})
	return cs, err
}

// Delete removes session id and returns the remaining sessions.
func (s *ChatService) Delete(ctx context.Context, userID uint64, id string) ([]model.ChatSession, error) {
	sess, err := s.do(ctx, userID, func(sess *chat.Sessions) error {
		if !sess.Delete(id) {
			return errs.ErrSessionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess.List(), nil
}
