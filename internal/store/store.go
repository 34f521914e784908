// Package store is the shared domain store: it caches the knowledge base and
// departments for matching and routing and writes changes through to the
// database. Tickets and chat sessions are always read from the database.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

type Store struct {
	knowledge   service.KnowledgeServicer
	departments service.DepartmentServicer
	tickets     service.TicketServicer
	chats       *service.ChatService
	clock       clock.Clock
	ttl         time.Duration
	log         *slog.Logger

	mu       sync.RWMutex
	articles []model.KnowledgeArticle
	depts    []model.Department
	loadedAt time.Time
	loaded   bool
}

type Deps struct {
	Knowledge   service.KnowledgeServicer
	Departments service.DepartmentServicer
	Tickets     service.TicketServicer
	Chats       *service.ChatService
	Clock       clock.Clock
	// TTL forces a reload of stale data; zero keeps it until Reload.
	TTL    time.Duration
	Logger *slog.Logger
}

func New(d Deps) *Store {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Store{
		knowledge:   d.Knowledge,
		departments: d.Departments,
		tickets:     d.Tickets,
		chats:       d.Chats,
		clock:       d.Clock,
		ttl:         d.TTL,
		log:         d.Logger.With("component", "store"),
	}
}

// Tickets is not cached; every call goes to the database.
func (s *Store) Tickets() service.TicketServicer { return s.tickets }

// Chats is not cached; sessions are per user.
func (s *Store) Chats() *service.ChatService { return s.chats }

// Reload replaces the cache from the database.
func (s *Store) Reload(ctx context.Context) error {
	articles, err := s.knowledge.List(ctx)
	if err != nil {
		return err
	}
	depts, err := s.departments.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.articles, s.depts = articles, depts
	s.loadedAt = s.clock.Now()
	s.loaded = true
	s.mu.Unlock()
	s.log.Debug("reloaded", "articles", len(articles), "departments", len(depts))
	return nil
}

func (s *Store) ensure(ctx context.Context) error {
	s.mu.RLock()
	fresh := s.loaded && (s.ttl <= 0 || s.clock.Now().Sub(s.loadedAt) < s.ttl)
	s.mu.RUnlock()
	if fresh {
		return nil
	}
	return s.Reload(ctx)
}

// Articles returns a copy of the knowledge base ordered by title.
func (s *Store) Articles(ctx context.Context) ([]model.KnowledgeArticle, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.KnowledgeArticle(nil), s.articles...), nil
}

// Departments returns a copy of the departments ordered by name.
func (s *Store) Departments(ctx context.Context) ([]model.Department, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Department(nil), s.depts...), nil
}

func (s *Store) Article(ctx context.Context, id uint64) (*model.KnowledgeArticle, error) {
	return s.knowledge.GetByID(ctx, id)
}

func (s *Store) CreateArticle(ctx context.Context, a model.KnowledgeArticle) (*model.KnowledgeArticle, error) {
	out, err := s.knowledge.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	s.refreshArticles(ctx)
	return out, nil
}

func (s *Store) UpdateArticle(ctx context.Context, id uint64, a model.KnowledgeArticle) (*model.KnowledgeArticle, error) {
	out, err := s.knowledge.Update(ctx, id, a)
	if err != nil {
		return nil, err
	}
	s.refreshArticles(ctx)
	return out, nil
}

func (s *Store) DeleteArticle(ctx context.Context, id uint64) error {
	if err := s.knowledge.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.articles {
		if s.articles[i].ID == id {
			s.articles = append(s.articles[:i], s.articles[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) EnsureDepartment(ctx context.Context, d model.Department) (*model.Department, error) {
	out, err := s.departments.Ensure(ctx, d)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	known := !s.loaded
	for _, cur := range s.depts {
		if cur.ID == out.ID {
			known = true
			break
		}
	}
	s.mu.RUnlock()
	if known {
		return out, nil
	}
	depts, err := s.departments.List(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn("refresh departments", "error", err)
		s.loaded = false
		return out, nil
	}
	s.depts = depts
	return out, nil
}

// refreshArticles re-reads the knowledge base after a successful write so
// the cache keeps the database's title order. Before the first load the
// cache is left for Reload to fill; a failed read marks it stale.
func (s *Store) refreshArticles(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return
	}
	articles, err := s.knowledge.List(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn("refresh knowledge base", "error", err)
		s.loaded = false
		return
	}
	s.articles = articles
}
