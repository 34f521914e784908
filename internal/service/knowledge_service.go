package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

type KnowledgeServicer interface {
	List(ctx context.Context) ([]model.KnowledgeArticle, error)
	GetByID(ctx context.Context, id uint64) (*model.KnowledgeArticle, error)
	Create(ctx context.Context, a model.KnowledgeArticle) (*model.KnowledgeArticle, error)
	Update(ctx context.Context, id uint64, a model.KnowledgeArticle) (*model.KnowledgeArticle, error)
	Delete(ctx context.Context, id uint64) error
}

type KnowledgeService struct {
	db *gorm.DB
}

func NewKnowledgeService(db *gorm.DB) *KnowledgeService {
	return &KnowledgeService{db: db}
}

// List returns every article ordered by title; matching walks this order.
func (s *KnowledgeService) List(ctx context.Context) ([]model.KnowledgeArticle, error) {
	var out []model.KnowledgeArticle
	if err := s.db.WithContext(ctx).Order("title").Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *KnowledgeService) GetByID(ctx context.Context, id uint64) (*model.KnowledgeArticle, error) {
	var a model.KnowledgeArticle
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrArticleNotFound
		}
		return nil, err
	}
	return &a, nil
}

func normalizeArticle(a *model.KnowledgeArticle) error {
	a.Title = strings.TrimSpace(a.Title)
	a.Category = strings.TrimSpace(a.Category)
	a.Solution = strings.TrimSpace(a.Solution)
	if a.Title == "" || a.Solution == "" {
		return fmt.Errorf("%w: title and solution are required", errs.ErrInvalidInput)
	}
	kws := make([]string, 0, len(a.Keywords))
	for _, k := range a.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	a.Keywords = kws
	return nil
}

func (s *KnowledgeService) Create(ctx context.Context, a model.KnowledgeArticle) (*model.KnowledgeArticle, error) {
	a.ID = 0
	if err := normalizeArticle(&a); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *KnowledgeService) Update(ctx context.Context, id uint64, a model.KnowledgeArticle) (*model.KnowledgeArticle, error) {
	if err := normalizeArticle(&a); err != nil {
		return nil, err
	}
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cur.Title, cur.Category, cur.Solution, cur.Keywords = a.Title, a.Category, a.Solution, a.Keywords
	if err := s.db.WithContext(ctx).Save(cur).Error; err != nil {
		return nil, err
	}
	return cur, nil
}

func (s *KnowledgeService) Delete(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&model.KnowledgeArticle{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrArticleNotFound
	}
	return nil
}
