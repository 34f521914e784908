package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

type DepartmentServicer interface {
	List(ctx context.Context) ([]model.Department, error)
	Ensure(ctx context.Context, d model.Department) (*model.Department, error)
}

type DepartmentService struct {
	db *gorm.DB
}

func NewDepartmentService(db *gorm.DB) *DepartmentService {
	return &DepartmentService{db: db}
}

func (s *DepartmentService) List(ctx context.Context) ([]model.Department, error) {
	var out []model.Department
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Ensure returns the department named d.Name, creating it when missing.
func (s *DepartmentService) Ensure(ctx context.Context, d model.Department) (*model.Department, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return nil, fmt.Errorf("%w: department name is required", errs.ErrInvalidInput)
	}
	out := model.Department{}
	err := s.db.WithContext(ctx).
		Where(&model.Department{Name: d.Name}).
		Attrs(model.Department{Description: d.Description}).
		FirstOrCreate(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}
