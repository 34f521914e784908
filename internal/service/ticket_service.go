package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/routing"
)

// TicketServicer интерфейс для handler Deps.
type TicketServicer interface {
	Create(ctx context.Context, in NewTicket) (*model.Ticket, error)
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	List(ctx context.Context, f TicketFilter, limit, offset int) ([]model.Ticket, int64, error)
	Update(ctx context.Context, id uint64, changes TicketChanges) (*model.Ticket, error)
	AddComment(ctx context.Context, id uint64, c model.Comment) (*model.Ticket, error)
	Stats(ctx context.Context, departments []model.Department) (*DashboardStats, error)
}

type NewTicket struct {
	Title       string
	Description string
	Category    string
	Priority    model.TicketPriority
	CreatedBy   uint64
}

// TicketFilter narrows a ticket listing. Zero values are ignored.
type TicketFilter struct {
	CreatedBy  uint64
	Status     model.TicketStatus
	Priority   model.TicketPriority
	Department string
	// Queue selects tickets of QueueDepartment or assigned to QueueUser.
	Queue           bool
	QueueDepartment string
	QueueUser       uint64
	ExcludeClosed   bool
}

// TicketChanges holds the fields staff may change. Nil means unchanged.
type TicketChanges struct {
	Status     *model.TicketStatus
	Priority   *model.TicketPriority
	AssignedTo *uint64
	// Unassign clears assignedTo; it wins over AssignedTo.
	Unassign bool
}

func (c TicketChanges) Empty() bool {
	return c.Status == nil && c.Priority == nil && c.AssignedTo == nil && !c.Unassign
}

type DepartmentCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type DashboardStats struct {
	Total       int64             `json:"totalTickets"`
	Open        int64             `json:"openTickets"`
	Resolved    int64             `json:"resolvedTickets"`
	Departments []DepartmentCount `json:"departmentStats"`
}

type TicketService struct {
	db     *gorm.DB
	clock  clock.Clock
	router *routing.Router
}

func NewTicketService(db *gorm.DB, clk clock.Clock) *TicketService {
	if clk == nil {
		clk = clock.Real()
	}
	return &TicketService{db: db, clock: clk, router: routing.Default()}
}

func col(name string) clause.Column { return clause.Column{Name: name} }

// Create validates the request, routes it to a department and stores it as Open.
func (s *TicketService) Create(ctx context.Context, in NewTicket) (*model.Ticket, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || in.Description == "" || in.Category == "" {
		return nil, fmt.Errorf("%w: title, description and category are required", errs.ErrInvalidInput)
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: invalid priority %q", errs.ErrInvalidInput, in.Priority)
	}
	now := s.clock.Now().UTC()
	t := &model.Ticket{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      model.TicketStatusOpen,
		CreatedBy:   in.CreatedBy,
		Department:  s.router.Department(in.Category),
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []model.Comment{},
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TicketService) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (f TicketFilter) expressions() []clause.Expression {
	var out []clause.Expression
	if f.CreatedBy != 0 {
		out = append(out, clause.Eq{Column: col("createdBy"), Value: f.CreatedBy})
	}
	if f.Status != "" {
		out = append(out, clause.Eq{Column: col("status"), Value: string(f.Status)})
	}
	if f.Priority != "" {
		out = append(out, clause.Eq{Column: col("priority"), Value: string(f.Priority)})
	}
	if f.Department != "" {
		out = append(out, clause.Eq{Column: col("department"), Value: f.Department})
	}
	if f.Queue {
		out = append(out, clause.Or(
			clause.Eq{Column: col("department"), Value: f.QueueDepartment},
			clause.Eq{Column: col("assignedTo"), Value: f.QueueUser},
		))
	}
	if f.ExcludeClosed {
		out = append(out, clause.Neq{Column: col("status"), Value: string(model.TicketStatusClosed)})
	}
	return out
}

func (s *TicketService) List(ctx context.Context, f TicketFilter, limit, offset int) ([]model.Ticket, int64, error) {
	var items []model.Ticket
	var total int64
	tx := s.db.WithContext(ctx).Model(&model.Ticket{})
	if exprs := f.expressions(); len(exprs) > 0 {
		tx = tx.Clauses(clause.Where{Exprs: exprs})
	}
	// Count total before pagination
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	order := clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: col("createdAt"), Desc: true},
		{Column: col("id"), Desc: true},
	}}
	if err := tx.Clauses(order).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *TicketService) Update(ctx context.Context, id uint64, changes TicketChanges) (*model.Ticket, error) {
	if changes.Status != nil && !changes.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", errs.ErrInvalidInput, *changes.Status)
	}
	if changes.Priority != nil && !changes.Priority.Valid() {
		return nil, fmt.Errorf("%w: invalid priority %q", errs.ErrInvalidInput, *changes.Priority)
	}
	if changes.Empty() {
		return nil, fmt.Errorf("%w: no changes", errs.ErrInvalidInput)
	}
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	upd := map[string]interface{}{"updatedAt": s.clock.Now().UTC()}
	if changes.Status != nil {
		upd["status"] = string(*changes.Status)
	}
	if changes.Priority != nil {
		upd["priority"] = string(*changes.Priority)
	}
	if changes.Unassign {
		upd["assignedTo"] = nil
	} else if changes.AssignedTo != nil {
		upd["assignedTo"] = *changes.AssignedTo
	}
	if err := s.db.WithContext(ctx).Model(t).Updates(upd).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// AddComment appends c to the ticket's comment thread and refreshes updatedAt.
func (s *TicketService) AddComment(ctx context.Context, id uint64, c model.Comment) (*model.Ticket, error) {
	c.Content = strings.TrimSpace(c.Content)
	if c.Content == "" {
		return nil, fmt.Errorf("%w: comment content is required", errs.ErrInvalidInput)
	}
	var out model.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrTicketNotFound
			}
			return err
		}
		now := s.clock.Now().UTC()
		c.ID = now.UnixMilli()
		if n := len(out.Comments); n > 0 && out.Comments[n-1].ID >= c.ID {
			c.ID = out.Comments[n-1].ID + 1
		}
		c.CreatedAt = now
		out.Comments = append(out.Comments, c)
		out.UpdatedAt = now
		return tx.Model(&out).Updates(map[string]interface{}{
			"comments":  out.Comments,
			"updatedAt": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats counts tickets for the admin dashboard. Department counts exclude
// Closed tickets and follow the order of departments.
func (s *TicketService) Stats(ctx context.Context, departments []model.Department) (*DashboardStats, error) {
	db := s.db.WithContext(ctx).Model(&model.Ticket{})
	out := &DashboardStats{Departments: make([]DepartmentCount, 0, len(departments))}
	if err := db.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Clauses(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: col("status"), Value: string(model.TicketStatusOpen)},
	}}).Count(&out.Open).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Clauses(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: col("status"), Value: string(model.TicketStatusResolved)},
	}}).Count(&out.Resolved).Error; err != nil {
		return nil, err
	}
	var rows []struct {
		Department string
		N          int64
	}
	if err := db.Session(&gorm.Session{}).
		Select("department, COUNT(*) AS n").
		Clauses(clause.Where{Exprs: []clause.Expression{
			clause.Neq{Column: col("status"), Value: string(model.TicketStatusClosed)},
		}}).
		Group("department").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	byDept := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDept[r.Department] = r.N
	}
	for _, d := range departments {
		out.Departments = append(out.Departments, DepartmentCount{Name: d.Name, Count: byDept[d.Name]})
	}
	return out, nil
}
