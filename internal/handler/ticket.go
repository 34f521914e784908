package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/events"
	"github.com/psds-microservice/helpdesk-service/internal/identity"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

type TicketHandler struct {
	svc    service.TicketServicer
	events *events.Dispatcher
}

func NewTicketHandler(svc service.TicketServicer, ev *events.Dispatcher) *TicketHandler {
	return &TicketHandler{svc: svc, events: ev}
}

type createTicketRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Priority    string `json:"priority"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, description and category are required"})
		return
	}
	me := currentIdentity(c)
	t, err := h.svc.Create(c.Request.Context(), service.NewTicket{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    model.TicketPriority(req.Priority),
		CreatedBy:   me.UserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.events.Ticket(events.TicketCreated, t)
	c.JSON(http.StatusCreated, t)
}

// load fetches a ticket the caller may see. End users only see their own.
func (h *TicketHandler) load(c *gin.Context, me *identity.Identity) (*model.Ticket, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	t, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !me.Role.Staff() && t.CreatedBy != me.UserID {
		respondError(c, errs.ErrTicketNotFound)
		return nil, false
	}
	return t, true
}

func (h *TicketHandler) Get(c *gin.Context) {
	me := currentIdentity(c)
	t, ok := h.load(c, me)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, t.VisibleTo(me.Role))
}

// List serves three views: view=mine (default for end users), view=queue
// (default for agents) and view=all (default for admins).
func (h *TicketHandler) List(c *gin.Context) {
	me := currentIdentity(c)
	view := c.Query("view")
	if view == "" {
		switch me.Role {
		case model.RoleAdmin:
			view = "all"
		case model.RoleSupportAgent:
			view = "queue"
		default:
			view = "mine"
		}
	}

	var f service.TicketFilter
	switch view {
	case "mine":
		f.CreatedBy = me.UserID
		f.Status = model.TicketStatus(c.Query("status"))
	case "queue":
		if !me.Role.Staff() {
			respondError(c, errs.ErrForbidden)
			return
		}
		f.Queue = true
		f.QueueDepartment = me.Department
		f.QueueUser = me.UserID
		f.ExcludeClosed = true
		f.Status = model.TicketStatus(c.Query("status"))
		f.Priority = model.TicketPriority(c.Query("priority"))
	case "all":
		if me.Role != model.RoleAdmin {
			respondError(c, errs.ErrForbidden)
			return
		}
		f.Status = model.TicketStatus(c.Query("status"))
		f.Department = c.Query("department")
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "view must be mine, queue or all"})
		return
	}

	limit, offset := parsePaging(c)
	items, total, err := h.svc.List(c.Request.Context(), f, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range items {
		items[i] = items[i].VisibleTo(me.Role)
	}
	c.JSON(http.StatusOK, gin.H{
		"tickets": items,
		"total":   total,
	})
}

type updateTicketRequest struct {
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
	// AssignedTo accepts a user id or null to unassign.
	AssignedTo json.RawMessage `json:"assignedTo,omitempty"`
}

func (r updateTicketRequest) changes() (service.TicketChanges, bool) {
	var ch service.TicketChanges
	if r.Status != nil {
		st := model.TicketStatus(*r.Status)
		ch.Status = &st
	}
	if r.Priority != nil {
		p := model.TicketPriority(*r.Priority)
		ch.Priority = &p
	}
	if len(r.AssignedTo) > 0 {
		if bytes.Equal(bytes.TrimSpace(r.AssignedTo), []byte("null")) {
			ch.Unassign = true
		} else {
			var id uint64
			if err := json.Unmarshal(r.AssignedTo, &id); err != nil {
				return ch, false
			}
			ch.AssignedTo = &id
		}
	}
	return ch, true
}

// Update is restricted to staff by the router.
func (h *TicketHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	changes, ok := req.changes()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assignedTo must be a user id or null"})
		return
	}
	if changes.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no changes"})
		return
	}
	t, err := h.svc.Update(c.Request.Context(), id, changes)
	if err != nil {
		respondError(c, err)
		return
	}
	h.events.Ticket(events.TicketUpdated, t)
	c.JSON(http.StatusOK, t)
}

type commentRequest struct {
	Content  string `json:"content" binding:"required"`
	Internal bool   `json:"internal"`
}

func (h *TicketHandler) AddComment(c *gin.Context) {
	me := currentIdentity(c)
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	if req.Internal && !me.Role.Staff() {
		respondError(c, errs.ErrForbidden)
		return
	}
	t, ok := h.load(c, me)
	if !ok {
		return
	}
	t, err := h.svc.AddComment(c.Request.Context(), t.ID, model.Comment{
		AuthorID: me.UserID,
		Content:  req.Content,
		Internal: req.Internal,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.events.Ticket(events.TicketCommented, t)
	c.JSON(http.StatusCreated, t.VisibleTo(me.Role))
}
