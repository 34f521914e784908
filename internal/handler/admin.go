package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/routing"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"github.com/psds-microservice/helpdesk-service/internal/store"
)

type AdminHandler struct {
	users   service.UserServicer
	tickets service.TicketServicer
	store   *store.Store
}

func NewAdminHandler(users service.UserServicer, s *store.Store) *AdminHandler {
	return &AdminHandler{users: users, tickets: s.Tickets(), store: s}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createUserRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}
	u, err := h.users.Create(c.Request.Context(), service.NewUser{
		Username:   req.Username,
		Password:   req.Password,
		Name:       req.Name,
		Email:      req.Email,
		Role:       model.Role(req.Role),
		Department: req.Department,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *AdminHandler) ToggleUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if me := currentIdentity(c); me != nil && me.UserID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot deactivate yourself"})
		return
	}
	u, err := h.users.ToggleActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Dashboard reports ticket counts; departments come from the store, or from
// the routing table when none are configured.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	depts, err := h.store.Departments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if len(depts) == 0 {
		for _, name := range routing.Default().Departments() {
			depts = append(depts, model.Department{Name: name})
		}
	}
	stats, err := h.tickets.Stats(c.Request.Context(), depts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) ListDepartments(c *gin.Context) {
	depts, err := h.store.Departments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": depts})
}
