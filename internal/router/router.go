package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/psds-microservice/helpdesk-service/api"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Tickets   *handler.TicketHandler
	Knowledge *handler.KnowledgeHandler
	Chat      *handler.ChatHandler
	Admin     *handler.AdminHandler
	// Authenticator verifies bearer credentials for /api/v1.
	Authenticator handler.TokenAuthenticator
	CORSOrigins   []string
}

func New(h Handlers) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors(h.CORSOrigins))
	r.GET(paths.PathHealth, h.Health.Health)
	r.GET(paths.PathReady, h.Health.Ready)
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	// chatbot-compatible surface
	r.POST("/auth/google", h.Auth.Google)
	r.POST("/chat", h.Chat.Webhook)

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", h.Auth.Login)
	v1.POST("/auth/google", h.Auth.Google)

	authed := v1.Group("", handler.RequireAuth(h.Authenticator))
	staff := handler.RequireRole(model.RoleSupportAgent, model.RoleAdmin)
	admin := handler.RequireRole(model.RoleAdmin)
	{
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.GET("/auth/me", h.Auth.Me)

		authed.POST("/tickets", h.Tickets.Create)
		authed.GET("/tickets", h.Tickets.List)
		authed.GET("/tickets/:id", h.Tickets.Get)
		authed.PUT("/tickets/:id", staff, h.Tickets.Update)
		authed.POST("/tickets/:id/comments", h.Tickets.AddComment)

		authed.GET("/knowledge", h.Knowledge.List)
		authed.GET("/knowledge/:id", h.Knowledge.Get)
		authed.POST("/knowledge", staff, h.Knowledge.Create)
		authed.PUT("/knowledge/:id", staff, h.Knowledge.Update)
		authed.DELETE("/knowledge/:id", staff, h.Knowledge.Delete)

		authed.GET("/departments", h.Admin.ListDepartments)

		authed.GET("/chat/sessions", h.Chat.ListSessions)
		authed.POST("/chat/sessions", h.Chat.StartSession)
		authed.POST("/chat/sessions/:id/activate", h.Chat.SwitchSession)
		authed.DELETE("/chat/sessions/:id", h.Chat.DeleteSession)
		authed.POST("/chat/messages", h.Chat.SendMessage)

		authed.GET("/admin/dashboard", admin, h.Admin.Dashboard)
		authed.GET("/admin/users", admin, h.Admin.ListUsers)
		authed.POST("/admin/users", admin, h.Admin.CreateUser)
		authed.PATCH("/admin/users/:id/toggle-active", admin, h.Admin.ToggleUser)
	}

	return r
}
