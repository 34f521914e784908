package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/identity"
	"github.com/psds-microservice/helpdesk-service/internal/limiter"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/oauth"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// SessionIssuer is satisfied by *identity.Manager.
type SessionIssuer interface {
	TokenAuthenticator
	Login(ctx context.Context, username, password string) (*identity.Session, error)
	Issue(ctx context.Context, u *model.User) (*identity.Session, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	sessions SessionIssuer
	users    service.UserServicer
	limiter  limiter.Limiter
	google   *oauth.Google
	log      *slog.Logger
}

func NewAuthHandler(sessions SessionIssuer, users service.UserServicer, lim limiter.Limiter, google *oauth.Google) *AuthHandler {
	if lim == nil {
		lim = limiter.Unlimited{}
	}
	return &AuthHandler{
		sessions: sessions,
		users:    users,
		limiter:  lim,
		google:   google,
		log:      slog.Default().With("component", "auth"),
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "username and password are required"})
		return
	}
	key := c.ClientIP() + "|" + strings.ToLower(strings.TrimSpace(req.Username))
	ok, err := h.limiter.Allow(c.Request.Context(), key)
	if err != nil {
		h.log.Warn("rate limiter unavailable", "error", err)
	} else if !ok {
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": errs.ErrRateLimited.Error()})
		return
	}
	sess, err := h.sessions.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": errs.ErrInvalidCredentials.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     sess.Token,
		"expiresAt": sess.ExpiresAt,
		"user":      sess.User,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), currentToken(c)); err != nil {
		h.log.Warn("logout", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentIdentity(c))
}

type googleRequest struct {
	Credential string `json:"credential"`
	Code       string `json:"code"`
}

// Google signs a user in with a Google ID token or authorization code.
func (h *AuthHandler) Google(c *gin.Context) {
	if !h.google.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": errs.ErrOAuthDisabled.Error()})
		return
	}
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Credential == "" && req.Code == "") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "credential or code is required"})
		return
	}
	ctx := c.Request.Context()
	var (
		info *oauth.UserInfo
		err  error
	)
	if req.Credential != "" {
		info, err = h.google.VerifyIDToken(ctx, req.Credential)
	} else {
		info, err = h.google.ExchangeCode(ctx, req.Code)
	}
	if err != nil {
		h.log.Info("google sign-in rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Google authentication failed"})
		return
	}
	u, err := h.users.FindOrCreateOAuth(ctx, info)
	if err != nil {
		if code := statusFor(err); code != http.StatusInternalServerError {
			c.JSON(code, gin.H{"success": false, "error": errs.ErrInvalidCredentials.Error()})
			return
		}
		respondError(c, err)
		return
	}
	sess, err := h.sessions.Issue(ctx, u)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": sess.Token, "user": sess.User})
}
