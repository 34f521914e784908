package errs

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrRateLimited        = errors.New("too many attempts")
	ErrForbidden          = errors.New("forbidden")

	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrArticleNotFound = errors.New("knowledge article not found")
	ErrSessionNotFound = errors.New("chat session not found")
	ErrNoActiveSession = errors.New("no active chat session")

	ErrInvalidInput = errors.New("invalid input")

	ErrChatbotUnavailable = errors.New("chatbot unavailable")
	ErrChatbotStatus      = errors.New("chatbot returned an error")
	ErrOAuthDisabled      = errors.New("oauth provider not configured")
	ErrOAuthRejected      = errors.New("oauth credential rejected")
)
