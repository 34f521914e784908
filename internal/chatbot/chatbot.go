// Package chatbot talks to the external assistant used when no knowledge
// article answers a message.
package chatbot

import (
	"context"
	"fmt"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
)

// Request is the body of POST /chat.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	UserID    uint64 `json:"user_id"`
}

// Response is the reply of POST /chat.
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Bot answers a chat message. Errors wrap errs.ErrChatbotUnavailable when the
// bot could not be reached and errs.ErrChatbotStatus when it answered with an error.
type Bot interface {
	Reply(ctx context.Context, req Request) (*Response, error)
}

// Disabled is used when no chatbot is configured; every call fails as unreachable.
type Disabled struct{}

func (Disabled) Reply(context.Context, Request) (*Response, error) {
	return nil, fmt.Errorf("%w: not configured", errs.ErrChatbotUnavailable)
}

// New picks the webhook when webhookURL is set, otherwise the model when an
// API key is set, otherwise Disabled.
func New(ctx context.Context, webhookURL string, mc ModelConfig) (Bot, error) {
	switch {
	case webhookURL != "":
		return NewWebhookClient(webhookURL, mc.Timeout), nil
	case mc.APIKey != "":
		return NewModelBot(ctx, mc)
	}
	return Disabled{}, nil
}
