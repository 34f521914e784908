package chatbot

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
)

const systemPrompt = `You are the first-line assistant of a bank's internal IT and operations helpdesk.
Answer briefly and concretely. If the issue needs a human (access changes, hardware, suspected fraud,
compliance questions), say so and suggest creating a support ticket. Never ask for passwords or PINs.`

type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ModelBot answers with an OpenAI-compatible chat model.
type ModelBot struct {
	chat generator
}

type ModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewModelBot(ctx context.Context, cfg ModelConfig) (*ModelBot, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("chatbot: openai model: %w", err)
	}
	return &ModelBot{chat: cm}, nil
}

func (b *ModelBot) Reply(ctx context.Context, req Request) (*Response, error) {
	msgs := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: req.Message},
	}
	out, err := b.chat.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrChatbotUnavailable, err)
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Response{Response: out.Content, SessionID: sessionID}, nil
}
