package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/chat"
	"github.com/psds-microservice/helpdesk-service/internal/chatbot"
	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/knowledge"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

const (
	ReplyChatbotError = "The chatbot service returned an error. Please try again later."
	ReplyUnavailable  = "I couldn't find a specific solution and the chatbot is unavailable. " +
		"I can create a support ticket for you to get personalized help from our support team."
	ReplyEmpty = "I could not generate a response."

	prefillTitleWords = 6
)

type ReplySource string

const (
	SourceKnowledge ReplySource = "knowledge"
	SourceChatbot   ReplySource = "chatbot"
	SourceFallback  ReplySource = "fallback"
)

// ArticleSource supplies the knowledge base in matching order.
type ArticleSource interface {
	Articles(ctx context.Context) ([]model.KnowledgeArticle, error)
}

// TicketOffer proposes creating a ticket from the unanswered message.
type TicketOffer struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Delay       time.Duration `json:"-"`
	DelayMs     int64         `json:"delayMs"`
}

// ChatReply is the outcome of one user message.
type ChatReply struct {
	Session   *model.ChatSession `json:"session"`
	Reply     model.ChatMessage  `json:"reply"`
	Source    ReplySource        `json:"source"`
	ArticleID uint64             `json:"articleId,omitempty"`
	Offer     *TicketOffer       `json:"ticketOffer,omitempty"`
}

type AssistantDeps struct {
	Chats      *ChatService
	Articles   ArticleSource
	Bot        chatbot.Bot
	Timeout    time.Duration
	OfferDelay time.Duration
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Assistant answers chat messages: knowledge base first, then the chatbot,
// then an apology with a ticket offer.
type Assistant struct {
	chats      *ChatService
	articles   ArticleSource
	bot        chatbot.Bot
	timeout    time.Duration
	offerDelay time.Duration
	clock      clock.Clock
	log        *slog.Logger
}

func NewAssistant(d AssistantDeps) *Assistant {
	if d.Bot == nil {
		d.Bot = chatbot.Disabled{}
	}
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Assistant{
		chats:      d.Chats,
		articles:   d.Articles,
		bot:        d.Bot,
		timeout:    d.Timeout,
		offerDelay: d.OfferDelay,
		clock:      d.Clock,
		log:        d.Logger.With("component", "assistant"),
	}
}

// OfferDelay is how long clients wait before showing a ticket offer.
func (a *Assistant) OfferDelay() time.Duration { return a.offerDelay }

// Send records the user's message, answers it and records the answer in
// the session the message went to. A missing active session is created
// before the message is stored.
func (a *Assistant) Send(ctx context.Context, userID uint64, content string) (*ChatReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message is required", errs.ErrInvalidInput)
	}
	// nothing is stored when the knowledge base cannot be read
	articles, err := a.articles.Articles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	msg := model.ChatMessage{Role: model.MessageRoleUser, Content: content, Timestamp: a.clock.Now().UTC()}
	res, err := a.chats.AddMessage(ctx, userID, msg)
	if err != nil {
		return nil, err
	}
	if res.Status == chat.NeedsSession {
		if _, err := a.chats.Start(ctx, userID); err != nil {
			return nil, err
		}
		if res, err = a.chats.AddMessage(ctx, userID, msg); err != nil {
			return nil, err
		}
		if res.Status != chat.Sent {
			return nil, errs.ErrNoActiveSession
		}
	}

	out := &ChatReply{Session: res.Session}
	req := chatbot.Request{Message: content, SessionID: res.Session.ID, UserID: userID}
	out.Reply = model.ChatMessage{
		Role:      model.MessageRoleAssistant,
		Content:   a.answer(ctx, req, articles, out),
		Timestamp: a.clock.Now().UTC(),
	}
	saved, err := a.chats.AppendTo(ctx, userID, res.Session.ID, out.Reply)
	switch {
	case errors.Is(err, errs.ErrSessionNotFound):
		a.log.Info("session deleted before the reply", "user_id", userID, "session_id", res.Session.ID)
	case err != nil:
		return nil, err
	default:
		out.Session = saved
	}
	return out, nil
}

func (a *Assistant) answer(ctx context.Context, req chatbot.Request, articles []model.KnowledgeArticle, out *ChatReply) string {
	if art, ok := knowledge.Match(req.Message, articles); ok {
		out.Source = SourceKnowledge
		out.ArticleID = art.ID
		return knowledge.CannedReply(art)
	}

	botCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	resp, err := a.bot.Reply(botCtx, req)
	if err == nil {
		out.Source = SourceChatbot
		if strings.TrimSpace(resp.Response) == "" {
			return ReplyEmpty
		}
		return resp.Response
	}

	a.log.Warn("chatbot failed", "user_id", req.UserID, "session_id", req.SessionID, "error", err)
	out.Source = SourceFallback
	out.Offer = a.offer(req.Message)
	if errors.Is(err, errs.ErrChatbotStatus) {
		return ReplyChatbotError
	}
	return ReplyUnavailable
}

func (a *Assistant) offer(message string) *TicketOffer {
	return &TicketOffer{
		Title:       PrefillTitle(message),
		Description: message,
		Delay:       a.offerDelay,
		DelayMs:     a.offerDelay.Milliseconds(),
	}
}

// Answer serves the chatbot webhook surface: a matching article, otherwise
// the configured bot. Bot errors are returned unchanged.
func (a *Assistant) Answer(ctx context.Context, req chatbot.Request) (*chatbot.Response, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return nil, fmt.Errorf("%w: message is required", errs.ErrInvalidInput)
	}
	articles, err := a.articles.Articles(ctx)
	if err != nil {
		return nil, err
	}
	if art, ok := knowledge.Match(req.Message, articles); ok {
		return &chatbot.Response{Response: knowledge.CannedReply(art), SessionID: req.SessionID}, nil
	}
	botCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	resp, err := a.bot.Reply(botCtx, req)
	if err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		resp.SessionID = req.SessionID
	}
	if strings.TrimSpace(resp.Response) == "" {
		resp.Response = ReplyEmpty
	}
	return resp, nil
}

// PrefillTitle is the first six words of message followed by "...".
func PrefillTitle(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return ""
	}
	if len(words) > prefillTitleWords {
		words = words[:prefillTitleWords]
	}
	return strings.Join(words, " ") + "..."
}
