package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/helpdesk-service/internal/chatbot"
	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

type ChatHandler struct {
	assistant *service.Assistant
	chats     service.ChatServicer
	clock     clock.Clock
}

func NewChatHandler(a *service.Assistant, chats service.ChatServicer, clk clock.Clock) *ChatHandler {
	if clk == nil {
		clk = clock.Real()
	}
	return &ChatHandler{assistant: a, chats: chats, clock: clk}
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	list, err := h.chats.List(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (h *ChatHandler) StartSession(c *gin.Context) {
	cs, err := h.chats.Start(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cs)
}

func (h *ChatHandler) SwitchSession(c *gin.Context) {
	cs, err := h.chats.Switch(c.Request.Context(), currentIdentity(c).UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cs)
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	list, err := h.chats.Delete(c.Request.Context(), currentIdentity(c).UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

type sendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SendMessage answers one chat message. Clients accepting text/event-stream
// get a "message" event and, after the offer delay, a "ticket_offer" event;
// everyone else gets the reply with the offer inline.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	reply, err := h.assistant.Send(c.Request.Context(), currentIdentity(c).UserID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	if !strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		c.JSON(http.StatusOK, reply)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	offer := reply.Offer
	reply.Offer = nil
	c.SSEvent("message", reply)
	c.Writer.Flush()
	if offer != nil {
		select {
		case <-h.clock.After(offer.Delay):
			c.SSEvent("ticket_offer", offer)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
	c.SSEvent("done", gin.H{"sessionId": reply.Session.ID})
	c.Writer.Flush()
}

// Webhook serves POST /chat for clients that speak the chatbot protocol.
func (h *ChatHandler) Webhook(c *gin.Context) {
	var req chatbot.Request
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	resp, err := h.assistant.Answer(c.Request.Context(), req)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			respondError(c, err)
			return
		}
		c.JSON(code, gin.H{"error": errs.ErrChatbotUnavailable.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
