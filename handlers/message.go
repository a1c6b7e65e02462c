package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"studx/messaging"
)

type MessageHandler struct {
	base
	svc MessagingService
}

func NewMessageHandler(svc MessagingService, logger zerolog.Logger, timeout time.Duration) *MessageHandler {
	return &MessageHandler{base: newBase(logger, timeout), svc: svc}
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// List returns the conversation's messages and marks the other party's as read.
// GET /api/messages/conversations/:id
func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	msgs, err := h.svc.ListMessages(ctx, userID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if msgs == nil {
		msgs = []messaging.MessageView{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Send appends a message to the conversation.
// POST /api/messages/conversations/:id
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	msg, err := h.svc.SendMessage(ctx, userID, c.Param("id"), req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": msg,
		"success": true,
	})
}
