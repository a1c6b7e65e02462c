package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/messaging"
)

// MessagingService is the conversation and message API the handlers expose.
type MessagingService interface {
	FindOrCreate(ctx context.Context, callerID primitive.ObjectID, p messaging.StartParams) (*messaging.StartResult, error)
	List(ctx context.Context, callerID primitive.ObjectID) ([]messaging.ConversationSummary, error)
	Delete(ctx context.Context, callerID primitive.ObjectID, conversationID string) error
	ListMessages(ctx context.Context, callerID primitive.ObjectID, conversationID string) ([]messaging.MessageView, error)
	SendMessage(ctx context.Context, callerID primitive.ObjectID, conversationID, text string) (*messaging.MessageView, error)
}

type ConversationHandler struct {
	base
	svc MessagingService
}

func NewConversationHandler(svc MessagingService, logger zerolog.Logger, timeout time.Duration) *ConversationHandler {
	return &ConversationHandler{base: newBase(logger, timeout), svc: svc}
}

type startConversationRequest struct {
	OtherUserID    string `json:"otherUserId"`
	OtherUserName  string `json:"otherUserName"`
	OtherUserEmail string `json:"otherUserEmail"`
}

// List godoc
// GET /api/messages/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	convs, err := h.svc.List(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if convs == nil {
		convs = []messaging.ConversationSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// Create godoc
// POST /api/messages/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	res, err := h.svc.FindOrCreate(ctx, userID, messaging.StartParams{
		OtherUserID:    req.OtherUserID,
		OtherUserName:  req.OtherUserName,
		OtherUserEmail: req.OtherUserEmail,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if res.Created {
		c.JSON(http.StatusCreated, gin.H{
			"conversationId": res.ConversationID,
			"message":        "Conversation created",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversationId": res.ConversationID,
		"message":        "Conversation already exists",
	})
}

// Delete godoc
// DELETE /api/messages/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.svc.Delete(ctx, userID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}
