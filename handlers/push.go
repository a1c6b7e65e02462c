package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PushSubscriptionStore interface {
	Upsert(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error
}

type PushHandler struct {
	base
	subs      PushSubscriptionStore
	publicKey string
}

func NewPushHandler(subs PushSubscriptionStore, publicKey string, logger zerolog.Logger, timeout time.Duration) *PushHandler {
	return &PushHandler{base: newBase(logger, timeout), subs: subs, publicKey: publicKey}
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

func (h *PushHandler) VAPIDPublicKey(c *gin.Context) {
	if h.publicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.publicKey})
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	sub := webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys: webpush.Keys{
			P256dh: req.Keys.P256dh,
			Auth:   req.Keys.Auth,
		},
	}
	if err := h.subs.Upsert(ctx, userID, sub); err != nil {
		h.serverError(c, err)
		return
	}

	h.logger.Info().Str("user_id", userID.Hex()).Msg("push subscription saved")
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved successfully"})
}
