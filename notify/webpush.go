package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/database"
	"studx/messaging"
	"studx/metrics"
	"studx/models"
)

const (
	maxBodyLength = 100
	sendTimeout   = 5 * time.Second
	pushTTL       = 30
)

type SubscriptionStore interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type sendFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

type payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Data  payloadData `json:"data"`
}

type payloadData struct {
	ConversationID string `json:"conversationId"`
	URL            string `json:"url"`
}

// WebPush delivers new-message notifications to the recipient's browser
// subscription. Delivery happens on its own goroutine.
type WebPush struct {
	subs       SubscriptionStore
	privateKey string
	publicKey  string
	subscriber string
	logger     zerolog.Logger
	send       sendFunc
	wg         sync.WaitGroup
}

func NewWebPush(subs SubscriptionStore, publicKey, privateKey, subscriber string, logger zerolog.Logger) *WebPush {
	return &WebPush{
		subs:       subs,
		privateKey: privateKey,
		publicKey:  publicKey,
		subscriber: subscriber,
		logger:     logger,
		send:       webpush.SendNotificationWithContext,
	}
}

func (w *WebPush) NotifyNewMessage(n messaging.Notification) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error().Interface("panic", r).Msg("panic in push notification")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		w.deliver(ctx, n)
	}()
}

// Wait blocks until in-flight deliveries finish.
func (w *WebPush) Wait() {
	w.wg.Wait()
}

func (w *WebPush) deliver(ctx context.Context, n messaging.Notification) {
	log := w.logger.With().Str("recipient_id", n.RecipientID.Hex()).Logger()

	sub, err := w.subs.FindByUser(ctx, n.RecipientID)
	if errors.Is(err, database.ErrNotFound) {
		metrics.PushNotificationsTotal.WithLabelValues("no_subscription").Inc()
		return
	}
	if err != nil {
		metrics.PushNotificationsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("failed to load push subscription")
		return
	}

	body, err := json.Marshal(buildPayload(n))
	if err != nil {
		metrics.PushNotificationsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("failed to marshal push payload")
		return
	}

	resp, err := w.send(ctx, body, &sub.Sub, &webpush.Options{
		Subscriber:      w.subscriber,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		TTL:             pushTTL,
	})
	if err != nil {
		metrics.PushNotificationsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("failed to send push notification")
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		metrics.PushNotificationsTotal.WithLabelValues("expired").Inc()
		log.Info().Int("status", resp.StatusCode).Msg("push subscription expired, deleting")
		if err := w.subs.DeleteByUser(ctx, n.RecipientID); err != nil {
			log.Error().Err(err).Msg("failed to delete expired subscription")
		}
	case resp.StatusCode >= 400:
		metrics.PushNotificationsTotal.WithLabelValues("rejected").Inc()
		log.Warn().Int("status", resp.StatusCode).Msg("push service rejected notification")
	default:
		metrics.PushNotificationsTotal.WithLabelValues("sent").Inc()
		log.Debug().Msg("push notification sent")
	}
}

func buildPayload(n messaging.Notification) payload {
	sender := n.SenderName
	if sender == "" {
		sender = "Someone"
	}
	return payload{
		Title: sender + " sent a message",
		Body:  truncate(n.Text, maxBodyLength),
		Data: payloadData{
			ConversationID: n.ConversationID.Hex(),
			URL:            "/messages/" + n.ConversationID.Hex(),
		},
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
