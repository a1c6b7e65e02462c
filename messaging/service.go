// Package messaging implements two-party conversations, their message logs
// and the unread bookkeeping behind the conversation list.
package messaging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/models"
)

type ConversationRepository interface {
	FindByPair(ctx context.Context, pairKey string) (*models.Conversation, error)
	FindForParticipant(ctx context.Context, id, userID primitive.ObjectID) (*models.Conversation, error)
	ListForParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	Insert(ctx context.Context, conv *models.Conversation) error
	RecordMessage(ctx context.Context, id primitive.ObjectID, last models.LastMessage, recipient primitive.ObjectID) error
	ResetUnread(ctx context.Context, id, userID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *models.Message) error
	ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error)
	DeleteByConversation(ctx context.Context, conversationID primitive.ObjectID) (int64, error)
}

// UserDirectory resolves profiles used for display snapshots.
type UserDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Notification describes a newly delivered message for out-of-band alerts.
type Notification struct {
	ConversationID primitive.ObjectID
	RecipientID    primitive.ObjectID
	SenderName     string
	Text           string
}

// Notifier is told about every sent message. Implementations must not block.
type Notifier interface {
	NotifyNewMessage(n Notification)
}

type noopNotifier struct{}

func (noopNotifier) NotifyNewMessage(Notification) {}

type Options struct {
	Location         *time.Location
	MaxMessageLength int
	Notifier         Notifier
	Logger           zerolog.Logger
	Now              func() time.Time
}

type Service struct {
	convs    ConversationRepository
	msgs     MessageRepository
	users    UserDirectory
	notifier Notifier
	log      zerolog.Logger
	loc      *time.Location
	maxLen   int
	now      func() time.Time
}

func NewService(convs ConversationRepository, msgs MessageRepository, users UserDirectory, opts Options) *Service {
	s := &Service{
		convs:    convs,
		msgs:     msgs,
		users:    users,
		notifier: opts.Notifier,
		log:      opts.Logger.With().Str("component", "messaging").Logger(),
		loc:      orUTC(opts.Location),
		maxLen:   opts.MaxMessageLength,
		now:      opts.Now,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.maxLen <= 0 {
		s.maxLen = 2000
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// parseID maps malformed hex ids to notFoundErr so they reveal no more than
// unknown ones.
func parseID(raw string, notFoundErr error) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, notFoundErr
	}
	return id, nil
}
