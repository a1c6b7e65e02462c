package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/database"
	"studx/metrics"
	"studx/models"
)

// MessageView is a message as seen by one viewer.
type MessageView struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
	IsMe      bool      `json:"isMe"`
	IsRead    bool      `json:"isRead"`
}

// ListMessages returns the conversation log oldest first. Listing is also
// what marks the other party's messages read and clears the caller's
// unread counter.
func (s *Service) ListMessages(ctx context.Context, callerID primitive.ObjectID, conversationID string) ([]MessageView, error) {
	id, err := parseID(conversationID, errConversationNotFound)
	if err != nil {
		return nil, err
	}
	if _, err := s.participantConversation(ctx, id, callerID); err != nil {
		return nil, err
	}

	marked, err := s.msgs.MarkRead(ctx, id, callerID)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	if marked > 0 {
		metrics.MessagesMarkedRead.Add(float64(marked))
	}
	if err := s.convs.ResetUnread(ctx, id, callerID); err != nil {
		return nil, fmt.Errorf("reset unread: %w", err)
	}

	msgs, err := s.msgs.ListByConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]MessageView, 0, len(msgs))
	for i := range msgs {
		out = append(out, s.view(&msgs[i], callerID))
	}
	return out, nil
}

// SendMessage appends a message from the caller and bumps the other
// participant's unread counter.
func (s *Service) SendMessage(ctx context.Context, callerID primitive.ObjectID, conversationID, text string) (*MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalidArgument("Message text is required")
	}
	if utf8.RuneCountInString(text) > s.maxLen {
		return nil, invalidArgument(fmt.Sprintf("Message text must be at most %d characters", s.maxLen))
	}

	id, err := parseID(conversationID, errConversationNotFound)
	if err != nil {
		return nil, err
	}
	conv, err := s.participantConversation(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	recipient, ok := conv.OtherParticipant(callerID)
	if !ok {
		return nil, fmt.Errorf("conversation %s has no other participant", id.Hex())
	}

	msg := &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: id,
		SenderID:       callerID,
		SenderName:     s.senderName(ctx, conv, callerID),
		Text:           text,
		IsRead:         false,
		CreatedAt:      s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.msgs.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	metrics.MessagesSent.Inc()

	last := models.LastMessage{Text: text, SenderID: callerID, Timestamp: msg.CreatedAt}
	if err := s.convs.RecordMessage(ctx, id, last, recipient); err != nil {
		// The message is already stored; the list cache catches up on the next send.
		s.log.Error().Err(err).
			Str("conversation_id", id.Hex()).
			Str("message_id", msg.ID.Hex()).
			Msg("failed to update conversation after send")
	}

	s.notifier.NotifyNewMessage(Notification{
		ConversationID: id,
		RecipientID:    recipient,
		SenderName:     msg.SenderName,
		Text:           text,
	})

	view := s.view(msg, callerID)
	return &view, nil
}

// senderName prefers the live profile, then the conversation snapshot.
func (s *Service) senderName(ctx context.Context, conv *models.Conversation, callerID primitive.ObjectID) string {
	user, err := s.users.FindByID(ctx, callerID)
	if err == nil && strings.TrimSpace(user.Name) != "" {
		return user.Name
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		s.log.Warn().Err(err).Str("user_id", callerID.Hex()).Msg("sender lookup failed, using snapshot")
	}
	if d, ok := conv.DetailFor(callerID); ok && d.Name != "" {
		return d.Name
	}
	return unknownUserName
}

func (s *Service) view(m *models.Message, viewer primitive.ObjectID) MessageView {
	return MessageView{
		ID:        m.ID.Hex(),
		Sender:    m.SenderName,
		SenderID:  m.SenderID.Hex(),
		Text:      m.Text,
		Timestamp: ClockTime(m.CreatedAt, s.loc),
		CreatedAt: m.CreatedAt,
		IsMe:      m.SenderID == viewer,
		IsRead:    m.IsRead,
	}
}
