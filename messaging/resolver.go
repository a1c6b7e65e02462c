package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/database"
	"studx/metrics"
	"studx/models"
)

const unknownUserName = "Unknown User"

type StartParams struct {
	OtherUserID    string
	OtherUserName  string
	OtherUserEmail string
}

type StartResult struct {
	ConversationID string
	Created        bool
}

// ConversationSummary is the list-view projection for one caller.
type ConversationSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Branch      string `json:"branch"`
	LastMessage string `json:"lastMessage"`
	Time        string `json:"time"`
	UnreadCount int    `json:"unreadCount"`
}

// FindOrCreate returns the conversation between the caller and the other
// user, creating it on first contact. Repeated calls are idempotent.
func (s *Service) FindOrCreate(ctx context.Context, callerID primitive.ObjectID, p StartParams) (*StartResult, error) {
	raw := strings.TrimSpace(p.OtherUserID)
	if raw == "" {
		return nil, invalidArgument("otherUserId is required")
	}
	otherID, err := parseID(raw, errUserNotFound)
	if err != nil {
		return nil, err
	}
	if otherID == callerID {
		return nil, invalidArgument("Cannot start a conversation with yourself")
	}

	caller, err := s.lookupUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	other, err := s.lookupUser(ctx, otherID)
	if err != nil {
		return nil, err
	}

	key := models.PairKey(callerID, otherID)
	existing, err := s.convs.FindByPair(ctx, key)
	if err == nil {
		return &StartResult{ConversationID: existing.ID.Hex()}, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("find conversation by pair: %w", err)
	}

	otherDetail := snapshot(other)
	if name := strings.TrimSpace(p.OtherUserName); name != "" {
		otherDetail.Name = name
	}
	if email := strings.TrimSpace(p.OtherUserEmail); email != "" {
		otherDetail.Email = email
	}

	now := s.now().UTC()
	conv := &models.Conversation{
		ID:                 primitive.NewObjectID(),
		Participants:       []primitive.ObjectID{callerID, otherID},
		PairKey:            key,
		ParticipantDetails: []models.ParticipantDetail{snapshot(caller), otherDetail},
		UnreadCount: map[string]int{
			models.UnreadKey(callerID): 0,
			models.UnreadKey(otherID):  0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.convs.Insert(ctx, conv); err != nil {
		if !errors.Is(err, database.ErrDuplicateKey) {
			return nil, fmt.Errorf("insert conversation: %w", err)
		}
		// Lost a race with a concurrent create for the same pair.
		winner, ferr := s.convs.FindByPair(ctx, key)
		if ferr != nil {
			return nil, fmt.Errorf("reload conversation after duplicate: %w", ferr)
		}
		return &StartResult{ConversationID: winner.ID.Hex()}, nil
	}

	metrics.ConversationsCreated.Inc()
	s.log.Info().
		Str("conversation_id", conv.ID.Hex()).
		Str("caller_id", callerID.Hex()).
		Str("other_id", otherID.Hex()).
		Msg("conversation created")

	return &StartResult{ConversationID: conv.ID.Hex(), Created: true}, nil
}

// List returns the caller's conversations, most recently active first.
func (s *Service) List(ctx context.Context, callerID primitive.ObjectID) ([]ConversationSummary, error) {
	convs, err := s.convs.ListForParticipant(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	sortConversations(convs)

	now := s.now()
	out := make([]ConversationSummary, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		summary := ConversationSummary{
			ID:          conv.ID.Hex(),
			Name:        unknownUserName,
			UnreadCount: conv.UnreadFor(callerID),
		}
		if otherID, ok := conv.OtherParticipant(callerID); ok {
			if d, ok := conv.DetailFor(otherID); ok {
				summary.Name = d.Name
				summary.Email = d.Email
				summary.Branch = d.Branch
			}
		}
		if conv.LastMessage != nil {
			summary.LastMessage = conv.LastMessage.Text
			summary.Time = RelativeTime(conv.LastMessage.Timestamp, now, s.loc)
		}
		out = append(out, summary)
	}
	return out, nil
}

// Delete removes the conversation and its messages. Messages go first so a
// failed conversation delete never leaves orphans; retrying is safe.
func (s *Service) Delete(ctx context.Context, callerID primitive.ObjectID, conversationID string) error {
	id, err := parseID(conversationID, errConversationNotFound)
	if err != nil {
		return err
	}
	if _, err := s.participantConversation(ctx, id, callerID); err != nil {
		return err
	}

	removed, err := s.msgs.DeleteByConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("delete conversation messages: %w", err)
	}
	if err := s.convs.Delete(ctx, id); err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("delete conversation: %w", err)
	}

	metrics.ConversationsDeleted.Inc()
	s.log.Info().
		Str("conversation_id", id.Hex()).
		Str("caller_id", callerID.Hex()).
		Int64("messages_removed", removed).
		Msg("conversation deleted")
	return nil
}

func (s *Service) participantConversation(ctx context.Context, id, callerID primitive.ObjectID) (*models.Conversation, error) {
	conv, err := s.convs.FindForParticipant(ctx, id, callerID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, errConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return conv, nil
}

func (s *Service) lookupUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func snapshot(u *models.User) models.ParticipantDetail {
	return models.ParticipantDetail{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Branch: u.Branch,
	}
}

// sortConversations orders by last message time descending; conversations
// without messages follow, newest first, with the id as final tie-break.
func sortConversations(convs []models.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := &convs[i], &convs[j]
		switch {
		case a.LastMessage != nil && b.LastMessage == nil:
			return true
		case a.LastMessage == nil && b.LastMessage != nil:
			return false
		case a.LastMessage != nil && !a.LastMessage.Timestamp.Equal(b.LastMessage.Timestamp):
			return a.LastMessage.Timestamp.After(b.LastMessage.Timestamp)
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return a.ID.Hex() > b.ID.Hex()
		}
	})
}
