package handlers_test

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/auth"
	"studx/messaging"
	"studx/models"
)

// MockMessagingService implements handlers.MessagingService.
type MockMessagingService struct {
	FindOrCreateFunc func(ctx context.Context, callerID primitive.ObjectID, p messaging.StartParams) (*messaging.StartResult, error)
	ListFunc         func(ctx context.Context, callerID primitive.ObjectID) ([]messaging.ConversationSummary, error)
	DeleteFunc       func(ctx context.Context, callerID primitive.ObjectID, conversationID string) error
	ListMessagesFunc func(ctx context.Context, callerID primitive.ObjectID, conversationID string) ([]messaging.MessageView, error)
	SendMessageFunc  func(ctx context.Context, callerID primitive.ObjectID, conversationID, text string) (*messaging.MessageView, error)
}

func (m *MockMessagingService) FindOrCreate(ctx context.Context, callerID primitive.ObjectID, p messaging.StartParams) (*messaging.StartResult, error) {
	if m.FindOrCreateFunc != nil {
		return m.FindOrCreateFunc(ctx, callerID, p)
	}
	return nil, nil
}

func (m *MockMessagingService) List(ctx context.Context, callerID primitive.ObjectID) ([]messaging.ConversationSummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, callerID)
	}
	return nil, nil
}

func (m *MockMessagingService) Delete(ctx context.Context, callerID primitive.ObjectID, conversationID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, callerID, conversationID)
	}
	return nil
}

func (m *MockMessagingService) ListMessages(ctx context.Context, callerID primitive.ObjectID, conversationID string) ([]messaging.MessageView, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, callerID, conversationID)
	}
	return nil, nil
}

func (m *MockMessagingService) SendMessage(ctx context.Context, callerID primitive.ObjectID, conversationID, text string) (*messaging.MessageView, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, callerID, conversationID, text)
	}
	return nil, nil
}

// MockAuthService implements handlers.AuthService.
type MockAuthService struct {
	RegisterFunc  func(ctx context.Context, p auth.RegisterParams) (*models.User, error)
	VerifyOTPFunc func(ctx context.Context, email, code string) (*auth.Session, error)
	ResendOTPFunc func(ctx context.Context, email string) error
	LoginFunc     func(ctx context.Context, email, password string) (*auth.Session, error)
}

func (m *MockAuthService) Register(ctx context.Context, p auth.RegisterParams) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, p)
	}
	return &models.User{}, nil
}

func (m *MockAuthService) VerifyOTP(ctx context.Context, email, code string) (*auth.Session, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, code)
	}
	return &auth.Session{}, nil
}

func (m *MockAuthService) ResendOTP(ctx context.Context, email string) error {
	if m.ResendOTPFunc != nil {
		return m.ResendOTPFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return &auth.Session{}, nil
}

// MockUserStore implements handlers.UserStore.
type MockUserStore struct {
	FindByIDFunc      func(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfileFunc func(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error)
	SetAvatarFunc     func(ctx context.Context, id primitive.ObjectID, url string) error
}

func (m *MockUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return &models.User{ID: id}, nil
}

func (m *MockUserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, upd)
	}
	return &models.User{ID: id}, nil
}

func (m *MockUserStore) SetAvatar(ctx context.Context, id primitive.ObjectID, url string) error {
	if m.SetAvatarFunc != nil {
		return m.SetAvatarFunc(ctx, id, url)
	}
	return nil
}

// MockPushStore implements handlers.PushSubscriptionStore.
type MockPushStore struct {
	UpsertFunc func(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error
}

func (m *MockPushStore) Upsert(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, userID, sub)
	}
	return nil
}
