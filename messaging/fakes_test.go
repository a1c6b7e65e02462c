package messaging

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/database"
	"studx/models"
)

type memConversations struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.Conversation
	order []primitive.ObjectID

	recordErr error
	deleteErr error
}

func newMemConversations() *memConversations {
	return &memConversations{byID: map[primitive.ObjectID]*models.Conversation{}}
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	out := *c
	out.Participants = append([]primitive.ObjectID(nil), c.Participants...)
	out.ParticipantDetails = append([]models.ParticipantDetail(nil), c.ParticipantDetails...)
	out.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		out.UnreadCount[k] = v
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		out.LastMessage = &lm
	}
	return &out
}

func (m *memConversations) FindByPair(_ context.Context, pairKey string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.PairKey == pairKey {
			return cloneConversation(c), nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memConversations) FindForParticipant(_ context.Context, id, userID primitive.ObjectID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || !c.HasParticipant(userID) {
		return nil, database.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (m *memConversations) ListForParticipant(_ context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Conversation{}
	for _, id := range m.order {
		c, ok := m.byID[id]
		if ok && c.HasParticipant(userID) {
			out = append(out, *cloneConversation(c))
		}
	}
	return out, nil
}

func (m *memConversations) Insert(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.PairKey == conv.PairKey {
			return database.ErrDuplicateKey
		}
	}
	m.byID[conv.ID] = cloneConversation(conv)
	m.order = append(m.order, conv.ID)
	return nil
}

func (m *memConversations) RecordMessage(_ context.Context, id primitive.ObjectID, last models.LastMessage, recipient primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	c, ok := m.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	c.LastMessage = &last
	c.UnreadCount[models.UnreadKey(recipient)]++
	return nil
}

func (m *memConversations) ResetUnread(_ context.Context, id, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		c.UnreadCount[models.UnreadKey(userID)] = 0
	}
	return nil
}

func (m *memConversations) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.byID[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memConversations) get(id primitive.ObjectID) *models.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil
	}
	return cloneConversation(c)
}

func (m *memConversations) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memMessages struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (m *memMessages) Insert(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memMessages) ListByConversation(_ context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Message{}
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memMessages) MarkRead(_ context.Context, conversationID, readerID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.msgs {
		msg := &m.msgs[i]
		if msg.ConversationID == conversationID && msg.SenderID != readerID && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memMessages) DeleteByConversation(_ context.Context, conversationID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.msgs[:0]
	var n int64
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			n++
			continue
		}
		kept = append(kept, msg)
	}
	m.msgs = kept
	return n, nil
}

func (m *memMessages) countFor(conversationID primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			n++
		}
	}
	return n
}

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) rename(id primitive.ObjectID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Name = name
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) NotifyNewMessage(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
