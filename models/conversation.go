package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParticipantDetail is a display snapshot taken when the conversation is
// created. It is never refreshed when the user later edits their profile.
type ParticipantDetail struct {
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Name   string             `bson:"name" json:"name"`
	Email  string             `bson:"email" json:"email"`
	Branch string             `bson:"branch" json:"branch"`
}

type LastMessage struct {
	Text      string             `bson:"text" json:"text"`
	SenderID  primitive.ObjectID `bson:"senderId" json:"senderId"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type Conversation struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants       []primitive.ObjectID `bson:"participants" json:"participants"`
	PairKey            string               `bson:"pairKey" json:"-"`
	ParticipantDetails []ParticipantDetail  `bson:"participantDetails" json:"participantDetails"`
	LastMessage        *LastMessage         `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	UnreadCount        map[string]int       `bson:"unreadCount" json:"unreadCount"` // keyed by participant hex id
	CreatedAt          time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PairKey is the order-independent identity of a two-party conversation.
func PairKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

// UnreadKey is the unreadCount map key for a participant.
func UnreadKey(id primitive.ObjectID) string {
	return id.Hex()
}

func (c *Conversation) HasParticipant(id primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not id.
func (c *Conversation) OtherParticipant(id primitive.ObjectID) (primitive.ObjectID, bool) {
	for _, p := range c.Participants {
		if p != id {
			return p, true
		}
	}
	return primitive.NilObjectID, false
}

func (c *Conversation) DetailFor(id primitive.ObjectID) (ParticipantDetail, bool) {
	for _, d := range c.ParticipantDetails {
		if d.UserID == id {
			return d, true
		}
	}
	return ParticipantDetail{}, false
}

// UnreadFor returns the unread counter for id, 0 when absent.
func (c *Conversation) UnreadFor(id primitive.ObjectID) int {
	if c.UnreadCount == nil {
		return 0
	}
	n := c.UnreadCount[UnreadKey(id)]
	if n < 0 {
		return 0
	}
	return n
}
