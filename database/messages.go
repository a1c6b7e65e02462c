package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studx/models"
)

type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{coll: db.Messages}
}

func (s *MessageStore) Insert(ctx context.Context, msg *models.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert message: %w", translate(err))
	}
	return nil
}

// ListByConversation returns the log in insertion order.
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := s.coll.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flags every unread message not sent by readerID as read.
func (s *MessageStore) MarkRead(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{
			"conversationId": conversationID,
			"senderId":       bson.M{"$ne": readerID},
			"isRead":         false,
		},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MessageStore) DeleteByConversation(ctx context.Context, conversationID primitive.ObjectID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"conversationId": conversationID})
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return res.DeletedCount, nil
}
