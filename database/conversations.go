package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studx/models"
)

type ConversationStore struct {
	coll *mongo.Collection
}

func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{coll: db.Conversations}
}

func (s *ConversationStore) FindByPair(ctx context.Context, pairKey string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.coll.FindOne(ctx, bson.M{"pairKey": pairKey}).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// FindForParticipant returns the conversation only when userID belongs to it.
func (s *ConversationStore) FindForParticipant(ctx context.Context, id, userID primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "participants": userID}).Decode(&conv)
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (s *ConversationStore) ListForParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "lastMessage.timestamp", Value: -1},
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := s.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	convs := []models.Conversation{}
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return convs, nil
}

func (s *ConversationStore) Insert(ctx context.Context, conv *models.Conversation) error {
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, conv); err != nil {
		return translate(err)
	}
	return nil
}

// RecordMessage caches the last message and bumps the recipient's unread counter.
func (s *ConversationStore) RecordMessage(ctx context.Context, id primitive.ObjectID, last models.LastMessage, recipient primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"lastMessage": last,
			"updatedAt":   time.Now().UTC(),
		},
		"$inc": bson.M{"unreadCount." + models.UnreadKey(recipient): 1},
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ConversationStore) ResetUnread(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"unreadCount." + models.UnreadKey(userID): 0}},
	)
	if err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}
	return nil
}

func (s *ConversationStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
