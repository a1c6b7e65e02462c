package database

import (
	"context"
	"fmt"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studx/models"
)

type PushSubscriptionStore struct {
	coll *mongo.Collection
}

func NewPushSubscriptionStore(db *DB) *PushSubscriptionStore {
	return &PushSubscriptionStore{coll: db.PushSubs}
}

// Upsert keeps a single subscription per user; the latest browser wins.
func (s *PushSubscriptionStore) Upsert(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$set":         bson.M{"sub": sub, "updatedAt": time.Now().UTC()},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return nil
}

func (s *PushSubscriptionStore) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	if err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub); err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *PushSubscriptionStore) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}
