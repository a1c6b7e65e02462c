package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"studx/models"
)

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{coll: db.Users}
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		return translate(err)
	}
	return nil
}

func (s *UserStore) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"isVerified": true})
}

func (s *UserStore) SetAvatar(ctx context.Context, id primitive.ObjectID, url string) error {
	return s.set(ctx, id, bson.M{"avatar": url})
}

// UpdateProfile applies the non-nil fields and returns the updated user.
func (s *UserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error) {
	fields := bson.M{}
	if upd.Name != nil {
		fields["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Branch != nil {
		fields["branch"] = strings.TrimSpace(*upd.Branch)
	}
	if len(fields) > 0 {
		if err := s.set(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.FindByID(ctx, id)
}

func (s *UserStore) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
