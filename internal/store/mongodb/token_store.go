package mongodb

import (
	"context"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const tokensCollection = "push_tokens"

type TokenStore struct {
	col *mongo.Collection
}

func NewTokenStore(db *mongo.Database) *TokenStore {
	return &TokenStore{col: db.Collection(tokensCollection)}
}

// Upsert relies on the unique index on key; $setOnInsert keeps created_at stable.
func (s *TokenStore) Upsert(ctx context.Context, t models.PushToken, now time.Time) (bool, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"key":        t.Key,
			"token":      t.Token,
			"created_at": t.CreatedAt,
		},
	}
	result, err := s.col.UpdateOne(ctx, bson.M{"key": t.Key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	if result.UpsertedCount > 0 {
		return true, nil
	}
	return false, s.Touch(ctx, t.Key, now)
}

func (s *TokenStore) FindActive(ctx context.Context, since time.Time) ([]models.PushToken, error) {
	// The TTL monitor only runs once a minute, so filter on created_at too
	cursor, err := s.col.Find(ctx, bson.M{"created_at": bson.M{"$gte": since}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tokens := []models.PushToken{}
	if err = cursor.All(ctx, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *TokenStore) Touch(ctx context.Context, key string, at time.Time) error {
	result, err := s.col.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"last_used_at": at}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
