package mongodb

import (
	"context"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes configures indexes for the visitor collections.
// Called on startup from main after Mongo has connected.
func EnsureIndexes(ctx context.Context, db *mongo.Database, tokenRetention time.Duration) error {
	if tokenRetention <= 0 {
		tokenRetention = models.TokenRetention
	}

	indexes := map[string][]mongo.IndexModel{
		visitorsCollection: {
			{
				Keys:    bson.D{{Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_created_at"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_status_created_at"),
			},
		},
		tokensCollection: {
			{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetName("uniq_key").SetUnique(true),
			},
			{
				// Tokens expire 90 days after registration
				Keys:    bson.D{{Key: "created_at", Value: 1}},
				Options: options.Index().SetName("ttl_created_at").SetExpireAfterSeconds(int32(tokenRetention.Seconds())),
			},
		},
		eventsCollection: {
			{
				Keys:    bson.D{{Key: "visitor_id", Value: 1}, {Key: "at", Value: 1}},
				Options: options.Index().SetName("idx_visitor_at"),
			},
		},
	}

	for name, specs := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return err
		}
	}
	return nil
}
