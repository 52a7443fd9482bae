package mongodb

import (
	"context"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const legacyTokensCollection = "fcmtokens"

// legacyFilter matches documents written by the old server. Both of its
// generations used camelCase timestamps; the reason-only ones may lack them.
var legacyFilter = bson.M{
	"created_at": bson.M{"$exists": false},
	"$or": bson.A{
		bson.M{"createdAt": bson.M{"$exists": true}},
		bson.M{"reason": bson.M{"$exists": true}},
	},
}

// CountLegacyVisitors reports how many documents still use the old schema.
func CountLegacyVisitors(ctx context.Context, db *mongo.Database) (int64, error) {
	return db.Collection(visitorsCollection).CountDocuments(ctx, legacyFilter)
}

// MigrateLegacyVisitors rewrites old-schema documents in place into the current
// shape. Returns the number of documents converted.
func MigrateLegacyVisitors(ctx context.Context, db *mongo.Database) (int64, error) {
	col := db.Collection(visitorsCollection)

	cursor, err := col.Find(ctx, legacyFilter)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var migrated int64
	for cursor.Next(ctx) {
		var legacy models.LegacyVisitor
		if err := cursor.Decode(&legacy); err != nil {
			return migrated, err
		}
		v := legacy.ToVisitor()
		if _, err := col.ReplaceOne(ctx, bson.M{"_id": legacy.ID}, v); err != nil {
			return migrated, err
		}
		migrated++
	}
	return migrated, cursor.Err()
}

// CountLegacyTokens reports how many subscriptions are left in fcmtokens.
func CountLegacyTokens(ctx context.Context, db *mongo.Database) (int64, error) {
	return db.Collection(legacyTokensCollection).CountDocuments(ctx, bson.M{})
}

// MigrateLegacyTokens copies fcmtokens into push_tokens. Keys that are
// already registered are left alone, so the copy can be rerun. Returns the
// number of tokens inserted.
func MigrateLegacyTokens(ctx context.Context, db *mongo.Database) (int64, error) {
	dst := db.Collection(tokensCollection)

	cursor, err := db.Collection(legacyTokensCollection).Find(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var inserted int64
	for cursor.Next(ctx) {
		var legacy models.LegacyPushToken
		if err := cursor.Decode(&legacy); err != nil {
			return inserted, err
		}
		t := legacy.ToPushToken()
		if t.Key == "" {
			continue
		}
		update := bson.M{"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"key":        t.Key,
			"token":      t.Token,
			"created_at": t.CreatedAt,
		}}
		result, err := dst.UpdateOne(ctx, bson.M{"key": t.Key}, update, options.Update().SetUpsert(true))
		if err != nil {
			return inserted, err
		}
		inserted += result.UpsertedCount
	}
	return inserted, cursor.Err()
}
