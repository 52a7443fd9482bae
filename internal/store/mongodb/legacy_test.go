package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMigrateLegacyVisitorsWithMock(t *testing.T) {
	mt := newMockT(t)
	created := time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC)

	mt.Run("camelCase document is rewritten", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.visitors", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: id},
				{Key: "name", Value: "Asha"},
				{Key: "phone", Value: "9876543210"},
				{Key: "company", Value: "Acme"},
				{Key: "personToMeet", Value: "Ravi"},
				{Key: "purpose", Value: "Interview"},
				{Key: "photoPath", Value: "https://x/y.jpg"},
				{Key: "status", Value: "approved"},
				{Key: "approvedBy", Value: "ravi"},
				{Key: "rejectedBy", Value: nil},
				{Key: "checkoutTime", Value: created.Add(4 * time.Hour)},
				{Key: "createdAt", Value: created},
				{Key: "updatedAt", Value: created.Add(time.Hour)},
			}),
			matchedResponse(1),
		)

		n, err := MigrateLegacyVisitors(context.Background(), mt.DB)
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), n)

		filter := commandDoc(mt, "find").Lookup("filter").Document()
		_, err = filter.LookupErr("created_at", "$exists")
		assert.NoError(mt, err)
		_, err = filter.LookupErr("$or")
		assert.NoError(mt, err)

		stmt := commandDoc(mt, "update").Lookup("updates", "0").Document()
		assert.Equal(mt, id, stmt.Lookup("q", "_id").ObjectID())
		doc := stmt.Lookup("u").Document()
		assert.Equal(mt, "Ravi", doc.Lookup("person_to_meet").StringValue())
		assert.Equal(mt, "Acme", doc.Lookup("company").StringValue())
		assert.Equal(mt, "Interview", doc.Lookup("purpose").StringValue())
		assert.Equal(mt, "https://x/y.jpg", doc.Lookup("photo_url").StringValue())
		assert.True(mt, created.Equal(doc.Lookup("created_at").Time()))
		assert.True(mt, created.Add(4*time.Hour).Equal(doc.Lookup("checkout_time").Time()))
		_, err = doc.LookupErr("createdAt")
		assert.Error(mt, err)
	})
}

func TestMigrateLegacyTokensWithMock(t *testing.T) {
	mt := newMockT(t)
	created := time.Date(2024, 1, 10, 5, 0, 0, 0, time.UTC)

	mt.Run("only unknown keys count as inserted", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.fcmtokens", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "token", Value: "abc:def"}, {Key: "createdAt", Value: created}},
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "token", Value: "known:token"}, {Key: "createdAt", Value: created}},
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "token", Value: "  "}},
			),
			upsertedResponse(),
			matchedResponse(1),
		)

		n, err := MigrateLegacyTokens(context.Background(), mt.DB)
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), n)

		var updates []bson.Raw
		for _, evt := range mt.GetAllStartedEvents() {
			switch evt.CommandName {
			case "find":
				assert.Equal(mt, legacyTokensCollection, evt.Command.Lookup("find").StringValue())
			case "update":
				assert.Equal(mt, tokensCollection, evt.Command.Lookup("update").StringValue())
				updates = append(updates, evt.Command.Lookup("updates", "0").Document())
			}
		}
		require.Len(mt, updates, 2, "blank tokens are skipped")
		insert := updates[0].Lookup("u", "$setOnInsert").Document()
		assert.Equal(mt, "abc:def", insert.Lookup("key").StringValue())
		assert.True(mt, created.Equal(insert.Lookup("created_at").Time()))
		assert.True(mt, updates[0].Lookup("upsert").Boolean())
	})
}
