package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func upsertedResponse() bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: int32(1)},
		bson.E{Key: "nModified", Value: int32(0)},
		bson.E{Key: "upserted", Value: bson.A{bson.D{
			{Key: "index", Value: int32(0)},
			{Key: "_id", Value: primitive.NewObjectID()},
		}}},
	)
}

func matchedResponse(n int32) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: n},
		bson.E{Key: "nModified", Value: n},
	)
}

func TestTokenStoreUpsertWithMock(t *testing.T) {
	mt := newMockT(t)
	now := time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC)
	tok := models.PushToken{Key: "abc:def", Token: "abc:def"}

	mt.Run("new key is inserted", func(mt *mtest.T) {
		s := &TokenStore{col: mt.Coll}
		mt.AddMockResponses(upsertedResponse())

		created, err := s.Upsert(context.Background(), tok, now)
		require.NoError(mt, err)
		assert.True(mt, created)

		cmd := commandDoc(mt, "update")
		stmt := cmd.Lookup("updates", "0").Document()
		assert.True(mt, stmt.Lookup("upsert").Boolean())
		assert.Equal(mt, "abc:def", stmt.Lookup("q", "key").StringValue())
		insert := stmt.Lookup("u", "$setOnInsert").Document()
		assert.Equal(mt, "abc:def", insert.Lookup("token").StringValue())
		assert.True(mt, now.Equal(insert.Lookup("created_at").Time()))
		_, err = stmt.Lookup("u").Document().LookupErr("$set")
		assert.Error(mt, err, "created_at is never overwritten")
	})

	mt.Run("known key is touched", func(mt *mtest.T) {
		s := &TokenStore{col: mt.Coll}
		mt.AddMockResponses(matchedResponse(1), matchedResponse(1))

		created, err := s.Upsert(context.Background(), tok, now)
		require.NoError(mt, err)
		assert.False(mt, created)

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 2)
		touch := events[1].Command.Lookup("updates", "0", "u", "$set").Document()
		assert.True(mt, now.Equal(touch.Lookup("last_used_at").Time()))
	})
}

func TestTokenStoreTouchWithMock(t *testing.T) {
	mt := newMockT(t)

	mt.Run("unknown key", func(mt *mtest.T) {
		s := &TokenStore{col: mt.Coll}
		mt.AddMockResponses(matchedResponse(0))

		err := s.Touch(context.Background(), "nope", time.Now())
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})
}

func TestTokenStoreFindActiveWithMock(t *testing.T) {
	mt := newMockT(t)
	since := time.Date(2023, 10, 17, 0, 0, 0, 0, time.UTC)

	mt.Run("filters on created_at", func(mt *mtest.T) {
		s := &TokenStore{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "key", Value: "a"}, {Key: "token", Value: "a"}, {Key: "created_at", Value: since.Add(time.Hour)}},
			bson.D{{Key: "key", Value: "b"}, {Key: "token", Value: "b"}, {Key: "created_at", Value: since.Add(2 * time.Hour)}},
		))

		tokens, err := s.FindActive(context.Background(), since)
		require.NoError(mt, err)
		require.Len(mt, tokens, 2)
		assert.Equal(mt, "a", tokens[0].Key)

		filter := commandDoc(mt, "find").Lookup("filter", "created_at", "$gte")
		assert.True(mt, since.Equal(filter.Time()))
	})
}
