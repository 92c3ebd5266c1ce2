package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("put upserts", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 0}})

		s := &Session{UserID: "user-1"}
		require.NoError(mt, store.Put(ctx, "sess-1", s, time.Hour))
		require.Equal(mt, "sess-1", s.ID)
		require.WithinDuration(mt, time.Now().Add(time.Hour), s.ExpiresAt, 5*time.Second)
	})

	mt.Run("put rejects zero ttl", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		require.ErrorIs(mt, store.Put(ctx, "sess-1", &Session{}, 0), ErrInvalidTTL)
	})

	mt.Run("get found", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		exp := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "db.sessions", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "sess-1"},
			{Key: "userId", Value: "user-1"},
			{Key: "refreshToken", Value: Digest("r")},
			{Key: "createdAt", Value: time.Now().UTC()},
			{Key: "expiresAt", Value: exp},
		}))

		got, err := store.Get(ctx, "sess-1")
		require.NoError(mt, err)
		require.NotNil(mt, got)
		require.Equal(mt, "user-1", got.UserID)
		require.True(mt, exp.Equal(got.ExpiresAt))
	})

	mt.Run("get absent", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.sessions", mtest.FirstBatch))

		got, err := store.Get(ctx, "missing")
		require.NoError(mt, err)
		require.Nil(mt, got)
	})

	mt.Run("delete missing succeeds", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})
		require.NoError(mt, store.Delete(ctx, "missing"))
	})

	mt.Run("get surfaces server errors", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "boom"}))
		_, err := store.Get(ctx, "sess-1")
		require.Error(mt, err)
	})
}
