package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store using a Mongo collection. Eviction relies on a
// TTL index over expiresAt; Get also filters on expiresAt because the TTL
// monitor only runs periodically.
type MongoStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes creates the expiry and per-user indexes.
func (r *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("session_expiry"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("session_user"),
		},
	})
	return err
}

func (r *MongoStore) Put(ctx context.Context, id string, s *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	stamp(id, s, ttl, r.now())
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": id}, s, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	filter := bson.M{"_id": id, "expiresAt": bson.M{"$gt": r.now()}}
	if err := r.col.FindOne(ctx, filter).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Ping reports whether the backing database is reachable.
func (r *MongoStore) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}
