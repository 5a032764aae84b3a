package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoCollection is the collection used when none is given.
const DefaultMongoCollection = "sessions"

type mongoRecord struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorage stores one document per key in a MongoDB collection.
type MongoStorage struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoStorage creates a [MongoStorage] over database. An empty collection
// name selects [DefaultMongoCollection].
func NewMongoStorage(database *mongo.Database, collection string) *MongoStorage {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStorage{
		collection: database.Collection(collection),
		now:        time.Now,
	}
}

// Load finds the document keyed by key.
func (s *MongoStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var rec mongoRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return rec.Data, nil
}

// Save upserts the document keyed by key.
func (s *MongoStorage) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{
			"$set": bson.M{
				"data":       data,
				"updated_at": s.now().UTC(),
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Delete removes the document keyed by key. Deleting a missing key succeeds.
func (s *MongoStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
