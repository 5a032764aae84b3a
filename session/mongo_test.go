package session

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStorage(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("load found", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB, "")
		doc := bson.D{
			{Key: "_id", Value: DefaultKey},
			{Key: "data", Value: []byte("payload")},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "db.sessions", mtest.FirstBatch, doc))

		got, err := s.Load(context.Background(), DefaultKey)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if string(got) != "payload" {
			t.Fatalf("Load = %q", got)
		}
	})

	mt.Run("load missing", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB, "")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.sessions", mtest.FirstBatch))

		if _, err := s.Load(context.Background(), DefaultKey); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("load error", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB, "")
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "find failed"}))

		if _, err := s.Load(context.Background(), DefaultKey); !errors.Is(err, ErrStorageUnavailable) {
			t.Fatalf("expected ErrStorageUnavailable, got %v", err)
		}
	})

	mt.Run("save upserts", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB, "sessions")
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 0}})

		if err := s.Save(context.Background(), DefaultKey, []byte("x")); err != nil {
			t.Fatalf("Save: %v", err)
		}

		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "update" {
			t.Fatalf("expected update command, got %+v", started)
		}
	})

	mt.Run("save error", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB, "")
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "update failed"}))

		if err := s.Save(context.Background(), DefaultKey, []byte("x")); !errors.Is(err, ErrStorageUnavailable) {
			t.Fatalf("expected ErrStorageUnavailable, got %v", err)
		}
	})

	mt.Run("delete missing succeeds", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB, "")
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		if err := s.Delete(context.Background(), DefaultKey); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})
}
