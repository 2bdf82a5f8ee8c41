package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	c "github.com/classpad/boardsync/internal/common"
)

// Store persists board snapshots in a mongo collection, one document
// per room keyed by roomId.
type Store struct {
	boards *mongo.Collection
}

type boardDoc struct {
	RoomID    string     `bson:"_id"`
	Records   []c.Record `bson:"records"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

func New(ctx context.Context, uri, db string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{boards: client.Database(db).Collection("boards")}, nil
}

func (s *Store) Load(ctx context.Context, roomID string) ([]c.Record, error) {
	var doc boardDoc
	err := s.boards.FindOne(ctx, bson.D{{Key: "_id", Value: roomID}}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load board %s: %w", roomID, err)
	}
	return doc.Records, nil
}

func (s *Store) Save(ctx context.Context, roomID string, records []c.Record) error {
	filter := bson.D{{Key: "_id", Value: roomID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "records", Value: records},
		{Key: "updatedAt", Value: time.Now()},
	}}}
	opts := options.Update().SetUpsert(true)

	if _, err := s.boards.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("save board %s: %w", roomID, err)
	}
	return nil
}
