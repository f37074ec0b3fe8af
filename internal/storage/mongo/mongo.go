// Package mongo provides a MongoDB-backed implementation of the storage.Store
// interface. Chits are single documents with their slots embedded.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/chitfund/internal/storage"
)

const (
	chitsCollection     = "chits"
	usersCollection     = "users"
	sequencesCollection = "database_sequences"

	// Names of the unique indexes, as they appear in duplicate key errors.
	chitNameIndex   = "name_1"
	userNumberIndex = "number_1"
	idIndex         = "_id_"
)

// Ensure MongoStore implements storage.Store
var _ storage.Store = (*MongoStore)(nil)

// MongoStore implements storage.Store using MongoDB.
type MongoStore struct {
	client    *mongo.Client
	chits     *mongo.Collection
	users     *mongo.Collection
	sequences *mongo.Collection
}

// New connects to uri, selects database and creates the unique indexes.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		chits:     db.Collection(chitsCollection),
		users:     db.Collection(usersCollection),
		sequences: db.Collection(sequencesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.chits.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName(chitNameIndex).SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create chit name index: %w", err)
	}
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "number", Value: 1}},
		Options: options.Index().SetName(userNumberIndex).SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create user number index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// NextSequence increments the named counter with an upserting $inc, so the
// counter document is created on first use and the first value is 1.
func (s *MongoStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.sequences.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %q: %w", name, err)
	}
	return counter.Seq, nil
}

// findOne decodes the first match into out, reporting false when nothing matched.
func findOne(ctx context.Context, coll *mongo.Collection, filter any, out any, opts ...*options.FindOneOptions) (bool, error) {
	err := coll.FindOne(ctx, filter, opts...).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// duplicateOn reports whether err is a duplicate key error raised by the
// named index.
func duplicateOn(err error, index string) bool {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return false
	}
	for _, e := range we.WriteErrors {
		if e.Code == 11000 && strings.Contains(e.Message, "index: "+index+" ") {
			return true
		}
	}
	return false
}

// maxID returns the highest _id in coll, or 0 when it is empty.
func maxID(ctx context.Context, coll *mongo.Collection) (int64, error) {
	var doc struct {
		ID int64 `bson:"_id"`
	}
	found, err := findOne(ctx, coll, bson.D{}, &doc,
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}}).SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil || !found {
		return 0, err
	}
	return doc.ID, nil
}

func byIDAscending() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}
