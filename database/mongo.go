package database

import (
	"context"
	"errors"
	"fmt"

	"dupfinder/logging"
	"dupfinder/types"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps fingerprint records as documents keyed by path (_id)
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and verifies the deployment answers a ping
func NewMongoStore(ctx context.Context, uri, dbName, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &StoreUnavailableError{Location: uri, Err: err}
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &StoreUnavailableError{Location: uri, Err: err}
	}

	logging.DebugLog("Connected to MongoDB %s/%s", dbName, collection)
	return &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(collection),
	}, nil
}

func (s *MongoStore) Insert(ctx context.Context, rec types.FingerprintRecord) error {
	_, err := s.coll.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", rec.Path, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", rec.Path, err)
	}
	return nil
}

func (s *MongoStore) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": path}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("database error for %s: %w", path, err)
	}
	return n > 0, nil
}

func (s *MongoStore) Get(ctx context.Context, path string) (*types.FingerprintRecord, error) {
	var rec types.FingerprintRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error for %s: %w", path, err)
	}
	return &rec, nil
}

func (s *MongoStore) Scan(ctx context.Context, fn func(types.FingerprintRecord) error) error {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("cannot scan collection: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var rec types.FingerprintRecord
		if err := cursor.Decode(&rec); err != nil {
			return fmt.Errorf("cannot decode document: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (s *MongoStore) FindByFingerprint(ctx context.Context, fingerprint string) ([]types.FingerprintRecord, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"hash": fingerprint})
	if err != nil {
		return nil, fmt.Errorf("cannot query fingerprint %s: %w", fingerprint, err)
	}

	var out []types.FingerprintRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("cannot decode documents: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, path string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": path}); err != nil {
		return fmt.Errorf("cannot delete %s: %w", path, err)
	}
	return nil
}

func (s *MongoStore) DeleteMany(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	res, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": paths}})
	if err != nil {
		return 0, fmt.Errorf("cannot delete batch: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Drop(ctx context.Context) error {
	return s.coll.Drop(ctx)
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.D{})
}

// GroupByFingerprint runs the exact-duplicate aggregation on the server
func (s *MongoStore) GroupByFingerprint(ctx context.Context) ([]types.DuplicateGroup, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$hash"},
			{Key: "total", Value: bson.M{"$sum": 1}},
			{Key: "file_size", Value: bson.M{"$max": "$file_size"}},
			{Key: "items", Value: bson.M{"$push": bson.D{
				{Key: "file_name", Value: "$_id"},
				{Key: "hash", Value: "$hash"},
				{Key: "file_size", Value: "$file_size"},
				{Key: "image_size", Value: "$image_size"},
				{Key: "capture_time", Value: "$capture_time"},
			}}},
		}}},
		{{Key: "$match", Value: bson.M{"total": bson.M{"$gt": 1}}}},
		{{Key: "$sort", Value: bson.M{"file_size": -1}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	var groups []types.DuplicateGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("cannot decode groups: %w", err)
	}
	return groups, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
