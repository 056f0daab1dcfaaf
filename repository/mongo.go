package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoReportsCollection = "reports"
	mongoUsersCollection   = "users"
)

// ConnectMongo dials uri, pings the server and returns a handle on database dbName
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	start := time.Now()
	log.Printf("mongo: connecting uri=%s db=%s", redactURI(uri), dbName)

	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Printf("mongo: connected ok in %s", time.Since(start).Round(time.Millisecond))
	return client, client.Database(dbName), nil
}

// EnsureMongoIndexes creates the indexes used by the Mongo stores.
// Failures are collected and returned together.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	ctxIdx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		name       string
		model      mongo.IndexModel
	}{
		{
			collection: mongoUsersCollection,
			name:       "username",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: mongoReportsCollection,
			name:       "user,createdAt",
			model:      mongo.IndexModel{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		{
			collection: mongoReportsCollection,
			name:       "district,municipality,createdAt",
			model: mongo.IndexModel{Keys: bson.D{
				{Key: "district", Value: 1},
				{Key: "municipality", Value: 1},
				{Key: "createdAt", Value: -1},
			}},
		},
		{
			collection: mongoReportsCollection,
			name:       "department,district,municipality,upvoteCount",
			model: mongo.IndexModel{Keys: bson.D{
				{Key: "department", Value: 1},
				{Key: "district", Value: 1},
				{Key: "municipality", Value: 1},
				{Key: "upvoteCount", Value: -1},
				{Key: "createdAt", Value: -1},
			}},
		},
	}

	var errs []string
	for _, idx := range indexes {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctxIdx, idx.model); err != nil {
			errs = append(errs, idx.collection+"."+idx.name+": "+err.Error())
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
