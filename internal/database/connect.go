// server/internal/database/connect.go
package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"farmwise-api-server/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var ErrNotConfigured = errors.New("MONGO_URL not configured")

// Connect dials MongoDB and pings it. Callers treat any error as "run without
// a database".
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if cfg.URI == "" {
		return nil, nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := cfg.DBName
	if dbName == "" {
		dbName = "farmwise_db"
	}
	log.Printf("Successfully connected to MongoDB (%s)", dbName)
	return client, client.Database(dbName), nil
}
