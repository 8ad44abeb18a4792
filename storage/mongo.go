// Package storage persists finalized game results and serves the
// aggregated read surfaces built on top of them: per-key stats from
// MongoDB and a best-score leaderboard from Redis.
//
// Both stores are best-effort collaborators. The game engine treats
// persistence as fire-and-forget: a failed save is logged by the caller
// and never affects session cleanup.
package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrFailedToConnectToMongo is returned when the retry budget for the
// initial connection is exhausted.
var ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

// MongoConfig configures the result database connection. An empty URL
// means result persistence is disabled.
type MongoConfig struct {
	URL            string        `env:"MONGODB_URL"`
	Database       string        `env:"MONGODB_DATABASE" envDefault:"captcha"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	RetryAttempts  int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

// Enabled reports whether a connection URL was provided.
func (c MongoConfig) Enabled() bool { return c.URL != "" }

// NewMongoDatabase connects to MongoDB with retries and returns the
// configured database handle.
func NewMongoDatabase(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	for range cfg.RetryAttempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.URL).
				SetConnectTimeout(cfg.ConnectTimeout),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return client.Database(cfg.Database), nil
			}
			_ = client.Disconnect(ctx)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrFailedToConnectToMongo
}
