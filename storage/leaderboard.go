package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wricardo/captcha-rush/game/engine"
	"github.com/wricardo/captcha-rush/game/service"
)

const leaderboardKey = "captcha:leaderboard"

// RedisConfig configures the leaderboard connection. An empty address
// means the leaderboard is disabled.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT" envDefault:"5s"`
}

// Enabled reports whether a Redis address was provided.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// Leaderboard keeps each key's best score in a Redis sorted set.
type Leaderboard struct {
	client *redis.Client
}

// NewLeaderboard connects to Redis and verifies the connection.
func NewLeaderboard(ctx context.Context, cfg RedisConfig) (*Leaderboard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Leaderboard{client: client}, nil
}

// Persist records the result's score if it beats the key's previous
// best. The GT flag makes the update monotonic, so concurrent finishes
// cannot lower a stored score. It implements engine.ResultSink.
func (l *Leaderboard) Persist(ctx context.Context, res engine.Result) error {
	err := l.client.ZAddArgs(ctx, leaderboardKey, redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(res.Score), Member: string(res.Key)}},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to record leaderboard score: %w", err)
	}
	return nil
}

// Top returns the n best scores, highest first.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]service.LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}

	rows, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]service.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		key, _ := row.Member.(string)
		entries = append(entries, service.LeaderboardEntry{
			Key:   key,
			Score: int(row.Score),
		})
	}
	return entries, nil
}

// Close releases the Redis connection.
func (l *Leaderboard) Close() error { return l.client.Close() }
