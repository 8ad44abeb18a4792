package service

import (
	"context"
	"errors"

	"github.com/wricardo/captcha-rush/game/engine"
)

var (
	// ErrGameAlreadyRunning is returned by StartGame when the key already
	// has an active game. The existing game is left untouched.
	ErrGameAlreadyRunning = errors.New("a game is already running for this key")
	// ErrGameNotFound is returned by read operations on absent games.
	ErrGameNotFound = errors.New("no active game for this key")
	// ErrStatsUnavailable is returned when no result store is configured.
	ErrStatsUnavailable = errors.New("stats storage is not configured")
	// ErrLeaderboardUnavailable is returned when no leaderboard is configured.
	ErrLeaderboardUnavailable = errors.New("leaderboard storage is not configured")
)

// GameService defines all game-related operations.
type GameService interface {
	// Game lifecycle
	StartGame(ctx context.Context, key string, opts StartOptions) (*GameView, error)
	Guess(ctx context.Context, key, text string) (*GuessReply, error)

	// Active games
	GetGame(ctx context.Context, key string) (*GameView, error)
	ListGames(ctx context.Context) ([]*GameView, error)

	// History
	Stats(ctx context.Context, key string) (*StatsReport, error)
	TopKeys(ctx context.Context, n int) ([]KeyGames, error)
	Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error)

	// Configuration
	ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error)
}

// ConfigManager handles difficulty preset loading.
type ConfigManager interface {
	LoadConfig(name string) (*engine.ChallengeConfig, error)
	ListConfigs() ([]*DifficultyInfo, error)
	GetDefault() *engine.ChallengeConfig
}

// ResultStore reads aggregated historical results.
type ResultStore interface {
	Stats(ctx context.Context, key string) (*StatsReport, error)
	TopKeysByGames(ctx context.Context, n int) ([]KeyGames, error)
}

// Leaderboard reads the best-score ranking.
type Leaderboard interface {
	Top(ctx context.Context, n int) ([]LeaderboardEntry, error)
}
