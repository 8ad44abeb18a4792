package service

import (
	"strings"
	"time"
)

// GameView is the externally visible snapshot of an active game.
type GameView struct {
	Key            string    `json:"key"`
	Score          int       `json:"score"`
	Streak         string    `json:"streak,omitempty"`
	Artifact       string    `json:"artifact,omitempty"`
	Difficulty     string    `json:"difficulty"`
	Length         int       `json:"length"`
	IncludeDigits  bool      `json:"include_digits"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	StartedAt      time.Time `json:"started_at"`
	IssuedAt       time.Time `json:"issued_at"`
	Deadline       time.Time `json:"deadline"`
}

// GuessStatus classifies the outcome of a submitted guess.
type GuessStatus string

const (
	// GuessAccepted: the guess was correct; a new puzzle has been issued.
	GuessAccepted GuessStatus = "accepted"
	// GuessRejected: the guess was wrong; the game is over.
	GuessRejected GuessStatus = "rejected"
	// GuessIgnored: no active game, or the guess raced a terminal event
	// that already won. Never an error.
	GuessIgnored GuessStatus = "ignored"
)

// GuessReply is the result of evaluating one guess.
type GuessReply struct {
	Status    GuessStatus  `json:"status"`
	Challenge *GameView    `json:"challenge,omitempty"` // set when accepted
	Final     *FinalResult `json:"final,omitempty"`     // set when rejected
}

// FinalResult describes a finished game.
type FinalResult struct {
	Key            string  `json:"key"`
	Outcome        string  `json:"outcome"`
	Score          int     `json:"score"`
	Streak         string  `json:"streak,omitempty"`
	Answer         string  `json:"answer"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// StatsReport aggregates a key's historical results.
type StatsReport struct {
	Key          string  `json:"key"`
	TotalGames   int64   `json:"total_games"`
	TotalScore   int64   `json:"total_score"`
	AverageScore float64 `json:"average_score"`
	TopScore     int64   `json:"top_score"`
}

// KeyGames counts games played per key, for the most-active ranking.
type KeyGames struct {
	Key        string `json:"key"`
	TotalGames int64  `json:"total_games"`
}

// LeaderboardEntry is one row of the best-score leaderboard.
type LeaderboardEntry struct {
	Key   string `json:"key"`
	Score int    `json:"score"`
}

// DifficultyInfo describes a selectable difficulty preset.
type DifficultyInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Length         int    `json:"length"`
	IncludeDigits  bool   `json:"include_digits"`
	CaseSensitive  bool   `json:"case_sensitive"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// StartOptions selects the rules for a new game. Difficulty names a
// preset; the remaining fields override individual settings the way the
// original play command's arguments did.
type StartOptions struct {
	Difficulty    string `json:"difficulty,omitempty"`
	Length        int    `json:"length,omitempty"`
	IncludeDigits bool   `json:"include_digits,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

// Streak renders the fire-streak indicator for a score: one flame per
// five correct answers, starting at one. Empty at score zero.
func Streak(score int) string {
	if score <= 0 {
		return ""
	}
	return strings.Repeat("🔥", score/5+1)
}
