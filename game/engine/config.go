package engine

import (
	"fmt"
	"strings"
	"time"
)

// Bounds for challenge configuration values.
const (
	MinLength = 1
	MaxLength = 10

	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 300

	DefaultLength         = 4
	DefaultTimeoutSeconds = 10
)

// ChallengeConfig defines the rules of one game. It is immutable for the
// session's lifetime: the difficulty chosen at start applies to every
// puzzle instance the session issues.
type ChallengeConfig struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Length         int    `json:"length"`
	IncludeDigits  bool   `json:"include_digits"`
	CaseSensitive  bool   `json:"case_sensitive"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// DefaultConfig returns the stock game rules: 4 uppercase letters, no
// digits, case-insensitive matching, 10 seconds per puzzle.
func DefaultConfig() ChallengeConfig {
	return ChallengeConfig{
		Name:           "default",
		Description:    "4-letter captchas, 10 seconds per answer",
		Length:         DefaultLength,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// Timeout returns how long the player has to answer each puzzle.
func (c ChallengeConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Matches reports whether a guess matches the expected answer under this
// config's case-sensitivity rule.
func (c ChallengeConfig) Matches(guess, answer string) bool {
	guess = strings.TrimSpace(guess)
	if c.CaseSensitive {
		return guess == answer
	}
	return strings.EqualFold(guess, answer)
}

// ValidateChallengeConfig validates a challenge configuration for
// correctness and playability.
func ValidateChallengeConfig(config *ChallengeConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is required")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Length < MinLength || config.Length > MaxLength {
		return fmt.Errorf("config validation: length must be between %d and %d, got %d",
			MinLength, MaxLength, config.Length)
	}
	if config.TimeoutSeconds < MinTimeoutSeconds || config.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("config validation: timeout_seconds must be between %d and %d, got %d",
			MinTimeoutSeconds, MaxTimeoutSeconds, config.TimeoutSeconds)
	}
	return nil
}
