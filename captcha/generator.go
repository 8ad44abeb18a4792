// Package captcha generates the puzzles for Captcha Rush: a random
// answer string drawn from the configured charset plus a rendered PNG
// handed to presentation as a base64 string.
package captcha

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/mojocn/base64Captcha"
	"github.com/wricardo/captcha-rush/game/engine"
)

// ErrGenerationFailed wraps rendering failures from the underlying
// captcha library.
var ErrGenerationFailed = errors.New("captcha generation failed")

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"

	imageWidth  = 240
	imageHeight = 80
)

// Generator renders captcha puzzles. The zero value is not usable; call
// NewGenerator.
type Generator struct {
	noiseCount  int
	lineOptions int
}

// NewGenerator creates a puzzle generator with mild visual noise.
func NewGenerator() *Generator {
	return &Generator{
		noiseCount:  0,
		lineOptions: base64Captcha.OptionShowHollowLine,
	}
}

// Generate produces a puzzle for the given challenge settings: the
// answer text and a base64-encoded PNG artifact.
func (g *Generator) Generate(cfg engine.ChallengeConfig) (engine.Puzzle, error) {
	if cfg.Length < engine.MinLength || cfg.Length > engine.MaxLength {
		return engine.Puzzle{}, fmt.Errorf("%w: length %d out of range", ErrGenerationFailed, cfg.Length)
	}

	text, err := randomText(cfg.Length, cfg.IncludeDigits)
	if err != nil {
		return engine.Puzzle{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	driver := base64Captcha.NewDriverString(
		imageHeight,
		imageWidth,
		g.noiseCount,
		g.lineOptions,
		cfg.Length,
		charset(cfg.IncludeDigits),
		nil, // default background
		nil, // default fonts storage
		nil, // default fonts
	)

	item, err := driver.DrawCaptcha(text)
	if err != nil {
		return engine.Puzzle{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return engine.Puzzle{
		Answer:   text,
		Artifact: item.EncodeB64string(),
	}, nil
}

// charset returns the pool of characters answers are drawn from.
func charset(includeDigits bool) string {
	if includeDigits {
		return letters + digits
	}
	return letters
}

// randomText draws length characters from the charset using
// cryptographic randomness.
func randomText(length int, includeDigits bool) (string, error) {
	pool := charset(includeDigits)
	out := make([]byte, length)
	max := big.NewInt(int64(len(pool)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = pool[n.Int64()]
	}
	return string(out), nil
}
