package captcha

import (
	"errors"
	"strings"
	"testing"

	"github.com/wricardo/captcha-rush/game/engine"
)

func TestGenerator_Generate(t *testing.T) {
	gen := NewGenerator()

	t.Run("letters only", func(t *testing.T) {
		cfg := engine.DefaultConfig()
		cfg.Length = 6

		p, err := gen.Generate(cfg)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(p.Answer) != 6 {
			t.Errorf("Expected 6-character answer, got %q", p.Answer)
		}
		for _, c := range p.Answer {
			if !strings.ContainsRune(letters, c) {
				t.Errorf("Expected uppercase letters only, got %q in %q", c, p.Answer)
			}
		}
		if p.Artifact == "" {
			t.Error("Expected a rendered artifact")
		}
		if !strings.HasPrefix(p.Artifact, "data:image/png;base64,") {
			t.Errorf("Expected base64 PNG artifact, got prefix %q", p.Artifact[:min(32, len(p.Artifact))])
		}
	})

	t.Run("letters and digits", func(t *testing.T) {
		cfg := engine.DefaultConfig()
		cfg.Length = 10
		cfg.IncludeDigits = true

		p, err := gen.Generate(cfg)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(p.Answer) != 10 {
			t.Errorf("Expected 10-character answer, got %q", p.Answer)
		}
		for _, c := range p.Answer {
			if !strings.ContainsRune(letters+digits, c) {
				t.Errorf("Unexpected character %q in %q", c, p.Answer)
			}
		}
	})

	t.Run("invalid length", func(t *testing.T) {
		cfg := engine.DefaultConfig()
		cfg.Length = 0

		_, err := gen.Generate(cfg)
		if !errors.Is(err, ErrGenerationFailed) {
			t.Errorf("Expected ErrGenerationFailed, got %v", err)
		}
	})
}

func TestRandomText_Distribution(t *testing.T) {
	// Not a statistical test; just make sure consecutive draws differ,
	// which catches a broken randomness source.
	a, err := randomText(8, true)
	if err != nil {
		t.Fatalf("randomText failed: %v", err)
	}
	b, err := randomText(8, true)
	if err != nil {
		t.Fatalf("randomText failed: %v", err)
	}
	if a == b {
		t.Errorf("Expected two random draws to differ, both were %q", a)
	}
}
