package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_Builtins(t *testing.T) {
	manager, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	t.Run("default preset", func(t *testing.T) {
		cfg := manager.GetDefault()
		if cfg.Length != 4 || cfg.TimeoutSeconds != 10 {
			t.Errorf("Unexpected default preset: %+v", cfg)
		}
	})

	t.Run("classic preset", func(t *testing.T) {
		cfg, err := manager.LoadConfig("classic")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Length != 6 || cfg.IncludeDigits {
			t.Errorf("Unexpected classic preset: %+v", cfg)
		}
	})

	t.Run("hard preset includes digits", func(t *testing.T) {
		cfg, err := manager.LoadConfig("hard")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if !cfg.IncludeDigits {
			t.Error("Expected hard preset to include digits")
		}
	})

	t.Run("unknown preset", func(t *testing.T) {
		if _, err := manager.LoadConfig("nightmare"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loaded preset is a copy", func(t *testing.T) {
		cfg, _ := manager.LoadConfig("classic")
		cfg.Length = 1

		again, _ := manager.LoadConfig("classic")
		if again.Length != 6 {
			t.Error("Expected mutation of a loaded preset not to leak")
		}
	})
}

func TestManager_PresetDir(t *testing.T) {
	dir := t.TempDir()

	writePreset := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	writePreset("speedrun.json", `{
		"name": "speedrun",
		"description": "3 letters, 5 seconds",
		"length": 3,
		"timeout_seconds": 5
	}`)
	writePreset("broken.json", `{"name": "broken", "length": 99, "timeout_seconds": 10}`)
	writePreset("garbage.json", `not json at all`)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	t.Run("loads file preset", func(t *testing.T) {
		cfg, err := manager.LoadConfig("speedrun")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Length != 3 || cfg.TimeoutSeconds != 5 {
			t.Errorf("Unexpected preset: %+v", cfg)
		}
	})

	t.Run("rejects invalid preset", func(t *testing.T) {
		if _, err := manager.LoadConfig("broken"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("rejects unparsable preset", func(t *testing.T) {
		if _, err := manager.LoadConfig("garbage"); err == nil {
			t.Error("Expected parse error")
		}
	})

	t.Run("list includes builtins and valid files", func(t *testing.T) {
		infos, err := manager.ListConfigs()
		if err != nil {
			t.Fatalf("ListConfigs failed: %v", err)
		}

		ids := make(map[string]bool)
		for _, info := range infos {
			ids[info.ID] = true
		}
		for _, want := range []string{"default", "classic", "hard", "speedrun"} {
			if !ids[want] {
				t.Errorf("Expected preset %q in listing, got %v", want, ids)
			}
		}
		if ids["broken"] || ids["garbage"] {
			t.Error("Expected invalid presets to be excluded from listing")
		}
	})
}

func TestNewManager_MissingDir(t *testing.T) {
	if _, err := NewManager("/nonexistent/preset/dir"); err == nil {
		t.Error("Expected error for missing preset directory")
	}
}
