package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/captcha-rush/game/engine"
	"github.com/wricardo/captcha-rush/game/service"
)

var (
	ErrConfigNotFound = errors.New("difficulty not found")
	ErrInvalidConfig  = errors.New("invalid difficulty configuration")
)

// builtins are the presets that ship with the game. The classic preset
// matches the original game's six-letter captchas.
func builtins() map[string]engine.ChallengeConfig {
	return map[string]engine.ChallengeConfig{
		"default": engine.DefaultConfig(),
		"classic": {
			Name:           "classic",
			Description:    "6-letter captchas, 10 seconds per answer",
			Length:         6,
			TimeoutSeconds: 10,
		},
		"hard": {
			Name:           "hard",
			Description:    "8 characters with digits, 10 seconds per answer",
			Length:         8,
			IncludeDigits:  true,
			TimeoutSeconds: 10,
		},
	}
}

// Manager handles difficulty preset loading and caching.
type Manager struct {
	presetDir string
	builtins  map[string]engine.ChallengeConfig
	cache     map[string]*engine.ChallengeConfig
	mu        sync.RWMutex
}

// NewManager creates a preset manager. presetDir may be empty, in which
// case only the built-in presets are available; a non-empty dir must
// exist.
func NewManager(presetDir string) (*Manager, error) {
	if presetDir != "" {
		if _, err := os.Stat(presetDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("preset directory does not exist: %s", presetDir)
		}
	}
	return &Manager{
		presetDir: presetDir,
		builtins:  builtins(),
		cache:     make(map[string]*engine.ChallengeConfig),
	}, nil
}

// LoadConfig loads a preset by ID: built-ins first, then JSON files in
// the preset directory.
func (m *Manager) LoadConfig(name string) (*engine.ChallengeConfig, error) {
	if cfg, ok := m.builtins[name]; ok {
		out := cfg
		return &out, nil
	}

	m.mu.RLock()
	if cfg, ok := m.cache[name]; ok {
		m.mu.RUnlock()
		out := *cfg
		return &out, nil
	}
	m.mu.RUnlock()

	if m.presetDir == "" {
		return nil, ErrConfigNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if cfg, ok := m.cache[name]; ok {
		out := *cfg
		return &out, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	data, err := os.ReadFile(filepath.Join(m.presetDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var cfg engine.ChallengeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse preset: %w", err)
	}
	if err := engine.ValidateChallengeConfig(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.cache[name] = &cfg
	out := cfg
	return &out, nil
}

// ListConfigs returns every available preset, built-ins first.
func (m *Manager) ListConfigs() ([]*service.DifficultyInfo, error) {
	var infos []*service.DifficultyInfo
	for id, cfg := range m.builtins {
		infos = append(infos, infoOf(id, &cfg))
	}

	if m.presetDir != "" {
		files, err := filepath.Glob(filepath.Join(m.presetDir, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to list preset files: %w", err)
		}
		for _, file := range files {
			id := strings.TrimSuffix(filepath.Base(file), ".json")
			cfg, err := m.LoadConfig(id)
			if err != nil {
				// A broken file should not hide the working presets.
				continue
			}
			infos = append(infos, infoOf(id, cfg))
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// GetDefault returns the stock preset.
func (m *Manager) GetDefault() *engine.ChallengeConfig {
	cfg := m.builtins["default"]
	return &cfg
}

func infoOf(id string, cfg *engine.ChallengeConfig) *service.DifficultyInfo {
	return &service.DifficultyInfo{
		ID:             id,
		Name:           cfg.Name,
		Description:    cfg.Description,
		Length:         cfg.Length,
		IncludeDigits:  cfg.IncludeDigits,
		CaseSensitive:  cfg.CaseSensitive,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}
}
