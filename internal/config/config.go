// Package config loads and validates the picker configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full picker configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	List     ListConfig     `yaml:"list"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Progress ProgressConfig `yaml:"progress"`
	Filter   FilterConfig   `yaml:"filter"`
	Session  SessionConfig  `yaml:"session"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // log file path; stderr when empty
}

// ScoringConfig holds scoring tunables.
type ScoringConfig struct {
	Mode     string `yaml:"mode"`      // fuzzy or exact
	Case     string `yaml:"case"`      // smart, ignore, respect
	MaxItems int    `yaml:"max_items"` // soft cap on collected items (0 = unbounded)
}

// ListConfig holds ranked-list settings.
type ListConfig struct {
	TopK    int  `yaml:"top_k"`    // bounded best-N view size
	Reverse bool `yaml:"reverse"`  // display order only
	PauseMs int  `yaml:"pause_ms"` // refresh-suppression window on restart
}

// MatcherConfig holds scoring-pass settings.
type MatcherConfig struct {
	SliceBudget int `yaml:"slice_budget"` // items scored between yields
}

// ProgressConfig holds adaptive UI-refresh intervals.
type ProgressConfig struct {
	ShortMs int `yaml:"short_ms"` // while the visible window is unfilled
	LongMs  int `yaml:"long_ms"`  // once the visible window is filled
}

// FilterConfig holds static pre-score constraints.
type FilterConfig struct {
	Cwd     string   `yaml:"cwd"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// SessionConfig holds controller behavior toggles.
type SessionConfig struct {
	AutoConfirm bool `yaml:"auto_confirm"` // confirm automatically on a single result
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "warn"},
		Scoring:  ScoringConfig{Mode: "fuzzy", Case: "smart", MaxItems: 100000},
		List:     ListConfig{TopK: 64, PauseMs: 60},
		Matcher:  MatcherConfig{SliceBudget: 256},
		Progress: ProgressConfig{ShortMs: 10, LongMs: 100},
	}
}

// DefaultPath returns the default config file location
// (~/.config/fzpick/config.yaml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "fzpick", "config.yaml"), nil
}

// Load reads the config file at path (DefaultPath when empty), falling
// back to defaults when the file does not exist. Unset fields take their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Scoring.Mode {
	case "fuzzy", "exact":
	default:
		return fmt.Errorf("scoring.mode must be fuzzy or exact, got %q", c.Scoring.Mode)
	}
	switch c.Scoring.Case {
	case "smart", "ignore", "respect":
	default:
		return fmt.Errorf("scoring.case must be smart, ignore or respect, got %q", c.Scoring.Case)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.List.TopK < 1 {
		return fmt.Errorf("list.top_k must be positive, got %d", c.List.TopK)
	}
	if c.Matcher.SliceBudget < 1 {
		return fmt.Errorf("matcher.slice_budget must be positive, got %d", c.Matcher.SliceBudget)
	}
	if c.Scoring.MaxItems < 0 {
		return fmt.Errorf("scoring.max_items must not be negative, got %d", c.Scoring.MaxItems)
	}
	if c.List.PauseMs < 0 || c.Progress.ShortMs < 0 || c.Progress.LongMs < 0 {
		return errors.New("intervals must not be negative")
	}
	return nil
}
