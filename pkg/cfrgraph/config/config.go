package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
)

// Config is the top-level runtime configuration.
type Config struct {
	API      API      `yaml:"api"`
	Pipeline Pipeline `yaml:"pipeline"`
	Store    Store    `yaml:"store"`
	Log      Log      `yaml:"log"`
}

// API configures the upstream eCFR client.
type API struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CacheSize         int           `yaml:"cache_size"`
	UserAgent         string        `yaml:"user_agent"`
	// SnapshotDir, when set, replaces the HTTP client with a file-backed
	// source reading a directory written by the snapshot command.
	SnapshotDir       string        `yaml:"snapshot_dir"`
}

// Pipeline configures the ingestion run.
type Pipeline struct {
	// DetailedTitles bounds how many titles get full-text processing.
	// Zero or negative processes every title.
	DetailedTitles        int   `yaml:"detailed_titles"`
	Seed                  int64 `yaml:"seed"`
	DefaultWordCount      int   `yaml:"default_word_count"`
	MinEstimatedWordCount int   `yaml:"min_estimated_word_count"`
}

// Store selects the persistence backend.
type Store struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Log configures the slog handler installed by the CLI.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		API: API{
			BaseURL:           "https://www.ecfr.gov",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             1,
			CacheSize:         512,
			UserAgent:         "cfrgraph/1.0",
		},
		Pipeline: Pipeline{
			DetailedTitles:        10,
			DefaultWordCount:      50000,
			MinEstimatedWordCount: 1000,
		},
		Store: Store{
			Driver: "sqlite",
			Path:   "cfrgraph.db",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.API.SnapshotDir == "" && c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", internalerr.ErrInvalidConfig)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: api.timeout must not be negative", internalerr.ErrInvalidConfig)
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: api.requests_per_second must not be negative", internalerr.ErrInvalidConfig)
	}
	if c.API.CacheSize < 0 {
		return fmt.Errorf("%w: api.cache_size must not be negative", internalerr.ErrInvalidConfig)
	}
	if c.Pipeline.DefaultWordCount < 0 || c.Pipeline.MinEstimatedWordCount < 0 {
		return fmt.Errorf("%w: pipeline word counts must not be negative", internalerr.ErrInvalidConfig)
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for sqlite", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", internalerr.ErrInvalidConfig, c.Store.Driver)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", internalerr.ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
