// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	// FileName is the per-project override looked up in the working directory
	FileName = ".grit-find.yaml"
)

// Config holds all grit-find configuration.
type Config struct {
	GitHub GitHub `yaml:"github"`
	Search Search `yaml:"search"`
	Retry  Retry  `yaml:"retry"`
	Cache  Cache  `yaml:"cache"`
	Assist Assist `yaml:"assist"`
}

// GitHub holds API endpoint settings.
type GitHub struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// Search holds paging and filtering settings.
type Search struct {
	RemotePageSize   int `yaml:"remote_page_size"`  // per_page sent to GitHub, 1..100
	WindowSize       int `yaml:"window_size"`       // repositories shown at once
	ResultBudget     int `yaml:"result_budget"`     // repositories accumulated per query
	ProbeConcurrency int `yaml:"probe_concurrency"` // parallel release probes
}

// Retry holds rate-limit retry settings.
type Retry struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	FallbackWait time.Duration `yaml:"fallback_wait"`
}

// Cache holds result cache settings.
type Cache struct {
	Dir     string `yaml:"dir"`
	Backend string `yaml:"backend"` // "json" | "sqlite"
	Enabled bool   `yaml:"enabled"`
}

// Assist holds query assist settings.
type Assist struct {
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitHub: GitHub{
			BaseURL:   "https://api.github.com",
			Timeout:   20 * time.Second,
			UserAgent: "grit-find (github.com)",
		},
		Search: Search{
			RemotePageSize:   100,
			WindowSize:       25,
			ResultBudget:     100,
			ProbeConcurrency: 8,
		},
		Retry: Retry{
			MaxAttempts:  3,
			FallbackWait: 5 * time.Second,
		},
		Cache: Cache{
			Backend: BackendJSON,
			Enabled: true,
		},
		Assist: Assist{
			Model:   "gpt-4o-mini",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 60 * time.Second,
		},
	}
}

// DefaultPaths returns the layered config locations, lowest priority first:
// the user config file and the working directory override.
func DefaultPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "grit-find", "config.yaml"))
	}
	return append(paths, FileName)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from GRIT_FIND_* variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("GRIT_FIND_CACHE_DIR"); ok && v != "" {
		c.Cache.Dir = v
	}
	if v, ok := lookup("GRIT_FIND_CACHE_BACKEND"); ok && v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v, ok := lookup("GRIT_FIND_API_URL"); ok && v != "" {
		c.GitHub.BaseURL = v
	}
	if v, ok := lookup("GRIT_FIND_PROBE_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: GRIT_FIND_PROBE_CONCURRENCY: %w", err)
		}
		c.Search.ProbeConcurrency = n
	}
	if v, ok := lookup("GRIT_FIND_NO_CACHE"); ok && v != "" {
		off, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: GRIT_FIND_NO_CACHE: %w", err)
		}
		c.Cache.Enabled = !off
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.GitHub.BaseURL == "" {
		return errors.New("config: github.base_url cannot be empty")
	}
	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("config: github.timeout must be positive, got %v", c.GitHub.Timeout)
	}
	if c.Search.RemotePageSize < 1 || c.Search.RemotePageSize > 100 {
		return fmt.Errorf("config: search.remote_page_size must be between 1 and 100, got %d", c.Search.RemotePageSize)
	}
	if c.Search.WindowSize < 1 {
		return fmt.Errorf("config: search.window_size must be positive, got %d", c.Search.WindowSize)
	}
	// GitHub serves at most the first 1000 search results.
	if c.Search.ResultBudget < 1 || c.Search.ResultBudget > 1000 {
		return fmt.Errorf("config: search.result_budget must be between 1 and 1000, got %d", c.Search.ResultBudget)
	}
	if c.Search.ProbeConcurrency < 1 {
		return fmt.Errorf("config: search.probe_concurrency must be positive, got %d", c.Search.ProbeConcurrency)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.FallbackWait < 0 {
		return fmt.Errorf("config: retry.fallback_wait must be non-negative, got %v", c.Retry.FallbackWait)
	}
	switch c.Cache.Backend {
	case BackendJSON, BackendSQLite:
		// valid
	default:
		return fmt.Errorf("config: cache.backend must be %q or %q, got %q", BackendJSON, BackendSQLite, c.Cache.Backend)
	}
	if c.Assist.Timeout <= 0 {
		return fmt.Errorf("config: assist.timeout must be positive, got %v", c.Assist.Timeout)
	}
	return nil
}

// rawConfig mirrors Config with pointer fields so a layer only overrides
// what it sets.
type rawConfig struct {
	GitHub *rawGitHub `yaml:"github"`
	Search *rawSearch `yaml:"search"`
	Retry  *rawRetry  `yaml:"retry"`
	Cache  *rawCache  `yaml:"cache"`
	Assist *rawAssist `yaml:"assist"`
}

type rawGitHub struct {
	BaseURL   *string        `yaml:"base_url"`
	Timeout   *time.Duration `yaml:"timeout"`
	UserAgent *string        `yaml:"user_agent"`
}

type rawSearch struct {
	RemotePageSize   *int `yaml:"remote_page_size"`
	WindowSize       *int `yaml:"window_size"`
	ResultBudget     *int `yaml:"result_budget"`
	ProbeConcurrency *int `yaml:"probe_concurrency"`
}

type rawRetry struct {
	MaxAttempts  *int           `yaml:"max_attempts"`
	FallbackWait *time.Duration `yaml:"fallback_wait"`
}

type rawCache struct {
	Dir     *string `yaml:"dir"`
	Backend *string `yaml:"backend"`
	Enabled *bool   `yaml:"enabled"`
}

type rawAssist struct {
	Model   *string        `yaml:"model"`
	BaseURL *string        `yaml:"base_url"`
	Timeout *time.Duration `yaml:"timeout"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if g := layer.GitHub; g != nil {
		set(&c.GitHub.BaseURL, g.BaseURL)
		set(&c.GitHub.Timeout, g.Timeout)
		set(&c.GitHub.UserAgent, g.UserAgent)
	}
	if s := layer.Search; s != nil {
		set(&c.Search.RemotePageSize, s.RemotePageSize)
		set(&c.Search.WindowSize, s.WindowSize)
		set(&c.Search.ResultBudget, s.ResultBudget)
		set(&c.Search.ProbeConcurrency, s.ProbeConcurrency)
	}
	if r := layer.Retry; r != nil {
		set(&c.Retry.MaxAttempts, r.MaxAttempts)
		set(&c.Retry.FallbackWait, r.FallbackWait)
	}
	if ca := layer.Cache; ca != nil {
		set(&c.Cache.Dir, ca.Dir)
		set(&c.Cache.Backend, ca.Backend)
		set(&c.Cache.Enabled, ca.Enabled)
	}
	if a := layer.Assist; a != nil {
		set(&c.Assist.Model, a.Model)
		set(&c.Assist.BaseURL, a.BaseURL)
		set(&c.Assist.Timeout, a.Timeout)
	}
}
