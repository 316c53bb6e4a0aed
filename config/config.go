// Package config resolves ffscrape settings from defaults, the config file
// and FFSCRAPE_* environment variables, in increasing order of precedence.
// Command-line flags are applied on top by the binaries.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the full set of settings.
type Config struct {
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	API     APIConfig     `yaml:"api"`
}

// ScrapeConfig controls how stories are scraped.
type ScrapeConfig struct {
	// ChapterDelay is the pause before every chapter fetch.
	ChapterDelay time.Duration `yaml:"chapter_delay"`
	// Concurrency is the number of stories scraped at once.
	Concurrency int `yaml:"concurrency"`
}

// FetchConfig controls the page loader.
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	Retries           int           `yaml:"retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	CacheSize         int           `yaml:"cache_size"`
}

// StorageConfig locates the story library and the scrape history.
type StorageConfig struct {
	LibraryDir string `yaml:"library_dir"`
	HistoryDSN string `yaml:"history_dsn"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// APIConfig controls the API server.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in settings. Storage lives under dir, normally
// ~/.ffscrape.
func Default(dir string) *Config {
	return &Config{
		Scrape: ScrapeConfig{
			ChapterDelay: 2 * time.Second,
			Concurrency:  2,
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "ffscrape/1.0 (+https://github.com/pevans/ffscrape)",
			Retries:           2,
			RequestsPerSecond: 1,
			CacheTTL:          10 * time.Minute,
			CacheSize:         256,
		},
		Storage: StorageConfig{
			LibraryDir: filepath.Join(dir, "library"),
			HistoryDSN: filepath.Join(dir, "history.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
		API: APIConfig{
			Addr: ":8080",
		},
	}
}

// Load resolves the settings with precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file (~/.ffscrape/config.yaml, or $FFSCRAPE_CONFIG)
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return LoadPath("")
}

// LoadPath is Load with an explicit config file. An empty path falls back
// to $FFSCRAPE_CONFIG and then ~/.ffscrape/config.yaml.
func LoadPath(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	cfg := Default(dir)

	if path == "" {
		path = os.Getenv("FFSCRAPE_CONFIG")
	}
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}
	if err := LoadConfigFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides settings from FFSCRAPE_* variables read with getenv.
// Empty variables are ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	var errs []string

	str := func(name string, dst *string) {
		if val := getenv(name); val != "" {
			*dst = val
		}
	}
	integer := func(name string, dst *int) {
		if val := getenv(name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not an integer", name, val))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if val := getenv(name); val != "" {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a number", name, val))
				return
			}
			*dst = f
		}
	}
	duration := func(name string, dst *time.Duration) {
		if val := getenv(name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a duration (e.g. 2s, 5m)", name, val))
				return
			}
			*dst = d
		}
	}

	duration("FFSCRAPE_CHAPTER_DELAY", &cfg.Scrape.ChapterDelay)
	integer("FFSCRAPE_CONCURRENCY", &cfg.Scrape.Concurrency)
	duration("FFSCRAPE_TIMEOUT", &cfg.Fetch.Timeout)
	str("FFSCRAPE_USER_AGENT", &cfg.Fetch.UserAgent)
	integer("FFSCRAPE_RETRIES", &cfg.Fetch.Retries)
	float("FFSCRAPE_REQUESTS_PER_SECOND", &cfg.Fetch.RequestsPerSecond)
	duration("FFSCRAPE_CACHE_TTL", &cfg.Fetch.CacheTTL)
	integer("FFSCRAPE_CACHE_SIZE", &cfg.Fetch.CacheSize)
	str("FFSCRAPE_LIBRARY_DIR", &cfg.Storage.LibraryDir)
	str("FFSCRAPE_HISTORY_DSN", &cfg.Storage.HistoryDSN)
	str("FFSCRAPE_LOG_LEVEL", &cfg.Log.Level)
	str("FFSCRAPE_API_ADDR", &cfg.API.Addr)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Scrape.ChapterDelay < 0:
		return fmt.Errorf("scrape.chapter_delay must not be negative")
	case c.Scrape.Concurrency < 1:
		return fmt.Errorf("scrape.concurrency must be at least 1")
	case c.Fetch.Retries < 0:
		return fmt.Errorf("fetch.retries must not be negative")
	case c.Fetch.RequestsPerSecond < 0:
		return fmt.Errorf("fetch.requests_per_second must not be negative")
	case c.Storage.LibraryDir == "":
		return fmt.Errorf("storage.library_dir is required")
	case c.Storage.HistoryDSN == "":
		return fmt.Errorf("storage.history_dsn is required")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level ("debug", "info", "warn", "error").
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	return level, nil
}
