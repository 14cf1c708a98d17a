package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the washdesk runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Assets   AssetsConfig   `yaml:"assets"`
	Desk     DeskConfig     `yaml:"desk"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	MigrationsDir string `yaml:"migrations_dir"` // empty uses the embedded set
	ReadConns     int    `yaml:"read_conns"`
	BusyTimeout   string `yaml:"busy_timeout"`
}

// APIConfig is used by the REST client and washctl.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type AssetsConfig struct {
	BaseURL string `yaml:"base_url"`
}

type DeskConfig struct {
	DefaultOperatorID int64 `yaml:"default_operator_id"`
	PageSize          int   `yaml:"page_size"`
}

type CacheConfig struct {
	TTL string `yaml:"ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080", ShutdownTimeout: "10s"},
		Database: DatabaseConfig{Path: "washdesk.db", ReadConns: 8, BusyTimeout: "5s"},
		API:      APIConfig{BaseURL: "http://localhost:8080/api", Timeout: "15s"},
		Desk:     DeskConfig{DefaultOperatorID: 1, PageSize: 20},
		Cache:    CacheConfig{TTL: "30s"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("APP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		c.Database.MigrationsDir = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("ASSET_BASE_URL"); v != "" {
		c.Assets.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DEFAULT_OPERATOR_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("DEFAULT_OPERATOR_ID: invalid value %q", v)
		}
		c.Desk.DefaultOperatorID = id
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("PAGE_SIZE: invalid value %q", v)
		}
		c.Desk.PageSize = n
	}
	return nil
}

// Path returns the config file named by WASHDESK_CONFIG, or fallback.
func Path(fallback string) string {
	if v := os.Getenv("WASHDESK_CONFIG"); v != "" {
		return v
	}
	return fallback
}

func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

func (c *Config) BusyTimeout() time.Duration {
	return parseDuration(c.Database.BusyTimeout, 5*time.Second)
}

func (c *Config) APITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 15*time.Second)
}

func (c *Config) CacheTTL() time.Duration {
	return parseDuration(c.Cache.TTL, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Logger builds the process logger from the logging section.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
