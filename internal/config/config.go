// Package config loads sailhookd settings from a YAML file and SAILHOOK_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/posthoot/sailhook"
)

// Store drivers accepted by StoreConfig.Driver. The SQL drivers are served
// by the bun store; grove-backed stores are built by host applications that
// own the grove database.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Store  StoreConfig  `mapstructure:"store"`
	Hub    HubConfig    `mapstructure:"hub"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`

	// DSN is the lib/pq or go-sqlite3 connection string.
	DSN string `mapstructure:"dsn"`
}

type HubConfig struct {
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	MaxAttempts    int             `mapstructure:"max_attempts"`
	Backoff        []time.Duration `mapstructure:"backoff"`
	Concurrency    int             `mapstructure:"concurrency"`
	RateLimit      float64         `mapstructure:"rate_limit"`
	RateBurst      int             `mapstructure:"rate_burst"`
}

// Load reads sailhook.yaml from the given directories (the working
// directory when none are given). A missing file is not an error; defaults
// and environment variables still apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("sailhook")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("SAILHOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	hub := sailhook.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", hub.ShutdownTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.ttl", time.Hour)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("hub.request_timeout", hub.RequestTimeout)
	v.SetDefault("hub.max_attempts", hub.MaxAttempts)
	v.SetDefault("hub.backoff", hub.Backoff)
	v.SetDefault("hub.concurrency", hub.Concurrency)
	v.SetDefault("hub.rate_limit", hub.RateLimit)
	v.SetDefault("hub.rate_burst", hub.RateBurst)
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.New("config: auth.secret is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// HubOptions converts the hub settings to sailhook options.
func (c *Config) HubOptions() []sailhook.Option {
	opts := []sailhook.Option{
		sailhook.WithRequestTimeout(c.Hub.RequestTimeout),
		sailhook.WithMaxAttempts(c.Hub.MaxAttempts),
		sailhook.WithConcurrency(c.Hub.Concurrency),
		sailhook.WithShutdownTimeout(c.Server.ShutdownTimeout),
	}
	if len(c.Hub.Backoff) > 0 {
		opts = append(opts, sailhook.WithBackoff(c.Hub.Backoff...))
	}
	if c.Hub.RateLimit > 0 {
		opts = append(opts, sailhook.WithRateLimit(c.Hub.RateLimit, c.Hub.RateBurst))
	}
	return opts
}

// SlogLevel parses Log.Level, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
