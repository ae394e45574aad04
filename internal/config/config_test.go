package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/internal/config"
	"github.com/posthoot/sailhook/store/memory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sailhook.yaml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadFile(t *testing.T) {
	dir := writeConfig(t, `
server:
  addr: ":9090"
log:
  level: debug
  format: text
auth:
  secret: s3cret
  issuer: posthoot
store:
  driver: sqlite
  dsn: file:sailhook.db
hub:
  request_timeout: 3s
  max_attempts: 3
  backoff: [1s, 10s]
  rate_limit: 5
  rate_burst: 10
`)

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Store.Driver != config.DriverSQLite || cfg.Store.DSN != "file:sailhook.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Hub.RequestTimeout != 3*time.Second || cfg.Hub.MaxAttempts != 3 {
		t.Fatalf("hub: %+v", cfg.Hub)
	}
	if len(cfg.Hub.Backoff) != 2 || cfg.Hub.Backoff[1] != 10*time.Second {
		t.Fatalf("backoff: %v", cfg.Hub.Backoff)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level: %v", cfg.SlogLevel())
	}
	// Unset keys keep their defaults.
	if cfg.Hub.Concurrency != sailhook.DefaultConfig().Concurrency || cfg.Auth.TTL != time.Hour {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, `
auth:
  secret: from-file
`)
	t.Setenv("SAILHOOK_AUTH_SECRET", "from-env")
	t.Setenv("SAILHOOK_SERVER_ADDR", ":7070")
	t.Setenv("SAILHOOK_HUB_MAX_ATTEMPTS", "4")

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.Secret != "from-env" || cfg.Server.Addr != ":7070" || cfg.Hub.MaxAttempts != 4 {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("SAILHOOK_AUTH_SECRET", "s3cret")

	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != config.DriverMemory || cfg.Hub.MaxAttempts != 1 || cfg.Log.Format != "json" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"missing secret":    "store:\n  driver: memory\n",
		"unknown driver":    "auth:\n  secret: x\nstore:\n  driver: cassandra\n",
		"sql without dsn":   "auth:\n  secret: x\nstore:\n  driver: postgres\n",
		"unknown logformat": "auth:\n  secret: x\nlog:\n  format: xml\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := config.Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestHubOptions(t *testing.T) {
	t.Setenv("SAILHOOK_AUTH_SECRET", "s3cret")
	t.Setenv("SAILHOOK_HUB_RATE_LIMIT", "2")

	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	opts := append([]sailhook.Option{sailhook.WithStore(memory.New())}, cfg.HubOptions()...)
	hub, err := sailhook.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	_ = hub.Stop(t.Context())
}
