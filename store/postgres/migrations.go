package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the sailhook PostgreSQL store.
var Migrations = migrate.NewGroup("sailhook")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_sailhook_webhooks",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sailhook_webhooks (
    id          TEXT PRIMARY KEY,
    team_id     TEXT NOT NULL,
    name        TEXT NOT NULL,
    url         TEXT NOT NULL,
    secret      TEXT NOT NULL DEFAULT '',
    events      TEXT[] NOT NULL DEFAULT '{}',
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sailhook_webhooks_team ON sailhook_webhooks (team_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sailhook_webhooks_events ON sailhook_webhooks USING GIN (events) WHERE is_active;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS sailhook_webhooks`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_sailhook_deliveries",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sailhook_deliveries (
    id          TEXT PRIMARY KEY,
    webhook_id  TEXT NOT NULL,
    event_type  TEXT NOT NULL,
    status      INT NOT NULL DEFAULT 0,
    payload     JSONB NOT NULL,
    response    TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    attempt     INT NOT NULL DEFAULT 1,
    latency_ms  INT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sailhook_deliveries_webhook ON sailhook_deliveries (webhook_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_sailhook_deliveries_status ON sailhook_deliveries (webhook_id, status, created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS sailhook_deliveries`)
				return err
			},
		},
	)
}
