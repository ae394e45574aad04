// Package bunstore implements store.Store on the Bun ORM, for PostgreSQL
// (pgdialect) or SQLite (sqlitedialect).
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	sailstore "github.com/posthoot/sailhook/store"
	"github.com/posthoot/sailhook/webhook"
)

// compile-time interface check
var (
	_ sailstore.Store    = (*Store)(nil)
	_ delivery.PageStore = (*Store)(nil)
)

// Store implements store.Store using the Bun ORM.
type Store struct {
	db *bun.DB
}

// New creates a new Bun-backed store.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying Bun database for direct access.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the required tables using Bun's CreateTable.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*webhookModel)(nil),
		(*webhookEventModel)(nil),
		(*deliveryModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_sailhook_webhooks_team ON sailhook_webhooks (team_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sailhook_webhook_events_webhook ON sailhook_webhook_events (webhook_id)",
		"CREATE INDEX IF NOT EXISTS idx_sailhook_deliveries_webhook ON sailhook_deliveries (webhook_id, created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sailhook_deliveries_status ON sailhook_deliveries (webhook_id, status, created_at DESC)",
	}
	for _, ddl := range indexes {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Webhook Store ====================

func (s *Store) CreateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m, err := toWebhookModel(wh)
	if err != nil {
		return err
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return err
		}
		return insertSubscriptions(ctx, tx, wh)
	})
}

func (s *Store) GetWebhook(ctx context.Context, teamID string, whID id.ID) (*webhook.Webhook, error) {
	m := new(webhookModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", whID.String()).
		Where("team_id = ?", teamID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sailhook.ErrWebhookNotFound
		}
		return nil, err
	}
	return m.toDomain()
}

// UpdateWebhook rewrites the row and its subscription rows in one transaction.
func (s *Store) UpdateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m, err := toWebhookModel(wh)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(m).
			Column("name", "url", "secret", "events", "is_active", "updated_at").
			Where("id = ?", m.ID).
			Where("team_id = ?", m.TeamID).
			Exec(ctx)
		if err := notFoundIfNoRows(res, err); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*webhookEventModel)(nil)).
			Where("webhook_id = ?", m.ID).
			Exec(ctx); err != nil {
			return err
		}
		return insertSubscriptions(ctx, tx, wh)
	})
}

func (s *Store) DeleteWebhook(ctx context.Context, teamID string, whID id.ID) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*webhookModel)(nil)).
			Where("id = ?", whID.String()).
			Where("team_id = ?", teamID).
			Exec(ctx)
		if err := notFoundIfNoRows(res, err); err != nil {
			return err
		}
		_, err = tx.NewDelete().
			Model((*webhookEventModel)(nil)).
			Where("webhook_id = ?", whID.String()).
			Exec(ctx)
		return err
	})
}

func (s *Store) ListWebhooks(ctx context.Context, teamID string, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	var models []webhookModel
	q := s.db.NewSelect().
		Model(&models).
		Where("team_id = ?", teamID).
		OrderExpr("created_at DESC, id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return webhooksToDomain(models)
}

// ListActiveForEvent resolves subscriptions through the join table's
// (team_id, event_type) index.
func (s *Store) ListActiveForEvent(ctx context.Context, teamID string, eventType event.Type) ([]*webhook.Webhook, error) {
	sub := s.db.NewSelect().
		Model((*webhookEventModel)(nil)).
		Column("webhook_id").
		Where("team_id = ?", teamID).
		Where("event_type = ?", string(eventType))

	var models []webhookModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("w.team_id = ?", teamID).
		Where("w.is_active = ?", true).
		Where("w.id IN (?)", sub).
		Scan(ctx); err != nil {
		return nil, err
	}
	return webhooksToDomain(models)
}

func insertSubscriptions(ctx context.Context, tx bun.Tx, wh *webhook.Webhook) error {
	rows := subscriptionRows(wh)
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func webhooksToDomain(models []webhookModel) ([]*webhook.Webhook, error) {
	result := make([]*webhook.Webhook, len(models))
	for i := range models {
		wh, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		result[i] = wh
	}
	return result, nil
}

// ==================== Delivery Store ====================

func (s *Store) RecordDelivery(ctx context.Context, d *delivery.Delivery) error {
	_, err := s.db.NewInsert().Model(toDeliveryModel(d)).Exec(ctx)
	return err
}

func (s *Store) GetDelivery(ctx context.Context, webhookID, delID id.ID) (*delivery.Delivery, error) {
	m := new(deliveryModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", delID.String()).
		Where("webhook_id = ?", webhookID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sailhook.ErrDeliveryNotFound
		}
		return nil, err
	}
	return m.toDomain()
}

func (s *Store) ListDeliveries(ctx context.Context, webhookID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	return selectDeliveries(ctx, s.db, webhookID, opts)
}

func (s *Store) CountDeliveries(ctx context.Context, webhookID id.ID, status *int) (int64, error) {
	return countDeliveries(ctx, s.db, webhookID, status)
}

// ListDeliveriesPage reads the page and its total inside one read-only
// transaction. Postgres needs REPEATABLE READ for both statements to share
// a snapshot; an SQLite transaction already reads from one.
func (s *Store) ListDeliveriesPage(ctx context.Context, webhookID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, int64, error) {
	var txOpts *sql.TxOptions
	if s.db.Dialect().Name() == dialect.PG {
		txOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	var (
		rows  []*delivery.Delivery
		total int64
	)
	err := s.db.RunInTx(ctx, txOpts, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if total, err = countDeliveries(ctx, tx, webhookID, opts.Status); err != nil {
			return err
		}
		if int64(opts.Offset) >= total {
			return nil
		}
		rows, err = selectDeliveries(ctx, tx, webhookID, opts)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func selectDeliveries(ctx context.Context, db bun.IDB, webhookID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel
	q := db.NewSelect().
		Model(&models).
		Where("webhook_id = ?", webhookID.String())
	if opts.Status != nil {
		q = q.Where("status = ?", *opts.Status)
	}
	if err := q.OrderExpr("created_at DESC, id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*delivery.Delivery, len(models))
	for i := range models {
		d, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

func countDeliveries(ctx context.Context, db bun.IDB, webhookID id.ID, status *int) (int64, error) {
	q := db.NewSelect().
		Model((*deliveryModel)(nil)).
		Where("webhook_id = ?", webhookID.String())
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	n, err := q.Count(ctx)
	return int64(n), err
}

// notFoundIfNoRows maps a write that touched nothing to ErrWebhookNotFound,
// which is also what a row owned by another team produces.
func notFoundIfNoRows(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sailhook.ErrWebhookNotFound
	}
	return nil
}
