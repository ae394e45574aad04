package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	sailstore "github.com/posthoot/sailhook/store"
	"github.com/posthoot/sailhook/webhook"
)

// compile-time interface check
var _ sailstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("sailhook/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("sailhook/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Webhook Store ====================

func (s *Store) CreateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	_, err := s.pg.NewInsert(toWebhookModel(wh)).Exec(ctx)
	return err
}

func (s *Store) GetWebhook(ctx context.Context, teamID string, whID id.ID) (*webhook.Webhook, error) {
	m := new(webhookModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", whID.String()).
		Where("team_id = $2", teamID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, sailhook.ErrWebhookNotFound
		}
		return nil, err
	}
	return fromWebhookModel(m)
}

func (s *Store) UpdateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m := toWebhookModel(wh)
	res, err := s.pg.NewUpdate((*webhookModel)(nil)).
		Set("name = $1", m.Name).
		Set("url = $2", m.URL).
		Set("secret = $3", m.Secret).
		Set("events = $4", m.Events).
		Set("is_active = $5", m.IsActive).
		Set("updated_at = $6", time.Now().UTC()).
		Where("id = $7", m.ID).
		Where("team_id = $8", m.TeamID).
		Exec(ctx)
	return affectedOrNotFound(res, err)
}

func (s *Store) DeleteWebhook(ctx context.Context, teamID string, whID id.ID) error {
	res, err := s.pg.NewDelete((*webhookModel)(nil)).
		Where("id = $1", whID.String()).
		Where("team_id = $2", teamID).
		Exec(ctx)
	return affectedOrNotFound(res, err)
}

func (s *Store) ListWebhooks(ctx context.Context, teamID string, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	var models []webhookModel
	q := s.pg.NewSelect(&models).Where("team_id = $1", teamID)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromWebhookModels(models)
}

// ListActiveForEvent is served by the partial GIN index on events.
func (s *Store) ListActiveForEvent(ctx context.Context, teamID string, eventType event.Type) ([]*webhook.Webhook, error) {
	var models []webhookModel
	if err := s.pg.NewSelect(&models).
		Where("team_id = $1", teamID).
		Where("is_active").
		Where("events @> ARRAY[$2]::text[]", string(eventType)).
		Scan(ctx); err != nil {
		return nil, err
	}
	return fromWebhookModels(models)
}

func fromWebhookModels(models []webhookModel) ([]*webhook.Webhook, error) {
	result := make([]*webhook.Webhook, len(models))
	for i := range models {
		wh, err := fromWebhookModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = wh
	}
	return result, nil
}

// ==================== Delivery Store ====================

func (s *Store) RecordDelivery(ctx context.Context, d *delivery.Delivery) error {
	_, err := s.pg.NewInsert(toDeliveryModel(d)).Exec(ctx)
	return err
}

func (s *Store) GetDelivery(ctx context.Context, webhookID, delID id.ID) (*delivery.Delivery, error) {
	m := new(deliveryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", delID.String()).
		Where("webhook_id = $2", webhookID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, sailhook.ErrDeliveryNotFound
		}
		return nil, err
	}
	return fromDeliveryModel(m)
}

func (s *Store) ListDeliveries(ctx context.Context, webhookID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel
	q := s.pg.NewSelect(&models).Where("webhook_id = $1", webhookID.String())
	if opts.Status != nil {
		q = q.Where("status = $2", *opts.Status)
	}
	q = q.OrderExpr("created_at DESC, id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*delivery.Delivery, len(models))
	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

func (s *Store) CountDeliveries(ctx context.Context, webhookID id.ID, status *int) (int64, error) {
	q := s.pg.NewSelect((*deliveryModel)(nil)).Where("webhook_id = $1", webhookID.String())
	if status != nil {
		q = q.Where("status = $2", *status)
	}
	return q.Count(ctx)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

// affectedOrNotFound maps a zero-row write to ErrWebhookNotFound. A row in
// another team matches zero rows, so it reads as missing.
func affectedOrNotFound(res rowsAffecter, err error) error {
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
