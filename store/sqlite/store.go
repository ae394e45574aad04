package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
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

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("sailhook/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("sailhook/sqlite: migration failed: %w", err)
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
	m, err := toWebhookModel(wh)
	if err != nil {
		return err
	}
	_, err = s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetWebhook(ctx context.Context, teamID string, whID id.ID) (*webhook.Webhook, error) {
	m := new(webhookModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", whID.String()).
		Where("team_id = ?", teamID).
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
	m, err := toWebhookModel(wh)
	if err != nil {
		return err
	}
	res, err := s.sdb.NewUpdate((*webhookModel)(nil)).
		Set("name = ?", m.Name).
		Set("url = ?", m.URL).
		Set("secret = ?", m.Secret).
		Set("events = ?", m.Events).
		Set("is_active = ?", m.IsActive).
		Set("updated_at = ?", now()).
		Where("id = ?", m.ID).
		Where("team_id = ?", m.TeamID).
		Exec(ctx)
	return affectedOrNotFound(res, err)
}

func (s *Store) DeleteWebhook(ctx context.Context, teamID string, whID id.ID) error {
	res, err := s.sdb.NewDelete((*webhookModel)(nil)).
		Where("id = ?", whID.String()).
		Where("team_id = ?", teamID).
		Exec(ctx)
	return affectedOrNotFound(res, err)
}

func (s *Store) ListWebhooks(ctx context.Context, teamID string, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	var models []webhookModel
	q := s.sdb.NewSelect(&models).Where("team_id = ?", teamID)
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

// ListActiveForEvent narrows by the (team_id, is_active) index and checks
// membership in the JSON events array with json_each.
func (s *Store) ListActiveForEvent(ctx context.Context, teamID string, eventType event.Type) ([]*webhook.Webhook, error) {
	var models []webhookModel
	if err := s.sdb.NewSelect(&models).
		Where("team_id = ?", teamID).
		Where("is_active = 1").
		Where("EXISTS (SELECT 1 FROM json_each(events) WHERE json_each.value = ?)", string(eventType)).
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
	_, err := s.sdb.NewInsert(toDeliveryModel(d)).Exec(ctx)
	return err
}

func (s *Store) GetDelivery(ctx context.Context, webhookID, delID id.ID) (*delivery.Delivery, error) {
	m := new(deliveryModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", delID.String()).
		Where("webhook_id = ?", webhookID.String()).
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
	q := s.sdb.NewSelect(&models).Where("webhook_id = ?", webhookID.String())
	if opts.Status != nil {
		q = q.Where("status = ?", *opts.Status)
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
	q := s.sdb.NewSelect((*deliveryModel)(nil)).Where("webhook_id = ?", webhookID.String())
	if status != nil {
		q = q.Where("status = ?", *status)
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

func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
