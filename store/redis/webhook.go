package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/internal/entity"
	"github.com/posthoot/sailhook/webhook"
)

// webhookModel is the JSON representation stored in Redis.
type webhookModel struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Secret    string    `json:"secret"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toWebhookModel(wh *webhook.Webhook) *webhookModel {
	return &webhookModel{
		ID:        wh.ID.String(),
		TeamID:    wh.TeamID,
		Name:      wh.Name,
		URL:       wh.URL,
		Secret:    wh.Secret,
		Events:    wh.Events.Strings(),
		IsActive:  wh.IsActive,
		CreatedAt: wh.CreatedAt,
		UpdatedAt: wh.UpdatedAt,
	}
}

func fromWebhookModel(m *webhookModel) (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}
	events, err := event.ParseSet(m.Events)
	if err != nil {
		return nil, fmt.Errorf("webhook %s: %w", m.ID, err)
	}
	return &webhook.Webhook{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       whID,
		TeamID:   m.TeamID,
		Name:     m.Name,
		URL:      m.URL,
		Secret:   m.Secret,
		Events:   events,
		IsActive: m.IsActive,
	}, nil
}

// indexSubscriptions adds m to the subscriber set of each of its events when
// it is active.
func indexSubscriptions(ctx context.Context, pipe goredis.Pipeliner, m *webhookModel) {
	if !m.IsActive {
		return
	}
	for _, et := range m.Events {
		pipe.SAdd(ctx, subscribersKey(m.TeamID, et), m.ID)
	}
}

func unindexSubscriptions(ctx context.Context, pipe goredis.Pipeliner, m *webhookModel) {
	for _, et := range m.Events {
		pipe.SRem(ctx, subscribersKey(m.TeamID, et), m.ID)
	}
}

// getOwned loads a webhook and hides it unless teamID owns it.
func (s *Store) getOwned(ctx context.Context, teamID, whID string) (*webhookModel, error) {
	var m webhookModel
	if err := s.getEntity(ctx, entityKey(prefixWebhook, whID), &m); err != nil {
		if isNotFound(err) {
			return nil, sailhook.ErrWebhookNotFound
		}
		return nil, fmt.Errorf("sailhook/redis: get webhook: %w", err)
	}
	if m.TeamID != teamID {
		return nil, sailhook.ErrWebhookNotFound
	}
	return &m, nil
}

func (s *Store) CreateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m := toWebhookModel(wh)

	if err := s.setEntity(ctx, entityKey(prefixWebhook, m.ID), m); err != nil {
		return fmt.Errorf("sailhook/redis: create webhook: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, zWebhookTeam+m.TeamID, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID})
	indexSubscriptions(ctx, pipe, m)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sailhook/redis: create webhook indexes: %w", err)
	}
	return nil
}

func (s *Store) GetWebhook(ctx context.Context, teamID string, whID id.ID) (*webhook.Webhook, error) {
	m, err := s.getOwned(ctx, teamID, whID.String())
	if err != nil {
		return nil, err
	}
	return fromWebhookModel(m)
}

func (s *Store) UpdateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	existing, err := s.getOwned(ctx, wh.TeamID, wh.ID.String())
	if err != nil {
		return err
	}

	m := toWebhookModel(wh)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, entityKey(prefixWebhook, m.ID), m); err != nil {
		return fmt.Errorf("sailhook/redis: update webhook: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	unindexSubscriptions(ctx, pipe, existing)
	indexSubscriptions(ctx, pipe, m)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sailhook/redis: update webhook indexes: %w", err)
	}
	return nil
}

func (s *Store) DeleteWebhook(ctx context.Context, teamID string, whID id.ID) error {
	m, err := s.getOwned(ctx, teamID, whID.String())
	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, entityKey(prefixWebhook, m.ID)); err != nil {
		return fmt.Errorf("sailhook/redis: delete webhook: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, zWebhookTeam+m.TeamID, m.ID)
	unindexSubscriptions(ctx, pipe, m)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sailhook/redis: delete webhook indexes: %w", err)
	}
	return nil
}

func (s *Store) ListWebhooks(ctx context.Context, teamID string, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = int64(opts.Offset + opts.Limit - 1)
	}
	ids, err := s.rdb.ZRevRange(ctx, zWebhookTeam+teamID, int64(opts.Offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("sailhook/redis: list webhooks: %w", err)
	}
	return s.loadWebhooks(ctx, teamID, ids)
}

// ListActiveForEvent reads the (team, event) subscriber set maintained on
// every write.
func (s *Store) ListActiveForEvent(ctx context.Context, teamID string, eventType event.Type) ([]*webhook.Webhook, error) {
	ids, err := s.rdb.SMembers(ctx, subscribersKey(teamID, string(eventType))).Result()
	if err != nil {
		return nil, fmt.Errorf("sailhook/redis: list active for event: %w", err)
	}
	whs, err := s.loadWebhooks(ctx, teamID, ids)
	if err != nil {
		return nil, err
	}

	// The set is updated after the entity, so re-check the stored state.
	result := whs[:0]
	for _, wh := range whs {
		if wh.Subscribed(eventType) {
			result = append(result, wh)
		}
	}
	return result, nil
}

func (s *Store) loadWebhooks(ctx context.Context, teamID string, ids []string) ([]*webhook.Webhook, error) {
	result := make([]*webhook.Webhook, 0, len(ids))
	for _, whID := range ids {
		var m webhookModel
		if err := s.getEntity(ctx, entityKey(prefixWebhook, whID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if m.TeamID != teamID {
			continue
		}
		wh, err := fromWebhookModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, wh)
	}
	return result, nil
}
