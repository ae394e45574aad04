package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
)

// deliveryModel is the JSON representation stored in Redis.
type deliveryModel struct {
	ID        string          `json:"id"`
	WebhookID string          `json:"webhook_id"`
	EventType string          `json:"event_type"`
	Status    int             `json:"status"`
	Payload   json.RawMessage `json:"payload"`
	Response  string          `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
	Attempt   int             `json:"attempt"`
	LatencyMs int             `json:"latency_ms"`
	CreatedAt time.Time       `json:"created_at"`
}

func toDeliveryModel(d *delivery.Delivery) *deliveryModel {
	return &deliveryModel{
		ID:        d.ID.String(),
		WebhookID: d.WebhookID.String(),
		EventType: string(d.EventType),
		Status:    d.Status,
		Payload:   d.Payload,
		Response:  d.Response,
		Error:     d.Error,
		Attempt:   d.Attempt,
		LatencyMs: d.LatencyMs,
		CreatedAt: d.CreatedAt,
	}
}

func fromDeliveryModel(m *deliveryModel) (*delivery.Delivery, error) {
	delID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.ID, err)
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}
	return &delivery.Delivery{
		ID:        delID,
		WebhookID: whID,
		EventType: event.Type(m.EventType),
		Status:    m.Status,
		Payload:   m.Payload,
		Response:  m.Response,
		Error:     m.Error,
		Attempt:   m.Attempt,
		LatencyMs: m.LatencyMs,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (s *Store) RecordDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("sailhook/redis: marshal delivery: %w", err)
	}

	score := scoreFromTime(m.CreatedAt)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, entityKey(prefixDelivery, m.ID), raw, 0)
	pipe.ZAdd(ctx, zDeliveryHook+m.WebhookID, goredis.Z{Score: score, Member: m.ID})
	pipe.ZAdd(ctx, statusKey(m.WebhookID, m.Status), goredis.Z{Score: score, Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sailhook/redis: record delivery: %w", err)
	}
	return nil
}

func (s *Store) GetDelivery(ctx context.Context, webhookID, delID id.ID) (*delivery.Delivery, error) {
	var m deliveryModel
	if err := s.getEntity(ctx, entityKey(prefixDelivery, delID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, sailhook.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("sailhook/redis: get delivery: %w", err)
	}
	if m.WebhookID != webhookID.String() {
		return nil, sailhook.ErrDeliveryNotFound
	}
	return fromDeliveryModel(&m)
}

// ListDeliveries pages the webhook's sorted set newest first. Equal scores
// fall back to member order, which for TypeIDs is creation order.
func (s *Store) ListDeliveries(ctx context.Context, webhookID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	key := zDeliveryHook + webhookID.String()
	if opts.Status != nil {
		key = statusKey(webhookID.String(), *opts.Status)
	}

	start := int64(opts.Offset)
	ids, err := s.rdb.ZRevRange(ctx, key, start, start+int64(opts.Limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("sailhook/redis: list deliveries: %w", err)
	}

	result := make([]*delivery.Delivery, 0, len(ids))
	for _, delID := range ids {
		var m deliveryModel
		if err := s.getEntity(ctx, entityKey(prefixDelivery, delID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		d, err := fromDeliveryModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

func (s *Store) CountDeliveries(ctx context.Context, webhookID id.ID, status *int) (int64, error) {
	key := zDeliveryHook + webhookID.String()
	if status != nil {
		key = statusKey(webhookID.String(), *status)
	}
	n, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("sailhook/redis: count deliveries: %w", err)
	}
	return n, nil
}
