package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/internal/entity"
	"github.com/posthoot/sailhook/webhook"
)

type webhookModel struct {
	bun.BaseModel `bun:"table:sailhook_webhooks,alias:w"`

	ID        string    `bun:"id,pk"`
	TeamID    string    `bun:"team_id,notnull"`
	Name      string    `bun:"name,notnull"`
	URL       string    `bun:"url,notnull"`
	Secret    string    `bun:"secret,notnull"`
	Events    string    `bun:"events,notnull"` // JSON array, source of truth for reads
	IsActive  bool      `bun:"is_active,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// webhookEventModel is one (team, event type, webhook) subscription. The
// table exists so fan-out lookups hit a composite index instead of parsing
// every webhook's event list.
type webhookEventModel struct {
	bun.BaseModel `bun:"table:sailhook_webhook_events,alias:we"`

	TeamID    string `bun:"team_id,pk"`
	EventType string `bun:"event_type,pk"`
	WebhookID string `bun:"webhook_id,pk"`
}

type deliveryModel struct {
	bun.BaseModel `bun:"table:sailhook_deliveries,alias:d"`

	ID        string    `bun:"id,pk"`
	WebhookID string    `bun:"webhook_id,notnull"`
	EventType string    `bun:"event_type,notnull"`
	Status    int       `bun:"status,notnull"`
	Payload   string    `bun:"payload,notnull"` // JSON text
	Response  string    `bun:"response,notnull"`
	Error     string    `bun:"error,notnull"`
	Attempt   int       `bun:"attempt,notnull"`
	LatencyMs int       `bun:"latency_ms,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func toWebhookModel(wh *webhook.Webhook) (*webhookModel, error) {
	events, err := json.Marshal(wh.Events.Strings())
	if err != nil {
		return nil, err
	}
	return &webhookModel{
		ID:        wh.ID.String(),
		TeamID:    wh.TeamID,
		Name:      wh.Name,
		URL:       wh.URL,
		Secret:    wh.Secret,
		Events:    string(events),
		IsActive:  wh.IsActive,
		CreatedAt: wh.CreatedAt,
		UpdatedAt: wh.UpdatedAt,
	}, nil
}

func subscriptionRows(wh *webhook.Webhook) []webhookEventModel {
	rows := make([]webhookEventModel, 0, wh.Events.Len())
	for _, t := range wh.Events.Types() {
		rows = append(rows, webhookEventModel{
			TeamID:    wh.TeamID,
			EventType: string(t),
			WebhookID: wh.ID.String(),
		})
	}
	return rows
}

func (m *webhookModel) toDomain() (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}
	var names []string
	if err := json.Unmarshal([]byte(m.Events), &names); err != nil {
		return nil, fmt.Errorf("webhook %s: decode events: %w", m.ID, err)
	}
	events, err := event.ParseSet(names)
	if err != nil {
		return nil, fmt.Errorf("webhook %s: %w", m.ID, err)
	}
	return &webhook.Webhook{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
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

func toDeliveryModel(d *delivery.Delivery) *deliveryModel {
	return &deliveryModel{
		ID:        d.ID.String(),
		WebhookID: d.WebhookID.String(),
		EventType: string(d.EventType),
		Status:    d.Status,
		Payload:   string(d.Payload),
		Response:  d.Response,
		Error:     d.Error,
		Attempt:   d.Attempt,
		LatencyMs: d.LatencyMs,
		CreatedAt: d.CreatedAt,
	}
}

func (m *deliveryModel) toDomain() (*delivery.Delivery, error) {
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
		Payload:   json.RawMessage(m.Payload),
		Response:  m.Response,
		Error:     m.Error,
		Attempt:   m.Attempt,
		LatencyMs: m.LatencyMs,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}
