package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/internal/entity"
	"github.com/posthoot/sailhook/webhook"
)

// --- Webhook models ---

type webhookModel struct {
	grove.BaseModel `grove:"table:sailhook_webhooks"`

	ID        string    `grove:"id,pk"`
	TeamID    string    `grove:"team_id"`
	Name      string    `grove:"name"`
	URL       string    `grove:"url"`
	Secret    string    `grove:"secret"`
	Events    string    `grove:"events"` // JSON array
	IsActive  bool      `grove:"is_active"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
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

func fromWebhookModel(m *webhookModel) (*webhook.Webhook, error) {
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

// --- Delivery models ---

type deliveryModel struct {
	grove.BaseModel `grove:"table:sailhook_deliveries"`

	ID        string    `grove:"id,pk"`
	WebhookID string    `grove:"webhook_id"`
	EventType string    `grove:"event_type"`
	Status    int       `grove:"status"`
	Payload   string    `grove:"payload"` // JSON text
	Response  string    `grove:"response"`
	Error     string    `grove:"error"`
	Attempt   int       `grove:"attempt"`
	LatencyMs int       `grove:"latency_ms"`
	CreatedAt time.Time `grove:"created_at"`
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
		Payload:   json.RawMessage(m.Payload),
		Response:  m.Response,
		Error:     m.Error,
		Attempt:   m.Attempt,
		LatencyMs: m.LatencyMs,
		CreatedAt: m.CreatedAt,
	}, nil
}
