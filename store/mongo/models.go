package mongo

import (
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

	ID        string    `grove:"id,pk"      bson:"_id"`
	TeamID    string    `grove:"team_id"    bson:"team_id"`
	Name      string    `grove:"name"       bson:"name"`
	URL       string    `grove:"url"        bson:"url"`
	Secret    string    `grove:"secret"     bson:"secret"`
	Events    []string  `grove:"events"     bson:"events"`
	IsActive  bool      `grove:"is_active"  bson:"is_active"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
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

// --- Delivery models ---

type deliveryModel struct {
	grove.BaseModel `grove:"table:sailhook_deliveries"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	WebhookID string    `grove:"webhook_id" bson:"webhook_id"`
	EventType string    `grove:"event_type" bson:"event_type"`
	Status    int       `grove:"status"     bson:"status"`
	Payload   string    `grove:"payload"    bson:"payload"` // JSON text, kept byte-exact
	Response  string    `grove:"response"   bson:"response,omitempty"`
	Error     string    `grove:"error"      bson:"error,omitempty"`
	Attempt   int       `grove:"attempt"    bson:"attempt"`
	LatencyMs int       `grove:"latency_ms" bson:"latency_ms"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
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
		Payload:   []byte(m.Payload),
		Response:  m.Response,
		Error:     m.Error,
		Attempt:   m.Attempt,
		LatencyMs: m.LatencyMs,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}
