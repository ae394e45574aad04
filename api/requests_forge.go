package api

import (
	"encoding/json"

	"github.com/posthoot/sailhook/delivery"
)

// ---------------------------------------------------------------------------
// Event type requests
// ---------------------------------------------------------------------------

// ListEventTypesForgeRequest is the (empty) request for GET /event-types.
type ListEventTypesForgeRequest struct{}

// ---------------------------------------------------------------------------
// Webhook requests
// ---------------------------------------------------------------------------

// CreateWebhookForgeRequest binds the body for POST /webhooks.
type CreateWebhookForgeRequest struct {
	Name   string   `description:"Display name"                json:"name"`
	URL    string   `description:"Delivery URL (http or https)" json:"url"`
	Events []string `description:"Subscribed event types"      json:"events"`
}

// ListWebhooksForgeRequest binds query parameters for GET /webhooks.
type ListWebhooksForgeRequest struct {
	Offset int `description:"Pagination offset" query:"offset"`
	Limit  int `description:"Page size"         query:"limit"`
}

// WebhookForgeRequest binds the path for single-webhook routes.
type WebhookForgeRequest struct {
	WebhookID string `description:"Webhook identifier" path:"webhookId"`
}

// UpdateWebhookForgeRequest binds path + body for PATCH /webhooks/:webhookId.
type UpdateWebhookForgeRequest struct {
	WebhookID string    `description:"Webhook identifier"        path:"webhookId"`
	Name      *string   `description:"Display name"              json:"name,omitempty"`
	URL       *string   `description:"Delivery URL"              json:"url,omitempty"`
	IsActive  *bool     `description:"Whether deliveries are made" json:"isActive,omitempty"`
	Events    *[]string `description:"Subscribed event types"    json:"events,omitempty"`
}

// TestWebhookForgeRequest binds path + body for POST /webhooks/:webhookId/test.
type TestWebhookForgeRequest struct {
	WebhookID string          `description:"Webhook identifier"                     path:"webhookId"`
	Event     string          `description:"Event type to simulate"                 json:"event"`
	Data      json.RawMessage `description:"Event data; the catalog example if empty" json:"data,omitempty"`
}

// ---------------------------------------------------------------------------
// Delivery requests
// ---------------------------------------------------------------------------

// ListDeliveriesForgeRequest binds path + query for GET /webhooks/:webhookId/deliveries.
type ListDeliveriesForgeRequest struct {
	WebhookID string `description:"Webhook identifier"          path:"webhookId"`
	Offset    int    `description:"Pagination offset"           query:"offset"`
	Limit     int    `description:"Page size (default 50, max 100)" query:"limit"`
	Status    *int   `description:"Exact HTTP status filter; 0 selects network failures" query:"status"`
}

// DeliveryForgeRequest binds the path for single-delivery routes.
type DeliveryForgeRequest struct {
	WebhookID  string `description:"Webhook identifier"  path:"webhookId"`
	DeliveryID string `description:"Delivery identifier" path:"deliveryId"`
}

// ---------------------------------------------------------------------------
// Event requests
// ---------------------------------------------------------------------------

// TriggerEventForgeRequest binds the body for POST /events.
type TriggerEventForgeRequest struct {
	Event string          `description:"Event type"  json:"event"`
	Data  json.RawMessage `description:"Event data"  json:"data,omitempty"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// WebhookSecretForgeResponse is returned on creation, the only time the
// secret appears next to the webhook.
type WebhookSecretForgeResponse = webhookWithSecret

// SecretForgeResponse is returned by POST /webhooks/:webhookId/rotate-secret.
type SecretForgeResponse struct {
	Secret string `json:"secret"`
}

// AcceptedForgeResponse acknowledges work scheduled in the background.
type AcceptedForgeResponse struct {
	Status string `json:"status"`
}

// DeliveryPageForgeResponse is the ledger page shape.
type DeliveryPageForgeResponse = delivery.Page
