package sailhook

import (
	"errors"

	"github.com/posthoot/sailhook/catalog"
)

// Sentinel errors returned by sailhook operations.
var (
	// ErrNoStore is returned when a Hub is created without a store.
	ErrNoStore = errors.New("sailhook: store is required")

	// ErrWebhookNotFound is returned when a webhook does not exist or belongs
	// to another team. Callers cannot tell the two apart.
	ErrWebhookNotFound = errors.New("sailhook: webhook not found")

	// ErrDeliveryNotFound is returned when a ledger row does not exist under
	// the given webhook.
	ErrDeliveryNotFound = errors.New("sailhook: delivery not found")

	// ErrUnknownEventType is returned for an event type outside the closed set.
	ErrUnknownEventType = catalog.ErrUnknownEventType

	// ErrPayloadInvalid is returned when test-send data fails its schema.
	ErrPayloadInvalid = catalog.ErrInvalidPayload

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("sailhook: store is closed")

	// ErrHubStopped is returned by asynchronous operations after Stop.
	ErrHubStopped = errors.New("sailhook: hub is stopped")
)
