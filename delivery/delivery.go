// Package delivery posts event payloads to webhook URLs and keeps the
// append-only ledger of every attempt.
package delivery

import (
	"encoding/json"
	"time"

	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
)

// Delivery is one ledger row: a single POST to a single webhook.
type Delivery struct {
	ID        id.ID      `json:"id"`
	WebhookID id.ID      `json:"webhookId"`
	EventType event.Type `json:"eventType"`

	// Status is the HTTP response code. Zero means no response was
	// received, in which case Error says why.
	Status int `json:"status,omitempty"`

	// Payload is the exact body that was sent.
	Payload json.RawMessage `json:"payload"`

	// Response is the response body, capped at 1 KiB.
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`

	Attempt   int       `json:"attempt"`
	LatencyMs int       `json:"latencyMs"`
	CreatedAt time.Time `json:"createdAt"`
}

// Outcome classifies an attempt by its status code.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeClientError  Outcome = "client_error"
	OutcomeServerError  Outcome = "server_error"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeOther        Outcome = "other"
)

// Classify maps an HTTP status (0 for no response) to an Outcome.
func Classify(status int) Outcome {
	switch {
	case status == 0:
		return OutcomeNetworkError
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status >= 400 && status < 500:
		return OutcomeClientError
	case status >= 500 && status < 600:
		return OutcomeServerError
	default:
		return OutcomeOther
	}
}

// Outcome is shorthand for Classify(d.Status).
func (d *Delivery) Outcome() Outcome { return Classify(d.Status) }

// Succeeded reports a 2xx response.
func (d *Delivery) Succeeded() bool { return d.Outcome() == OutcomeSuccess }

// ──────────────────────────────────────────────────
// Listing
// ──────────────────────────────────────────────────

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ListOpts configures ledger listing. Status, when set, keeps only rows
// with that exact code; a pointer to 0 selects network failures.
type ListOpts struct {
	Limit  int
	Offset int
	Status *int
}

// Normalize applies the default and maximum page size and floors the offset
// at zero.
func (o ListOpts) Normalize() ListOpts {
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultLimit
	case o.Limit > MaxLimit:
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

// Page is one slice of a webhook's ledger, newest first.
type Page struct {
	Deliveries []*Delivery `json:"deliveries"`
	Pagination Pagination  `json:"pagination"`
}
