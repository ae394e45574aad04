// Package webhook is the team-scoped registry of webhook subscriptions.
package webhook

import (
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/internal/entity"
)

// Webhook maps a set of event types to a destination URL for one team.
type Webhook struct {
	entity.Entity

	ID id.ID `json:"id"`

	// TeamID is the ownership boundary. Every store query filters on it.
	TeamID string `json:"teamId"`

	Name string `json:"name"`
	URL  string `json:"url"`

	// Events is never empty for a stored webhook.
	Events event.Set `json:"events"`

	// IsActive excludes the webhook from fan-out when false. Inactive
	// webhooks remain readable.
	IsActive bool `json:"isActive"`

	// Secret signs deliveries. It is only returned to callers on create and
	// rotation.
	Secret string `json:"-"`
}

// Subscribed reports whether w should receive eventType.
func (w *Webhook) Subscribed(eventType event.Type) bool {
	return w.IsActive && w.Events.Has(eventType)
}

// Input is the creation payload.
type Input struct {
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// Patch holds the fields of a partial update. Nil fields are left alone.
type Patch struct {
	Name     *string   `json:"name,omitempty"`
	URL      *string   `json:"url,omitempty"`
	IsActive *bool     `json:"isActive,omitempty"`
	Events   *[]string `json:"events,omitempty"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.URL == nil && p.IsActive == nil && p.Events == nil
}

// ListOpts configures team listing. Results are newest first.
type ListOpts struct {
	Offset int
	Limit  int
}
