package webhook

import (
	"context"

	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
)

// Store persists webhooks. Every lookup takes the owning team, and a
// webhook that exists under another team must be reported exactly like a
// missing one (sailhook.ErrWebhookNotFound).
type Store interface {
	CreateWebhook(ctx context.Context, wh *Webhook) error

	GetWebhook(ctx context.Context, teamID string, whID id.ID) (*Webhook, error)

	// UpdateWebhook replaces the mutable fields of an existing webhook.
	UpdateWebhook(ctx context.Context, wh *Webhook) error

	DeleteWebhook(ctx context.Context, teamID string, whID id.ID) error

	// ListWebhooks returns the team's webhooks, newest first.
	ListWebhooks(ctx context.Context, teamID string, opts ListOpts) ([]*Webhook, error)

	// ListActiveForEvent returns the team's active webhooks subscribed to
	// eventType. It runs on every domain event and must be index-backed.
	ListActiveForEvent(ctx context.Context, teamID string, eventType event.Type) ([]*Webhook, error)
}
