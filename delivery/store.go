package delivery

import (
	"context"

	"github.com/posthoot/sailhook/id"
)

// Store persists ledger rows. Rows are only ever inserted.
type Store interface {
	// RecordDelivery appends d.
	RecordDelivery(ctx context.Context, d *Delivery) error

	// GetDelivery returns the row if it belongs to webhookID, and
	// sailhook.ErrDeliveryNotFound otherwise.
	GetDelivery(ctx context.Context, webhookID, delID id.ID) (*Delivery, error)

	// ListDeliveries returns one page ordered by created_at DESC, id DESC.
	// opts is already normalized.
	ListDeliveries(ctx context.Context, webhookID id.ID, opts ListOpts) ([]*Delivery, error)

	// CountDeliveries counts rows for webhookID, optionally filtered by
	// status.
	CountDeliveries(ctx context.Context, webhookID id.ID, status *int) (int64, error)
}

// PageStore is implemented by stores that can read a page and the matching
// total from one snapshot. Ledger prefers it over separate
// ListDeliveries and CountDeliveries calls.
type PageStore interface {
	// ListDeliveriesPage returns the page for opts and the total row count
	// for opts.Status, both as of the same instant. opts is already
	// normalized.
	ListDeliveriesPage(ctx context.Context, webhookID id.ID, opts ListOpts) ([]*Delivery, int64, error)
}
