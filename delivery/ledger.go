package delivery

import (
	"context"
	"time"

	"github.com/posthoot/sailhook/id"
)

// Ledger is the read and append API over a Store.
type Ledger struct {
	store Store
}

// NewLedger wraps store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Record appends d, filling in its ID and creation time if unset.
func (l *Ledger) Record(ctx context.Context, d *Delivery) error {
	if d.ID.IsNil() {
		d.ID = id.NewDeliveryID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return l.store.RecordDelivery(ctx, d)
}

// Get returns one row of webhookID's ledger.
func (l *Ledger) Get(ctx context.Context, webhookID, delID id.ID) (*Delivery, error) {
	return l.store.GetDelivery(ctx, webhookID, delID)
}

// List returns one page of webhookID's ledger, newest first.
//
// Stores implementing PageStore answer from one snapshot. Otherwise the
// page is read before the total; rows are only ever appended, so the total
// is never smaller than what the page saw and HasMore cannot be false while
// older rows remain.
func (l *Ledger) List(ctx context.Context, webhookID id.ID, opts ListOpts) (*Page, error) {
	opts = opts.Normalize()

	var (
		rows  []*Delivery
		total int64
		err   error
	)
	if ps, ok := l.store.(PageStore); ok {
		rows, total, err = ps.ListDeliveriesPage(ctx, webhookID, opts)
	} else {
		rows, total, err = l.listThenCount(ctx, webhookID, opts)
	}
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*Delivery{}
	}

	return &Page{
		Deliveries: rows,
		Pagination: Pagination{
			Total:   total,
			Limit:   opts.Limit,
			Offset:  opts.Offset,
			HasMore: int64(opts.Offset+len(rows)) < total,
		},
	}, nil
}

func (l *Ledger) listThenCount(ctx context.Context, webhookID id.ID, opts ListOpts) ([]*Delivery, int64, error) {
	rows, err := l.store.ListDeliveries(ctx, webhookID, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := l.store.CountDeliveries(ctx, webhookID, opts.Status)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
