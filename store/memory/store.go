// Package memory provides an in-memory Store implementation for unit testing.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	sailstore "github.com/posthoot/sailhook/store"
	"github.com/posthoot/sailhook/webhook"
)

// compile-time interface check.
var (
	_ sailstore.Store    = (*Store)(nil)
	_ delivery.PageStore = (*Store)(nil)
)

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	webhooks   map[string]*webhook.Webhook            // keyed by ID string
	byTeam     map[string]map[string]*webhook.Webhook // team → ID string → webhook
	deliveries map[string][]*delivery.Delivery        // keyed by webhook ID string, append order

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		webhooks:   make(map[string]*webhook.Webhook),
		byTeam:     make(map[string]map[string]*webhook.Webhook),
		deliveries: make(map[string][]*delivery.Delivery),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return sailhook.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed. Every later operation returns
// sailhook.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// webhook.Store
// ──────────────────────────────────────────────────

func copyWebhook(wh *webhook.Webhook) *webhook.Webhook {
	cp := *wh
	cp.Events = maps.Clone(wh.Events)
	return &cp
}

// CreateWebhook persists a new webhook.
func (s *Store) CreateWebhook(_ context.Context, wh *webhook.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sailhook.ErrStoreClosed
	}

	cp := copyWebhook(wh)
	s.webhooks[wh.ID.String()] = cp
	team, ok := s.byTeam[wh.TeamID]
	if !ok {
		team = make(map[string]*webhook.Webhook)
		s.byTeam[wh.TeamID] = team
	}
	team[wh.ID.String()] = cp
	return nil
}

// GetWebhook returns a webhook by ID within teamID.
func (s *Store) GetWebhook(_ context.Context, teamID string, whID id.ID) (*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sailhook.ErrStoreClosed
	}

	wh, ok := s.byTeam[teamID][whID.String()]
	if !ok {
		return nil, sailhook.ErrWebhookNotFound
	}
	return copyWebhook(wh), nil
}

// UpdateWebhook replaces a webhook. Team ownership cannot change.
func (s *Store) UpdateWebhook(_ context.Context, wh *webhook.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sailhook.ErrStoreClosed
	}

	team := s.byTeam[wh.TeamID]
	if _, ok := team[wh.ID.String()]; !ok {
		return sailhook.ErrWebhookNotFound
	}
	cp := copyWebhook(wh)
	s.webhooks[wh.ID.String()] = cp
	team[wh.ID.String()] = cp
	return nil
}

// DeleteWebhook removes a webhook owned by teamID.
func (s *Store) DeleteWebhook(_ context.Context, teamID string, whID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sailhook.ErrStoreClosed
	}

	team := s.byTeam[teamID]
	if _, ok := team[whID.String()]; !ok {
		return sailhook.ErrWebhookNotFound
	}
	delete(team, whID.String())
	delete(s.webhooks, whID.String())
	return nil
}

// ListWebhooks returns the team's webhooks, newest first.
func (s *Store) ListWebhooks(_ context.Context, teamID string, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sailhook.ErrStoreClosed
	}

	result := make([]*webhook.Webhook, 0, len(s.byTeam[teamID]))
	for _, wh := range s.byTeam[teamID] {
		result = append(result, copyWebhook(wh))
	}

	sort.Slice(result, func(i, j int) bool {
		return newerWebhook(result[i], result[j])
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ListActiveForEvent scans only teamID's webhooks.
func (s *Store) ListActiveForEvent(_ context.Context, teamID string, eventType event.Type) ([]*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sailhook.ErrStoreClosed
	}

	var result []*webhook.Webhook
	for _, wh := range s.byTeam[teamID] {
		if wh.Subscribed(eventType) {
			result = append(result, copyWebhook(wh))
		}
	}
	return result, nil
}

func newerWebhook(a, b *webhook.Webhook) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

func copyDelivery(d *delivery.Delivery) *delivery.Delivery {
	cp := *d
	return &cp
}

// RecordDelivery appends a ledger row.
func (s *Store) RecordDelivery(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sailhook.ErrStoreClosed
	}

	key := d.WebhookID.String()
	s.deliveries[key] = append(s.deliveries[key], copyDelivery(d))
	return nil
}

// GetDelivery returns a row of webhookID's ledger.
func (s *Store) GetDelivery(_ context.Context, webhookID, delID id.ID) (*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sailhook.ErrStoreClosed
	}

	for _, d := range s.deliveries[webhookID.String()] {
		if d.ID.String() == delID.String() {
			return copyDelivery(d), nil
		}
	}
	return nil, sailhook.ErrDeliveryNotFound
}

// ListDeliveries returns webhookID's ledger newest first.
func (s *Store) ListDeliveries(_ context.Context, webhookID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sailhook.ErrStoreClosed
	}

	result := filterDeliveries(s.deliveries[webhookID.String()], opts.Status)
	sortDeliveries(result)

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// CountDeliveries counts webhookID's rows, optionally by status.
func (s *Store) CountDeliveries(_ context.Context, webhookID id.ID, status *int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, sailhook.ErrStoreClosed
	}

	return int64(len(filterDeliveries(s.deliveries[webhookID.String()], status))), nil
}

// ListDeliveriesPage reads the page and its total under one lock.
func (s *Store) ListDeliveriesPage(_ context.Context, webhookID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, 0, sailhook.ErrStoreClosed
	}

	result := filterDeliveries(s.deliveries[webhookID.String()], opts.Status)
	sortDeliveries(result)
	return applyPagination(result, opts.Offset, opts.Limit), int64(len(result)), nil
}

func sortDeliveries(rows []*delivery.Delivery) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
}

func filterDeliveries(rows []*delivery.Delivery, status *int) []*delivery.Delivery {
	result := make([]*delivery.Delivery, 0, len(rows))
	for _, d := range rows {
		if status != nil && d.Status != *status {
			continue
		}
		result = append(result, copyDelivery(d))
	}
	return result
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
