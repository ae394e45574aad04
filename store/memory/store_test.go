package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/internal/entity"
	"github.com/posthoot/sailhook/webhook"
)

func ctx() context.Context { return context.Background() }

func newWebhook(teamID string, active bool, types ...event.Type) *webhook.Webhook {
	return &webhook.Webhook{
		Entity:   entity.New(),
		ID:       id.NewWebhookID(),
		TeamID:   teamID,
		Name:     "hook",
		URL:      "https://example.com/hook",
		Events:   event.NewSet(types...),
		IsActive: active,
		Secret:   "whsec_test",
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	s := New()

	if err := s.Migrate(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, sailhook.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s := New()
	wh := newWebhook("T1", true, event.EmailOpened)
	if err := s.CreateWebhook(ctx(), wh); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	checks := map[string]error{
		"CreateWebhook": s.CreateWebhook(ctx(), newWebhook("T1", true, event.EmailOpened)),
		"UpdateWebhook": s.UpdateWebhook(ctx(), wh),
		"DeleteWebhook": s.DeleteWebhook(ctx(), "T1", wh.ID),
		"RecordDelivery": s.RecordDelivery(ctx(), &delivery.Delivery{
			ID: id.NewDeliveryID(), WebhookID: wh.ID, EventType: event.EmailOpened, CreatedAt: time.Now(),
		}),
	}
	_, checks["GetWebhook"] = s.GetWebhook(ctx(), "T1", wh.ID)
	_, checks["ListWebhooks"] = s.ListWebhooks(ctx(), "T1", webhook.ListOpts{})
	_, checks["ListActiveForEvent"] = s.ListActiveForEvent(ctx(), "T1", event.EmailOpened)
	_, checks["GetDelivery"] = s.GetDelivery(ctx(), wh.ID, id.NewDeliveryID())
	_, checks["ListDeliveries"] = s.ListDeliveries(ctx(), wh.ID, delivery.ListOpts{Limit: 10})
	_, checks["CountDeliveries"] = s.CountDeliveries(ctx(), wh.ID, nil)

	for op, err := range checks {
		if !errors.Is(err, sailhook.ErrStoreClosed) {
			t.Errorf("%s after Close: expected ErrStoreClosed, got %v", op, err)
		}
	}
}

// ──────────────────────────────────────────────────
// webhook.Store
// ──────────────────────────────────────────────────

func TestWebhookCRUD(t *testing.T) {
	s := New()
	wh := newWebhook("team-a", true, event.EmailOpened)

	if err := s.CreateWebhook(ctx(), wh); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetWebhook(ctx(), "team-a", wh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != wh.URL || !got.Events.Has(event.EmailOpened) {
		t.Fatalf("unexpected webhook: %+v", got)
	}

	got.Name = "renamed"
	if err := s.UpdateWebhook(ctx(), got); err != nil {
		t.Fatal(err)
	}
	again, _ := s.GetWebhook(ctx(), "team-a", wh.ID)
	if again.Name != "renamed" {
		t.Fatalf("name: got %q", again.Name)
	}

	if err := s.DeleteWebhook(ctx(), "team-a", wh.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteWebhook(ctx(), "team-a", wh.ID); !errors.Is(err, sailhook.ErrWebhookNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestWebhookTeamScoping(t *testing.T) {
	s := New()
	wh := newWebhook("team-a", true, event.EmailOpened)
	_ = s.CreateWebhook(ctx(), wh)

	_, errOther := s.GetWebhook(ctx(), "team-b", wh.ID)
	_, errMissing := s.GetWebhook(ctx(), "team-b", id.NewWebhookID())
	if !errors.Is(errOther, sailhook.ErrWebhookNotFound) || !errors.Is(errMissing, sailhook.ErrWebhookNotFound) {
		t.Fatalf("expected not found for both, got %v / %v", errOther, errMissing)
	}
	if errOther.Error() != errMissing.Error() {
		t.Fatalf("errors differ: %q vs %q", errOther, errMissing)
	}

	if err := s.DeleteWebhook(ctx(), "team-b", wh.ID); !errors.Is(err, sailhook.ErrWebhookNotFound) {
		t.Fatalf("cross-team delete: got %v", err)
	}

	foreign := *wh
	foreign.TeamID = "team-b"
	if err := s.UpdateWebhook(ctx(), &foreign); !errors.Is(err, sailhook.ErrWebhookNotFound) {
		t.Fatalf("cross-team update: got %v", err)
	}

	list, _ := s.ListWebhooks(ctx(), "team-b", webhook.ListOpts{})
	if len(list) != 0 {
		t.Fatalf("team-b sees %d webhooks", len(list))
	}
}

func TestListActiveForEvent(t *testing.T) {
	s := New()
	opened := newWebhook("team-a", true, event.EmailOpened, event.EmailClicked)
	clicked := newWebhook("team-a", true, event.EmailClicked)
	inactive := newWebhook("team-a", false, event.EmailOpened)
	otherTeam := newWebhook("team-b", true, event.EmailOpened)
	for _, wh := range []*webhook.Webhook{opened, clicked, inactive, otherTeam} {
		if err := s.CreateWebhook(ctx(), wh); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListActiveForEvent(ctx(), "team-a", event.EmailOpened)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID.String() != opened.ID.String() {
		t.Fatalf("expected only %s, got %d webhooks", opened.ID, len(got))
	}

	got, _ = s.ListActiveForEvent(ctx(), "team-a", event.ContactCreated)
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestListWebhooksNewestFirst(t *testing.T) {
	s := New()
	base := time.Now().UTC()
	var ids []id.ID
	for i := range 3 {
		wh := newWebhook("team-a", true, event.EmailSent)
		wh.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		ids = append(ids, wh.ID)
		_ = s.CreateWebhook(ctx(), wh)
	}

	list, _ := s.ListWebhooks(ctx(), "team-a", webhook.ListOpts{})
	if len(list) != 3 || list[0].ID.String() != ids[2].String() || list[2].ID.String() != ids[0].String() {
		t.Fatal("expected newest first")
	}

	page, _ := s.ListWebhooks(ctx(), "team-a", webhook.ListOpts{Offset: 1, Limit: 1})
	if len(page) != 1 || page[0].ID.String() != ids[1].String() {
		t.Fatal("expected middle webhook")
	}
}

// ──────────────────────────────────────────────────
// delivery.Store through delivery.Ledger
// ──────────────────────────────────────────────────

func seedLedger(t *testing.T, s *Store, whID id.ID, n int, status func(i int) int) []*delivery.Delivery {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	rows := make([]*delivery.Delivery, 0, n)
	for i := range n {
		d := &delivery.Delivery{
			ID:        id.NewDeliveryID(),
			WebhookID: whID,
			EventType: event.EmailSent,
			Status:    status(i),
			Payload:   []byte(`{}`),
			Attempt:   1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.RecordDelivery(ctx(), d); err != nil {
			t.Fatal(err)
		}
		rows = append(rows, d)
	}
	return rows
}

func TestLedgerPagination(t *testing.T) {
	s := New()
	ledger := delivery.NewLedger(s)
	whID := id.NewWebhookID()
	rows := seedLedger(t, s, whID, 120, func(int) int { return 200 })

	page, err := ledger.List(ctx(), whID, delivery.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Pagination.Limit != 50 || len(page.Deliveries) != 50 {
		t.Fatalf("default limit: %+v, %d rows", page.Pagination, len(page.Deliveries))
	}
	if page.Pagination.Total != 120 || !page.Pagination.HasMore {
		t.Fatalf("pagination: %+v", page.Pagination)
	}
	if page.Deliveries[0].ID.String() != rows[119].ID.String() {
		t.Fatal("expected newest row first")
	}
	for i := 1; i < len(page.Deliveries); i++ {
		if page.Deliveries[i].CreatedAt.After(page.Deliveries[i-1].CreatedAt) {
			t.Fatalf("row %d out of order", i)
		}
	}

	page, _ = ledger.List(ctx(), whID, delivery.ListOpts{Limit: 500})
	if page.Pagination.Limit != 100 || len(page.Deliveries) != 100 {
		t.Fatalf("capped limit: %+v", page.Pagination)
	}

	page, _ = ledger.List(ctx(), whID, delivery.ListOpts{Limit: 50, Offset: 100})
	if len(page.Deliveries) != 20 || page.Pagination.HasMore {
		t.Fatalf("last page: %d rows, %+v", len(page.Deliveries), page.Pagination)
	}
	if page.Deliveries[19].ID.String() != rows[0].ID.String() {
		t.Fatal("expected oldest row last")
	}

	page, _ = ledger.List(ctx(), whID, delivery.ListOpts{Offset: 1000})
	if len(page.Deliveries) != 0 || page.Deliveries == nil || page.Pagination.HasMore {
		t.Fatalf("past the end: %+v", page)
	}
}

func TestLedgerStatusFilter(t *testing.T) {
	s := New()
	ledger := delivery.NewLedger(s)
	whID := id.NewWebhookID()
	seedLedger(t, s, whID, 9, func(i int) int {
		switch i % 3 {
		case 0:
			return 200
		case 1:
			return 500
		default:
			return 0
		}
	})

	for _, status := range []int{200, 500, 0} {
		page, err := ledger.List(ctx(), whID, delivery.ListOpts{Status: &status})
		if err != nil {
			t.Fatal(err)
		}
		if page.Pagination.Total != 3 || len(page.Deliveries) != 3 {
			t.Fatalf("status %d: %+v", status, page.Pagination)
		}
		for _, d := range page.Deliveries {
			if d.Status != status {
				t.Fatalf("status %d: got row with %d", status, d.Status)
			}
		}
	}
}

func TestGetDeliveryScopedByWebhook(t *testing.T) {
	s := New()
	whID := id.NewWebhookID()
	rows := seedLedger(t, s, whID, 1, func(int) int { return 200 })

	if _, err := s.GetDelivery(ctx(), whID, rows[0].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetDelivery(ctx(), id.NewWebhookID(), rows[0].ID); !errors.Is(err, sailhook.ErrDeliveryNotFound) {
		t.Fatalf("expected ErrDeliveryNotFound, got %v", err)
	}
}

func TestListDeliveriesPageSnapshot(t *testing.T) {
	s := New()
	whID := id.NewWebhookID()
	seedLedger(t, s, whID, 30, func(i int) int { return []int{200, 500, 0}[i%3] })

	failed := 0
	rows, total, err := s.ListDeliveriesPage(ctx(), whID, delivery.ListOpts{Limit: 4, Offset: 8, Status: &failed})
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 || len(rows) != 2 {
		t.Fatalf("got %d rows of %d", len(rows), total)
	}
	for _, d := range rows {
		if d.Status != 0 {
			t.Fatalf("filter leaked status %d", d.Status)
		}
	}

	rows, total, err = s.ListDeliveriesPage(ctx(), whID, delivery.ListOpts{Limit: 10, Offset: 30})
	if err != nil || total != 30 || len(rows) != 0 {
		t.Fatalf("past the end: %d rows of %d, %v", len(rows), total, err)
	}
}
