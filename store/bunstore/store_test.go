package bunstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/internal/entity"
	"github.com/posthoot/sailhook/store/bunstore"
	"github.com/posthoot/sailhook/webhook"
)

func ctx() context.Context { return context.Background() }

func newStore(t *testing.T) *bunstore.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:sailhook-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := bunstore.New(bun.NewDB(sqlDB, sqlitedialect.New()))
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Migrate is idempotent.
	if err := s.Migrate(ctx()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	return s
}

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

func ids(whs []*webhook.Webhook) map[string]bool {
	out := make(map[string]bool, len(whs))
	for _, wh := range whs {
		out[wh.ID.String()] = true
	}
	return out
}

func TestWebhookCRUD(t *testing.T) {
	s := newStore(t)
	wh := newWebhook("team-a", true, event.EmailOpened, event.EmailClicked)

	if err := s.CreateWebhook(ctx(), wh); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetWebhook(ctx(), "team-a", wh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Secret != "whsec_test" || got.Events.Len() != 2 || !got.IsActive {
		t.Fatalf("unexpected webhook: %+v", got)
	}

	got.Name = "renamed"
	got.Events = event.NewSet(event.ContactCreated)
	if err := s.UpdateWebhook(ctx(), got); err != nil {
		t.Fatal(err)
	}
	again, err := s.GetWebhook(ctx(), "team-a", wh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Name != "renamed" || !again.Events.Has(event.ContactCreated) || again.Events.Has(event.EmailOpened) {
		t.Fatalf("update not applied: %+v", again)
	}

	if err := s.DeleteWebhook(ctx(), "team-a", wh.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetWebhook(ctx(), "team-a", wh.ID); !errors.Is(err, sailhook.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
	if err := s.DeleteWebhook(ctx(), "team-a", wh.ID); !errors.Is(err, sailhook.ErrWebhookNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestTeamScoping(t *testing.T) {
	s := newStore(t)
	wh := newWebhook("team-a", true, event.EmailOpened)
	if err := s.CreateWebhook(ctx(), wh); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetWebhook(ctx(), "team-b", wh.ID); !errors.Is(err, sailhook.ErrWebhookNotFound) {
		t.Fatalf("get: got %v", err)
	}

	foreign := *wh
	foreign.TeamID = "team-b"
	foreign.Name = "stolen"
	if err := s.UpdateWebhook(ctx(), &foreign); !errors.Is(err, sailhook.ErrWebhookNotFound) {
		t.Fatalf("update: got %v", err)
	}
	if err := s.DeleteWebhook(ctx(), "team-b", wh.ID); !errors.Is(err, sailhook.ErrWebhookNotFound) {
		t.Fatalf("delete: got %v", err)
	}

	got, err := s.GetWebhook(ctx(), "team-a", wh.ID)
	if err != nil || got.Name != "hook" {
		t.Fatalf("owner copy changed: %+v %v", got, err)
	}
	list, err := s.ListWebhooks(ctx(), "team-b", webhook.ListOpts{})
	if err != nil || len(list) != 0 {
		t.Fatalf("team-b list: %d %v", len(list), err)
	}
}

func TestListActiveForEvent(t *testing.T) {
	s := newStore(t)

	match := newWebhook("team-a", true, event.EmailOpened, event.EmailBounced)
	inactive := newWebhook("team-a", false, event.EmailOpened)
	otherEvent := newWebhook("team-a", true, event.EmailClicked)
	otherTeam := newWebhook("team-b", true, event.EmailOpened)
	for _, wh := range []*webhook.Webhook{match, inactive, otherEvent, otherTeam} {
		if err := s.CreateWebhook(ctx(), wh); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListActiveForEvent(ctx(), "team-a", event.EmailOpened)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID.String() != match.ID.String() {
		t.Fatalf("got %v", ids(got))
	}

	// Reactivating and resubscribing are visible to the next lookup.
	inactive.IsActive = true
	if err := s.UpdateWebhook(ctx(), inactive); err != nil {
		t.Fatal(err)
	}
	otherEvent.Events = event.NewSet(event.EmailOpened)
	if err := s.UpdateWebhook(ctx(), otherEvent); err != nil {
		t.Fatal(err)
	}
	got, err = s.ListActiveForEvent(ctx(), "team-a", event.EmailOpened)
	if err != nil {
		t.Fatal(err)
	}
	want := ids([]*webhook.Webhook{match, inactive, otherEvent})
	if len(got) != len(want) {
		t.Fatalf("got %d webhooks, want %d", len(got), len(want))
	}
	for _, wh := range got {
		if !want[wh.ID.String()] {
			t.Fatalf("unexpected webhook %s", wh.ID)
		}
	}

	if err := s.DeleteWebhook(ctx(), "team-a", match.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = s.ListActiveForEvent(ctx(), "team-a", event.EmailBounced)
	if len(got) != 0 {
		t.Fatalf("deleted webhook still subscribed: %v", ids(got))
	}
}

func TestDeliveryLedger(t *testing.T) {
	s := newStore(t)
	whID := id.NewWebhookID()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	statuses := []int{200, 500, 0}
	for i := range 30 {
		d := &delivery.Delivery{
			ID:        id.NewDeliveryID(),
			WebhookID: whID,
			EventType: event.EmailOpened,
			Status:    statuses[i%3],
			Payload:   []byte(`{"event":"EMAIL_OPENED"}`),
			Attempt:   1,
			LatencyMs: i,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if d.Status == 0 {
			d.Error = "connection refused"
		}
		if err := s.RecordDelivery(ctx(), d); err != nil {
			t.Fatal(err)
		}
	}

	total, err := s.CountDeliveries(ctx(), whID, nil)
	if err != nil || total != 30 {
		t.Fatalf("count: %d %v", total, err)
	}
	failed := 0
	failedCount, err := s.CountDeliveries(ctx(), whID, &failed)
	if err != nil || failedCount != 10 {
		t.Fatalf("count status 0: %d %v", failedCount, err)
	}

	page, err := s.ListDeliveries(ctx(), whID, delivery.ListOpts{Limit: 10, Offset: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 10 {
		t.Fatalf("page size: %d", len(page))
	}
	if page[0].LatencyMs != 24 || page[9].LatencyMs != 15 {
		t.Fatalf("order: first %d last %d", page[0].LatencyMs, page[9].LatencyMs)
	}

	serverErrors := 500
	filtered, err := s.ListDeliveries(ctx(), whID, delivery.ListOpts{Limit: 100, Status: &serverErrors})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 10 {
		t.Fatalf("filtered: %d", len(filtered))
	}
	for _, d := range filtered {
		if d.Status != 500 {
			t.Fatalf("filter leaked status %d", d.Status)
		}
	}

	snap, total, err := s.ListDeliveriesPage(ctx(), whID, delivery.ListOpts{Limit: 10, Offset: 5, Status: &serverErrors})
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 || len(snap) != 5 {
		t.Fatalf("snapshot page: %d rows of %d", len(snap), total)
	}
	past, total, err := s.ListDeliveriesPage(ctx(), whID, delivery.ListOpts{Limit: 10, Offset: 30})
	if err != nil {
		t.Fatal(err)
	}
	if total != 30 || len(past) != 0 {
		t.Fatalf("past the end: %d rows of %d", len(past), total)
	}

	got, err := s.GetDelivery(ctx(), whID, page[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Payload) != `{"event":"EMAIL_OPENED"}` {
		t.Fatalf("payload: %s", got.Payload)
	}
	if _, err := s.GetDelivery(ctx(), id.NewWebhookID(), page[0].ID); !errors.Is(err, sailhook.ErrDeliveryNotFound) {
		t.Fatalf("foreign webhook: got %v", err)
	}
}
