package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/store/memory"
	"github.com/posthoot/sailhook/webhook"
)

func ctx() context.Context { return context.Background() }

func intp(n int) *int { return &n }

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", &webhook.ValidationError{Field: "url", Message: "required"}, http.StatusBadRequest, "webhook validation: url: required"},
		{"bad query", &badRequest{msg: "limit must be a non-negative integer"}, http.StatusBadRequest, "limit must be a non-negative integer"},
		{"webhook not found", fmt.Errorf("get: %w", sailhook.ErrWebhookNotFound), http.StatusNotFound, msgWebhookNotFound},
		{"delivery not found", sailhook.ErrDeliveryNotFound, http.StatusNotFound, msgDeliveryNotFound},
		{"unknown event", sailhook.ErrUnknownEventType, http.StatusBadRequest, sailhook.ErrUnknownEventType.Error()},
		{"hub stopped", sailhook.ErrHubStopped, http.StatusServiceUnavailable, sailhook.ErrHubStopped.Error()},
		{"store failure", errors.New("pq: connection refused"), http.StatusInternalServerError, msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classify(tt.err)
			if status != tt.status || msg != tt.msg {
				t.Fatalf("classify(%v) = %d %q, want %d %q", tt.err, status, msg, tt.status, tt.msg)
			}
		})
	}
}

func TestDeliveryQueryListOpts(t *testing.T) {
	tests := []struct {
		name    string
		query   deliveryQuery
		want    delivery.ListOpts
		wantErr bool
	}{
		{name: "zero means default", query: deliveryQuery{}, want: delivery.ListOpts{}},
		{name: "network failures", query: deliveryQuery{Limit: 10, Status: intp(0)}, want: delivery.ListOpts{Limit: 10, Status: intp(0)}},
		{name: "over cap passes through", query: deliveryQuery{Limit: 1000}, want: delivery.ListOpts{Limit: 1000}},
		{name: "negative limit", query: deliveryQuery{Limit: -1}, wantErr: true},
		{name: "negative offset", query: deliveryQuery{Offset: -5}, wantErr: true},
		{name: "status too high", query: deliveryQuery{Status: intp(700)}, wantErr: true},
		{name: "status negative", query: deliveryQuery{Status: intp(-1)}, wantErr: true},
		{name: "parse failure", query: deliveryQuery{invalid: errInvalidStatus}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query.listOpts()
			if tt.wantErr {
				if status, _ := classify(err); status != http.StatusBadRequest {
					t.Fatalf("expected a 400 error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("list opts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDeliveryQuery(t *testing.T) {
	q := parseDeliveryQuery(httptest.NewRequest(http.MethodGet, "/x", nil))
	if q.Limit != delivery.DefaultLimit || q.Offset != 0 || q.Status != nil || q.invalid != nil {
		t.Fatalf("defaults: %+v", q)
	}

	q = parseDeliveryQuery(httptest.NewRequest(http.MethodGet, "/x?limit=20&offset=40&status=0", nil))
	if q.Limit != 20 || q.Offset != 40 || q.Status == nil || *q.Status != 0 {
		t.Fatalf("parsed: %+v", q)
	}

	for _, raw := range []string{"limit=abc", "offset=1.5", "status=ok"} {
		q = parseDeliveryQuery(httptest.NewRequest(http.MethodGet, "/x?"+raw, nil))
		if _, err := q.listOpts(); err == nil {
			t.Errorf("%s: expected an error", raw)
		}
	}
}

// ──────────────────────────────────────────────────
// Shared ledger operations
// ──────────────────────────────────────────────────

func newLedgerHub(t *testing.T) (*sailhook.Hub, *memory.Store) {
	t.Helper()
	s := memory.New()
	hub, err := sailhook.New(sailhook.WithStore(s))
	if err != nil {
		t.Fatal(err)
	}
	return hub, s
}

func seedLedger(t *testing.T, hub *sailhook.Hub, s *memory.Store, teamID string, n int) (*webhook.Webhook, []*delivery.Delivery) {
	t.Helper()
	wh, err := hub.Webhooks().Create(ctx(), teamID, webhook.Input{
		Name:   "ops",
		URL:    "https://example.com/hook",
		Events: []string{string(event.EmailOpened)},
	})
	if err != nil {
		t.Fatal(err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	rows := make([]*delivery.Delivery, 0, n)
	for i := range n {
		d := &delivery.Delivery{
			ID:        id.NewDeliveryID(),
			WebhookID: wh.ID,
			EventType: event.EmailOpened,
			Status:    200,
			Payload:   json.RawMessage(`{}`),
			Attempt:   1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.RecordDelivery(ctx(), d); err != nil {
			t.Fatal(err)
		}
		rows = append(rows, d)
	}
	return wh, rows
}

func TestListDeliveriesPagination(t *testing.T) {
	hub, s := newLedgerHub(t)
	wh, rows := seedLedger(t, hub, s, "T1", 120)

	page, err := listDeliveries(ctx(), hub, "T1", wh.ID.String(), deliveryQuery{Limit: 50, Offset: 50})
	if err != nil {
		t.Fatal(err)
	}
	want := delivery.Pagination{Total: 120, Limit: 50, Offset: 50, HasMore: true}
	if diff := cmp.Diff(want, page.Pagination); diff != "" {
		t.Fatalf("pagination (-want +got):\n%s", diff)
	}
	if len(page.Deliveries) != 50 {
		t.Fatalf("expected 50 rows, got %d", len(page.Deliveries))
	}
	// Newest first: offset 50 starts at the 70th row in insertion order.
	if got, want := page.Deliveries[0].ID.String(), rows[69].ID.String(); got != want {
		t.Fatalf("first row: got %s, want %s", got, want)
	}

	page, err = listDeliveries(ctx(), hub, "T1", wh.ID.String(), deliveryQuery{Limit: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Deliveries) != delivery.MaxLimit || page.Pagination.Limit != delivery.MaxLimit {
		t.Fatalf("expected limit capped at %d, got %d rows, limit %d",
			delivery.MaxLimit, len(page.Deliveries), page.Pagination.Limit)
	}

	page, err = listDeliveries(ctx(), hub, "T1", wh.ID.String(), deliveryQuery{Limit: 50, Offset: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Deliveries) != 20 || page.Pagination.HasMore {
		t.Fatalf("last page: %d rows, hasMore %v", len(page.Deliveries), page.Pagination.HasMore)
	}
}

func TestListDeliveriesNotFoundShapes(t *testing.T) {
	hub, s := newLedgerHub(t)
	wh, _ := seedLedger(t, hub, s, "T1", 3)

	tests := []struct {
		name   string
		teamID string
		raw    string
		query  deliveryQuery
	}{
		{"other team", "T2", wh.ID.String(), deliveryQuery{}},
		{"other team with bad query", "T2", wh.ID.String(), deliveryQuery{Limit: -1}},
		{"missing webhook", "T1", id.NewWebhookID().String(), deliveryQuery{}},
		{"malformed id", "T1", "garbage", deliveryQuery{}},
		{"delivery id in webhook slot", "T1", id.NewDeliveryID().String(), deliveryQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := listDeliveries(ctx(), hub, tt.teamID, tt.raw, tt.query)
			if page != nil {
				t.Fatalf("expected no page, got %+v", page.Pagination)
			}
			status, msg := classify(err)
			if status != http.StatusNotFound || msg != msgWebhookNotFound {
				t.Fatalf("got %d %q (%v)", status, msg, err)
			}
		})
	}

	if _, err := listDeliveries(ctx(), hub, "T1", wh.ID.String(), deliveryQuery{Offset: -1}); err == nil {
		t.Fatal("expected owner's bad query to fail")
	} else if status, _ := classify(err); status != http.StatusBadRequest {
		t.Fatalf("owner's bad query: got %d", status)
	}
}

func TestGetDeliveryScoping(t *testing.T) {
	hub, s := newLedgerHub(t)
	wh, rows := seedLedger(t, hub, s, "T1", 2)
	other, _ := seedLedger(t, hub, s, "T1", 0)

	d, err := getDelivery(ctx(), hub, "T1", wh.ID.String(), rows[0].ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if d.ID.String() != rows[0].ID.String() {
		t.Fatalf("got %s", d.ID)
	}

	notFound := []struct {
		name          string
		teamID        string
		webhook, dlvr string
	}{
		{"other team", "T2", wh.ID.String(), rows[0].ID.String()},
		{"row of another webhook", "T1", other.ID.String(), rows[0].ID.String()},
		{"malformed delivery id", "T1", wh.ID.String(), "nope"},
		{"malformed webhook id", "T1", "nope", rows[0].ID.String()},
	}
	for _, tt := range notFound {
		t.Run(tt.name, func(t *testing.T) {
			_, err := getDelivery(ctx(), hub, tt.teamID, tt.webhook, tt.dlvr)
			if status, _ := classify(err); status != http.StatusNotFound {
				t.Fatalf("got %d (%v)", status, err)
			}
			if err := redeliver(ctx(), hub, tt.teamID, tt.webhook, tt.dlvr); err == nil {
				t.Fatal("redeliver: expected not found")
			} else if status, _ := classify(err); status != http.StatusNotFound {
				t.Fatalf("redeliver: got %d (%v)", status, err)
			}
		})
	}
}
