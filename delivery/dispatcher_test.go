package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/internal/entity"
	"github.com/posthoot/sailhook/store/memory"
	"github.com/posthoot/sailhook/webhook"
)

func newTestWebhook(url string) *webhook.Webhook {
	return &webhook.Webhook{
		Entity:   entity.New(),
		ID:       id.NewWebhookID(),
		TeamID:   "team-1",
		Name:     "test",
		URL:      url,
		Events:   event.NewSet(event.EmailOpened),
		IsActive: true,
		Secret:   testSecret,
	}
}

func testPayload(t *testing.T) json.RawMessage {
	t.Helper()
	body, err := event.NewPayload(event.EmailOpened, json.RawMessage(`{"emailId":"e1"}`)).Encode()
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func newDispatcher(s *memory.Store, cfg delivery.DispatcherConfig) *delivery.Dispatcher {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 2 * time.Second
	}
	return delivery.NewDispatcher(delivery.NewLedger(s), cfg, nil)
}

func ledgerRows(t *testing.T, s *memory.Store, whID id.ID) []*delivery.Delivery {
	t.Helper()
	page, err := delivery.NewLedger(s).List(context.Background(), whID, delivery.ListOpts{Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	return page.Deliveries
}

func TestDispatcherSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := memory.New()
	wh := newTestWebhook(srv.URL)
	body := testPayload(t)

	row := newDispatcher(s, delivery.DispatcherConfig{}).Deliver(context.Background(), wh, event.EmailOpened, body)
	if row.Status != 200 || row.Response != "ok" || row.Error != "" || row.Attempt != 1 {
		t.Fatalf("unexpected row: %+v", row)
	}

	rows := ledgerRows(t, s, wh.ID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	if string(rows[0].Payload) != string(body) {
		t.Fatalf("stored payload differs from sent payload: %s", rows[0].Payload)
	}
}

func TestDispatcherServerErrorIsNotRetriedByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	s := memory.New()
	wh := newTestWebhook(srv.URL)

	row := newDispatcher(s, delivery.DispatcherConfig{}).Deliver(context.Background(), wh, event.EmailOpened, testPayload(t))
	if row.Status != 500 || row.Response != "boom" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}
	if rows := ledgerRows(t, s, wh.ID); len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
}

func TestDispatcherNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := memory.New()
	wh := newTestWebhook(url)

	row := newDispatcher(s, delivery.DispatcherConfig{}).Deliver(context.Background(), wh, event.EmailOpened, testPayload(t))
	if row.Status != 0 || row.Error == "" {
		t.Fatalf("expected network failure row, got %+v", row)
	}

	rows := ledgerRows(t, s, wh.ID)
	if len(rows) != 1 || rows[0].Status != 0 || rows[0].Error == "" {
		t.Fatalf("unexpected ledger: %+v", rows)
	}

	raw, _ := json.Marshal(rows[0])
	var fields map[string]any
	_ = json.Unmarshal(raw, &fields)
	if _, ok := fields["status"]; ok {
		t.Fatalf("status should be omitted for network failures: %s", raw)
	}
}

func TestDispatcherRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := memory.New()
	wh := newTestWebhook(srv.URL)
	d := newDispatcher(s, delivery.DispatcherConfig{
		MaxAttempts: 5,
		Backoff:     []time.Duration{time.Millisecond},
	})

	row := d.Deliver(context.Background(), wh, event.EmailOpened, testPayload(t))
	if row.Status != 204 || row.Attempt != 3 {
		t.Fatalf("unexpected final row: %+v", row)
	}

	rows := ledgerRows(t, s, wh.ID)
	if len(rows) != 3 {
		t.Fatalf("expected a row per attempt, got %d", len(rows))
	}
}

func TestDispatcherNeverRetriesClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := memory.New()
	d := newDispatcher(s, delivery.DispatcherConfig{MaxAttempts: 5, Backoff: []time.Duration{time.Millisecond}})
	d.Deliver(context.Background(), newTestWebhook(srv.URL), event.EmailOpened, testPayload(t))

	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}
}

type panicTransport struct{}

func (panicTransport) RoundTrip(*http.Request) (*http.Response, error) {
	panic("transport exploded")
}

func TestDispatcherContainsPanics(t *testing.T) {
	s := memory.New()
	wh := newTestWebhook("https://example.invalid/hook")
	d := newDispatcher(s, delivery.DispatcherConfig{HTTPClient: &http.Client{Transport: panicTransport{}}})

	row := d.Deliver(context.Background(), wh, event.EmailOpened, testPayload(t))
	if row.Status != 0 || row.Error == "" {
		t.Fatalf("expected error row, got %+v", row)
	}
	if rows := ledgerRows(t, s, wh.ID); len(rows) != 1 {
		t.Fatalf("expected panic to be recorded, got %d rows", len(rows))
	}
}

type failingStore struct {
	*memory.Store
}

func (failingStore) RecordDelivery(context.Context, *delivery.Delivery) error {
	return errors.New("disk full")
}

func TestDispatcherSurvivesLedgerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	ledger := delivery.NewLedger(failingStore{memory.New()})
	d := delivery.NewDispatcher(ledger, delivery.DispatcherConfig{RequestTimeout: time.Second}, nil)

	row := d.Deliver(context.Background(), newTestWebhook(srv.URL), event.EmailOpened, testPayload(t))
	if row.Status != 200 {
		t.Fatalf("unexpected row: %+v", row)
	}
}
