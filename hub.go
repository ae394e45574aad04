package sailhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/posthoot/sailhook/catalog"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/observability"
	"github.com/posthoot/sailhook/ratelimit"
	"github.com/posthoot/sailhook/store"
	"github.com/posthoot/sailhook/webhook"
)

// Hub is the root of the webhook subsystem. It owns the registry, the
// ledger and the background delivery engine.
type Hub struct {
	config     Config
	store      store.Store
	catalog    *catalog.Catalog
	webhookSvc *webhook.Service
	ledger     *delivery.Ledger
	dispatcher *delivery.Dispatcher
	engine     *delivery.Engine
	httpClient *http.Client
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	logger     *slog.Logger
}

// New creates a Hub with the given options. WithStore is required.
func New(opts ...Option) (*Hub, error) {
	h := &Hub{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if h.store == nil {
		return nil, ErrNoStore
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.catalog == nil {
		c, err := catalog.Load()
		if err != nil {
			return nil, err
		}
		h.catalog = c
	}
	h.wireServices()
	return h, nil
}

// wireServices initializes the internal services after options have been applied.
func (h *Hub) wireServices() {
	h.webhookSvc = webhook.NewService(h.store, h.logger)
	h.ledger = delivery.NewLedger(h.store)

	h.dispatcher = delivery.NewDispatcher(h.ledger, delivery.DispatcherConfig{
		RequestTimeout: h.config.RequestTimeout,
		MaxAttempts:    h.config.MaxAttempts,
		Backoff:        h.config.Backoff,
		HTTPClient:     h.httpClient,
		Limiter:        ratelimit.New(h.config.RateLimit, h.config.RateBurst),
		Metrics:        h.metrics,
		Tracer:         h.tracer,
	}, h.logger)

	h.engine = delivery.NewEngine(h.dispatcher, h.config.Concurrency, h.metrics, h.logger)
}

// Webhooks returns the registry service.
func (h *Hub) Webhooks() *webhook.Service { return h.webhookSvc }

// Ledger returns the delivery ledger.
func (h *Hub) Ledger() *delivery.Ledger { return h.ledger }

// Catalog returns the event catalog.
func (h *Hub) Catalog() *catalog.Catalog { return h.catalog }

// Store returns the underlying store.
func (h *Hub) Store() store.Store { return h.store }

// Trigger fans a domain event out to every active webhook of teamID that
// subscribes to eventType. It returns as soon as the deliveries are
// scheduled and never reports an error: an unknown type or a failed lookup
// is logged and the event is dropped.
func (h *Hub) Trigger(ctx context.Context, eventType event.Type, teamID string, data json.RawMessage) {
	if !eventType.Valid() {
		h.logger.WarnContext(ctx, "dropping unknown event type", "event", eventType, "team_id", teamID)
		return
	}

	ctx, span := h.tracer.StartTrigger(ctx, eventType.String(), teamID)
	defer span.End()

	hooks, err := h.webhookSvc.ListActiveForEvent(ctx, teamID, eventType)
	if err != nil {
		h.logger.ErrorContext(ctx, "webhook lookup failed",
			"event", eventType, "team_id", teamID, "error", err)
		return
	}
	h.metrics.RecordTrigger(eventType.String(), len(hooks))
	if len(hooks) == 0 {
		return
	}

	body, err := event.NewPayload(eventType, data).Encode()
	if err != nil {
		h.logger.ErrorContext(ctx, "encode payload failed",
			"event", eventType, "team_id", teamID, "error", err)
		return
	}

	for _, wh := range hooks {
		h.engine.Submit(ctx, delivery.Job{Webhook: wh, EventType: eventType, Payload: body})
	}

	h.logger.DebugContext(ctx, "event triggered",
		"event", eventType, "team_id", teamID, "webhooks", len(hooks))
}

// SendTest posts a sample event to one webhook and waits for the result.
// Empty data is replaced by the catalog example; otherwise data must
// satisfy the event's schema. The webhook's active flag is ignored.
func (h *Hub) SendTest(ctx context.Context, teamID string, whID id.ID, eventType event.Type, data json.RawMessage) (*delivery.Delivery, error) {
	wh, err := h.webhookSvc.Get(ctx, teamID, whID)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		data, err = h.catalog.Example(eventType)
	} else {
		err = h.catalog.Validate(eventType, data)
	}
	if err != nil {
		return nil, err
	}

	body, err := event.NewPayload(eventType, data).Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadInvalid, err)
	}

	return h.dispatcher.Attempt(ctx, wh, eventType, body, 1), nil
}

// Redeliver resends a recorded payload to the webhook's current URL in the
// background. The new attempt gets its own ledger row.
func (h *Hub) Redeliver(ctx context.Context, teamID string, whID, deliveryID id.ID) error {
	wh, err := h.webhookSvc.Get(ctx, teamID, whID)
	if err != nil {
		return err
	}
	prev, err := h.ledger.Get(ctx, wh.ID, deliveryID)
	if err != nil {
		return err
	}

	if !h.engine.Submit(ctx, delivery.Job{Webhook: wh, EventType: prev.EventType, Payload: prev.Payload}) {
		return ErrHubStopped
	}

	h.logger.InfoContext(ctx, "redelivery scheduled",
		"webhook_id", wh.ID, "delivery_id", prev.ID, "team_id", teamID)
	return nil
}

// Stop refuses new deliveries, drops retries still in backoff and waits
// for in-flight attempts. Without a deadline on ctx it waits at most
// Config.ShutdownTimeout, then cancels whatever is still sending.
func (h *Hub) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && h.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ShutdownTimeout)
		defer cancel()
	}
	if err := h.engine.Stop(ctx); err != nil {
		h.logger.WarnContext(ctx, "shutdown timed out with deliveries in flight", "error", err)
		return err
	}
	return nil
}
