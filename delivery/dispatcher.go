package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/observability"
	"github.com/posthoot/sailhook/ratelimit"
	"github.com/posthoot/sailhook/webhook"
)

// DispatcherConfig holds dispatcher configuration.
type DispatcherConfig struct {
	RequestTimeout time.Duration
	MaxAttempts    int
	Backoff        []time.Duration
	HTTPClient     *http.Client
	Limiter        *ratelimit.Limiter
	Metrics        *observability.Metrics
	Tracer         *observability.Tracer
}

// Dispatcher delivers one payload to one webhook and records every attempt
// in the ledger. Its methods never return errors: failures end up as
// ledger rows or log lines.
type Dispatcher struct {
	ledger  *Ledger
	sender  *Sender
	retrier *Retrier
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
	tracer  *observability.Tracer
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher writing to ledger.
func NewDispatcher(ledger *Ledger, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ledger:  ledger,
		sender:  NewSender(cfg.HTTPClient, cfg.RequestTimeout),
		retrier: NewRetrier(cfg.MaxAttempts, cfg.Backoff),
		limiter: cfg.Limiter,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		logger:  logger,
	}
}

// Deliver attempts the POST until the retrier says stop and returns the
// last ledger row. It sleeps through backoff in the caller's goroutine;
// cancelling ctx abandons any pending backoff. Engine schedules retries
// itself and does not use Deliver.
func (d *Dispatcher) Deliver(ctx context.Context, wh *webhook.Webhook, eventType event.Type, body json.RawMessage) *Delivery {
	for attempt := 1; ; attempt++ {
		row := d.Attempt(ctx, wh, eventType, body, attempt)
		wait, again := d.Retry(row, attempt)
		if !again {
			return row
		}

		d.logger.DebugContext(ctx, "retry scheduled",
			"webhook_id", wh.ID, "attempt", attempt, "backoff", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return row
		case <-timer.C:
		}
	}
}

// Retry reports whether row, the result of attempt, is followed by another
// attempt and how long to wait before it.
func (d *Dispatcher) Retry(row *Delivery, attempt int) (time.Duration, bool) {
	if row == nil || d.retrier.Decide(row.Outcome(), attempt) == Done {
		return 0, false
	}
	return d.retrier.Backoff(attempt), true
}

// Attempt performs exactly one POST and writes exactly one ledger row,
// which it returns.
func (d *Dispatcher) Attempt(ctx context.Context, wh *webhook.Webhook, eventType event.Type, body json.RawMessage, attempt int) (row *Delivery) {
	row = &Delivery{
		ID:        id.NewDeliveryID(),
		WebhookID: wh.ID,
		EventType: eventType,
		Payload:   body,
		Attempt:   attempt,
		CreatedAt: time.Now().UTC(),
	}

	ctx, span := d.tracer.StartDelivery(ctx, row.ID.String(), wh.ID.String(), eventType.String(), attempt)

	defer func() {
		if r := recover(); r != nil {
			row.Status = 0
			row.Error = fmt.Sprintf("internal error: %v", r)
			d.logger.ErrorContext(ctx, "delivery attempt panicked",
				"delivery_id", row.ID, "webhook_id", wh.ID, "panic", r)
		}
		observability.EndDelivery(span, row.Status, row.LatencyMs, row.Error)
		d.record(ctx, row)
	}()

	if err := d.limiter.Wait(ctx, wh.ID.String()); err != nil {
		row.Error = fmt.Sprintf("rate limit: %v", err)
		return row
	}

	res := d.sender.Send(ctx, Request{
		URL:        wh.URL,
		Secret:     wh.Secret,
		EventType:  eventType,
		DeliveryID: row.ID,
		Body:       body,
	})
	row.Status = res.StatusCode
	row.Response = res.Response
	row.Error = res.Error
	row.LatencyMs = res.LatencyMs
	return row
}

// record writes row on a context that outlives ctx's deadline, so a
// timed-out attempt is still recorded.
func (d *Dispatcher) record(ctx context.Context, row *Delivery) {
	outcome := row.Outcome()
	d.metrics.RecordDelivery(row.EventType.String(), string(outcome), time.Duration(row.LatencyMs)*time.Millisecond)

	if err := d.ledger.Record(context.WithoutCancel(ctx), row); err != nil {
		d.metrics.LedgerWriteFailed()
		d.logger.ErrorContext(ctx, "ledger write failed",
			"delivery_id", row.ID, "webhook_id", row.WebhookID, "error", err)
		return
	}

	switch outcome {
	case OutcomeSuccess:
		d.logger.DebugContext(ctx, "delivered",
			"delivery_id", row.ID, "webhook_id", row.WebhookID, "status", row.Status, "latency_ms", row.LatencyMs)
	case OutcomeNetworkError:
		d.logger.WarnContext(ctx, "delivery failed",
			"delivery_id", row.ID, "webhook_id", row.WebhookID, "error", row.Error)
	default:
		d.logger.WarnContext(ctx, "delivery rejected",
			"delivery_id", row.ID, "webhook_id", row.WebhookID, "status", row.Status)
	}
}
