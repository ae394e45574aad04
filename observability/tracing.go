// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for webhook fan-out and delivery.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/posthoot/sailhook"

// Tracer wraps an OpenTelemetry tracer. A nil *Tracer is valid and produces
// no spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses the global tracer provider.
func NewTracer() *Tracer {
	return NewTracerFromProvider(otel.GetTracerProvider())
}

// NewTracerFromProvider uses tp, which lets tests supply their own provider.
func NewTracerFromProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(tracerName)}
}

// StartTrigger starts the span covering webhook lookup for one event.
func (t *Tracer) StartTrigger(ctx context.Context, eventType, teamID string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return t.tracer.Start(ctx, "sailhook.trigger",
		trace.WithAttributes(
			attribute.String("sailhook.event", eventType),
			attribute.String("sailhook.team_id", teamID),
		),
	)
}

// StartDelivery starts a span for one delivery attempt.
func (t *Tracer) StartDelivery(ctx context.Context, deliveryID, webhookID, eventType string, attempt int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return t.tracer.Start(ctx, "sailhook.delivery",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sailhook.delivery_id", deliveryID),
			attribute.String("sailhook.webhook_id", webhookID),
			attribute.String("sailhook.event", eventType),
			attribute.Int("sailhook.attempt", attempt),
		),
	)
}

// EndDelivery records the attempt result on span and ends it.
func EndDelivery(span trace.Span, statusCode, latencyMs int, errMsg string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("sailhook.latency_ms", latencyMs),
	)
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	}
	span.End()
}
