package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for trigger fan-out and delivery.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TriggersTotal      *prometheus.CounterVec
	FanoutWebhooks     prometheus.Histogram
	DeliveriesTotal    *prometheus.CounterVec
	DeliveryLatency    *prometheus.HistogramVec
	InflightDeliveries prometheus.Gauge
	LedgerWriteErrors  prometheus.Counter
}

// NewMetrics creates the instruments and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sailhook_triggers_total", Help: "Domain events triggered, by event type."},
			[]string{"event"},
		),
		FanoutWebhooks: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "sailhook_fanout_webhooks", Help: "Matching webhooks per triggered event.", Buckets: []float64{0, 1, 2, 5, 10, 25, 50}},
		),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sailhook_deliveries_total", Help: "Delivery attempts by event type and outcome."},
			[]string{"event", "outcome"},
		),
		DeliveryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "sailhook_delivery_latency_seconds", Help: "Delivery attempt latency in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"outcome"},
		),
		InflightDeliveries: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "sailhook_inflight_deliveries", Help: "Delivery jobs currently running."},
		),
		LedgerWriteErrors: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "sailhook_ledger_write_errors_total", Help: "Delivery attempts whose ledger row could not be written."},
		),
	}
	reg.MustRegister(
		m.TriggersTotal,
		m.FanoutWebhooks,
		m.DeliveriesTotal,
		m.DeliveryLatency,
		m.InflightDeliveries,
		m.LedgerWriteErrors,
	)
	return m
}

// RecordTrigger counts one triggered event and how many webhooks matched.
func (m *Metrics) RecordTrigger(eventType string, matched int) {
	if m == nil {
		return
	}
	m.TriggersTotal.WithLabelValues(eventType).Inc()
	m.FanoutWebhooks.Observe(float64(matched))
}

// RecordDelivery counts one attempt with its outcome and latency.
func (m *Metrics) RecordDelivery(eventType, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(eventType, outcome).Inc()
	m.DeliveryLatency.WithLabelValues(outcome).Observe(latency.Seconds())
}

// JobStarted and JobFinished track in-flight delivery jobs.
func (m *Metrics) JobStarted() {
	if m != nil {
		m.InflightDeliveries.Inc()
	}
}

func (m *Metrics) JobFinished() {
	if m != nil {
		m.InflightDeliveries.Dec()
	}
}

// LedgerWriteFailed counts a lost ledger row.
func (m *Metrics) LedgerWriteFailed() {
	if m != nil {
		m.LedgerWriteErrors.Inc()
	}
}
