package sailhook

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/posthoot/sailhook/catalog"
	"github.com/posthoot/sailhook/observability"
	"github.com/posthoot/sailhook/store"
)

// Option configures a Hub.
type Option func(*Hub) error

// WithStore sets the persistence backend.
func WithStore(s store.Store) Option {
	return func(h *Hub) error {
		h.store = s
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) error {
		h.logger = logger
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(h *Hub) error {
		h.config = cfg
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Hub) error {
		if d <= 0 {
			return errors.New("sailhook: request timeout must be positive")
		}
		h.config.RequestTimeout = d
		return nil
	}
}

// WithMaxAttempts enables automatic retries of 5xx and network failures.
func WithMaxAttempts(n int) Option {
	return func(h *Hub) error {
		if n < 1 {
			return errors.New("sailhook: max attempts must be at least 1")
		}
		h.config.MaxAttempts = n
		return nil
	}
}

// WithBackoff sets the waits between retry attempts.
func WithBackoff(schedule ...time.Duration) Option {
	return func(h *Hub) error {
		if len(schedule) == 0 {
			return errors.New("sailhook: backoff schedule is empty")
		}
		h.config.Backoff = schedule
		return nil
	}
}

// WithConcurrency bounds simultaneous outbound deliveries.
func WithConcurrency(n int) Option {
	return func(h *Hub) error {
		h.config.Concurrency = n
		return nil
	}
}

// WithRateLimit paces deliveries to each webhook.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(h *Hub) error {
		h.config.RateLimit = perSecond
		h.config.RateBurst = burst
		return nil
	}
}

// WithShutdownTimeout sets the maximum time to wait for in-flight deliveries on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(h *Hub) error {
		h.config.ShutdownTimeout = d
		return nil
	}
}

// WithHTTPClient sets the client used for outbound deliveries. The
// configured request timeout still applies.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Hub) error {
		h.httpClient = c
		return nil
	}
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Hub) error {
		h.metrics = m
		return nil
	}
}

// WithTracer records OpenTelemetry spans.
func WithTracer(t *observability.Tracer) Option {
	return func(h *Hub) error {
		h.tracer = t
		return nil
	}
}

// WithCatalog replaces the embedded event catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(h *Hub) error {
		h.catalog = c
		return nil
	}
}
