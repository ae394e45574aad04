package sailhook

import (
	"time"

	"github.com/posthoot/sailhook/delivery"
)

// Config holds the configuration for a Hub.
type Config struct {
	// RequestTimeout bounds each delivery POST.
	RequestTimeout time.Duration

	// MaxAttempts is the number of POSTs made per delivery. The default of 1
	// means a failed delivery is recorded and not retried.
	MaxAttempts int

	// Backoff is the wait before each retry. The last entry repeats.
	Backoff []time.Duration

	// Concurrency bounds simultaneous outbound deliveries.
	Concurrency int

	// RateLimit is the per-webhook delivery rate in requests per second.
	// Zero disables limiting.
	RateLimit float64

	// RateBurst is the per-webhook burst allowance.
	RateBurst int

	// ShutdownTimeout is the maximum time Stop waits for in-flight
	// deliveries when its context has no deadline.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:  10 * time.Second,
		MaxAttempts:     1,
		Backoff:         delivery.DefaultBackoff,
		Concurrency:     delivery.DefaultConcurrency,
		ShutdownTimeout: 30 * time.Second,
	}
}
