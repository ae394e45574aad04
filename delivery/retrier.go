package delivery

import "time"

// Decision is the outcome of evaluating a delivery attempt.
type Decision int

const (
	// Done means no further attempt is made, whether the last one
	// succeeded or not.
	Done Decision = iota

	// Retry means another attempt follows after Backoff.
	Retry
)

// DefaultBackoff is used when retries are enabled without a schedule.
var DefaultBackoff = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	15 * time.Minute,
}

// Retrier decides whether a failed attempt is repeated.
//
// With maxAttempts = 1 every delivery is a single attempt. Above that, only
// server errors (5xx) and network failures are retried; a 4xx is the
// receiver rejecting the payload and will not change on resend.
type Retrier struct {
	maxAttempts int
	schedule    []time.Duration
}

// NewRetrier creates a retrier. maxAttempts < 1 is treated as 1.
func NewRetrier(maxAttempts int, schedule []time.Duration) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if len(schedule) == 0 {
		schedule = DefaultBackoff
	}
	return &Retrier{maxAttempts: maxAttempts, schedule: schedule}
}

// MaxAttempts returns the attempt ceiling.
func (r *Retrier) MaxAttempts() int { return r.maxAttempts }

// Decide evaluates attempt (1-based) that ended with outcome.
func (r *Retrier) Decide(outcome Outcome, attempt int) Decision {
	if attempt >= r.maxAttempts {
		return Done
	}
	switch outcome {
	case OutcomeServerError, OutcomeNetworkError:
		return Retry
	default:
		return Done
	}
}

// Backoff returns the wait after attempt. The last schedule entry repeats.
func (r *Retrier) Backoff(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.schedule) {
		idx = len(r.schedule) - 1
	}
	return r.schedule[idx]
}
