package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/observability"
	"github.com/posthoot/sailhook/webhook"
)

// DefaultConcurrency bounds simultaneous deliveries when none is configured.
const DefaultConcurrency = 32

// Job is one webhook's share of a triggered event.
type Job struct {
	Webhook   *webhook.Webhook
	EventType event.Type
	Payload   json.RawMessage
}

// Engine runs delivery jobs in the background. Each job gets its own
// goroutine; a semaphore bounds how many attempts are sending at once. A
// job waiting out a retry backoff holds no slot.
type Engine struct {
	dispatcher *Dispatcher
	metrics    *observability.Metrics
	logger     *slog.Logger

	sem chan struct{}
	wg  conc.WaitGroup

	// quit is closed by Stop and ends pending backoffs. base is cancelled
	// when Stop gives up waiting and aborts in-flight attempts.
	quit  chan struct{}
	base  context.Context
	abort context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// NewEngine creates an engine over dispatcher.
func NewEngine(dispatcher *Dispatcher, concurrency int, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	base, abort := context.WithCancel(context.Background())
	return &Engine{
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		sem:        make(chan struct{}, concurrency),
		quit:       make(chan struct{}),
		base:       base,
		abort:      abort,
	}
}

// Submit schedules job and returns immediately. The job is detached from
// ctx's cancellation but keeps its values. Submit reports false once the
// engine is stopped.
func (e *Engine) Submit(ctx context.Context, job Job) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		e.logger.WarnContext(ctx, "engine stopped, dropping delivery",
			"webhook_id", job.Webhook.ID, "event", job.EventType)
		return false
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.wg.Go(func() {
		defer cancel()
		defer context.AfterFunc(e.base, cancel)()
		e.run(jobCtx, job)
	})
	return true
}

// Stop refuses new jobs, abandons retries still waiting on backoff and
// waits for in-flight attempts. If ctx ends first, in-flight attempts are
// cancelled (each still records its row) and ctx's error is returned.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.stopped {
		e.stopped = true
		close(e.quit)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.abort()
		return ctx.Err()
	}
}

func (e *Engine) run(ctx context.Context, job Job) {
	for attempt := 1; ; attempt++ {
		row := e.attempt(ctx, job, attempt)
		wait, again := e.dispatcher.Retry(row, attempt)
		if !again {
			return
		}

		e.logger.DebugContext(ctx, "retry scheduled",
			"webhook_id", job.Webhook.ID, "attempt", attempt, "backoff", wait)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-e.quit:
			timer.Stop()
			e.logger.InfoContext(ctx, "engine stopping, retry abandoned",
				"webhook_id", job.Webhook.ID, "event", job.EventType, "attempt", attempt)
			return
		}
	}
}

// attempt holds a semaphore slot for exactly one POST.
func (e *Engine) attempt(ctx context.Context, job Job, attempt int) (row *Delivery) {
	e.sem <- struct{}{}
	defer func() { <-e.sem }()

	e.metrics.JobStarted()
	defer e.metrics.JobFinished()

	var pc panics.Catcher
	pc.Try(func() {
		row = e.dispatcher.Attempt(ctx, job.Webhook, job.EventType, job.Payload, attempt)
	})
	if r := pc.Recovered(); r != nil {
		e.logger.ErrorContext(ctx, "delivery job panicked",
			"webhook_id", job.Webhook.ID, "event", job.EventType, "panic", r.Value)
	}
	return row
}
