package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/signature"
)

const (
	maxResponseBody = 1024 // 1KB cap on response body storage
	userAgent       = "Sailhook/1.0"

	HeaderEvent      = "X-Sailhook-Event"
	HeaderDeliveryID = "X-Sailhook-Delivery-ID"
)

// Request is everything the sender needs for one POST.
type Request struct {
	URL        string
	Secret     string
	EventType  event.Type
	DeliveryID id.ID
	Body       []byte
}

// Result holds the outcome of a single delivery attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// Sender performs HTTP webhook delivery.
type Sender struct {
	client  *http.Client
	timeout time.Duration
}

// NewSender creates a sender. Each request is bounded by timeout whether or
// not client carries its own. A nil client gets a fresh one.
func NewSender(client *http.Client, timeout time.Duration) *Sender {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Sender{client: client, timeout: timeout}
}

// Send posts req and returns the result. Transport failures are reported in
// Result.Error with a zero status.
func (s *Sender) Send(ctx context.Context, req Request) Result {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(HeaderEvent, req.EventType.String())
	httpReq.Header.Set(HeaderDeliveryID, req.DeliveryID.String())

	ts := time.Now().Unix()
	httpReq.Header.Set(signature.HeaderTimestamp, strconv.FormatInt(ts, 10))
	if req.Secret != "" {
		httpReq.Header.Set(signature.HeaderSignature, signature.Sign(req.Body, req.Secret, ts))
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq) //nolint:gosec // G704: URL is a user-configured webhook destination; SSRF is by design.
	latency := int(time.Since(start).Milliseconds())

	if err != nil {
		return Result{Error: err.Error(), LatencyMs: latency}
	}
	defer resp.Body.Close()

	// A short read still leaves a usable status code.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  latency,
	}
}
