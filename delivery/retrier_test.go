package delivery_test

import (
	"testing"
	"time"

	"github.com/posthoot/sailhook/delivery"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   delivery.Outcome
	}{
		{0, delivery.OutcomeNetworkError},
		{200, delivery.OutcomeSuccess},
		{204, delivery.OutcomeSuccess},
		{301, delivery.OutcomeOther},
		{400, delivery.OutcomeClientError},
		{410, delivery.OutcomeClientError},
		{429, delivery.OutcomeClientError},
		{500, delivery.OutcomeServerError},
		{503, delivery.OutcomeServerError},
	}
	for _, tt := range tests {
		if got := delivery.Classify(tt.status); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestRetrierSingleAttemptByDefault(t *testing.T) {
	r := delivery.NewRetrier(0, nil)
	if r.MaxAttempts() != 1 {
		t.Fatalf("max attempts: %d", r.MaxAttempts())
	}
	for _, o := range []delivery.Outcome{delivery.OutcomeServerError, delivery.OutcomeNetworkError} {
		if r.Decide(o, 1) != delivery.Done {
			t.Fatalf("%s: expected Done on the only attempt", o)
		}
	}
}

func TestRetrierDecide(t *testing.T) {
	r := delivery.NewRetrier(3, []time.Duration{time.Millisecond})

	tests := []struct {
		outcome delivery.Outcome
		attempt int
		want    delivery.Decision
	}{
		{delivery.OutcomeSuccess, 1, delivery.Done},
		{delivery.OutcomeClientError, 1, delivery.Done},
		{delivery.OutcomeOther, 1, delivery.Done},
		{delivery.OutcomeServerError, 1, delivery.Retry},
		{delivery.OutcomeNetworkError, 2, delivery.Retry},
		{delivery.OutcomeServerError, 3, delivery.Done},
	}
	for _, tt := range tests {
		if got := r.Decide(tt.outcome, tt.attempt); got != tt.want {
			t.Errorf("Decide(%s, %d) = %d, want %d", tt.outcome, tt.attempt, got, tt.want)
		}
	}
}

func TestRetrierBackoffRepeatsLast(t *testing.T) {
	r := delivery.NewRetrier(10, []time.Duration{time.Second, time.Minute})

	want := []time.Duration{time.Second, time.Minute, time.Minute, time.Minute}
	for i, w := range want {
		if got := r.Backoff(i + 1); got != w {
			t.Errorf("Backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}
