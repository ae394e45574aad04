package signature_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/posthoot/sailhook/signature"
)

func TestSignKnownVector(t *testing.T) {
	payload := []byte(`{"event":"EMAIL_OPENED"}`)
	secret := "whsec_testsecret123"
	timestamp := int64(1700000000)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", timestamp, payload)))
	want := "v1=" + hex.EncodeToString(mac.Sum(nil))

	if got := signature.Sign(payload, secret, timestamp); got != want {
		t.Errorf("Sign() = %q, want %q", got, want)
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"emailId":"e1"}`)
	secret := "whsec_roundtrip"
	ts := int64(1700000001)
	sig := signature.Sign(payload, secret, ts)

	tests := []struct {
		name    string
		payload []byte
		secret  string
		ts      int64
		want    bool
	}{
		{"valid", payload, secret, ts, true},
		{"tampered payload", []byte(`{"emailId":"e2"}`), secret, ts, false},
		{"wrong secret", payload, "whsec_wrong", ts, false},
		{"wrong timestamp", payload, secret, ts + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := signature.Verify(tt.payload, tt.secret, tt.ts, sig); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyHeaders(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_headers"
	now := time.Unix(1700000100, 0)
	ts := now.Add(-30 * time.Second).Unix()
	sig := signature.Sign(payload, secret, ts)
	tsHeader := strconv.FormatInt(ts, 10)

	if err := signature.VerifyHeaders(payload, secret, tsHeader, sig, 5*time.Minute, now); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := signature.VerifyHeaders(payload, secret, tsHeader, sig, 10*time.Second, now); !errors.Is(err, signature.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if err := signature.VerifyHeaders(payload, secret, "", sig, 0, now); !errors.Is(err, signature.ErrMissingHeaders) {
		t.Fatalf("expected ErrMissingHeaders, got %v", err)
	}
	if err := signature.VerifyHeaders(payload, "whsec_other", tsHeader, sig, 0, now); !errors.Is(err, signature.ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestSignatureFormat(t *testing.T) {
	sig := signature.Sign([]byte("test"), "secret", 123)
	// v1= (3) + 64 hex chars
	if len(sig) != 67 || sig[:3] != "v1=" {
		t.Errorf("unexpected signature %q", sig)
	}
}
