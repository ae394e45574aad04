package signature

import (
	"crypto/hmac"
	"errors"
	"strconv"
	"time"
)

var (
	ErrMissingHeaders = errors.New("signature: missing signature or timestamp header")
	ErrStale          = errors.New("signature: timestamp outside tolerance")
	ErrMismatch       = errors.New("signature: mismatch")
)

// Verify reports whether sig is the signature of payload under secret at
// timestamp. The comparison is constant time.
func Verify(payload []byte, secret string, timestamp int64, sig string) bool {
	expected := Sign(payload, secret, timestamp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// VerifyHeaders checks the raw header values a receiver got. A zero
// tolerance disables the replay window check.
func VerifyHeaders(payload []byte, secret, tsHeader, sigHeader string, tolerance time.Duration, now time.Time) error {
	if tsHeader == "" || sigHeader == "" {
		return ErrMissingHeaders
	}
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return ErrMissingHeaders
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrStale
		}
	}
	if !Verify(payload, secret, ts, sigHeader) {
		return ErrMismatch
	}
	return nil
}
