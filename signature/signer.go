// Package signature signs outbound webhook bodies with HMAC-SHA256 so that
// receivers can verify a delivery came from SailMail.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Header names set on every signed delivery.
const (
	HeaderSignature = "X-Sailhook-Signature"
	HeaderTimestamp = "X-Sailhook-Timestamp"
)

// Sign returns "v1=<hex>" where the MAC covers "{timestamp}.{payload}".
func Sign(payload []byte, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}
