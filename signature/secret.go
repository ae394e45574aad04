package signature

import (
	"crypto/rand"
	"encoding/hex"
)

// SecretPrefix marks webhook signing secrets.
const SecretPrefix = "whsec_"

// GenerateSecret returns "whsec_" followed by 32 random bytes in hex.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("sailhook: failed to generate random secret: " + err.Error())
	}
	return SecretPrefix + hex.EncodeToString(b)
}
