package event

import (
	"encoding/json"
	"time"
)

// Payload is the JSON body POSTed to a webhook URL.
type Payload struct {
	Event     Type            `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewPayload stamps data with the current UTC time. A nil or empty data
// value is encoded as an empty object.
func NewPayload(t Type, data json.RawMessage) Payload {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	return Payload{Event: t, Timestamp: time.Now().UTC(), Data: data}
}

// Encode marshals the payload. The result is what is sent and what the
// ledger stores.
func (p Payload) Encode() (json.RawMessage, error) {
	return json.Marshal(p)
}
