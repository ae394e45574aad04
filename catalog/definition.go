package catalog

import (
	"encoding/json"

	"github.com/posthoot/sailhook/event"
)

// Definition documents one event type: when it fires, the JSON Schema its
// data must satisfy, and an example used for test sends.
type Definition struct {
	Type        event.Type      `json:"type"`
	Group       string          `json:"group"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Example     json.RawMessage `json:"example,omitempty"`
}
