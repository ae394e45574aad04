// Package event defines the closed set of SailMail domain events that
// webhooks subscribe to, and the JSON envelope delivered to subscribers.
package event

import (
	"fmt"
	"slices"
)

// Type is a webhook event type. Only the constants below are valid.
type Type string

const (
	EmailSent         Type = "EMAIL_SENT"
	EmailDelivered    Type = "EMAIL_DELIVERED"
	EmailOpened       Type = "EMAIL_OPENED"
	EmailClicked      Type = "EMAIL_CLICKED"
	EmailBounced      Type = "EMAIL_BOUNCED"
	EmailUnsubscribed Type = "EMAIL_UNSUBSCRIBED"
	CampaignStarted   Type = "CAMPAIGN_STARTED"
	CampaignCompleted Type = "CAMPAIGN_COMPLETED"
	ContactCreated    Type = "CONTACT_CREATED"
	ContactUpdated    Type = "CONTACT_UPDATED"
)

var all = []Type{
	EmailSent,
	EmailDelivered,
	EmailOpened,
	EmailClicked,
	EmailBounced,
	EmailUnsubscribed,
	CampaignStarted,
	CampaignCompleted,
	ContactCreated,
	ContactUpdated,
}

// All returns every valid event type in declaration order.
func All() []Type {
	return slices.Clone(all)
}

// Valid reports whether t is a member of the enumeration.
func (t Type) Valid() bool {
	return slices.Contains(all, t)
}

func (t Type) String() string { return string(t) }

// Parse converts s into a Type, rejecting anything outside the enumeration.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("event: unknown event type %q", s)
	}
	return t, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so that JSON and query
// decoding reject unknown event types.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
