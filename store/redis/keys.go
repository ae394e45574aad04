package redis

import "strconv"

// Key prefixes for primary entity storage.
const (
	prefixWebhook  = "sailhook:wh:"
	prefixDelivery = "sailhook:del:"
)

// Key prefixes for sorted set indexes.
const (
	zWebhookTeam    = "sailhook:z:wh:team:" // + team ID
	zDeliveryHook   = "sailhook:z:del:wh:"  // + webhook ID
	zDeliveryStatus = "sailhook:z:del:st:"  // + webhook ID + ":" + status
)

// Key prefixes for set indexes.
const (
	sWebhookEvent = "sailhook:s:wh:team:" // + team ID + ":evt:" + event type
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

// subscribersKey returns the set of active webhook IDs in teamID that
// subscribe to eventType.
func subscribersKey(teamID, eventType string) string {
	return sWebhookEvent + teamID + ":evt:" + eventType
}

// statusKey returns the sorted set of a webhook's deliveries with status.
func statusKey(webhookID string, status int) string {
	return zDeliveryStatus + webhookID + ":" + strconv.Itoa(status)
}
