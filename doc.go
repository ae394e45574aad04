// Package sailhook delivers SailMail domain events to customer webhooks.
//
// A team registers webhooks that subscribe to a fixed set of event types
// (EMAIL_OPENED, CONTACT_CREATED and so on). When the CRM triggers an event,
// the Hub finds the team's active subscribers and POSTs a JSON payload to
// each of them in the background. Every attempt, successful or not, is
// appended to a per-webhook delivery ledger that can be paged through.
//
// Key features:
//   - Team-scoped webhook registry; another team's webhook is indistinguishable from a missing one
//   - Fire-and-forget fan-out that never blocks or fails the caller
//   - Append-only delivery ledger with status filtering and pagination
//   - HMAC-SHA256 signatures on every delivery
//   - Optional retries, per-webhook rate limiting, redelivery and test sends
//   - Composable store pattern with multiple backends (Postgres, Bun, SQLite, Redis, MongoDB, Memory)
//
// Quick start:
//
//	hub, err := sailhook.New(
//	    sailhook.WithStore(memory.New()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer hub.Stop(context.Background())
//
//	wh, _ := hub.Webhooks().Create(ctx, "team_123", webhook.Input{
//	    Name:   "CRM sync",
//	    URL:    "https://example.com/hooks/sailmail",
//	    Events: []string{"EMAIL_OPENED"},
//	})
//
//	hub.Trigger(ctx, event.EmailOpened, "team_123", json.RawMessage(`{"emailId":"em_1"}`))
package sailhook
