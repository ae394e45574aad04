package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/webhook"
)

// The rules in this file are shared by Handler and ForgeAPI, so both route
// sets answer the same request with the same status.

// badRequest marks caller input that fails before reaching the hub.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

var errInvalidStatus = &badRequest{msg: "status must be an HTTP status code"}

const (
	msgWebhookNotFound  = "webhook not found"
	msgDeliveryNotFound = "delivery not found"
	msgInternal         = "internal server error"
)

// classify maps an error to the status code and message shown to the
// caller. Unrecognized errors become a bare 500.
func classify(err error) (int, string) {
	var (
		verr *webhook.ValidationError
		berr *badRequest
	)
	switch {
	case errors.As(err, &berr):
		return http.StatusBadRequest, berr.msg
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, sailhook.ErrWebhookNotFound):
		return http.StatusNotFound, msgWebhookNotFound
	case errors.Is(err, sailhook.ErrDeliveryNotFound):
		return http.StatusNotFound, msgDeliveryNotFound
	case errors.Is(err, sailhook.ErrUnknownEventType), errors.Is(err, sailhook.ErrPayloadInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, sailhook.ErrHubStopped):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// webhookID parses a path ID. A malformed ID is reported as not found, the
// same as another team's webhook.
func webhookID(raw string) (id.ID, error) {
	whID, err := id.ParseWebhookID(raw)
	if err != nil {
		return id.Nil, sailhook.ErrWebhookNotFound
	}
	return whID, nil
}

func deliveryID(raw string) (id.ID, error) {
	delID, err := id.ParseDeliveryID(raw)
	if err != nil {
		return id.Nil, sailhook.ErrDeliveryNotFound
	}
	return delID, nil
}

// deliveryQuery is the pagination input of a ledger listing. invalid holds
// a parse failure that is reported only after the ownership check.
type deliveryQuery struct {
	Limit   int
	Offset  int
	Status  *int
	invalid error
}

// parseDeliveryQuery reads limit, offset and status from a query string.
func parseDeliveryQuery(r *http.Request) deliveryQuery {
	var q deliveryQuery
	q.Limit, q.invalid = queryInt(r, "limit", delivery.DefaultLimit)
	if q.invalid != nil {
		return q
	}
	q.Offset, q.invalid = queryInt(r, "offset", 0)
	if q.invalid != nil {
		return q
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := strconv.Atoi(v)
		if err != nil {
			q.invalid = errInvalidStatus
			return q
		}
		q.Status = &status
	}
	return q
}

// queryInt parses a non-negative integer query parameter. A missing
// parameter yields def.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &badRequest{msg: key + " must be a non-negative integer"}
	}
	return n, nil
}

// listOpts validates q. Limit 0 means the default; the ledger caps it.
func (q deliveryQuery) listOpts() (delivery.ListOpts, error) {
	if q.invalid != nil {
		return delivery.ListOpts{}, q.invalid
	}
	if q.Limit < 0 {
		return delivery.ListOpts{}, &badRequest{msg: "limit must be a non-negative integer"}
	}
	if q.Offset < 0 {
		return delivery.ListOpts{}, &badRequest{msg: "offset must be a non-negative integer"}
	}
	if q.Status != nil && (*q.Status < 0 || *q.Status > 599) {
		return delivery.ListOpts{}, errInvalidStatus
	}
	return delivery.ListOpts{Limit: q.Limit, Offset: q.Offset, Status: q.Status}, nil
}

// listDeliveries returns one ledger page of a webhook owned by teamID.
// Ownership is checked before the query, so another team's webhook is not
// found whatever the query holds.
func listDeliveries(ctx context.Context, hub *sailhook.Hub, teamID, rawWebhookID string, q deliveryQuery) (*delivery.Page, error) {
	whID, err := webhookID(rawWebhookID)
	if err != nil {
		return nil, err
	}
	wh, err := hub.Webhooks().Get(ctx, teamID, whID)
	if err != nil {
		return nil, err
	}
	opts, err := q.listOpts()
	if err != nil {
		return nil, err
	}
	return hub.Ledger().List(ctx, wh.ID, opts)
}

// getDelivery returns one ledger row of a webhook owned by teamID.
func getDelivery(ctx context.Context, hub *sailhook.Hub, teamID, rawWebhookID, rawDeliveryID string) (*delivery.Delivery, error) {
	whID, err := webhookID(rawWebhookID)
	if err != nil {
		return nil, err
	}
	delID, err := deliveryID(rawDeliveryID)
	if err != nil {
		return nil, err
	}
	wh, err := hub.Webhooks().Get(ctx, teamID, whID)
	if err != nil {
		return nil, err
	}
	return hub.Ledger().Get(ctx, wh.ID, delID)
}

// redeliver schedules a resend of one ledger row of a webhook owned by teamID.
func redeliver(ctx context.Context, hub *sailhook.Hub, teamID, rawWebhookID, rawDeliveryID string) error {
	whID, err := webhookID(rawWebhookID)
	if err != nil {
		return err
	}
	delID, err := deliveryID(rawDeliveryID)
	if err != nil {
		return err
	}
	return hub.Redeliver(ctx, teamID, whID, delID)
}
