package api

import (
	"net/http"

	"github.com/xraph/forge"
)

// mapError converts sailhook errors to Forge HTTP errors with the status
// the net/http handler would use.
func mapError(err error) error {
	status, msg := classify(err)
	switch status {
	case http.StatusBadRequest:
		return forge.BadRequest(msg)
	case http.StatusNotFound:
		return forge.NotFound(msg)
	case http.StatusInternalServerError:
		return forge.InternalError(err)
	default:
		return forge.NewHTTPError(status, msg)
	}
}
