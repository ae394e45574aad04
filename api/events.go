package api

import (
	"encoding/json"
	"net/http"

	"github.com/posthoot/sailhook/event"
)

// eventRequest is the body of POST /events and POST /webhooks/{id}/test.
type eventRequest struct {
	Event event.Type      `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (h *Handler) listEventTypes(w http.ResponseWriter, _ *http.Request, _ string) {
	writeJSON(w, http.StatusOK, h.hub.Catalog().List())
}

// triggerEvent is the entry point for internal services. The response is
// sent before any delivery happens.
func (h *Handler) triggerEvent(w http.ResponseWriter, r *http.Request, teamID string) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !req.Event.Valid() {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	h.hub.Trigger(r.Context(), req.Event, teamID, req.Data)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) testWebhook(w http.ResponseWriter, r *http.Request, teamID string) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	d, err := h.hub.SendTest(r.Context(), teamID, whID, req.Event, req.Data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
