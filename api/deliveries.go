package api

import (
	"net/http"
)

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request, teamID string) {
	page, err := listDeliveries(r.Context(), h.hub, teamID, r.PathValue("id"), parseDeliveryQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getDelivery(w http.ResponseWriter, r *http.Request, teamID string) {
	d, err := getDelivery(r.Context(), h.hub, teamID, r.PathValue("id"), r.PathValue("deliveryId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) redeliver(w http.ResponseWriter, r *http.Request, teamID string) {
	if err := redeliver(r.Context(), h.hub, teamID, r.PathValue("id"), r.PathValue("deliveryId")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}
