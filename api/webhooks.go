package api

import (
	"net/http"

	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/webhook"
)

// webhookWithSecret is returned only when a secret is first revealed.
type webhookWithSecret struct {
	*webhook.Webhook
	Secret string `json:"secret"`
}

func (h *Handler) createWebhook(w http.ResponseWriter, r *http.Request, teamID string) {
	var in webhook.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wh, err := h.hub.Webhooks().Create(r.Context(), teamID, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, webhookWithSecret{Webhook: wh, Secret: wh.Secret})
}

func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request, teamID string) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hooks, err := h.hub.Webhooks().List(r.Context(), teamID, webhook.ListOpts{Offset: offset, Limit: limit})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if hooks == nil {
		hooks = []*webhook.Webhook{}
	}

	writeJSON(w, http.StatusOK, hooks)
}

func (h *Handler) getWebhook(w http.ResponseWriter, r *http.Request, teamID string) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	wh, err := h.hub.Webhooks().Get(r.Context(), teamID, whID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, wh)
}

func (h *Handler) updateWebhook(w http.ResponseWriter, r *http.Request, teamID string) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	var p webhook.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wh, err := h.hub.Webhooks().Update(r.Context(), teamID, whID, p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, wh)
}

func (h *Handler) deleteWebhook(w http.ResponseWriter, r *http.Request, teamID string) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	if err := h.hub.Webhooks().Delete(r.Context(), teamID, whID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request, teamID string) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	secret, err := h.hub.Webhooks().RotateSecret(r.Context(), teamID, whID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

// pathWebhookID parses {id}. A malformed ID gets the same 404 as a
// missing webhook.
func (h *Handler) pathWebhookID(w http.ResponseWriter, r *http.Request) (id.ID, bool) {
	whID, err := webhookID(r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return id.Nil, false
	}
	return whID, true
}
