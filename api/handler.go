// Package api provides the team-scoped HTTP API for webhook management and
// delivery history.
//
// Every route expects the authenticated team in the request context (see
// package auth). Requests without one are rejected with 401.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/scope"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// Handler is the root HTTP handler for the webhook API.
type Handler struct {
	hub    *sailhook.Hub
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates a new API handler over hub.
func NewHandler(hub *sailhook.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		hub:    hub,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// teamHandlerFunc is a route handler that runs on behalf of a team.
type teamHandlerFunc func(w http.ResponseWriter, r *http.Request, teamID string)

func (h *Handler) registerRoutes() {
	// Catalog
	h.handle("GET /event-types", h.listEventTypes)

	// Webhooks
	h.handle("POST /webhooks", h.createWebhook)
	h.handle("GET /webhooks", h.listWebhooks)
	h.handle("GET /webhooks/{id}", h.getWebhook)
	h.handle("PATCH /webhooks/{id}", h.updateWebhook)
	h.handle("DELETE /webhooks/{id}", h.deleteWebhook)
	h.handle("POST /webhooks/{id}/rotate-secret", h.rotateSecret)
	h.handle("POST /webhooks/{id}/test", h.testWebhook)

	// Deliveries
	h.handle("GET /webhooks/{id}/deliveries", h.listDeliveries)
	h.handle("GET /webhooks/{id}/deliveries/{deliveryId}", h.getDelivery)
	h.handle("POST /webhooks/{id}/deliveries/{deliveryId}/redeliver", h.redeliver)

	// Events
	h.handle("POST /events", h.triggerEvent)
}

// handle registers fn behind the team check.
func (h *Handler) handle(pattern string, fn teamHandlerFunc) {
	h.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		teamID := scope.TeamID(r.Context())
		if teamID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		fn(w, r, teamID)
	})
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.requestID(h.panicRecovery(h.logging(next)))
}

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
			r.Header.Set(HeaderRequestID, reqID)
		}
		w.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.InfoContext(r.Context(), "api request",
			"request_id", r.Header.Get(HeaderRequestID),
			"team_id", scope.TeamID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(r.Context(), "panic recovered",
					"request_id", r.Header.Get(HeaderRequestID),
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// ──────────────────────────────────────────────────
// Errors
// ──────────────────────────────────────────────────

// writeServiceError writes the status classify picks for err. A 500 is
// logged; its cause is never shown to the caller.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "api error",
			"request_id", r.Header.Get(HeaderRequestID),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, msg)
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
