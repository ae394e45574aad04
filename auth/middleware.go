package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/posthoot/sailhook/scope"
)

// Middleware rejects requests without a valid bearer token and stores the
// token's team with scope.WithTeam for the rest of the chain.
func (a *Authenticator) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w)
				return
			}

			claims, err := a.Parse(parts[1])
			if err != nil {
				logger.DebugContext(r.Context(), "rejected token", "error", err)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(scope.WithTeam(r.Context(), claims.TeamID)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="sailhook"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"}) //nolint:errcheck // best effort
}
