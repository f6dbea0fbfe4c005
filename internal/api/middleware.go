package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"
)

// NewSharedSecretMiddleware guards the webhook with a bearer-token check
// against a shared secret. An empty secret disables the check, for local
// runs against a store emulator.
func NewSharedSecretMiddleware(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	if secret == "" {
		logger.Warn("Webhook shared secret not configured; trigger endpoint is unauthenticated")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				response.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
