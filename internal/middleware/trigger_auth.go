package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"pressroom/internal/util"

	"github.com/rs/zerolog"
)

// WorkerSecretHeader carries the shared secret on cron-style trigger requests.
const WorkerSecretHeader = "X-Worker-Secret"

// TriggerAuthMiddleware authorizes worker trigger endpoints. A request passes
// with either the shared-secret header (operator/cron context) or a valid
// operator JWT; requests carrying neither are rejected.
func TriggerAuthMiddleware(triggerSecret, jwtSecret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provided := r.Header.Get(WorkerSecretHeader); provided != "" {
				if triggerSecret != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(triggerSecret)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
				logger.Warn().Msg("Worker trigger with invalid shared secret")
				http.Error(w, "Unauthorized: invalid worker secret", http.StatusUnauthorized)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn().Msg("Worker trigger without credentials")
				http.Error(w, "Unauthorized: missing credentials", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := util.ValidateJWT(parts[1], jwtSecret)
			if err != nil {
				logger.Warn().Err(err).Msg("Worker trigger with invalid operator token")
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), TenantContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
