package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/hhsynth/internal/auth"
	"github.com/dukerupert/hhsynth/internal/model"
)

const apiKeyHeader = "X-API-Key"

// Authenticator resolves a presented key. A nil key with a nil error means
// the key is unknown or revoked.
type Authenticator interface {
	Authenticate(key string) (*model.APIKey, error)
}

// RequireAPIKey rejects requests without a valid key and stores the caller's
// Identity in the request context. Keys are read from X-API-Key or an
// Authorization: Bearer header.
func RequireAPIKey(keys Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := presentedKey(r)
			if presented == "" {
				unauthorized(w, "api key required")
				return
			}

			k, err := keys.Authenticate(presented)
			if err != nil {
				logger.Error("authenticate api key", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if k == nil {
				unauthorized(w, "invalid api key")
				return
			}

			ctx := auth.WithIdentity(r.Context(), auth.Identity{
				KeyID:     k.ID,
				KeyName:   k.Name,
				KeyPrefix: k.Prefix,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func presentedKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get(apiKeyHeader)); k != "" {
		return k
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="hhsynth"`)
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
