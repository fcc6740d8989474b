package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"mirror-sync-go/pkg/logger"
)

// AdminToken guards mutating admin endpoints with a static bearer token. An
// empty token disables the check.
type AdminToken struct {
	token string
	log   logger.Logger
}

func NewAdminToken(token string, log logger.Logger) *AdminToken {
	return &AdminToken{token: strings.TrimSpace(token), log: log}
}

func (a *AdminToken) Middleware(next http.Handler) http.Handler {
	if a.token == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r.Header.Get("Authorization"))
		if token == "" {
			a.log.Warn("auth: missing token", "path", r.URL.Path)
			writeUnauthorized(w, "missing_token", "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			a.log.Warn("auth: invalid token", "path", r.URL.Path)
			writeUnauthorized(w, "invalid_token", "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}
