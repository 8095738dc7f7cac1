package mcp

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// AuthMiddleware guards the MCP endpoint with a shared key, sent either as
// "Authorization: Bearer <key>" or as the bare header value. An empty key
// leaves the endpoint open.
func AuthMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := sha256.Sum256([]byte(apiKey))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if auth == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="focustodo-mcp"`)
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		// Hashing first keeps the comparison length-independent.
		got := sha256.Sum256([]byte(strings.TrimPrefix(auth, "Bearer ")))
		if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
			slog.WarnContext(r.Context(), "mcp auth rejected", "remote", r.RemoteAddr)
			http.Error(w, "invalid credentials", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
