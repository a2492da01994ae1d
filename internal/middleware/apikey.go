// Package middleware provides HTTP middleware for the MCP server.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyMiddleware validates a static bearer key on incoming requests.
type APIKeyMiddleware struct {
	key    string
	logger *slog.Logger
}

// NewAPIKeyMiddleware creates API key middleware for the given key. An empty
// key disables validation.
func NewAPIKeyMiddleware(key string, logger *slog.Logger) *APIKeyMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyMiddleware{
		key:    key,
		logger: logger,
	}
}

// Enabled reports whether a key is configured.
func (m *APIKeyMiddleware) Enabled() bool {
	return m.key != ""
}

// Middleware validates the Authorization header before calling the next
// handler.
func (m *APIKeyMiddleware) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next(w, r)
			return
		}

		key, ok := extractBearerKey(r)
		if !ok {
			m.writeUnauthorized(w, r, "missing API key")
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(m.key)) != 1 {
			m.writeUnauthorized(w, r, "invalid API key")
			return
		}

		next(w, r)
	}
}

// extractBearerKey reads the key from the Authorization header, accepting
// both "Bearer <key>" and a bare key.
func extractBearerKey(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	if strings.HasPrefix(header, "Bearer ") {
		header = strings.TrimPrefix(header, "Bearer ")
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	return header, true
}

func (m *APIKeyMiddleware) writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	m.logger.Warn("unauthorized request",
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("reason", message),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
