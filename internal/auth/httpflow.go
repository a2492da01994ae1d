package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// HTTPConsentHandler serves the browser-based consent flow for the HTTP
// transport. GET /auth hands out an authorization URL, GET /auth/callback
// exchanges the returned code and persists the credential to the token
// store where the Manager will pick it up.
type HTTPConsentHandler struct {
	config *oauth2.Config
	store  TokenStore
	logger *slog.Logger
	states map[string]bool
	mu     sync.Mutex
}

// NewHTTPConsentHandler creates a consent handler. The config's RedirectURL
// must point at this server's /auth/callback route.
func NewHTTPConsentHandler(config *oauth2.Config, store TokenStore, logger *slog.Logger) *HTTPConsentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPConsentHandler{
		config: config,
		store:  store,
		logger: logger,
		states: make(map[string]bool),
	}
}

// HandleAuth handles GET /auth and initiates the OAuth2 flow.
func (h *HTTPConsentHandler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	state, err := generateState()
	if err != nil {
		h.logger.Error("failed to generate state", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}

	h.mu.Lock()
	h.states[state] = true
	h.mu.Unlock()

	authURL := h.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	h.logger.Info("OAuth2 flow initiated",
		slog.String("redirect_uri", h.config.RedirectURL),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"authorization_url": authURL,
		"message":           "Please visit the authorization URL to complete authentication",
	})
}

// HandleCallback handles GET /auth/callback with the OAuth2 authorization
// code.
func (h *HTTPConsentHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		errDesc := r.URL.Query().Get("error_description")
		h.logger.Error("OAuth2 error from provider",
			slog.String("error", errParam),
			slog.String("description", errDesc),
		)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("OAuth2 error: %s - %s", errParam, errDesc))
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.writeError(w, http.StatusBadRequest, "missing state parameter")
		return
	}

	h.mu.Lock()
	validState := h.states[state]
	if validState {
		delete(h.states, state)
	}
	h.mu.Unlock()

	if !validState {
		h.writeError(w, http.StatusBadRequest, "invalid state parameter")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to exchange code for token", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "failed to exchange code for token")
		return
	}

	h.logger.Info("OAuth2 token obtained",
		slog.Bool("has_refresh_token", token.RefreshToken != ""),
		slog.Time("expiry", token.Expiry),
	)

	if err := h.store.Save(NewStoredToken(token, h.config.Scopes)); err != nil {
		h.logger.Error("failed to persist token", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "failed to persist token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	response := map[string]any{
		"message": "Authentication successful",
		"expiry":  token.Expiry,
	}
	if token.RefreshToken != "" {
		response["has_refresh_token"] = true
	}

	json.NewEncoder(w).Encode(response)
}

// writeError writes an error response.
func (h *HTTPConsentHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
