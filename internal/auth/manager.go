package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// RefreshMargin is the safety window before expiry within which a token is
// treated as expired. A token that would expire mid-request is no better
// than one that already has.
const RefreshMargin = 60 * time.Second

// State is the credential lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StatePendingConsent
	StateValid
	StateExpired
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StatePendingConsent:
		return "pending_consent"
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AuthError reports that no usable credential could be produced. It is fatal
// to the current call, not to the process; the next call retries acquisition
// from scratch.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ConsentFlow runs the interactive authorization-code grant and returns the
// resulting token. Implementations block until the user completes or abandons
// the grant.
type ConsentFlow interface {
	Authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)
}

// Manager owns the delegated credential for the process. All acquisition and
// refresh goes through a single mutex so concurrent callers observe at most
// one refresh attempt per staleness window.
type Manager struct {
	config  *oauth2.Config
	store   TokenStore
	consent ConsentFlow
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	token *oauth2.Token

	// now is replaceable in tests.
	now func() time.Time
}

// NewManager creates a credential manager. consent may be nil for headless
// deployments; acquisition then fails with AuthError when interaction would
// be required.
func NewManager(config *oauth2.Config, store TokenStore, consent ConsentFlow, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config:  config,
		store:   store,
		consent: consent,
		logger:  logger,
		state:   StateUnauthenticated,
		now:     time.Now,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Acquire returns a valid token, loading, refreshing, or interactively
// obtaining one as needed. The whole load/refresh/persist sequence runs under
// the manager mutex; tokens handed out are immutable copies.
func (m *Manager) Acquire(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Fast path: the in-process token is still comfortably valid. Another
	// caller may have refreshed while we waited on the mutex.
	if m.usable(m.token) {
		m.state = StateValid
		return copyToken(m.token), nil
	}

	if m.token == nil {
		stored, err := m.store.Load()
		switch {
		case errors.Is(err, ErrTokenNotFound):
			// First run on this store; fall through to consent.
		case err != nil:
			m.state = StateFailed
			return nil, &AuthError{Reason: "failed to load stored credential", Err: err}
		default:
			m.token = stored.Token()
		}
	}

	if m.usable(m.token) {
		m.state = StateValid
		m.logger.Debug("using stored credential", slog.Time("expiry", m.token.Expiry))
		return copyToken(m.token), nil
	}

	if m.token != nil && m.token.RefreshToken != "" {
		m.state = StateExpired
		token, err := m.refreshLocked(ctx)
		if err == nil {
			return copyToken(token), nil
		}
		if !isInvalidGrant(err) {
			m.state = StateFailed
			return nil, &AuthError{Reason: "token refresh failed", Err: err}
		}
		// The refresh token was revoked or invalidated. The stored
		// credential is left as-is; only a fresh grant can replace it.
		m.logger.Warn("refresh token rejected, re-consent required", slog.Any("error", err))
		m.token = nil
		m.state = StateUnauthenticated
	}

	return m.consentLocked(ctx)
}

// TokenSource adapts the manager to the oauth2.TokenSource interface expected
// by the Google API client factories.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: m}
}

// refreshLocked exchanges the refresh token for a new access token and
// persists the result. Caller holds the mutex.
func (m *Manager) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	m.logger.Info("refreshing access token", slog.Time("expiry", m.token.Expiry))

	token, err := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: m.token.RefreshToken}).Token()
	if err != nil {
		return nil, err
	}

	// Google omits the refresh token from refresh responses; carry the old
	// one forward so the credential stays refreshable.
	if token.RefreshToken == "" {
		token.RefreshToken = m.token.RefreshToken
	}

	if err := m.store.Save(NewStoredToken(token, m.config.Scopes)); err != nil {
		// The token is live even if persistence failed; the next process
		// start will just refresh again.
		m.logger.Error("failed to persist refreshed token", slog.Any("error", err))
	}

	m.token = token
	m.state = StateValid
	return token, nil
}

// consentLocked runs the interactive grant. Caller holds the mutex.
func (m *Manager) consentLocked(ctx context.Context) (*oauth2.Token, error) {
	if m.consent == nil {
		m.state = StateUnauthenticated
		return nil, &AuthError{Reason: "consent required but no interactive flow is configured"}
	}

	m.state = StatePendingConsent
	m.logger.Info("starting interactive authorization")

	token, err := m.consent.Authorize(ctx, m.config)
	if err != nil {
		m.state = StateFailed
		return nil, &AuthError{Reason: "authorization grant failed", Err: err}
	}

	if err := m.store.Save(NewStoredToken(token, m.config.Scopes)); err != nil {
		m.state = StateFailed
		return nil, &AuthError{Reason: "failed to persist credential", Err: err}
	}

	m.token = token
	m.state = StateValid
	m.logger.Info("authorization complete",
		slog.Bool("has_refresh_token", token.RefreshToken != ""),
		slog.Time("expiry", token.Expiry),
	)
	return copyToken(token), nil
}

// usable reports whether the token will remain valid past the refresh margin.
func (m *Manager) usable(token *oauth2.Token) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	if token.Expiry.IsZero() {
		return true
	}
	return token.Expiry.After(m.now().Add(RefreshMargin))
}

func copyToken(token *oauth2.Token) *oauth2.Token {
	c := *token
	return &c
}

// isInvalidGrant reports whether a token-endpoint error means the refresh
// token itself is no longer accepted, as opposed to a transport failure.
func isInvalidGrant(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.Response != nil &&
			(retrieveErr.Response.StatusCode == 400 || retrieveErr.Response.StatusCode == 401)
	}
	return false
}

type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	return s.manager.Acquire(s.ctx)
}

var _ oauth2.TokenSource = (*managerTokenSource)(nil)
