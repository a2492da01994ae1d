package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuth2 scopes required for read access to Drive metadata and Slides content.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/presentations",
}

// DefaultConsentTimeout bounds how long an interactive grant waits for the
// user before giving up.
const DefaultConsentTimeout = 5 * time.Minute

// LoadClientConfig reads an OAuth client-secret JSON file (as downloaded from
// the Google Cloud console) and builds an oauth2 config for the given scopes.
func LoadClientConfig(path string, scopes []string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret file %s: %w", path, err)
	}
	return ClientConfigFromJSON(data, scopes)
}

// ClientConfigFromJSON builds an oauth2 config from client-secret JSON bytes.
func ClientConfigFromJSON(data []byte, scopes []string) (*oauth2.Config, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	config, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret: %w", err)
	}
	return config, nil
}

// LocalConsentFlow performs the authorization-code grant through a local
// loopback redirect: it opens the authorization URL in a browser, runs an
// ephemeral HTTP listener for the redirect, validates the state parameter,
// and exchanges the code for a token.
type LocalConsentFlow struct {
	logger      *slog.Logger
	timeout     time.Duration
	openBrowser bool
}

// NewLocalConsentFlow creates a consent flow. openBrowser controls whether
// the URL is launched automatically; it is always logged either way so a
// headless user can follow it by hand.
func NewLocalConsentFlow(logger *slog.Logger, openBrowser bool) *LocalConsentFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalConsentFlow{
		logger:      logger,
		timeout:     DefaultConsentTimeout,
		openBrowser: openBrowser,
	}
}

// SetTimeout overrides the consent wait deadline.
func (f *LocalConsentFlow) SetTimeout(d time.Duration) {
	f.timeout = d
}

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the interactive grant and blocks until the user completes
// it, the timeout elapses, or ctx is cancelled.
func (f *LocalConsentFlow) Authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	defer listener.Close()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	// Redirect to whichever ephemeral port the listener got.
	cfg := *config
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", listener.Addr().String())

	results := make(chan callbackResult, 1)
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if errParam := r.URL.Query().Get("error"); errParam != "" {
			results <- callbackResult{err: fmt.Errorf("authorization denied: %s", errParam)}
			http.Error(w, "Authorization denied. You can close this window.", http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("state") != state {
			results <- callbackResult{err: fmt.Errorf("state mismatch in authorization callback")}
			http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			results <- callbackResult{err: fmt.Errorf("no authorization code received")}
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
			"<p>You can close this window and return to the application.</p></body></html>")
		results <- callbackResult{code: code}
	})}

	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			results <- callbackResult{err: serveErr}
		}
	}()
	defer server.Close()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	f.logger.Info("authorization required, open this URL to continue",
		slog.String("url", authURL),
	)
	if f.openBrowser {
		if err := browser.OpenURL(authURL); err != nil {
			f.logger.Warn("failed to open browser, follow the logged URL manually",
				slog.Any("error", err),
			)
		}
	}

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case result := <-results:
		if result.err != nil {
			return nil, result.err
		}
		token, err := cfg.Exchange(ctx, result.code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
		}
		return token, nil
	case <-timer.C:
		return nil, fmt.Errorf("timed out waiting for authorization after %s", f.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ ConsentFlow = (*LocalConsentFlow)(nil)
