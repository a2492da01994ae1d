package integration

import (
	"os"
	"testing"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/arjuns-ti/slides-mcp-server/internal/auth"
)

// Environment variable names for integration tests.
const (
	EnvIntegrationTest     = "INTEGRATION_TEST"
	EnvGoogleClientID      = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret  = "GOOGLE_CLIENT_SECRET"
	EnvGoogleRefreshToken  = "GOOGLE_REFRESH_TOKEN"
	EnvTestPresentationID  = "TEST_PRESENTATION_ID"
	EnvTestNonSlidesFileID = "TEST_NON_SLIDES_FILE_ID"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TestPresentationID string
	NonSlidesFileID    string
}

// SkipIfNoIntegration skips the test if integration tests are not enabled.
func SkipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationTest) != "1" {
		t.Skip("Integration tests are disabled. Set INTEGRATION_TEST=1 to enable.")
	}
}

// LoadConfig loads test configuration from environment variables, skipping
// the test when required credentials are missing.
func LoadConfig(t *testing.T) *TestConfig {
	t.Helper()

	config := &TestConfig{
		ClientID:           os.Getenv(EnvGoogleClientID),
		ClientSecret:       os.Getenv(EnvGoogleClientSecret),
		RefreshToken:       os.Getenv(EnvGoogleRefreshToken),
		TestPresentationID: os.Getenv(EnvTestPresentationID),
		NonSlidesFileID:    os.Getenv(EnvTestNonSlidesFileID),
	}

	if config.ClientID == "" || config.ClientSecret == "" || config.RefreshToken == "" {
		t.Skip("Missing Google OAuth2 credentials for integration tests")
	}
	if config.TestPresentationID == "" {
		t.Skip("TEST_PRESENTATION_ID is not set")
	}

	return config
}

// TokenSource builds a token source from the configured refresh token.
func (c *TestConfig) TokenSource(t *testing.T) oauth2.TokenSource {
	t.Helper()

	oauthConfig := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       auth.DefaultScopes,
		Endpoint:     google.Endpoint,
	}
	token := &oauth2.Token{RefreshToken: c.RefreshToken}
	return oauthConfig.TokenSource(t.Context(), token)
}
