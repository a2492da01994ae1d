// Package integration provides end-to-end tests against the real Google
// Drive and Slides APIs.
//
// The tests are skipped unless the INTEGRATION_TEST environment variable is
// set:
//
//	INTEGRATION_TEST=1 go test -v ./internal/integration/...
//
// Required environment variables:
//
//   - INTEGRATION_TEST: Set to "1" to enable integration tests
//   - GOOGLE_CLIENT_ID: OAuth2 client ID
//   - GOOGLE_CLIENT_SECRET: OAuth2 client secret
//   - GOOGLE_REFRESH_TOKEN: Valid refresh token for testing
//   - TEST_PRESENTATION_ID: Existing Slides presentation ID to read
//   - TEST_NON_SLIDES_FILE_ID: (Optional) Drive file that is not a
//     presentation, used for the MIME type guard test
//
// All tests are read-only. No presentation is created or modified.
package integration
