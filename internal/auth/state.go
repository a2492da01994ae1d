package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// generateState returns an unguessable token binding a consent redirect back
// to the request that initiated it.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
