package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// ErrTokenNotFound is returned by Load when no credential has been persisted.
var ErrTokenNotFound = errors.New("no stored token found")

// StoredToken is the persisted form of a delegated credential.
type StoredToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Token converts the stored form back into an oauth2 token.
func (s *StoredToken) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
	}
}

// NewStoredToken captures an oauth2 token and its granted scopes.
func NewStoredToken(token *oauth2.Token, scopes []string) *StoredToken {
	return &StoredToken{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       scopes,
	}
}

// TokenStore persists the delegated credential across process restarts.
type TokenStore interface {
	Load() (*StoredToken, error)
	Save(token *StoredToken) error
}

// FileTokenStore keeps the credential as a JSON file at a fixed path.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store backed by the given path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the backing file path.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the persisted credential. A missing file is ErrTokenNotFound;
// an unreadable or corrupt file is a distinct error so the caller can tell
// "never authenticated" from "stored state is broken".
func (s *FileTokenStore) Load() (*StoredToken, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token StoredToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}

	return &token, nil
}

// Save durably persists the credential, overwriting any prior value. The
// parent directory is created if missing. The write goes to a temp file in
// the same directory followed by a rename, so a crash mid-write can never
// leave a torn token file behind.
func (s *FileTokenStore) Save(token *StoredToken) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}

// Ensure FileTokenStore implements TokenStore.
var _ TokenStore = (*FileTokenStore)(nil)
