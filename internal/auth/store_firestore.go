package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
)

// tokenDocument is the Firestore representation of a stored credential.
type tokenDocument struct {
	AccessToken  string    `firestore:"access_token"`
	TokenType    string    `firestore:"token_type,omitempty"`
	RefreshToken string    `firestore:"refresh_token,omitempty"`
	Expiry       time.Time `firestore:"expiry"`
	Scopes       []string  `firestore:"scopes,omitempty"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

// FirestoreTokenStore persists the credential in a Firestore document, for
// deployments without a writable local disk. One document per server
// identity; Firestore writes are atomic at document granularity so the
// temp-then-rename discipline of the file store is unnecessary here.
type FirestoreTokenStore struct {
	client     *firestore.Client
	collection string
	docID      string
}

// NewFirestoreTokenStore creates a Firestore-backed store.
func NewFirestoreTokenStore(ctx context.Context, projectID, collection, docID string) (*FirestoreTokenStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreTokenStore{
		client:     client,
		collection: collection,
		docID:      docID,
	}, nil
}

// NewFirestoreTokenStoreWithClient wraps an existing client, for testing and
// dependency injection.
func NewFirestoreTokenStoreWithClient(client *firestore.Client, collection, docID string) *FirestoreTokenStore {
	return &FirestoreTokenStore{
		client:     client,
		collection: collection,
		docID:      docID,
	}
}

// Close closes the Firestore client.
func (s *FirestoreTokenStore) Close() error {
	return s.client.Close()
}

// Load reads the stored credential document.
func (s *FirestoreTokenStore) Load() (*StoredToken, error) {
	doc, err := s.client.Collection(s.collection).Doc(s.docID).Get(context.Background())
	if err != nil {
		if isFirestoreNotFound(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load token document: %w", err)
	}

	var record tokenDocument
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token document: %w", err)
	}

	return &StoredToken{
		AccessToken:  record.AccessToken,
		TokenType:    record.TokenType,
		RefreshToken: record.RefreshToken,
		Expiry:       record.Expiry,
		Scopes:       record.Scopes,
	}, nil
}

// Save overwrites the credential document.
func (s *FirestoreTokenStore) Save(token *StoredToken) error {
	record := tokenDocument{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       token.Scopes,
		UpdatedAt:    time.Now(),
	}

	_, err := s.client.Collection(s.collection).Doc(s.docID).Set(context.Background(), record)
	if err != nil {
		return fmt.Errorf("failed to store token document: %w", err)
	}
	return nil
}

// isFirestoreNotFound reports whether the error is a Firestore "not found"
// status for the token document.
func isFirestoreNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "code = NotFound") ||
		strings.Contains(msg, "document not found")
}

// Ensure FirestoreTokenStore implements TokenStore.
var _ TokenStore = (*FirestoreTokenStore)(nil)

