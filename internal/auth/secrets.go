package auth

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/oauth2"
)

// SecretLoader loads OAuth client-secret material from Google Secret Manager,
// for deployments where shipping the client-secret JSON as a file is not an
// option.
type SecretLoader struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretLoader creates a new SecretLoader.
func NewSecretLoader(ctx context.Context, projectID string) (*SecretLoader, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &SecretLoader{
		client:    client,
		projectID: projectID,
	}, nil
}

// Close closes the secret manager client.
func (l *SecretLoader) Close() error {
	return l.client.Close()
}

// GetSecret retrieves a secret value by its ID.
func (l *SecretLoader) GetSecret(ctx context.Context, secretID string) ([]byte, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", l.projectID, secretID)

	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	}

	result, err := l.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to access secret %s: %w", secretID, err)
	}

	return result.Payload.Data, nil
}

// LoadClientConfig fetches a client-secret JSON payload from the named secret
// and builds an oauth2 config from it.
func (l *SecretLoader) LoadClientConfig(ctx context.Context, secretID string, scopes []string) (*oauth2.Config, error) {
	data, err := l.GetSecret(ctx, secretID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client secret: %w", err)
	}
	return ClientConfigFromJSON(data, scopes)
}
