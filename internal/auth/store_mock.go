package auth

import "sync"

// MockTokenStore is an in-memory implementation of TokenStore for testing.
type MockTokenStore struct {
	token *StoredToken
	mu    sync.Mutex

	// Track method calls for assertions
	LoadCalls int
	SaveCalls int

	// Optional error injection for testing error paths
	LoadError error
	SaveError error
}

// NewMockTokenStore creates an empty MockTokenStore.
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{}
}

// Load returns the held token, or ErrTokenNotFound if none was saved.
func (m *MockTokenStore) Load() (*StoredToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoadCalls++

	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.token == nil {
		return nil, ErrTokenNotFound
	}

	// Return a copy
	tokenCopy := *m.token
	return &tokenCopy, nil
}

// Save replaces the held token.
func (m *MockTokenStore) Save(token *StoredToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++

	if m.SaveError != nil {
		return m.SaveError
	}

	tokenCopy := *token
	m.token = &tokenCopy
	return nil
}

// Stored returns the currently held token without counting as a Load.
func (m *MockTokenStore) Stored() *StoredToken {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return nil
	}
	tokenCopy := *m.token
	return &tokenCopy
}

var _ TokenStore = (*MockTokenStore)(nil)
