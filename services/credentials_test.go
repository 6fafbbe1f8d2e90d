package services

import (
	"context"
	"sync"
	"testing"

	"foodies-telegram/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration test for the customer_sessions table. Skip if db.Pool is nil or -short.
func TestCustomerToken_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping credentials integration test in short mode")
	}
	if db.Pool == nil {
		t.Skip("skipping credentials integration test: no DB pool")
	}
	ctx := context.Background()
	const testUserID int64 = 999999996
	defer func() {
		_ = DeleteCustomerToken(ctx, testUserID)
	}()

	_ = DeleteCustomerToken(ctx, testUserID)
	_, ok, err := GetCustomerToken(ctx, testUserID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveCustomerToken(ctx, testUserID, "first"))
	require.NoError(t, SaveCustomerToken(ctx, testUserID, "second"))
	token, ok, err := GetCustomerToken(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", token)

	var store CredentialStore = DBCredentials{}
	require.NoError(t, store.DeleteToken(ctx, testUserID))
	token, err = store.Token(ctx, testUserID)
	require.NoError(t, err)
	assert.Empty(t, token)
}

// memoryCredentials is an in-process CredentialStore for tests.
type memoryCredentials struct {
	mu     sync.RWMutex
	tokens map[int64]string
}

func newMemoryCredentials() *memoryCredentials {
	return &memoryCredentials{tokens: make(map[int64]string)}
}

func (m *memoryCredentials) Token(ctx context.Context, tgUserID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens[tgUserID], nil
}

func (m *memoryCredentials) SaveToken(ctx context.Context, tgUserID int64, token string) error {
	m.mu.Lock()
	m.tokens[tgUserID] = token
	m.mu.Unlock()
	return nil
}

func (m *memoryCredentials) DeleteToken(ctx context.Context, tgUserID int64) error {
	m.mu.Lock()
	delete(m.tokens, tgUserID)
	m.mu.Unlock()
	return nil
}
