package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sphereone/go-sdk/core"
	"github.com/sphereone/go-sdk/ports"
)

// Storage keys. Two entries exist: the serialized session and the pending
// login (CSRF) state. Both are cleared together on logout.
const (
	credentialsKey = "sphere_one_credentials"
	loginStateKey  = "sphere_one_state"
)

// CredentialStore persists session credentials and the pending login state
// in the injected key-value store.
type CredentialStore struct {
	store ports.Store
}

// NewCredentialStore creates a credential store over a key-value store.
func NewCredentialStore(store ports.Store) *CredentialStore {
	return &CredentialStore{store: store}
}

// Save serializes the credentials under the fixed session key.
func (c *CredentialStore) Save(ctx context.Context, creds *core.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	return c.store.Set(ctx, credentialsKey, string(data))
}

// Load returns the persisted credentials, or nil when nothing usable is
// stored. Absence and corruption are both treated as "no session".
func (c *CredentialStore) Load(ctx context.Context) *core.Credentials {
	data, err := c.store.Get(ctx, credentialsKey)
	if err != nil || data == "" {
		return nil
	}

	var creds core.Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil
	}

	return &creds
}

// SaveLoginState persists the CSRF state bound to a pending login.
func (c *CredentialStore) SaveLoginState(ctx context.Context, state string) error {
	return c.store.Set(ctx, loginStateKey, state)
}

// LoadLoginState returns the pending login state, empty when none is set.
func (c *CredentialStore) LoadLoginState(ctx context.Context) string {
	state, err := c.store.Get(ctx, loginStateKey)
	if err != nil {
		return ""
	}
	return state
}

// Clear removes the session and any pending login state.
func (c *CredentialStore) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, credentialsKey); err != nil {
		return err
	}
	return c.store.Delete(ctx, loginStateKey)
}
