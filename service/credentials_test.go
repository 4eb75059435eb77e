package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sphereone/go-sdk/adapters/store"
)

func TestCredentialStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	creds := NewCredentialStore(store.NewMemoryStore())

	original := testCredentials(t, time.Now().Add(time.Hour))
	require.NoError(t, creds.Save(ctx, original))

	loaded := creds.Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, original, loaded)
}

func TestCredentialStore_LoadEmpty(t *testing.T) {
	creds := NewCredentialStore(store.NewMemoryStore())
	assert.Nil(t, creds.Load(context.Background()))
}

func TestCredentialStore_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, credentialsKey, "{not json"))

	creds := NewCredentialStore(kv)
	assert.Nil(t, creds.Load(ctx))
}

func TestCredentialStore_LoginState(t *testing.T) {
	ctx := context.Background()
	creds := NewCredentialStore(store.NewMemoryStore())

	assert.Empty(t, creds.LoadLoginState(ctx))

	require.NoError(t, creds.SaveLoginState(ctx, "abc123"))
	assert.Equal(t, "abc123", creds.LoadLoginState(ctx))
}

func TestCredentialStore_Clear(t *testing.T) {
	ctx := context.Background()
	creds := NewCredentialStore(store.NewMemoryStore())

	require.NoError(t, creds.Save(ctx, testCredentials(t, time.Now().Add(time.Hour))))
	require.NoError(t, creds.SaveLoginState(ctx, "abc123"))
	require.NoError(t, creds.Clear(ctx))

	assert.Nil(t, creds.Load(ctx))
	assert.Empty(t, creds.LoadLoginState(ctx))
}
