package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// Absent keys read as empty, not as errors.
	val, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, s.Set(ctx, "key", "value"))
	val, err = s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", val)

	require.NoError(t, s.Set(ctx, "key", "updated"))
	val, err = s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "updated", val)

	require.NoError(t, s.Delete(ctx, "key"))
	val, err = s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Empty(t, val)

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete(ctx, "missing"))
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.NoError(t, s.Set(ctx, "key", "value"))
				_, err := s.Get(ctx, "key")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
