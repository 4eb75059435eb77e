package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWrappedDekExpired(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, WrappedDek{}.Expired(now))
	assert.True(t, WrappedDek{Value: "dek"}.Expired(now), "zero expiry never serves from cache")
	assert.True(t, WrappedDek{Value: "dek", ExpiresAt: now}.Expired(now))
	assert.True(t, WrappedDek{Value: "dek", ExpiresAt: now.Add(-time.Minute)}.Expired(now))
	assert.False(t, WrappedDek{Value: "dek", ExpiresAt: now.Add(time.Minute)}.Expired(now))
}

func TestSupportedChainEVM(t *testing.T) {
	assert.True(t, ChainEthereum.EVM())
	assert.True(t, ChainPolygon.EVM())
	assert.False(t, ChainSolana.EVM())
	assert.False(t, ChainFlow.EVM())
	assert.False(t, ChainImmutable.EVM())
}
