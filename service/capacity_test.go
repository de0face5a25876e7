package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/core"
)

type countingMinter struct {
	mints int
	err   error
	ttl   time.Duration
}

func (m *countingMinter) MintCapacityCredential(ctx context.Context) (core.CapacityCredential, error) {
	if m.err != nil {
		return core.CapacityCredential{}, m.err
	}
	m.mints++
	return core.CapacityCredential{
		Token:     "capacity",
		ExpiresAt: time.Now().Add(m.ttl),
	}, nil
}

func TestCapacityCacheReusesCredential(t *testing.T) {
	minter := &countingMinter{ttl: time.Minute}
	cache := NewCapacityCache(minter)

	first, err := cache.RefreshIfExpired(context.Background())
	require.NoError(t, err)
	second, err := cache.RefreshIfExpired(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, minter.mints)
}

func TestCapacityCacheRefreshesAfterExpiry(t *testing.T) {
	minter := &countingMinter{ttl: time.Minute}
	cache := NewCapacityCache(minter)

	_, err := cache.RefreshIfExpired(context.Background())
	require.NoError(t, err)

	cache.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = cache.RefreshIfExpired(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, minter.mints)
}

func TestCapacityCachePropagatesMintError(t *testing.T) {
	minter := &countingMinter{err: assert.AnError}
	cache := NewCapacityCache(minter)

	_, err := cache.RefreshIfExpired(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
