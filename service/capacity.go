package service

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// CapacityCache holds the process-wide capacity credential used to
// authorize signing-network requests. It is read-mostly: callers share one
// credential until it expires, then any caller may refresh it. A concurrent
// double-refresh is benign because minting is idempotent.
type CapacityCache struct {
	minter ports.CapacityMinter

	mu   sync.RWMutex
	cred core.CapacityCredential

	now func() time.Time
}

// NewCapacityCache creates an empty cache; the first caller populates it.
func NewCapacityCache(minter ports.CapacityMinter) *CapacityCache {
	return &CapacityCache{
		minter: minter,
		now:    time.Now,
	}
}

// RefreshIfExpired returns the cached credential, minting a fresh one first
// when the cached one is missing or expired.
func (c *CapacityCache) RefreshIfExpired(ctx context.Context) (core.CapacityCredential, error) {
	c.mu.RLock()
	cred := c.cred
	c.mu.RUnlock()

	if !cred.Expired(c.now()) {
		return cred, nil
	}

	fresh, err := c.minter.MintCapacityCredential(ctx)
	if err != nil {
		return core.CapacityCredential{}, err
	}

	c.mu.Lock()
	c.cred = fresh
	c.mu.Unlock()

	return fresh, nil
}
