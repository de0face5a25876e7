package store

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// MemoryStore is an in-memory replay guard, primarily for testing.
type MemoryStore struct {
	mu       sync.Mutex
	payments map[common.Hash]*core.VerifiedPayment
}

// NewMemoryStore creates a new in-memory replay guard.
func NewMemoryStore() ports.ReplayGuard {
	return &MemoryStore{
		payments: make(map[common.Hash]*core.VerifiedPayment),
	}
}

// Exists reports whether a payment is already recorded for the hash.
func (s *MemoryStore) Exists(ctx context.Context, txHash common.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.payments[txHash]
	return ok, nil
}

// Record stores an accepted payment, rejecting duplicates.
func (s *MemoryStore) Record(ctx context.Context, payment *core.VerifiedPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[payment.TxHash]; ok {
		return core.ErrAlreadyUsed
	}
	s.payments[payment.TxHash] = payment
	return nil
}
