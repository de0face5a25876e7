package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// RedisStore is a Redis implementation of the replay guard. Records never
// expire: a payment hash stays used for the lifetime of the system.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis replay guard.
func NewRedisStore(client *redis.Client) ports.ReplayGuard {
	return &RedisStore{
		client: client,
		prefix: "garuda:payment:",
	}
}

// Exists reports whether a payment is already recorded for the hash.
func (s *RedisStore) Exists(ctx context.Context, txHash common.Hash) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+txHash.Hex()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check payment record: %w", err)
	}
	return n > 0, nil
}

// Record stores an accepted payment with SETNX so concurrent verifications
// of the same hash cannot both succeed.
func (s *RedisStore) Record(ctx context.Context, payment *core.VerifiedPayment) error {
	payload, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("failed to marshal payment record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.prefix+payment.TxHash.Hex(), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if !ok {
		return core.ErrAlreadyUsed
	}
	return nil
}
