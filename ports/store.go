package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/garuda/core"
)

// ReplayGuard enforces "payment transaction hash used at most once" across
// the whole system.
type ReplayGuard interface {
	// Exists reports whether an accepted payment already exists for the hash.
	Exists(ctx context.Context, txHash common.Hash) (bool, error)

	// Record stores an accepted payment under its transaction hash. The
	// write is unique-constrained: if the hash is already recorded, Record
	// returns core.ErrAlreadyUsed, so concurrent verifications of the same
	// hash cannot both succeed.
	Record(ctx context.Context, payment *core.VerifiedPayment) error
}
