package ports

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/garuda/core"
)

// SigningNetwork is the remote custodial signing service. Key material never
// leaves the network; callers submit digests and receive raw signatures.
type SigningNetwork interface {
	// RequestSignature asks the network to sign a 32-byte digest for the
	// account. The session credential must be valid; the capacity token
	// authorizes the request against the network's rate limits.
	RequestSignature(ctx context.Context, session *core.SessionCredential, account common.Address, digest []byte) ([]byte, error)

	// IssueSession exchanges a validated identity token for an ephemeral
	// session scoped to one account.
	IssueSession(ctx context.Context, identityToken string, account common.Address, duration time.Duration) (*core.SessionCredential, error)

	// PermittedControllers returns the subject IDs allowed to control the
	// account, per the network's permission registry.
	PermittedControllers(ctx context.Context, account common.Address) ([]string, error)
}

// CapacityMinter mints fresh capacity credentials for signing-network
// requests. Minting is idempotent, so a concurrent double-refresh is benign.
type CapacityMinter interface {
	MintCapacityCredential(ctx context.Context) (core.CapacityCredential, error)
}
