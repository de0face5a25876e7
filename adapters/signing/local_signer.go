package signing

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// LocalSigner is a deterministic in-process signing backend for tests and
// development. It behaves like the signing network but holds the key
// locally, which production code never does.
type LocalSigner struct {
	key         *ecdsa.PrivateKey
	address     common.Address
	controllers []string
}

var (
	_ ports.SigningNetwork = (*LocalSigner)(nil)
	_ ports.CapacityMinter = (*LocalSigner)(nil)
)

// NewLocalSigner creates a local signing backend around an in-memory key.
func NewLocalSigner(key *ecdsa.PrivateKey, controllers []string) *LocalSigner {
	return &LocalSigner{
		key:         key,
		address:     crypto.PubkeyToAddress(key.PublicKey),
		controllers: controllers,
	}
}

// Account returns the identity backed by the local key.
func (l *LocalSigner) Account() core.Account {
	return core.Account{
		Address:   l.address,
		PublicKey: crypto.FromECDSAPub(&l.key.PublicKey),
	}
}

// RequestSignature signs the digest with the local key. The raw signature
// uses a parity (0/1) recovery indicator, like the network's output.
func (l *LocalSigner) RequestSignature(ctx context.Context, session *core.SessionCredential, account common.Address, digest []byte) ([]byte, error) {
	if session == nil || session.Token == "" {
		return nil, fmt.Errorf("missing session credential")
	}
	if account != l.address {
		return nil, fmt.Errorf("unknown account %s", account.Hex())
	}
	return crypto.Sign(digest, l.key)
}

// IssueSession grants a session without external validation; the issuer
// service performs identity checks before calling this.
func (l *LocalSigner) IssueSession(ctx context.Context, identityToken string, account common.Address, duration time.Duration) (*core.SessionCredential, error) {
	now := time.Now()
	return &core.SessionCredential{
		Subject:   account,
		Token:     uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(duration),
	}, nil
}

// PermittedControllers returns the configured controller list.
func (l *LocalSigner) PermittedControllers(ctx context.Context, account common.Address) ([]string, error) {
	return l.controllers, nil
}

// MintCapacityCredential returns a short-lived synthetic credential.
func (l *LocalSigner) MintCapacityCredential(ctx context.Context) (core.CapacityCredential, error) {
	return core.CapacityCredential{
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}
