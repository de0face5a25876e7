package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/internal/eth"
	"github.com/layer-3/garuda/ports"
)

// AuthorizationBuilder produces signed, gas-less transfer capabilities
// (EIP-3009) that any relayer can submit.
type AuthorizationBuilder struct {
	account *Account
	chain   ports.ChainClient
	now     func() time.Time
}

// NewAuthorizationBuilder creates a builder for the given account.
func NewAuthorizationBuilder(account *Account, chain ports.ChainClient) *AuthorizationBuilder {
	return &AuthorizationBuilder{
		account: account,
		chain:   chain,
		now:     time.Now,
	}
}

// GenerateAuthorizationNonce draws 32 random bytes from a cryptographically
// secure source. Nonces are not sequential; the token contract tracks the
// per-signer used set, so a collision is rejected on chain.
func GenerateAuthorizationNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// Build constructs a transfer authorization of value from the account to
// the recipient, valid from now until now plus the fixed window. The EIP-712
// domain uses the token contract's own name and version; failing to read
// them is fatal because a guessed domain silently produces a non-recovering
// signature.
func (b *AuthorizationBuilder) Build(ctx context.Context, session *core.SessionCredential, token, to common.Address, value *big.Int) (*core.TransferAuthorization, error) {
	name, version, err := b.chain.TokenMeta(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTokenMetadata, err)
	}

	chainID, err := b.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	nonce, err := GenerateAuthorizationNonce()
	if err != nil {
		return nil, err
	}

	from := b.account.Address()
	now := b.now()
	validAfter := big.NewInt(now.Unix())
	validBefore := big.NewInt(now.Add(core.AuthorizationValidity).Unix())

	typedData := eth.TransferWithAuthorizationTypedData(
		name, version, chainID, token,
		from, to, value, validAfter, validBefore, nonce,
	)

	signature, err := b.account.SignTypedData(ctx, session, typedData)
	if err != nil {
		return nil, err
	}

	// The account already self-verified, but re-check against the exact
	// digest the relayed contract call will verify.
	digest, err := eth.HashTypedData(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	recovered, err := eth.RecoverAddress(digest, signature)
	if err != nil || recovered != from {
		return nil, core.ErrSignatureIntegrity
	}

	return &core.TransferAuthorization{
		From:        from,
		To:          to,
		Value:       value,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       nonce,
		Signature:   signature,
	}, nil
}
