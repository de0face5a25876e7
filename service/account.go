package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/rs/zerolog"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/internal/eth"
	"github.com/layer-3/garuda/ports"
)

// Account is the remote-signed account: the only component that requests
// raw signatures from the signing network. Every signing call requires a
// valid session credential and returns a canonical (low-s, v in 27/28)
// signature that has been self-verified to recover to the account address.
type Account struct {
	identity core.Account
	network  ports.SigningNetwork
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAccount creates a remote-signed account for an already-provisioned
// custodial wallet.
func NewAccount(identity core.Account, network ports.SigningNetwork, logger zerolog.Logger) *Account {
	return &Account{
		identity: identity,
		network:  network,
		logger:   logger.With().Str("component", "account").Str("address", identity.Address.Hex()).Logger(),
		now:      time.Now,
	}
}

// Address returns the account address. Pure, no I/O.
func (a *Account) Address() common.Address {
	return a.identity.Address
}

// PublicKey returns the account's uncompressed public key.
func (a *Account) PublicKey() []byte {
	return a.identity.PublicKey
}

// SignMessage signs a message per the personal-message scheme and returns
// the packed canonical signature.
func (a *Account) SignMessage(ctx context.Context, session *core.SessionCredential, message []byte) ([]byte, error) {
	if err := a.checkSession(session, core.ScopePersonalSign); err != nil {
		return nil, err
	}
	return a.sign(ctx, session, eth.PersonalMessageHash(message))
}

// SignTypedData hashes the typed data per EIP-712 and returns the packed
// canonical signature.
func (a *Account) SignTypedData(ctx context.Context, session *core.SessionCredential, typedData apitypes.TypedData) ([]byte, error) {
	if err := a.checkSession(session, core.ScopeSignAnything); err != nil {
		return nil, err
	}

	digest, err := eth.HashTypedData(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return a.sign(ctx, session, digest)
}

// SignTransactionHash signs a raw transaction hash. Used when the account
// pays its own gas; rare outside diagnostic flows.
func (a *Account) SignTransactionHash(ctx context.Context, session *core.SessionCredential, hash common.Hash) ([]byte, error) {
	if err := a.checkSession(session, core.ScopeSignAnything); err != nil {
		return nil, err
	}
	return a.sign(ctx, session, hash)
}

// SignAuthorization signs an EIP-7702 set-code authorization and returns it
// with the recovery parity explicit.
func (a *Account) SignAuthorization(ctx context.Context, session *core.SessionCredential, chainID *big.Int, address common.Address, nonce uint64) (*core.SignedAuthorization, error) {
	if err := a.checkSession(session, core.ScopeSignAnything); err != nil {
		return nil, err
	}

	digest, err := eth.AuthorizationDigest(chainID, address, nonce)
	if err != nil {
		return nil, err
	}

	sig, err := a.sign(ctx, session, digest)
	if err != nil {
		return nil, err
	}

	r, s, v, err := eth.UnpackSignature(sig)
	if err != nil {
		return nil, err
	}
	return &core.SignedAuthorization{
		ChainID: chainID,
		Address: address,
		Nonce:   nonce,
		R:       r,
		S:       s,
		YParity: v - 27,
	}, nil
}

// checkSession rejects missing, expired or mis-scoped credentials. Callers
// must re-issue a session on failure, never retry with a stale one.
func (a *Account) checkSession(session *core.SessionCredential, required core.SessionScope) error {
	if !session.Valid(a.now()) {
		return core.ErrSessionExpired
	}
	if session.Subject != a.identity.Address {
		return core.ErrNotAuthorized
	}
	if session.Scope != core.ScopeSignAnything && session.Scope != required {
		return core.ErrNotAuthorized
	}
	return nil
}

// sign requests a raw signature over the digest, normalizes it, and
// self-verifies recovery before handing it back. A recovery mismatch is an
// internal integrity fault, never a caller input error.
func (a *Account) sign(ctx context.Context, session *core.SessionCredential, digest common.Hash) ([]byte, error) {
	raw, err := a.network.RequestSignature(ctx, session, a.identity.Address, digest.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSigningNetwork, err)
	}

	sig, err := eth.NormalizeSignature(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSignatureIntegrity, err)
	}

	recovered, err := eth.RecoverAddress(digest, sig)
	if err != nil {
		a.logger.Error().Err(err).Hex("digest", digest.Bytes()).Msg("signature recovery failed")
		return nil, fmt.Errorf("%w: %v", core.ErrSignatureIntegrity, err)
	}
	if recovered != a.identity.Address {
		a.logger.Error().
			Str("recovered", recovered.Hex()).
			Hex("digest", digest.Bytes()).
			Msg("signature recovered to wrong address, possible codec or hash mismatch")
		return nil, core.ErrSignatureIntegrity
	}

	return sig, nil
}
