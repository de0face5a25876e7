package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/garuda/core"
)

// WalletService is the facade the protocol layer calls into. It chains the
// session issuer, the remote-signed account, the authorization builder and
// the relayer for payments, and delegates verification.
type WalletService struct {
	account  *Account
	issuer   *SessionIssuer
	builder  *AuthorizationBuilder
	relayer  *Relayer
	verifier *Verifier
}

// NewWalletService wires the facade from its parts.
func NewWalletService(account *Account, issuer *SessionIssuer, builder *AuthorizationBuilder, relayer *Relayer, verifier *Verifier) *WalletService {
	return &WalletService{
		account:  account,
		issuer:   issuer,
		builder:  builder,
		relayer:  relayer,
		verifier: verifier,
	}
}

// Account returns the immutable identity of the custodial wallet. Account
// provisioning happens externally; this service only consumes the result.
func (s *WalletService) Account() core.Account {
	return core.Account{
		Address:   s.account.Address(),
		PublicKey: s.account.PublicKey(),
	}
}

// SignMessage issues a personal-sign scoped session for the identity token
// and signs the message with the remote account.
func (s *WalletService) SignMessage(ctx context.Context, identityToken string, message []byte) ([]byte, error) {
	session, err := s.issuer.Issue(ctx, identityToken, s.Account(), core.ScopePersonalSign, 0)
	if err != nil {
		return nil, err
	}
	return s.account.SignMessage(ctx, session, message)
}

// PayWithAuthorization builds a gas-less transfer authorization for amount
// of the given token to the recipient and relays it with the fee-paying
// account as sender.
func (s *WalletService) PayWithAuthorization(ctx context.Context, identityToken string, token, to common.Address, amount *big.Int) (*core.RelayReceipt, error) {
	session, err := s.issuer.Issue(ctx, identityToken, s.Account(), core.ScopeSignAnything, 0)
	if err != nil {
		return nil, err
	}

	auth, err := s.builder.Build(ctx, session, token, to, amount)
	if err != nil {
		return nil, err
	}

	return s.relayer.RelayAuthorization(ctx, token, auth)
}

// VerifyPayment checks a settled transaction against the expected payment
// parameters.
func (s *WalletService) VerifyPayment(ctx context.Context, params VerifyParams) (*core.VerifiedPayment, error) {
	return s.verifier.VerifyPayment(ctx, params)
}
