package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/internal/eth"
)

var (
	builderToken     = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	builderRecipient = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func newBuilderFixture() (*AuthorizationBuilder, *Account, *stubChain) {
	network := &stubNetwork{key: mustTestKey(anvilKey)}
	identity := core.Account{Address: common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")}
	account := NewAccount(identity, network, zerolog.Nop())

	chain := &stubChain{
		tokenMeta: func(ctx context.Context, token common.Address) (string, string, error) {
			return "USD Coin", "2", nil
		},
		chainID: func(ctx context.Context) (*big.Int, error) {
			return big.NewInt(8453), nil
		},
	}
	return NewAuthorizationBuilder(account, chain), account, chain
}

func TestGenerateAuthorizationNonceUnique(t *testing.T) {
	seen := make(map[[32]byte]struct{}, 10_000)
	for i := 0; i < 10_000; i++ {
		nonce, err := GenerateAuthorizationNonce()
		require.NoError(t, err)
		_, dup := seen[nonce]
		require.False(t, dup, "nonce collision after %d draws", i)
		seen[nonce] = struct{}{}
	}
}

func TestBuildAuthorizationWindow(t *testing.T) {
	builder, account, _ := newBuilderFixture()

	fixed := time.Unix(1_750_000_000, 0)
	builder.now = func() time.Time { return fixed }

	session := validSession(account.Address(), core.ScopeSignAnything)
	auth, err := builder.Build(context.Background(), session, builderToken, builderRecipient, big.NewInt(1_000_000))
	require.NoError(t, err)

	assert.Equal(t, fixed.Unix(), auth.ValidAfter.Int64())
	assert.Equal(t, fixed.Add(core.AuthorizationValidity).Unix(), auth.ValidBefore.Int64())
	// The validity window is fixed at 20 minutes.
	window := new(big.Int).Sub(auth.ValidBefore, auth.ValidAfter)
	assert.Equal(t, int64(1200), window.Int64())
	assert.Equal(t, account.Address(), auth.From)
	assert.Equal(t, builderRecipient, auth.To)
}

func TestBuildAuthorizationSignatureRecovers(t *testing.T) {
	builder, account, _ := newBuilderFixture()
	session := validSession(account.Address(), core.ScopeSignAnything)

	value := big.NewInt(250_000)
	auth, err := builder.Build(context.Background(), session, builderToken, builderRecipient, value)
	require.NoError(t, err)
	require.Len(t, auth.Signature, eth.SignatureLength)

	typed := eth.TransferWithAuthorizationTypedData(
		"USD Coin", "2", big.NewInt(8453), builderToken,
		auth.From, auth.To, auth.Value, auth.ValidAfter, auth.ValidBefore, auth.Nonce,
	)
	digest, err := eth.HashTypedData(typed)
	require.NoError(t, err)

	recovered, err := eth.RecoverAddress(digest, auth.Signature)
	require.NoError(t, err)
	assert.Equal(t, account.Address(), recovered)
}

func TestBuildAuthorizationNoncesDiffer(t *testing.T) {
	builder, account, _ := newBuilderFixture()
	session := validSession(account.Address(), core.ScopeSignAnything)

	first, err := builder.Build(context.Background(), session, builderToken, builderRecipient, big.NewInt(1))
	require.NoError(t, err)
	second, err := builder.Build(context.Background(), session, builderToken, builderRecipient, big.NewInt(1))
	require.NoError(t, err)

	assert.NotEqual(t, first.Nonce, second.Nonce)
}

func TestBuildAuthorizationTokenMetaFailureIsFatal(t *testing.T) {
	builder, account, chain := newBuilderFixture()
	chain.tokenMeta = func(ctx context.Context, token common.Address) (string, string, error) {
		return "", "", assert.AnError
	}

	session := validSession(account.Address(), core.ScopeSignAnything)
	_, err := builder.Build(context.Background(), session, builderToken, builderRecipient, big.NewInt(1))
	assert.ErrorIs(t, err, core.ErrTokenMetadata)
}

func TestBuildAuthorizationRequiresSession(t *testing.T) {
	builder, _, _ := newBuilderFixture()

	_, err := builder.Build(context.Background(), nil, builderToken, builderRecipient, big.NewInt(1))
	assert.ErrorIs(t, err, core.ErrSessionExpired)
}
