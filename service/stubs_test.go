package service

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/garuda/core"
)

// anvilKey is the well-known first Foundry/Anvil development key.
const anvilKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func mustTestKey(hexkey string) *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(hexkey)
	if err != nil {
		panic(err)
	}
	return key
}

// stubNetwork is a signing-network double backed by a local key. It returns
// raw parity-form signatures like the real network. When tamperKey is set,
// signatures come from the wrong key so recovery checks must trip.
type stubNetwork struct {
	key       *ecdsa.PrivateKey
	tamperKey *ecdsa.PrivateKey

	signErr        error
	issueErr       error
	controllers    []string
	controllersErr error

	issuedDurations []time.Duration
	signCalls       int
}

func (n *stubNetwork) RequestSignature(ctx context.Context, session *core.SessionCredential, account common.Address, digest []byte) ([]byte, error) {
	n.signCalls++
	if n.signErr != nil {
		return nil, n.signErr
	}
	key := n.key
	if n.tamperKey != nil {
		key = n.tamperKey
	}
	return crypto.Sign(digest, key)
}

func (n *stubNetwork) IssueSession(ctx context.Context, identityToken string, account common.Address, duration time.Duration) (*core.SessionCredential, error) {
	if n.issueErr != nil {
		return nil, n.issueErr
	}
	n.issuedDurations = append(n.issuedDurations, duration)
	now := time.Now()
	return &core.SessionCredential{
		Subject:   account,
		Token:     "session-token",
		IssuedAt:  now,
		ExpiresAt: now.Add(duration),
	}, nil
}

func (n *stubNetwork) PermittedControllers(ctx context.Context, account common.Address) ([]string, error) {
	if n.controllersErr != nil {
		return nil, n.controllersErr
	}
	return n.controllers, nil
}

// stubChain implements ports.ChainClient with per-method hooks. Unset hooks
// fail loudly so tests only exercise the calls they configure.
type stubChain struct {
	chainID            func(ctx context.Context) (*big.Int, error)
	transactionByHash  func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	transactionReceipt func(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	transactionSender  func(ctx context.Context, tx *types.Transaction, block common.Hash, index uint) (common.Address, error)
	suggestGasPrice    func(ctx context.Context) (*big.Int, error)
	estimateGas        func(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	pendingNonceAt     func(ctx context.Context, account common.Address) (uint64, error)
	sendTransaction    func(ctx context.Context, tx *types.Transaction) error
	callContract       func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	tokenMeta          func(ctx context.Context, token common.Address) (string, string, error)
	tokenBalance       func(ctx context.Context, token, account common.Address) (*big.Int, error)
}

func (c *stubChain) ChainID(ctx context.Context) (*big.Int, error) {
	if c.chainID == nil {
		return nil, fmt.Errorf("ChainID not stubbed")
	}
	return c.chainID(ctx)
}

func (c *stubChain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if c.transactionByHash == nil {
		return nil, false, fmt.Errorf("TransactionByHash not stubbed")
	}
	return c.transactionByHash(ctx, hash)
}

func (c *stubChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.transactionReceipt == nil {
		return nil, fmt.Errorf("TransactionReceipt not stubbed")
	}
	return c.transactionReceipt(ctx, hash)
}

func (c *stubChain) TransactionSender(ctx context.Context, tx *types.Transaction, block common.Hash, index uint) (common.Address, error) {
	if c.transactionSender == nil {
		return common.Address{}, fmt.Errorf("TransactionSender not stubbed")
	}
	return c.transactionSender(ctx, tx, block, index)
}

func (c *stubChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if c.suggestGasPrice == nil {
		return nil, fmt.Errorf("SuggestGasPrice not stubbed")
	}
	return c.suggestGasPrice(ctx)
}

func (c *stubChain) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if c.estimateGas == nil {
		return 0, fmt.Errorf("EstimateGas not stubbed")
	}
	return c.estimateGas(ctx, call)
}

func (c *stubChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if c.pendingNonceAt == nil {
		return 0, fmt.Errorf("PendingNonceAt not stubbed")
	}
	return c.pendingNonceAt(ctx, account)
}

func (c *stubChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if c.sendTransaction == nil {
		return fmt.Errorf("SendTransaction not stubbed")
	}
	return c.sendTransaction(ctx, tx)
}

func (c *stubChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if c.callContract == nil {
		return nil, fmt.Errorf("CallContract not stubbed")
	}
	return c.callContract(ctx, call, blockNumber)
}

func (c *stubChain) TokenMeta(ctx context.Context, token common.Address) (string, string, error) {
	if c.tokenMeta == nil {
		return "", "", fmt.Errorf("TokenMeta not stubbed")
	}
	return c.tokenMeta(ctx, token)
}

func (c *stubChain) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if c.tokenBalance == nil {
		return nil, fmt.Errorf("TokenBalance not stubbed")
	}
	return c.tokenBalance(ctx, token, account)
}

// validSession builds a session credential that passes all account checks.
func validSession(subject common.Address, scope core.SessionScope) *core.SessionCredential {
	now := time.Now()
	return &core.SessionCredential{
		Subject:   subject,
		Token:     "session-token",
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
}
