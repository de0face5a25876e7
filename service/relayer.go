package service

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/internal/eth"
	"github.com/layer-3/garuda/ports"
)

const (
	// DefaultGasLimit is the conservative fallback used when on-chain gas
	// estimation fails. Sized for token transfers with authorization checks.
	DefaultGasLimit = 300_000

	// Estimation is observed to undershoot actual usage, so successful
	// estimates are padded to 150%.
	gasSafetyNumerator   = 3
	gasSafetyDenominator = 2

	defaultReceiptPollInterval = 2 * time.Second
)

// Relayer broadcasts transactions that move value out of a remote-signed
// account while a separately-funded fee account pays gas.
type Relayer struct {
	chain        ports.ChainClient
	key          *ecdsa.PrivateKey
	address      common.Address
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewRelayer creates a relayer funded by the given fee-paying key.
func NewRelayer(chain ports.ChainClient, key *ecdsa.PrivateKey, logger zerolog.Logger) *Relayer {
	address := crypto.PubkeyToAddress(key.PublicKey)
	return &Relayer{
		chain:        chain,
		key:          key,
		address:      address,
		pollInterval: defaultReceiptPollInterval,
		logger:       logger.With().Str("component", "relayer").Str("address", address.Hex()).Logger(),
	}
}

// Address returns the fee-paying account address.
func (r *Relayer) Address() common.Address {
	return r.address
}

// RelayAuthorization submits transferWithAuthorization on the token
// contract with the relayer as msg.sender. The payer's token balance is
// checked before any gas is spent.
func (r *Relayer) RelayAuthorization(ctx context.Context, token common.Address, auth *core.TransferAuthorization) (*core.RelayReceipt, error) {
	balance, err := r.chain.TokenBalance(ctx, token, auth.From)
	if err != nil {
		return nil, fmt.Errorf("failed to read payer balance: %w", err)
	}
	if balance.Cmp(auth.Value) < 0 {
		return nil, fmt.Errorf("%w: balance %s below requested %s", core.ErrInsufficientFunds, balance, auth.Value)
	}

	calldata, err := eth.PackTransferWithAuthorization(auth.From, auth.To, auth.Value, auth.ValidAfter, auth.ValidBefore, auth.Nonce, auth.Signature)
	if err != nil {
		return nil, err
	}

	chainID, err := r.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	call := ethereum.CallMsg{From: r.address, To: &token, Data: calldata}
	gasLimit := r.gasLimit(ctx, call)

	gasPrice, err := r.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read gas price: %w", err)
	}

	// Read the freshest nonce immediately before signing; a lost race shows
	// up as a retryable nonce conflict on broadcast.
	nonce, err := r.chain.PendingNonceAt(ctx, r.address)
	if err != nil {
		return nil, fmt.Errorf("failed to read relayer nonce: %w", err)
	}

	tx := types.NewTransaction(nonce, token, new(big.Int), gasLimit, gasPrice, calldata)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), r.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign relay transaction: %w", err)
	}

	return r.submitAndWait(ctx, signed, call)
}

// RelayDirect builds and broadcasts an ordinary transaction signed by the
// remote-signed account itself, used when the account pays its own gas.
func (r *Relayer) RelayDirect(ctx context.Context, account *Account, session *core.SessionCredential, to common.Address, value *big.Int, data []byte) (*core.RelayReceipt, error) {
	chainID, err := r.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	gasPrice, err := r.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read gas price: %w", err)
	}

	call := ethereum.CallMsg{From: account.Address(), To: &to, Value: value, Data: data}
	gasLimit := r.gasLimit(ctx, call)

	nonce, err := r.chain.PendingNonceAt(ctx, account.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to read account nonce: %w", err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signer := types.LatestSignerForChainID(chainID)

	sig, err := account.SignTransactionHash(ctx, session, signer.Hash(tx))
	if err != nil {
		return nil, err
	}

	// types.Transaction wants the parity-form recovery indicator.
	parity := make([]byte, len(sig))
	copy(parity, sig)
	parity[64] -= 27

	signed, err := tx.WithSignature(signer, parity)
	if err != nil {
		return nil, fmt.Errorf("failed to attach signature: %w", err)
	}

	return r.submitAndWait(ctx, signed, call)
}

// gasLimit estimates gas with a safety margin, falling back to the fixed
// default rather than failing the call when estimation errors.
func (r *Relayer) gasLimit(ctx context.Context, call ethereum.CallMsg) uint64 {
	estimate, err := r.chain.EstimateGas(ctx, call)
	if err != nil {
		r.logger.Warn().Err(err).Msg("gas estimation failed, using default limit")
		return DefaultGasLimit
	}
	return estimate * gasSafetyNumerator / gasSafetyDenominator
}

// submitAndWait broadcasts the transaction, waits for it to mine, and
// diagnoses the revert when it failed. The returned error always carries
// the diagnosed reason, transaction hash and gas used.
func (r *Relayer) submitAndWait(ctx context.Context, tx *types.Transaction, call ethereum.CallMsg) (*core.RelayReceipt, error) {
	if err := r.chain.SendTransaction(ctx, tx); err != nil {
		if isNonceConflict(err) {
			return nil, fmt.Errorf("%w: %v", core.ErrNonceConflict, err)
		}
		return nil, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	receipt, err := r.waitMined(ctx, tx.Hash())
	if err != nil {
		// Unknown outcome: the transaction may still land. Callers must not
		// blindly retry a value-moving operation.
		return nil, err
	}

	result := &core.RelayReceipt{
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Succeeded:   receipt.Status == types.ReceiptStatusSuccessful,
		Reason:      "ok",
	}
	if !result.Succeeded {
		result.Reason = r.diagnoseRevert(ctx, call, receipt)
		r.logger.Error().Str("tx", result.TxHash.Hex()).Str("reason", result.Reason).Uint64("gas_used", result.GasUsed).Msg("relayed transaction reverted")
		return result, fmt.Errorf("%w: %s (tx %s, gas used %d)", core.ErrTransactionReverted, result.Reason, result.TxHash.Hex(), result.GasUsed)
	}

	return result, nil
}

func (r *Relayer) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := r.chain.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up waiting for receipt of %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// diagnoseRevert probes for a revert reason: replay the call at the mined
// block, then at the preceding block if the first replay unexpectedly
// succeeds (state change or nonce race), then pattern-match the error text.
// Best effort; it never fails the outer operation.
func (r *Relayer) diagnoseRevert(ctx context.Context, call ethereum.CallMsg, receipt *types.Receipt) string {
	if _, err := r.chain.CallContract(ctx, call, receipt.BlockNumber); err != nil {
		return classifyRevert(err.Error())
	}

	if receipt.BlockNumber != nil && receipt.BlockNumber.Sign() > 0 {
		previous := new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
		if _, err := r.chain.CallContract(ctx, call, previous); err != nil {
			return classifyRevert(err.Error())
		}
	}

	return "unknown"
}

func classifyRevert(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "transfer amount exceeds balance"),
		strings.Contains(lower, "insufficient"):
		return "insufficient balance"
	case strings.Contains(lower, "invalid signature"):
		return "invalid authorization signature"
	case strings.Contains(lower, "authorization is used"),
		strings.Contains(lower, "nonce"):
		return "authorization or nonce already used"
	case strings.Contains(lower, "not yet valid"):
		return "authorization not yet valid"
	case strings.Contains(lower, "expired"):
		return "authorization validity window expired"
	case strings.TrimSpace(text) == "":
		return "unknown"
	default:
		return text
	}
}

func isNonceConflict(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "nonce too low") ||
		strings.Contains(text, "already known") ||
		strings.Contains(text, "replacement transaction underpriced")
}
