package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/internal/eth"
	"github.com/layer-3/garuda/ports"
)

// amountToleranceDivisor sets the accepted deviation between the expected
// and decoded amount to 0.1% in either direction, absorbing rounding from
// upstream fee calculations.
const amountToleranceDivisor = 1000

// VerifyParams are the expected parameters a settled payment is checked
// against. ExpectedRecipient is optional.
type VerifyParams struct {
	TxHash            common.Hash
	ExpectedAmount    *big.Int
	ExpectedPayer     common.Address
	ExpectedRecipient *common.Address
}

// Verifier decides whether a settled transaction is a valid payment of a
// given amount from a given payer, usable at most once system-wide.
type Verifier struct {
	chain  ports.ChainClient
	guard  ports.ReplayGuard
	events ports.EventPublisher // optional
	logger zerolog.Logger
	now    func() time.Time
}

// NewVerifier creates a payment verifier. events may be nil.
func NewVerifier(chain ports.ChainClient, guard ports.ReplayGuard, events ports.EventPublisher, logger zerolog.Logger) *Verifier {
	return &Verifier{
		chain:  chain,
		guard:  guard,
		events: events,
		logger: logger.With().Str("component", "verifier").Logger(),
		now:    time.Now,
	}
}

// VerifyPayment runs the verification sequence: replay check, receipt
// fetch, status check, transfer decode, party comparison, amount
// comparison. On rejection after decoding, the returned payment carries the
// decoded payer, recipient and amount for dispute resolution.
func (v *Verifier) VerifyPayment(ctx context.Context, params VerifyParams) (*core.VerifiedPayment, error) {
	// Replay is checked before any chain I/O to fail cheaply.
	used, err := v.guard.Exists(ctx, params.TxHash)
	if err != nil {
		return nil, fmt.Errorf("replay check failed: %w", err)
	}
	if used {
		return nil, core.ErrAlreadyUsed
	}

	receipt, err := v.chain.TransactionReceipt(ctx, params.TxHash)
	if err != nil || receipt == nil || receipt.BlockNumber == nil {
		return nil, core.ErrNotConfirmed
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, core.ErrTransactionFailed
	}

	tx, pending, err := v.chain.TransactionByHash(ctx, params.TxHash)
	if err != nil || tx == nil || pending {
		return nil, core.ErrNotConfirmed
	}

	decoded, err := v.decodeTransfer(ctx, tx, receipt)
	if err != nil {
		return nil, err
	}

	payment := &core.VerifiedPayment{
		TxHash:      params.TxHash,
		From:        decoded.payer,
		To:          decoded.recipient,
		Amount:      decoded.amount,
		Kind:        decoded.kind,
		Status:      core.PaymentRejected,
		BlockNumber: receipt.BlockNumber.Uint64(),
		VerifiedAt:  v.now(),
	}

	if decoded.payer != params.ExpectedPayer {
		return payment, fmt.Errorf("%w: decoded payer %s, expected %s", core.ErrPayerMismatch, decoded.payer.Hex(), params.ExpectedPayer.Hex())
	}

	if params.ExpectedRecipient != nil && decoded.recipient != *params.ExpectedRecipient {
		if decoded.recipientConfident {
			return payment, fmt.Errorf("%w: decoded recipient %s, expected %s", core.ErrRecipientMismatch, decoded.recipient.Hex(), params.ExpectedRecipient.Hex())
		}
		// Ambiguous recipient (native value sent into a contract call) is a
		// policy leniency: warn instead of blocking a legitimate payment.
		v.logger.Warn().
			Str("tx", params.TxHash.Hex()).
			Str("decoded_recipient", decoded.recipient.Hex()).
			Str("expected_recipient", params.ExpectedRecipient.Hex()).
			Msg("recipient could not be determined with confidence, accepting payer and amount checks only")
	}

	if !withinTolerance(params.ExpectedAmount, decoded.amount) {
		return payment, fmt.Errorf("%w: decoded amount %s, expected %s", core.ErrAmountMismatch, decoded.amount, params.ExpectedAmount)
	}

	payment.Status = core.PaymentAccepted
	// The unique-constrained write guarantees concurrent verifications of
	// the same hash cannot both succeed.
	if err := v.guard.Record(ctx, payment); err != nil {
		return nil, err
	}

	if v.events != nil {
		if err := v.events.PublishPaymentVerified(ctx, payment); err != nil {
			// The payment is already recorded; event delivery is best effort.
			v.logger.Warn().Err(err).Str("tx", params.TxHash.Hex()).Msg("failed to publish payment event")
		}
	}

	return payment, nil
}

type decodedTransfer struct {
	payer              common.Address
	recipient          common.Address
	recipientConfident bool
	amount             *big.Int
	kind               core.TransferKind
}

// decodeTransfer tries the three supported payment shapes in order:
// authorization-style transfer (payer is the call's from argument, not the
// on-chain sender), plain token transfer, then native value transfer.
func (v *Verifier) decodeTransfer(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) (*decodedTransfer, error) {
	data := tx.Data()

	if call, ok := eth.DecodeTransferWithAuthorization(data); ok {
		return &decodedTransfer{
			payer:              call.From,
			recipient:          call.To,
			recipientConfident: true,
			amount:             call.Value,
			kind:               core.TransferAuthorized,
		}, nil
	}

	if to, value, ok := eth.DecodeTransfer(data); ok {
		sender, err := v.chain.TransactionSender(ctx, tx, receipt.BlockHash, receipt.TransactionIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve transaction sender: %w", err)
		}
		return &decodedTransfer{
			payer:              sender,
			recipient:          to,
			recipientConfident: true,
			amount:             value,
			kind:               core.TransferERC20,
		}, nil
	}

	if tx.Value() != nil && tx.Value().Sign() > 0 && tx.To() != nil {
		sender, err := v.chain.TransactionSender(ctx, tx, receipt.BlockHash, receipt.TransactionIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve transaction sender: %w", err)
		}
		return &decodedTransfer{
			payer:     sender,
			recipient: *tx.To(),
			// Value attached to a contract call may be forwarded elsewhere,
			// so the recipient is only trusted for bare transfers.
			recipientConfident: len(data) == 0,
			amount:             tx.Value(),
			kind:               core.TransferNative,
		}, nil
	}

	return nil, core.ErrNoTransferDetected
}

// withinTolerance reports whether got deviates from expected by at most
// expected/1000 in either direction.
func withinTolerance(expected, got *big.Int) bool {
	if expected == nil || got == nil {
		return false
	}
	want := decimal.NewFromBigInt(expected, 0)
	have := decimal.NewFromBigInt(got, 0)
	tolerance := want.Div(decimal.NewFromInt(amountToleranceDivisor))
	return have.Sub(want).Abs().LessThanOrEqual(tolerance)
}
