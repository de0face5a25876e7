package core

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AuthorizationValidity is the fixed validBefore-validAfter window of a
// transfer authorization.
const AuthorizationValidity = 20 * time.Minute

// TransferAuthorization is a signed, gas-less token transfer capability
// (EIP-3009). Any relayer may submit it; the token contract enforces
// single use of the nonce per signer.
type TransferAuthorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int // smallest token unit
	ValidAfter  *big.Int // unix seconds
	ValidBefore *big.Int // unix seconds
	Nonce       [32]byte // random, not sequential
	Signature   []byte   // 65 bytes, r||s||v with v in {27,28}
}

// SignedAuthorization is an EIP-7702 set-code authorization signed by the
// account, with the recovery parity kept explicit.
type SignedAuthorization struct {
	ChainID *big.Int
	Address common.Address
	Nonce   uint64
	R       *big.Int
	S       *big.Int
	YParity uint8
}

// PaymentStatus classifies the outcome of a payment verification.
type PaymentStatus string

const (
	PaymentAccepted PaymentStatus = "accepted"
	PaymentRejected PaymentStatus = "rejected"
)

// TransferKind identifies which calldata shape a payment decoded as.
type TransferKind string

const (
	TransferAuthorized TransferKind = "transfer_with_authorization"
	TransferERC20      TransferKind = "erc20_transfer"
	TransferNative     TransferKind = "native"
)

// VerifiedPayment records an on-chain payment that passed verification.
// At most one accepted VerifiedPayment may ever exist per transaction hash;
// the replay guard store enforces this with a unique write.
type VerifiedPayment struct {
	TxHash      common.Hash
	From        common.Address // true payer, not necessarily the on-chain sender
	To          common.Address
	Amount      *big.Int
	Kind        TransferKind
	Status      PaymentStatus
	BlockNumber uint64
	VerifiedAt  time.Time
}

// RelayReceipt describes the outcome of a relayed transaction, including the
// best-effort revert diagnosis when the transaction failed.
type RelayReceipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Succeeded   bool
	Reason      string // "ok" on success, diagnosis or "unknown" on failure
}
