package core

import "errors"

// Credential errors are terminal and never retried automatically.
var (
	// ErrInvalidToken is returned when an identity token is malformed or
	// fails signature verification.
	ErrInvalidToken = errors.New("invalid identity token")

	// ErrTokenExpired is returned when an identity token's expiry has passed.
	ErrTokenExpired = errors.New("identity token has expired")

	// ErrTokenStale is returned when an identity token was issued too long
	// ago, even if its expiry has not passed.
	ErrTokenStale = errors.New("identity token is too old")

	// ErrNotAuthorized is returned when the token subject is not a permitted
	// controller of the target account.
	ErrNotAuthorized = errors.New("subject is not authorized for this account")

	// ErrSessionExpired is returned when a signing operation is attempted
	// with a missing or expired session credential.
	ErrSessionExpired = errors.New("session credential is missing or expired")
)

// Signing errors.
var (
	// ErrSigningNetwork is returned when the signing network request fails.
	// Retryable by the caller with a fresh session.
	ErrSigningNetwork = errors.New("signing network request failed")

	// ErrSignatureIntegrity is returned when a signature returned by the
	// signing network does not recover to the account address. Internal
	// fault, never a caller input error.
	ErrSignatureIntegrity = errors.New("signature does not recover to account address")
)

// Submission errors.
var (
	// ErrInsufficientFunds is returned when the payer balance cannot cover
	// the requested amount, checked before any gas is spent.
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")

	// ErrNonceConflict is returned when a transaction is rejected for nonce
	// reuse. Retryable with a freshly read nonce; never retried blindly.
	ErrNonceConflict = errors.New("transaction nonce conflict")

	// ErrTokenMetadata is returned when the token contract's name or version
	// cannot be read. Fatal for authorization building.
	ErrTokenMetadata = errors.New("failed to read token contract metadata")

	// ErrTransactionReverted is returned when a relayed transaction mined
	// but failed. The wrapping error carries the diagnosed reason.
	ErrTransactionReverted = errors.New("transaction reverted")
)

// Verification errors are terminal rejections.
var (
	// ErrAlreadyUsed is returned when a payment transaction hash has already
	// satisfied a verification.
	ErrAlreadyUsed = errors.New("payment transaction already used")

	// ErrNotConfirmed is returned when the transaction is missing or not yet
	// mined.
	ErrNotConfirmed = errors.New("transaction not found or not confirmed")

	// ErrTransactionFailed is returned when the paying transaction reverted.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrNoTransferDetected is returned when no supported transfer shape
	// could be decoded from the transaction.
	ErrNoTransferDetected = errors.New("no token or native transfer detected")

	// ErrPayerMismatch is returned when the decoded payer does not match
	// the expected payer.
	ErrPayerMismatch = errors.New("payer does not match expected sender")

	// ErrRecipientMismatch is returned when the decoded recipient does not
	// match the expected recipient.
	ErrRecipientMismatch = errors.New("recipient does not match expected recipient")

	// ErrAmountMismatch is returned when the decoded amount is outside the
	// accepted tolerance of the expected amount.
	ErrAmountMismatch = errors.New("amount outside accepted tolerance")
)
