package core

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SessionScope limits what a session credential may be used to sign.
type SessionScope string

const (
	// ScopeSignAnything permits any digest to be signed.
	ScopeSignAnything SessionScope = "sign-anything"

	// ScopePersonalSign permits only personal-message digests.
	ScopePersonalSign SessionScope = "personal-sign"
)

const (
	// DefaultMaxSessionDuration caps the lifetime of a session credential.
	DefaultMaxSessionDuration = 10 * time.Minute

	// MaxIdentityTokenAge bounds how old an identity token may be,
	// independent of its expiry claim.
	MaxIdentityTokenAge = time.Hour

	// ClockSkewAllowance tolerates small clock drift between the identity
	// issuer and this service when checking issued-at.
	ClockSkewAllowance = 60 * time.Second
)

// Account is the immutable identity of a custodial wallet. The private key
// exists only as shares on the remote signing network; local code holds the
// address and public key, never key material.
type Account struct {
	Address   common.Address // 20-byte account address
	PublicKey []byte         // uncompressed secp256k1 public key
}

// SessionCredential is a short-lived capability to request signatures for a
// single account. It is held in memory for one request chain and never
// persisted.
type SessionCredential struct {
	Subject   common.Address // the account the session is scoped to
	Token     string         // opaque credential presented to the signing network
	Scope     SessionScope
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Valid reports whether the credential can still authorize signing requests.
func (c *SessionCredential) Valid(now time.Time) bool {
	if c == nil || c.Token == "" {
		return false
	}
	return now.Before(c.ExpiresAt)
}

// CapacityCredential is a process-wide rate-limit credential attached to
// signing-network requests. It is cached and refreshed on expiry.
type CapacityCredential struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the credential needs a refresh. A zero credential
// is expired.
func (c CapacityCredential) Expired(now time.Time) bool {
	return c.Token == "" || !now.Before(c.ExpiresAt)
}
