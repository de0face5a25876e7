package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// SessionIssuer converts an opaque identity token into a time-boxed signing
// capability. Each issuance is a fresh signing-network round trip; sessions
// are never cached or shared across users.
type SessionIssuer struct {
	network  ports.SigningNetwork
	keys     ports.IdentityKeySet
	issuer   string
	audience string // empty disables the audience check

	maxSessionDuration time.Duration
	maxTokenAge        time.Duration
	clockSkew          time.Duration

	logger zerolog.Logger
	now    func() time.Time
}

// NewSessionIssuer creates a session issuer that accepts tokens from the
// given issuer, verified against keys, and optionally bound to audience.
func NewSessionIssuer(network ports.SigningNetwork, keys ports.IdentityKeySet, issuer, audience string, logger zerolog.Logger) *SessionIssuer {
	return &SessionIssuer{
		network:            network,
		keys:               keys,
		issuer:             issuer,
		audience:           audience,
		maxSessionDuration: core.DefaultMaxSessionDuration,
		maxTokenAge:        core.MaxIdentityTokenAge,
		clockSkew:          core.ClockSkewAllowance,
		logger:             logger.With().Str("component", "session_issuer").Logger(),
		now:                time.Now,
	}
}

// Issue validates the identity token and, if the subject controls the
// account, requests an ephemeral session from the signing network. The
// session expires at min(requestedDuration, maxSessionDuration).
func (i *SessionIssuer) Issue(ctx context.Context, identityToken string, account core.Account, scope core.SessionScope, requestedDuration time.Duration) (*core.SessionCredential, error) {
	claims, err := i.validateToken(identityToken)
	if err != nil {
		return nil, err
	}

	if err := i.checkController(ctx, claims.Subject, account); err != nil {
		return nil, err
	}

	duration := requestedDuration
	if duration <= 0 || duration > i.maxSessionDuration {
		duration = i.maxSessionDuration
	}

	session, err := i.network.IssueSession(ctx, identityToken, account.Address, duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSigningNetwork, err)
	}
	session.Scope = scope

	return session, nil
}

// validateToken runs the ordered validation sequence: structure, signature,
// then claims. It short-circuits on the first failure.
func (i *SessionIssuer) validateToken(identityToken string) (*jwt.RegisteredClaims, error) {
	if parts := strings.Split(identityToken, "."); len(parts) != 3 {
		return nil, core.ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(identityToken, claims, i.keyFunc)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	now := i.now()

	if claims.Issuer != i.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", core.ErrInvalidToken)
	}
	if i.audience != "" && !containsAudience(claims.Audience, i.audience) {
		return nil, fmt.Errorf("%w: audience not accepted", core.ErrInvalidToken)
	}
	if claims.ExpiresAt == nil || now.After(claims.ExpiresAt.Time) {
		return nil, core.ErrTokenExpired
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing issued-at claim", core.ErrInvalidToken)
	}
	if now.Add(i.clockSkew).Before(claims.IssuedAt.Time) {
		return nil, fmt.Errorf("%w: issued in the future", core.ErrInvalidToken)
	}
	// Stale tokens are rejected even before their expiry to bound the blast
	// radius of a leaked token.
	if now.Sub(claims.IssuedAt.Time) > i.maxTokenAge {
		return nil, core.ErrTokenStale
	}

	return claims, nil
}

// keyFunc resolves the verification key by the token's key ID.
func (i *SessionIssuer) keyFunc(token *jwt.Token) (interface{}, error) {
	// Validate the signing method
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token has no key id")
	}
	return i.keys.Key(kid)
}

// checkController verifies the subject against the signing network's
// permission registry for the account.
func (i *SessionIssuer) checkController(ctx context.Context, subject string, account core.Account) error {
	controllers, err := i.network.PermittedControllers(ctx, account.Address)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSigningNetwork, err)
	}
	for _, c := range controllers {
		if c == subject {
			return nil
		}
	}
	i.logger.Warn().Str("subject", subject).Str("account", account.Address.Hex()).Msg("subject is not a permitted controller")
	return core.ErrNotAuthorized
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
