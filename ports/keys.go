package ports

// IdentityKeySet resolves identity-issuer verification keys by key ID, the
// way a JWKS endpoint does. The returned key must be usable by the JWT
// library for the token's signing method.
type IdentityKeySet interface {
	Key(kid string) (interface{}, error)
}
