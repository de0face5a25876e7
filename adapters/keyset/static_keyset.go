package keyset

import (
	"fmt"
	"sync"

	"github.com/layer-3/garuda/ports"
)

// StaticKeySet resolves identity-issuer verification keys from a fixed map,
// the in-process equivalent of a JWKS document.
type StaticKeySet struct {
	mu   sync.RWMutex
	keys map[string]interface{}
}

var _ ports.IdentityKeySet = (*StaticKeySet)(nil)

// NewStaticKeySet creates a key set from kid to verification key.
func NewStaticKeySet(keys map[string]interface{}) *StaticKeySet {
	copied := make(map[string]interface{}, len(keys))
	for kid, key := range keys {
		copied[kid] = key
	}
	return &StaticKeySet{keys: copied}
}

// Key returns the verification key for the key ID.
func (s *StaticKeySet) Key(kid string) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

// Add registers or replaces a key, supporting issuer key rotation.
func (s *StaticKeySet) Add(kid string, key interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[kid] = key
}
