package jwtx

import (
	"errors"
	"sync"
)

var ErrNoActiveKey = errors.New("jwtx: no active signing key")

// KeyRing holds the one active signer plus any retired keys that must keep
// verifying outstanding tokens. It owns the KeySet served as JWKS.
type KeyRing struct {
	mu     sync.RWMutex
	active *Signer
	keys   *KeySet
}

func NewKeyRing() *KeyRing {
	return &KeyRing{keys: NewKeySet()}
}

// NewEphemeralKeyRing is an in-memory ring with a freshly generated EdDSA key.
func NewEphemeralKeyRing(kid string) (*KeyRing, error) {
	s, _, err := GenerateSigner(AlgorithmEdDSA, kid, 0)
	if err != nil {
		return nil, err
	}
	r := NewKeyRing()
	if err := r.Activate(s); err != nil {
		return nil, err
	}
	return r, nil
}

// Activate makes s the signing key. The previous active key stays in the
// KeySet for verification.
func (r *KeyRing) Activate(s *Signer) error {
	jwk, err := s.PublicJWK()
	if err != nil {
		return err
	}
	if err := r.keys.Add(jwk); err != nil {
		return err
	}

	r.mu.Lock()
	r.active = s
	r.mu.Unlock()
	return nil
}

// AddVerificationKey publishes a key that is no longer used for signing.
func (r *KeyRing) AddVerificationKey(s *Signer) error {
	jwk, err := s.PublicJWK()
	if err != nil {
		return err
	}
	return r.keys.Add(jwk)
}

// Remove retires kid entirely. Removing the active key leaves the ring
// unable to sign until another key is activated.
func (r *KeyRing) Remove(kid string) {
	r.keys.Remove(kid)

	r.mu.Lock()
	if r.active != nil && r.active.KID() == kid {
		r.active = nil
	}
	r.mu.Unlock()
}

func (r *KeyRing) Active() (*Signer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.active != nil
}

func (r *KeyRing) Sign(c Claims) (string, error) {
	s, ok := r.Active()
	if !ok {
		return "", ErrNoActiveKey
	}
	return s.Sign(c)
}

func (r *KeyRing) KeySet() *KeySet { return r.keys }

// Verifier returns a verifier bound to the ring's key set.
func (r *KeyRing) Verifier(opts VerifyOptions) *KeySetVerifier {
	return NewVerifier(r.keys, opts)
}
