package jwtx

import (
	"crypto"
	"errors"
	"sync"
)

var ErrUnknownKID = errors.New("jwtx: unknown kid")

type keyEntry struct {
	jwk JWK
	pub crypto.PublicKey
}

// KeySet is the concurrency safe set of verification keys. Order of insertion
// is preserved so the published JWKS is stable.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]keyEntry
	kids []string
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]keyEntry)}
}

// Add registers (or replaces) a verification key.
func (k *KeySet) Add(j JWK) error {
	pub, err := j.PublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, exists := k.keys[j.Kid]; !exists {
		k.kids = append(k.kids, j.Kid)
	}
	k.keys[j.Kid] = keyEntry{jwk: j, pub: pub}
	return nil
}

// Remove drops kid; tokens signed with it stop verifying immediately.
func (k *KeySet) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[kid]; !ok {
		return
	}
	delete(k.keys, kid)
	for i, id := range k.kids {
		if id == kid {
			k.kids = append(k.kids[:i], k.kids[i+1:]...)
			break
		}
	}
}

// Get returns the verification key and the algorithm it was published for.
func (k *KeySet) Get(kid string) (crypto.PublicKey, string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.keys[kid]
	if !ok {
		return nil, "", ErrUnknownKID
	}
	return e.pub, e.jwk.Alg, nil
}

// PublicJWKS snapshots the set for serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := JWKS{Keys: make([]JWK, 0, len(k.kids))}
	for _, kid := range k.kids {
		out.Keys = append(out.Keys, k.keys[kid].jwk)
	}
	return out
}

func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}
