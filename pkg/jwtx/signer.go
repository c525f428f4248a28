package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"

	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Supported signing algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// Signer signs access tokens with one private key.
type Signer struct {
	kid    string
	alg    string
	method jwt.SigningMethod
	key    crypto.Signer
}

func methodFor(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case AlgorithmRS256:
		return jwt.SigningMethodRS256, nil
	case AlgorithmES256:
		return jwt.SigningMethodES256, nil
	case AlgorithmEdDSA:
		return jwt.SigningMethodEdDSA, nil
	}
	return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
}

// NewSigner loads a PEM private key for alg and checks the key type matches.
func NewSigner(alg, kid string, pemKey []byte) (*Signer, error) {
	method, err := methodFor(alg)
	if err != nil {
		return nil, err
	}
	key, err := cryptox.ParsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}

	var ok bool
	switch alg {
	case AlgorithmRS256:
		_, ok = key.(*rsa.PrivateKey)
	case AlgorithmES256:
		var ec *ecdsa.PrivateKey
		if ec, ok = key.(*ecdsa.PrivateKey); ok {
			ok = ec.Curve.Params().Name == "P-256"
		}
	case AlgorithmEdDSA:
		_, ok = key.(ed25519.PrivateKey)
	}
	if !ok {
		return nil, fmt.Errorf("jwtx: key of type %T cannot sign %s", key, alg)
	}

	return &Signer{kid: kid, alg: alg, method: method, key: key}, nil
}

// GenerateSigner creates a signer with fresh key material and returns the
// PEM so callers can persist it.
func GenerateSigner(alg, kid string, rsaBits int) (*Signer, []byte, error) {
	pemKey, err := cryptox.GeneratePrivateKey(alg, rsaBits)
	if err != nil {
		return nil, nil, err
	}
	s, err := NewSigner(alg, kid, pemKey)
	if err != nil {
		return nil, nil, err
	}
	return s, pemKey, nil
}

func (s *Signer) KID() string { return s.kid }
func (s *Signer) Alg() string { return s.alg }

// Sign serialises claims into a compact JWS with the kid header set.
func (s *Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *Signer) PublicJWK() (JWK, error) {
	return NewJWK(s.kid, s.alg, s.key.Public())
}
