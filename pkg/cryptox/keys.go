package cryptox

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Key algorithms understood by GeneratePrivateKey. They match the JOSE "alg"
// values used for the signing keys.
const (
	KeyEdDSA = "EdDSA"
	KeyES256 = "ES256"
	KeyRS256 = "RS256"
)

const MinRSABits = 2048

var ErrUnsupportedKey = errors.New("cryptox: unsupported key type")

// GeneratePrivateKey creates a fresh key for alg and returns it PKCS8/PEM
// encoded. rsaBits is only consulted for RS256.
func GeneratePrivateKey(alg string, rsaBits int) ([]byte, error) {
	var (
		key crypto.Signer
		err error
	)

	switch alg {
	case KeyEdDSA:
		_, key, err = ed25519.GenerateKey(rand.Reader)
	case KeyES256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case KeyRS256:
		if rsaBits < MinRSABits {
			return nil, fmt.Errorf("cryptox: RSA key size must be at least %d bits", MinRSABits)
		}
		key, err = rsa.GenerateKey(rand.Reader, rsaBits)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKey, alg)
	}
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate %s key: %w", alg, err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal PKCS8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePrivateKey decodes a PEM block holding a PKCS8 (or legacy PKCS1 RSA)
// private key.
func ParsePrivateKey(pemData []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("cryptox: no PEM block found")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
	}
	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, ErrUnsupportedKey
	}
	return signer, nil
}

// ParsePublicKey parses a DER encoded SubjectPublicKeyInfo, the format browsers
// hand back from AuthenticatorAttestationResponse.getPublicKey().
func ParsePublicKey(der []byte) (crypto.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse public key: %w", err)
	}
	switch pub.(type) {
	case *ecdsa.PublicKey, *rsa.PublicKey, ed25519.PublicKey:
		return pub, nil
	}
	return nil, ErrUnsupportedKey
}
