package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Token sizes in raw bytes, before base64url encoding.
const (
	TokenSize128 = 16 // 22 chars
	TokenSize256 = 32 // 43 chars
)

// AuthorizationCodeLength is the number of characters kept from the encoded
// random value when minting authorization codes.
const AuthorizationCodeLength = 32

// GenerateToken returns size random bytes encoded as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateAuthorizationCode draws 32 random bytes and keeps the first 32
// characters of their base64url encoding.
func GenerateAuthorizationCode() (string, error) {
	tok, err := GenerateToken(TokenSize256)
	if err != nil {
		return "", err
	}
	return tok[:AuthorizationCodeLength], nil
}

// GenerateNumericCode returns a six digit one-time code in [100000, 999999]
// derived from a uniformly random uint32.
func GenerateNumericCode() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	n := binary.BigEndian.Uint32(buf[:])%900000 + 100000
	return fmt.Sprintf("%06d", n), nil
}

// FingerprintToken is the deterministic SHA-256 digest (base64url) stored in
// place of bearer secrets so a database leak does not leak usable tokens.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Equal compares two secrets in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
