package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"time"
)

const AuthorizationCodeTTL = 10 * time.Minute

// PKCE methods (RFC 7636).
const (
	PKCEMethodPlain = "plain"
	PKCEMethodS256  = "S256"
)

// AuthorizationCode is a single-use code bound to client, user and redirect.
// Only the fingerprint of the code itself is stored.
type AuthorizationCode struct {
	ID                  string
	CodeHash            string
	ClientID            string
	UserID              string
	RedirectURI         string
	Scopes              []string
	State               string
	SessionID           string
	AMR                 []string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
	UsedAt              *time.Time
	CreatedAt           time.Time
}

func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

func (c *AuthorizationCode) IsUsed() bool { return c.UsedAt != nil }

func (c *AuthorizationCode) IsValid(now time.Time) bool {
	return !c.IsUsed() && !c.IsExpired(now)
}

// MarkUsed consumes the code. It can only happen once.
func (c *AuthorizationCode) MarkUsed(now time.Time) error {
	if c.UsedAt != nil {
		return ErrCodeAlreadyUsed
	}
	c.UsedAt = &now
	return nil
}

// VerifyVerifier checks a PKCE code_verifier against the stored challenge.
// Codes issued without a challenge accept any verifier.
func (c *AuthorizationCode) VerifyVerifier(verifier string) bool {
	if c.CodeChallenge == "" {
		return true
	}
	return VerifyCodeChallenge(c.CodeChallenge, c.CodeChallengeMethod, verifier)
}

// VerifyCodeChallenge compares in constant time. An empty method means plain.
func VerifyCodeChallenge(challenge, method, verifier string) bool {
	if verifier == "" {
		return false
	}
	var computed string
	switch method {
	case PKCEMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	case PKCEMethodPlain, "":
		computed = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// IsSupportedPKCEMethod reports whether method may be requested.
func IsSupportedPKCEMethod(method string) bool {
	return method == PKCEMethodPlain || method == PKCEMethodS256
}
