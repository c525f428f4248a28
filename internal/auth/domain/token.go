package domain

import "time"

// Token type hints (RFC 7009 / RFC 7662).
const (
	TokenTypeHintAccess  = "access_token"
	TokenTypeHintRefresh = "refresh_token"
)

// TokenPair is what the token endpoint returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string // empty for client_credentials
	TokenType    string
	ExpiresIn    time.Duration
	Scope        string // space delimited
}

// RefreshToken is the stored record; the token itself is only kept as a
// base64url SHA-256 fingerprint.
type RefreshToken struct {
	ID        string
	UserID    string
	ClientID  string
	TokenHash string
	SessionID string // survives rotation
	Scopes    []string
	AMR       []string
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}
