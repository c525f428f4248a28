package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication method references (RFC 8176) recorded in the amr claim.
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
	AMRSMS      = "sms"
	AMRMFA      = "mfa"
	AMRHardware = "hwk"
)

var (
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Claims is the access token payload. Registered claims come from the JWT
// library; everything else is shared with resource servers.
type Claims struct {
	jwt.RegisteredClaims

	SID         string   `json:"sid,omitempty"`
	ClientID    string   `json:"client_id,omitempty"`
	ClientName  string   `json:"client_name,omitempty"`
	Scope       string   `json:"scope,omitempty"` // space delimited, RFC 9068
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	AMR         []string `json:"amr,omitempty"`
	Username    string   `json:"username,omitempty"`
	Email       string   `json:"email,omitempty"`
}

// AccessParams describes the token being minted.
type AccessParams struct {
	Subject     string
	SessionID   string
	ClientID    string
	ClientName  string
	Scopes      []string
	Roles       []string
	Permissions []string
	AMR         []string
	Username    string
	Email       string
	Issuer      string
	Audience    []string
	TTL         time.Duration
}

// NewAccessClaims fills registered claims (iat, nbf, exp, jti) relative to now.
func NewAccessClaims(p AccessParams, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.TTL)),
			ID:        NewJTI(),
		},
		SID:         p.SessionID,
		ClientID:    p.ClientID,
		ClientName:  p.ClientName,
		Scope:       strings.Join(p.Scopes, " "),
		Roles:       p.Roles,
		Permissions: p.Permissions,
		AMR:         p.AMR,
		Username:    p.Username,
		Email:       p.Email,
	}
}

// NewJTI returns a random URL-safe token identifier.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Scopes splits the scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether scope was granted either as an OAuth scope or as a
// role permission.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope) || slices.Contains(c.Permissions, scope)
}

func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience passes when any expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateTime checks exp and nbf against now, tolerating leeway of clock skew.
func (c *Claims) ValidateTime(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
