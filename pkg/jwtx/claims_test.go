package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	t.Parallel()

	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "https://id.example.com"}}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("https://id.example.com"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateIssuer("https://evil.example.com"), jwtx.ErrIssuer)
	})
}

func TestValidateAudience(t *testing.T) {
	t.Parallel()

	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"api", "media"}}}

	t.Run("contains match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"api"}))
	})

	t.Run("any of several", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"foo", "media"}))
	})

	t.Run("no match", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
	})

	t.Run("empty expected list", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience(nil))
	})
}

func TestValidateTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	claims := func(nbf, exp time.Time) *jwtx.Claims {
		return &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			NotBefore: jwt.NewNumericDate(nbf),
			ExpiresAt: jwt.NewNumericDate(exp),
		}}
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, claims(now.Add(-time.Minute), now.Add(time.Minute)).ValidateTime(now, 0))
	})

	t.Run("expired", func(t *testing.T) {
		require.ErrorIs(t, claims(now.Add(-time.Hour), now.Add(-time.Minute)).ValidateTime(now, 0), jwtx.ErrExpired)
	})

	t.Run("expired within leeway", func(t *testing.T) {
		require.NoError(t, claims(now.Add(-time.Hour), now.Add(-10*time.Second)).ValidateTime(now, 30*time.Second))
	})

	t.Run("not yet valid", func(t *testing.T) {
		require.ErrorIs(t, claims(now.Add(time.Minute), now.Add(time.Hour)).ValidateTime(now, 0), jwtx.ErrNotYetValid)
	})
}

func TestNewAccessClaims(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := jwtx.NewAccessClaims(jwtx.AccessParams{
		Subject:     "user-1",
		SessionID:   "sid-1",
		ClientID:    "client-1",
		Scopes:      []string{"openid", "profile"},
		Roles:       []string{"admin"},
		Permissions: []string{"clients:write"},
		Issuer:      "https://id.example.com",
		Audience:    []string{"api"},
		TTL:         time.Hour,
	}, now)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "openid profile", c.Scope)
	require.Equal(t, now.Add(time.Hour), c.ExpiresAt.Time)
	require.Equal(t, now, c.IssuedAt.Time)
	require.NotEmpty(t, c.ID)

	require.True(t, c.HasScope("profile"))
	require.True(t, c.HasScope("clients:write"))
	require.False(t, c.HasScope("email"))

	other := jwtx.NewAccessClaims(jwtx.AccessParams{TTL: time.Hour}, now)
	require.NotEqual(t, c.ID, other.ID)
}
