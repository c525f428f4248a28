package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

func TestNewTokenProvider(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	p, err := NewTokenProvider("", e.ring, nil, nil)
	require.NoError(t, err)
	require.Equal(t, TokenFormatJWT, p.Format())

	p, err = NewTokenProvider("reference", e.ring, nil, e.cache)
	require.NoError(t, err)
	require.Equal(t, TokenFormatReference, p.Format())

	_, err = NewTokenProvider("reference", e.ring, nil, nil)
	require.Error(t, err)

	_, err = NewTokenProvider("paseto", e.ring, nil, e.cache)
	require.ErrorIs(t, err, ErrUnknownTokenFormat)
}

func (e *env) exchangeCode(t *testing.T) domain.TokenPair {
	t.Helper()
	code := e.login(t, testPublicID, "token-verifier")
	pair, err := e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     testPublicID,
		Code:         code,
		CodeVerifier: "token-verifier",
	})
	require.NoError(t, err)
	return pair
}

func TestIntrospect(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	pair := e.exchangeCode(t)

	t.Run("access token", func(t *testing.T) {
		res := e.issuer.Introspect(e.ctx, pair.AccessToken, "")
		require.True(t, res.Active)
		require.Equal(t, e.user.ID, res.Sub)
		require.Equal(t, testPublicID, res.ClientID)
		require.Equal(t, "alice", res.Username)
		require.Equal(t, testIssuer, res.Iss)
		require.NotZero(t, res.Exp)
	})

	t.Run("refresh token with hint", func(t *testing.T) {
		res := e.issuer.Introspect(e.ctx, pair.RefreshToken, domain.TokenTypeHintRefresh)
		require.True(t, res.Active)
		require.Equal(t, domain.TokenTypeHintRefresh, res.TokenType)
		require.Equal(t, pair.Scope, res.Scope)
	})

	t.Run("refresh token with wrong hint", func(t *testing.T) {
		res := e.issuer.Introspect(e.ctx, pair.RefreshToken, domain.TokenTypeHintAccess)
		require.True(t, res.Active)
	})

	t.Run("garbage is inactive", func(t *testing.T) {
		require.Equal(t, Introspection{}, e.issuer.Introspect(e.ctx, "not-a-token", ""))
		require.Equal(t, Introspection{}, e.issuer.Introspect(e.ctx, "a.b.c", ""))
		require.Equal(t, Introspection{}, e.issuer.Introspect(e.ctx, "", ""))
	})

	t.Run("token from another issuer", func(t *testing.T) {
		other, err := jwtx.NewEphemeralKeyRing("other-kid")
		require.NoError(t, err)
		token, err := other.Sign(jwtx.NewAccessClaims(jwtx.AccessParams{
			Subject: e.user.ID,
			Issuer:  testIssuer,
			TTL:     time.Minute,
		}, time.Now()))
		require.NoError(t, err)
		require.False(t, e.issuer.Introspect(e.ctx, token, "").Active)
	})
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	pair := e.exchangeCode(t)

	// Signed access tokens cannot be revoked; the call still succeeds.
	require.NoError(t, e.issuer.Revoke(e.ctx, pair.AccessToken, domain.TokenTypeHintAccess))
	require.True(t, e.issuer.Introspect(e.ctx, pair.AccessToken, "").Active)

	require.NoError(t, e.issuer.Revoke(e.ctx, pair.RefreshToken, ""))
	require.False(t, e.issuer.Introspect(e.ctx, pair.RefreshToken, domain.TokenTypeHintRefresh).Active)

	// Unknown values and repeats are accepted.
	require.NoError(t, e.issuer.Revoke(e.ctx, "unknown", ""))
	require.NoError(t, e.issuer.Revoke(e.ctx, pair.RefreshToken, domain.TokenTypeHintAccess))

	_, err := e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantRefreshToken,
		ClientID:     testPublicID,
		RefreshToken: pair.RefreshToken,
	})
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestReferenceTokens(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	jwtProvider := &JWTProvider{Keys: e.ring, Verifier: e.ring.Verifier(jwtx.VerifyOptions{Issuer: testIssuer})}
	issuer := NewTokenIssuer(e.store, testIssuer, []string{"acme"}, &ReferenceProvider{Cache: e.cache}, jwtProvider)
	require.Equal(t, TokenFormatReference, issuer.Format())

	client, err := e.store.Clients().GetClientByClientID(e.ctx, testConfidentID)
	require.NoError(t, err)
	pair, err := issuer.IssueClientToken(e.ctx, client, []string{"api:read"}, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, looksLikeJWT(pair.AccessToken))

	claims, err := issuer.Validate(e.ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testConfidentID, claims.Subject)
	require.Equal(t, []string{"acme"}, []string(claims.Audience))

	// Tokens minted before a format switch keep resolving.
	old, err := e.issuer.IssueClientToken(e.ctx, client, []string{"api:read"}, time.Now().UTC())
	require.NoError(t, err)
	_, err = issuer.Validate(e.ctx, old.AccessToken)
	require.NoError(t, err)

	require.True(t, issuer.Introspect(e.ctx, pair.AccessToken, "").Active)
	require.NoError(t, issuer.Revoke(e.ctx, pair.AccessToken, domain.TokenTypeHintAccess))
	require.False(t, issuer.Introspect(e.ctx, pair.AccessToken, "").Active)

	_, err = issuer.Validate(e.ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestReferenceTokenExpires(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	p := &ReferenceProvider{Cache: e.cache}
	claims := jwtx.NewAccessClaims(jwtx.AccessParams{Subject: "svc", TTL: time.Minute}, time.Now())
	token, err := p.Issue(e.ctx, claims, time.Minute)
	require.NoError(t, err)

	_, err = p.Validate(e.ctx, token)
	require.NoError(t, err)

	e.mr.FastForward(2 * time.Minute)
	_, err = p.Validate(e.ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
