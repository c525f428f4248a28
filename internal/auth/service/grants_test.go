package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
)

func TestDispatcherRejections(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	cases := []struct {
		name string
		req  TokenRequest
		want error
	}{
		{"missing grant", TokenRequest{ClientID: testConfidentID}, ErrInvalidRequest},
		{"device code", TokenRequest{GrantType: domain.GrantDeviceCodeURN, ClientID: testConfidentID}, ErrGrantNotImplemented},
		{"unknown grant", TokenRequest{GrantType: "password", ClientID: testConfidentID}, ErrUnsupportedGrantType},
		{"unknown client", TokenRequest{GrantType: domain.GrantClientCredentials, ClientID: "ghost", ClientSecret: testSecret}, ErrInvalidClient},
		{"wrong secret", TokenRequest{GrantType: domain.GrantClientCredentials, ClientID: testConfidentID, ClientSecret: "nope"}, ErrInvalidClient},
		{"public client with secret", TokenRequest{GrantType: domain.GrantRefreshToken, ClientID: testPublicID, ClientSecret: "x", RefreshToken: "r"}, ErrInvalidClient},
		{"grant not allowed", TokenRequest{GrantType: domain.GrantClientCredentials, ClientID: testPublicID}, ErrUnauthorizedClient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.grants.Exchange(e.ctx, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("inactive client", func(t *testing.T) {
		svc := &ClientService{Store: e.store}
		_, err := svc.SetActive(e.ctx, testConfidentID, false)
		require.NoError(t, err)
		t.Cleanup(func() { _, _ = svc.SetActive(e.ctx, testConfidentID, true) })

		_, err = e.grants.Exchange(e.ctx, TokenRequest{
			GrantType:    domain.GrantClientCredentials,
			ClientID:     testConfidentID,
			ClientSecret: testSecret,
		})
		require.ErrorIs(t, err, ErrInvalidClient)
	})
}

func TestClientCredentials(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	pair, err := e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantClientCredentials,
		ClientID:     testConfidentID,
		ClientSecret: testSecret,
		Scopes:       []string{"api:read"},
	})
	require.NoError(t, err)
	require.Empty(t, pair.RefreshToken)
	require.Equal(t, time.Hour, pair.ExpiresIn)

	claims, err := e.issuer.Validate(e.ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testConfidentID, claims.Subject)
	require.Equal(t, "Acme API", claims.ClientName)
	require.Equal(t, "api:read", claims.Scope)

	client, err := e.store.Clients().GetClientByClientID(e.ctx, testConfidentID)
	require.NoError(t, err)
	require.NotNil(t, client.LastUsedAt)

	_, err = e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantClientCredentials,
		ClientID:     testConfidentID,
		ClientSecret: testSecret,
		Scopes:       []string{"api:admin"},
	})
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestRefreshRotation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	code := e.login(t, testPublicID, "rotation-verifier", "openid", "profile")
	first, err := e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     testPublicID,
		Code:         code,
		CodeVerifier: "rotation-verifier",
	})
	require.NoError(t, err)

	refresh := func(token string, scopes ...string) (domain.TokenPair, error) {
		return e.grants.Exchange(e.ctx, TokenRequest{
			GrantType:    domain.GrantRefreshToken,
			ClientID:     testPublicID,
			RefreshToken: token,
			Scopes:       scopes,
		})
	}

	t.Run("cannot widen scope", func(t *testing.T) {
		_, err := refresh(first.RefreshToken, "openid", "email")
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	second, err := refresh(first.RefreshToken, "openid")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, "openid", second.Scope)

	old, err := e.store.RefreshTokens().GetRefreshTokenByHash(e.ctx, cryptox.FingerprintToken(first.RefreshToken))
	require.NoError(t, err)
	require.True(t, old.Revoked)

	// Replaying the rotated token burns the whole family.
	_, err = refresh(first.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidGrant)

	current, err := e.store.RefreshTokens().GetRefreshTokenByHash(e.ctx, cryptox.FingerprintToken(second.RefreshToken))
	require.NoError(t, err)
	require.True(t, current.Revoked)

	_, err = refresh(second.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefreshBoundToClient(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	code := e.login(t, testPublicID, "bound-verifier")
	pair, err := e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     testPublicID,
		Code:         code,
		CodeVerifier: "bound-verifier",
	})
	require.NoError(t, err)

	_, err = e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantRefreshToken,
		ClientID:     testConfidentID,
		ClientSecret: testSecret,
		RefreshToken: pair.RefreshToken,
	})
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestCustomGrantHandler(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	called := false
	d := NewGrantDispatcher(e.store, nil, map[string]GrantHandler{
		"Client_Credentials": GrantHandlerFunc(func(_ context.Context, c domain.Client, _ TokenRequest) (domain.TokenPair, error) {
			called = true
			require.Equal(t, testConfidentID, c.ClientID)
			return domain.TokenPair{AccessToken: "stub"}, nil
		}),
	})
	require.Equal(t, []string{domain.GrantClientCredentials}, d.SupportedGrantTypes())

	pair, err := d.Exchange(e.ctx, TokenRequest{
		GrantType:    "CLIENT_CREDENTIALS",
		ClientID:     testConfidentID,
		ClientSecret: testSecret,
	})
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, "stub", pair.AccessToken)
}
