package http_test

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/pkg/authsdk"
)

func TestAuthorizationCodeFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := ts.bootstrap(t)
	ts.seedUserAndSPA(t, admin, "alice")

	t.Run("consent is required on first login", func(t *testing.T) {
		pkce, err := authsdk.GeneratePKCEChallenge()
		require.NoError(t, err)
		ar := spaAuthorizeRequest("alice")
		ar.PKCE = pkce

		_, err = ts.Client.Authorize(t.Context(), ar)
		require.ErrorIs(t, err, authsdk.ErrConsentRequired)
		var oauthErr *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oauthErr)
		require.Equal(t, 403, oauthErr.StatusCode, "rendered as a flow error, not a redirect")
	})

	session := ts.login(t, "alice")
	require.True(t, session.HasAllScopes("openid", "profile"))

	t.Run("consent is remembered", func(t *testing.T) {
		again, err := ts.Client.AuthorizeAndExchange(t.Context(), spaAuthorizeRequest("alice"), "")
		require.NoError(t, err)
		require.NotEqual(t, session.AccessToken(), again.AccessToken())
	})

	t.Run("userinfo", func(t *testing.T) {
		info, err := session.GetUserInfo(t.Context())
		require.NoError(t, err)
		require.Equal(t, "alice", info.Username)
		require.Equal(t, "user", info.Role)
		require.False(t, info.MFAEnabled)
	})

	t.Run("introspect", func(t *testing.T) {
		res, err := admin.IntrospectToken(t.Context(), session.AccessToken(), "access_token")
		require.NoError(t, err)
		require.True(t, res.Active)
		require.Equal(t, spaClientID, res.ClientID)
		require.Contains(t, res.Scope, "openid")

		res, err = admin.IntrospectToken(t.Context(), "not-a-token", "")
		require.NoError(t, err)
		require.False(t, res.Active)
	})

	t.Run("session cookie authorizes without a password", func(t *testing.T) {
		pkce, err := authsdk.GeneratePKCEChallenge()
		require.NoError(t, err)
		code, err := ts.Client.AuthorizeViaRedirect(t.Context(), authsdk.AuthorizeRequest{
			ClientID:      spaClientID,
			RedirectURI:   spaRedirect,
			Scopes:        []string{"openid"},
			State:         "cookie",
			PKCE:          pkce,
			SessionCookie: session.AccessToken(),
		})
		require.NoError(t, err)
		require.NotEmpty(t, code)
	})

	t.Run("code is single use and bound to the verifier", func(t *testing.T) {
		pkce, err := authsdk.GeneratePKCEChallenge()
		require.NoError(t, err)
		ar := spaAuthorizeRequest("alice")
		ar.PKCE = pkce
		code, err := ts.Client.Authorize(t.Context(), ar)
		require.NoError(t, err)

		_, err = ts.Client.ExchangeAuthorizationCode(t.Context(), spaClientID, "", code, spaRedirect, "wrong-verifier-wrong-verifier-wrong-verifier")
		require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

		pkce2, err := authsdk.GeneratePKCEChallenge()
		require.NoError(t, err)
		ar.PKCE = pkce2
		code, err = ts.Client.Authorize(t.Context(), ar)
		require.NoError(t, err)

		resp, err := ts.Client.ExchangeAuthorizationCode(t.Context(), spaClientID, "", code, spaRedirect, pkce2.Verifier)
		require.NoError(t, err)
		assertTokenResponse(t, resp)

		_, err = ts.Client.ExchangeAuthorizationCode(t.Context(), spaClientID, "", code, spaRedirect, pkce2.Verifier)
		require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
	})

	t.Run("wrong password", func(t *testing.T) {
		ar := spaAuthorizeRequest("alice")
		ar.Password = "not-the-password"
		_, err := ts.Client.AuthorizeAndExchange(t.Context(), ar, "")
		require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
	})

	t.Run("no credentials asks for login", func(t *testing.T) {
		ar := spaAuthorizeRequest("alice")
		ar.Username, ar.Password = "", ""
		_, err := ts.Client.AuthorizeAndExchange(t.Context(), ar, "")
		require.ErrorIs(t, err, authsdk.ErrLoginRequired)
	})
}

func TestAuthorizeRejectsUnregisteredRedirect(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := ts.bootstrap(t)
	ts.seedUserAndSPA(t, admin, "alice")

	ar := spaAuthorizeRequest("alice")
	ar.RedirectURI = "https://evil.example/callback"
	_, err := ts.Client.AuthorizeAndExchange(t.Context(), ar, "")

	var oauthErr *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oauthErr))
	require.Equal(t, http.StatusBadRequest, oauthErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidRequest, oauthErr.Code)
}

func TestAuthorizeRedirectsScopeErrors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := ts.bootstrap(t)
	ts.seedUserAndSPA(t, admin, "alice")

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)
	ar := spaAuthorizeRequest("alice")
	ar.Scopes = []string{"admin:write"}
	ar.PKCE = pkce

	_, err = ts.Client.Authorize(t.Context(), ar)
	require.ErrorIs(t, err, authsdk.ErrInvalidScope)
}

func TestRefreshRotation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := ts.bootstrap(t)
	ts.seedUserAndSPA(t, admin, "alice")
	session := ts.login(t, "alice")

	first := session.RefreshToken()
	rotated, err := ts.Client.RefreshGrant(t.Context(), spaClientID, first)
	require.NoError(t, err)
	assertTokenResponse(t, rotated)
	require.NotEqual(t, first, rotated.RefreshToken)
	require.NotEqual(t, session.AccessToken(), rotated.AccessToken)

	// Replaying the rotated token kills the whole family.
	_, err = ts.Client.RefreshGrant(t.Context(), spaClientID, first)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	_, err = ts.Client.RefreshGrant(t.Context(), spaClientID, rotated.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
}

func TestRefreshIsBoundToClient(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := ts.bootstrap(t)
	ts.seedUserAndSPA(t, admin, "alice")
	session := ts.login(t, "alice")

	other, err := admin.CreateClient(t.Context(), authsdk.CreateClientRequest{
		ClientID:     "other-spa",
		Public:       true,
		Name:         "Other SPA",
		RedirectURIs: []string{spaRedirect},
	}, "")
	require.NoError(t, err)

	_, err = ts.Client.RefreshGrant(t.Context(), other.Client.ClientID, session.RefreshToken())
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	// The failed attempt does not consume the token.
	_, err = ts.Client.RefreshGrant(t.Context(), spaClientID, session.RefreshToken())
	require.NoError(t, err)
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := ts.bootstrap(t)
	ts.seedUserAndSPA(t, admin, "alice")
	session := ts.login(t, "alice")

	require.NoError(t, session.Revoke(t.Context()))

	_, err := ts.Client.RefreshGrant(t.Context(), spaClientID, session.RefreshToken())
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	res, err := admin.IntrospectToken(t.Context(), session.RefreshToken(), "refresh_token")
	require.NoError(t, err)
	require.False(t, res.Active)

	// Unknown tokens are accepted silently.
	require.NoError(t, ts.Client.RevokeToken(t.Context(), spaClientID, "unknown-token"))
}

func TestClientCredentials(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := ts.bootstrap(t)

	created, err := admin.CreateClient(t.Context(), authsdk.CreateClientRequest{
		ClientID:          "billing",
		Name:              "Billing worker",
		AllowedGrantTypes: []string{"client_credentials"},
		AllowedScopes:     []string{"api:read", "api:write"},
	}, "")
	require.NoError(t, err)
	require.NotEmpty(t, created.ClientSecret)

	t.Run("narrowed scopes", func(t *testing.T) {
		resp, err := ts.Client.ClientCredentialsGrant(t.Context(), "billing", created.ClientSecret, []string{"api:read"})
		require.NoError(t, err)
		require.Equal(t, "api:read", resp.Scope)
		require.Empty(t, resp.RefreshToken)
	})

	t.Run("scope outside the allowed set", func(t *testing.T) {
		_, err := ts.Client.ClientCredentialsGrant(t.Context(), "billing", created.ClientSecret, []string{"admin:write"})
		require.ErrorIs(t, err, authsdk.ErrInvalidScope)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ts.Client.ClientCredentialsGrant(t.Context(), "billing", strings.Repeat("x", 40), nil)
		require.ErrorIs(t, err, authsdk.ErrInvalidClient)
	})

	t.Run("grant not allowed", func(t *testing.T) {
		_, err := ts.Client.RefreshGrant(t.Context(), "billing", "whatever")
		require.Error(t, err)
	})

	t.Run("device code is not implemented", func(t *testing.T) {
		resp, err := ts.Client.HTTPClient.PostForm(ts.URL+"/v1/oauth2/token", url.Values{
			"grant_type": {"urn:ietf:params:oauth:grant-type:device_code"},
			"client_id":  {"billing"},
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})

	t.Run("unknown grant", func(t *testing.T) {
		resp, err := ts.Client.HTTPClient.PostForm(ts.URL+"/v1/oauth2/token", url.Values{
			"grant_type": {"password"},
			"client_id":  {"billing"},
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
