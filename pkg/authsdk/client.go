package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// expiryBuffer is taken off expires_in so a session refreshes before the
// server starts rejecting the token.
const expiryBuffer = 30 * time.Second

// SDKClient talks to the identity service without credentials and creates
// Sessions for everything that needs a token.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckScopes makes a Session refuse calls its granted scopes cannot
	// satisfy instead of sending them. Tests that exercise server-side
	// scope checks turn it off.
	CheckScopes bool
}

// ClientOption customises an SDKClient.
type ClientOption func(*SDKClient)

// WithHTTPClient replaces the default client, for example with one from
// httptest.Server.Client().
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *SDKClient) { c.HTTPClient = hc }
}

// WithoutScopeCheck disables client-side scope checks.
func WithoutScopeCheck() ClientOption {
	return func(c *SDKClient) { c.CheckScopes = false }
}

func NewSDKClient(baseURL string, opts ...ClientOption) *SDKClient {
	c := &SDKClient{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		CheckScopes: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthenticateWithClientCredentials is machine-to-machine login. The
// session carries no refresh token and fails once the access token expires.
func (c *SDKClient) AuthenticateWithClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*Session, error) {
	tokenResp, err := c.ClientCredentialsGrant(ctx, clientID, clientSecret, scopes)
	if err != nil {
		return nil, err
	}
	return newSession(c, clientID, tokenResp), nil
}

// AuthenticateWithRefreshToken resumes a session. The refresh token passed
// in is consumed by rotation.
func (c *SDKClient) AuthenticateWithRefreshToken(
	ctx context.Context,
	clientID, refreshToken string,
) (*Session, error) {
	tokenResp, err := c.RefreshGrant(ctx, clientID, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, clientID, tokenResp), nil
}

// NewSessionFromTokens wraps tokens obtained elsewhere.
func (c *SDKClient) NewSessionFromTokens(clientID, accessToken, refreshToken, scope string, expiresIn int) *Session {
	return newSession(c, clientID, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Scope:        scope,
		ExpiresIn:    expiresIn,
	})
}
