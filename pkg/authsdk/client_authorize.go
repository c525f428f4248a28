package authsdk

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/identity/pkg/cryptox"
)

// SessionCookieName is the cookie the authorize endpoint accepts as a
// session in place of a bearer token.
const SessionCookieName = "identity_session"

// PKCEChallenge holds the PKCE verifier and challenge pair. The verifier
// stays with the client; the challenge goes to the authorization endpoint.
type PKCEChallenge struct {
	Verifier  string
	Challenge string // BASE64URL(SHA256(Verifier))
	Method    string // always S256
}

// GeneratePKCEChallenge creates a verifier with 256 bits of entropy and its
// S256 challenge (RFC 7636).
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	hash := sha256.Sum256([]byte(verifier))
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(hash[:]),
		Method:    "S256",
	}, nil
}

// AuthorizeRequest describes one call to the authorization endpoint. Exactly
// one way of authenticating is normally set: AccessToken, SessionCookie,
// Username and Password, or an MFA completion.
type AuthorizeRequest struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	State       string
	PKCE        *PKCEChallenge

	AccessToken   string
	SessionCookie string
	Username      string
	Password      string

	// MFA is the challenge from a previous attempt. MFAMethod is totp, sms
	// or email; an empty MFACode for sms or email asks for a fresh code.
	MFA       *MFARequiredError
	MFAMethod string
	MFACode   string

	ApproveConsent bool
}

func (r AuthorizeRequest) values() url.Values {
	v := url.Values{
		"response_type": {"code"},
		"client_id":     {r.ClientID},
		"redirect_uri":  {r.RedirectURI},
	}
	if r.State != "" {
		v.Set("state", r.State)
	}
	if len(r.Scopes) > 0 {
		v.Set("scope", strings.Join(r.Scopes, " "))
	}
	if r.PKCE != nil {
		v.Set("code_challenge", r.PKCE.Challenge)
		v.Set("code_challenge_method", r.PKCE.Method)
	}
	return v
}

// BuildAuthorizeURL constructs the URL to send a browser to.
//
// Example:
//
//	pkce, _ := authsdk.GeneratePKCEChallenge()
//	url := client.BuildAuthorizeURL("cli-app", "https://localhost/callback", "random-state", []string{"openid", "profile"}, pkce)
//	// keep pkce.Verifier for ExchangeAuthorizationCode
func (c *SDKClient) BuildAuthorizeURL(
	clientID, redirectURI, state string,
	scopes []string,
	pkce *PKCEChallenge,
) string {
	req := AuthorizeRequest{ClientID: clientID, RedirectURI: redirectURI, State: state, Scopes: scopes, PKCE: pkce}
	return c.BaseURL + "/v1/oauth2/authorize?" + req.values().Encode()
}

// Authorize posts to the authorization endpoint and returns the code from
// the redirect. It returns *MFARequiredError when a second factor is needed
// and *OAuth2Error (login_required, consent_required, ...) otherwise.
func (c *SDKClient) Authorize(ctx context.Context, ar AuthorizeRequest) (string, error) {
	form := ar.values()
	if ar.Username != "" {
		form.Set("username", ar.Username)
		form.Set("password", ar.Password)
	}
	if ar.MFA != nil {
		form.Set("mfa_token", ar.MFA.MFAToken)
		form.Set("mfa_method", ar.MFAMethod)
		form.Set("mfa_code", ar.MFACode)
	}
	if ar.ApproveConsent {
		form.Set("approve_consent", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/v1/oauth2/authorize"), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.followAuthorize(req, ar)
}

// AuthorizeViaRedirect is the GET form, used when the caller already holds
// a session as a bearer token or session cookie.
func (c *SDKClient) AuthorizeViaRedirect(ctx context.Context, ar AuthorizeRequest) (string, error) {
	authURL := c.BuildAuthorizeURL(ar.ClientID, ar.RedirectURI, ar.State, ar.Scopes, ar.PKCE)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	return c.followAuthorize(req, ar)
}

// followAuthorize sends req without following redirects and pulls the code
// out of the Location header.
func (c *SDKClient) followAuthorize(req *http.Request, ar AuthorizeRequest) (string, error) {
	if ar.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+ar.AccessToken)
	}
	if ar.SessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: ar.SessionCookie})
	}

	noRedirect := *c.HTTPClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noRedirect.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusFound {
		return "", parseErrorResponse(resp, body)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("redirect response missing Location header")
	}
	code, state, err := ParseAuthorizationCallback(location)
	if err != nil {
		return "", err
	}
	if ar.State != "" && state != ar.State {
		return "", fmt.Errorf("state mismatch in authorization callback")
	}
	return code, nil
}

// ExchangeAuthorizationCode trades a code for tokens. clientSecret is empty
// for public clients; codeVerifier is required when PKCE was used.
func (c *SDKClient) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}
	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}
	return c.requestToken(ctx, data)
}

// AuthorizeAndExchange runs the whole authorization code flow with a fresh
// PKCE pair and returns a Session. ar.PKCE is overwritten.
func (c *SDKClient) AuthorizeAndExchange(ctx context.Context, ar AuthorizeRequest, clientSecret string) (*Session, error) {
	pkce, err := GeneratePKCEChallenge()
	if err != nil {
		return nil, err
	}
	ar.PKCE = pkce

	code, err := c.Authorize(ctx, ar)
	if err != nil {
		return nil, err
	}

	tokenResp, err := c.ExchangeAuthorizationCode(ctx, ar.ClientID, clientSecret, code, ar.RedirectURI, pkce.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return newSession(c, ar.ClientID, tokenResp), nil
}

// ParseAuthorizationCallback extracts code and state from a redirect. An
// error redirect comes back as *OAuth2Error.
//
// Example:
//
//	code, state, err := authsdk.ParseAuthorizationCallback("https://localhost/callback?code=xyz&state=abc")
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()
	if errorCode := query.Get("error"); errorCode != "" {
		return "", "", &OAuth2Error{
			StatusCode:  http.StatusBadRequest,
			Code:        errorCode,
			Description: query.Get("error_description"),
		}
	}

	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback missing authorization code")
	}
	return code, query.Get("state"), nil
}
