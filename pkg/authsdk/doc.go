/*
Package authsdk is the Go client for the identity service, and the home of
the wire types and OAuth2 error values the server itself writes.

# Clients and sessions

SDKClient covers the unauthenticated surface: health probes, discovery,
JWKS, bootstrap, the token endpoint and the authorization endpoint. Every
way of obtaining tokens ends in a *Session, which carries the access and
refresh tokens and refreshes them shortly before they expire.

	client := authsdk.NewSDKClient("https://id.example.com")

	// Machine to machine.
	svc, err := client.AuthenticateWithClientCredentials(ctx, "billing", secret, []string{"admin:read"})

	// A user, through the authorization code flow with PKCE.
	session, err := client.AuthorizeAndExchange(ctx, authsdk.AuthorizeRequest{
		ClientID:    "web",
		RedirectURI: "https://app.example.com/callback",
		Scopes:      []string{"openid", "profile"},
		State:       state,
		Username:    "alice",
		Password:    password,
	}, "")

Refresh tokens rotate: every refresh returns a new one and the old one is
dead. Presenting a dead refresh token revokes the whole family, so a Session
must not be copied between processes that refresh independently.

# Multi-factor authentication

When the user has a second factor, Authorize fails with *MFARequiredError.
Retry with the challenge attached:

	var mfa *authsdk.MFARequiredError
	if errors.As(err, &mfa) {
		ar.MFA, ar.MFAMethod, ar.MFACode = mfa, "totp", code
		session, err = client.AuthorizeAndExchange(ctx, ar, "")
	}

For sms and email, a first retry with an empty MFACode sends the code.

# Errors

Server errors come back as *OAuth2Error and match the exported values with
errors.Is, which compares the error code only:

	if errors.Is(err, authsdk.ErrInvalidGrant) { ... }

# Scope checks

Session methods document the scope they need. With CheckScopes on (the
default) a call the session cannot make fails locally without a request.
*/
package authsdk
