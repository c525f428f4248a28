package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

func TestValidatePKCE(t *testing.T) {
	t.Parallel()

	confidential := domain.Client{SecretHash: "argon2:dummy"}
	public := domain.Client{}
	strict := domain.Client{SecretHash: "argon2:dummy", RequirePKCE: true}

	t.Run("public clients require challenge", func(t *testing.T) {
		_, _, err := validatePKCE("", "", public)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("require_pkce clients require challenge", func(t *testing.T) {
		_, _, err := validatePKCE("", "", strict)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("confidential clients may omit challenge", func(t *testing.T) {
		challenge, method, err := validatePKCE("", "", confidential)
		require.NoError(t, err)
		require.Empty(t, challenge)
		require.Empty(t, method)
	})

	t.Run("method without challenge rejected", func(t *testing.T) {
		_, _, err := validatePKCE("", "S256", confidential)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("defaults to plain when method omitted", func(t *testing.T) {
		challenge, method, err := validatePKCE("pkce-challenge", "", public)
		require.NoError(t, err)
		require.Equal(t, "pkce-challenge", challenge)
		require.Equal(t, domain.PKCEMethodPlain, method)
	})

	t.Run("accepts case-insensitive methods", func(t *testing.T) {
		_, method, err := validatePKCE("xyz", "s256", public)
		require.NoError(t, err)
		require.Equal(t, domain.PKCEMethodS256, method)
	})

	t.Run("rejects unsupported methods", func(t *testing.T) {
		_, _, err := validatePKCE("abc", "S512", public)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestAuthorizeValidation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	base := AuthorizeRequest{
		ResponseType:        "code",
		ClientID:            testPublicID,
		RedirectURI:         testRedirect,
		CodeChallenge:       s256("verifier"),
		CodeChallengeMethod: domain.PKCEMethodS256,
		Username:            "alice",
		Password:            testPassword,
	}

	cases := []struct {
		name   string
		mutate func(r *AuthorizeRequest)
		want   error
	}{
		{"response type", func(r *AuthorizeRequest) { r.ResponseType = "token" }, ErrUnsupportedResponseType},
		{"unknown client", func(r *AuthorizeRequest) { r.ClientID = "nope" }, ErrInvalidClient},
		{"redirect mismatch", func(r *AuthorizeRequest) { r.RedirectURI = "https://evil.example/cb" }, ErrInvalidRedirectURI},
		{"missing pkce", func(r *AuthorizeRequest) { r.CodeChallenge, r.CodeChallengeMethod = "", "" }, ErrInvalidRequest},
		{"scope outside client", func(r *AuthorizeRequest) { r.Scope = []string{"openid", "admin"} }, ErrInvalidScope},
		{"no credentials", func(r *AuthorizeRequest) { r.Username, r.Password = "", "" }, ErrLoginRequired},
		{"bad password", func(r *AuthorizeRequest) { r.Password = "wrong" }, ErrInvalidCredentials},
		{"unknown user", func(r *AuthorizeRequest) { r.Username = "mallory" }, ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := e.authorize.IssueAuthorizationCode(e.ctx, req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("wildcard redirect matches prefix", func(t *testing.T) {
		req := base
		req.ClientID = testConfidentID
		req.RedirectURI = "https://api.acme.example/oauth/cb"
		resp, err := e.authorize.IssueAuthorizationCode(e.ctx, req)
		require.NoError(t, err)
		require.Equal(t, req.RedirectURI, resp.RedirectURI)
	})
}

func TestAuthorizationCodeWithPKCE(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	code := e.login(t, testPublicID, verifier, "openid", "profile")

	stored, err := e.store.AuthorizationCodes().GetAuthorizationCodeByHash(e.ctx, cryptox.FingerprintToken(code))
	require.NoError(t, err)
	require.Equal(t, testPublicID, stored.ClientID)
	require.Equal(t, []string{"openid", "profile"}, stored.Scopes)
	require.WithinDuration(t, time.Now().Add(domain.AuthorizationCodeTTL), stored.ExpiresAt, 5*time.Second)

	t.Run("wrong verifier", func(t *testing.T) {
		_, err := e.grants.Exchange(e.ctx, TokenRequest{
			GrantType:    domain.GrantAuthorizationCode,
			ClientID:     testPublicID,
			Code:         code,
			RedirectURI:  testRedirect,
			CodeVerifier: "not-the-verifier",
		})
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	pair, err := e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     testPublicID,
		Code:         code,
		RedirectURI:  testRedirect,
		CodeVerifier: verifier,
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, "openid profile", pair.Scope)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := e.issuer.Validate(e.ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, e.user.ID, claims.Subject)
	require.Equal(t, testPublicID, claims.ClientID)
	require.Equal(t, []string{"member"}, claims.Roles)
	require.Equal(t, []string{"profile:read"}, claims.Permissions)
	require.Equal(t, []string{jwtx.AMRPassword}, claims.AMR)

	t.Run("code is single use", func(t *testing.T) {
		_, err := e.grants.Exchange(e.ctx, TokenRequest{
			GrantType:    domain.GrantAuthorizationCode,
			ClientID:     testPublicID,
			Code:         code,
			RedirectURI:  testRedirect,
			CodeVerifier: verifier,
		})
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestAuthorizationCodeBoundToClient(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	code := e.login(t, testPublicID, "verifier-one")
	_, err := e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     testConfidentID,
		ClientSecret: testSecret,
		Code:         code,
		CodeVerifier: "verifier-one",
	})
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestConsentRequired(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.addClient(t, domain.NewClientParams{
		ClientID:     "consenting",
		Name:         "Needs consent",
		RedirectURIs: []string{testRedirect},
	})
	req := AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      "consenting",
		RedirectURI:   testRedirect,
		Scope:         []string{"openid", "profile"},
		CodeChallenge: "plain-challenge",
		Session:       &SessionContext{UserID: e.user.ID, SessionID: "sid-1"},
	}

	_, err := e.authorize.IssueAuthorizationCode(e.ctx, req)
	require.ErrorIs(t, err, ErrConsentRequired)

	req.ApproveConsent = true
	_, err = e.authorize.IssueAuthorizationCode(e.ctx, req)
	require.NoError(t, err)

	// Recorded consent now covers the request.
	req.ApproveConsent = false
	_, err = e.authorize.IssueAuthorizationCode(e.ctx, req)
	require.NoError(t, err)

	// A wider request needs approval again.
	req.Scope = []string{"openid", "profile", "email"}
	_, err = e.authorize.IssueAuthorizationCode(e.ctx, req)
	require.ErrorIs(t, err, ErrConsentRequired)
}

func TestMFALoginWithTOTP(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	secret := "JBSWY3DPEHPK3PXP"
	require.NoError(t, e.store.Users().UpdateMFASecret(e.ctx, e.user.ID, secret))
	require.NoError(t, e.store.Users().EnableMFA(e.ctx, e.user.ID, time.Now().UTC()))

	req := AuthorizeRequest{
		ResponseType:        "code",
		ClientID:            testPublicID,
		RedirectURI:         testRedirect,
		State:               "state-1",
		CodeChallenge:       s256("verifier"),
		CodeChallengeMethod: domain.PKCEMethodS256,
		Username:            "alice",
		Password:            testPassword,
	}
	_, err := e.authorize.IssueAuthorizationCode(e.ctx, req)
	var mfaErr *MFARequiredError
	require.True(t, errors.As(err, &mfaErr))
	require.NotEmpty(t, mfaErr.MFAToken)
	require.Contains(t, mfaErr.Methods, domain.MFAMethodTOTP)
	require.Contains(t, mfaErr.Methods, domain.MFAMethodEmail)

	complete := AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      testPublicID,
		RedirectURI:   testRedirect,
		CodeChallenge: s256("verifier"),
		MFAToken:      mfaErr.MFAToken,
		MFAMethod:     domain.MFAMethodTOTP,
	}

	t.Run("wrong code counts an attempt", func(t *testing.T) {
		complete := complete
		complete.MFACode = "000000"
		_, err := e.authorize.IssueAuthorizationCode(e.ctx, complete)
		require.ErrorIs(t, err, ErrInvalidCode)

		session, err := e.store.MFASessions().GetMFASession(e.ctx, mfaErr.MFAToken, time.Now().UTC())
		require.NoError(t, err)
		require.Equal(t, 1, session.Attempts)
	})

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	complete.MFACode = code
	resp, err := e.authorize.IssueAuthorizationCode(e.ctx, complete)
	require.NoError(t, err)
	require.Equal(t, "state-1", resp.State)

	stored, err := e.store.AuthorizationCodes().GetAuthorizationCodeByHash(e.ctx, cryptox.FingerprintToken(resp.Code))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{jwtx.AMRPassword, jwtx.AMROTP, jwtx.AMRMFA}, stored.AMR)

	// The session is consumed with the code.
	_, err = e.authorize.IssueAuthorizationCode(e.ctx, complete)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestMFALoginWithEmailCode(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	require.NoError(t, e.store.Users().UpdateMFASecret(e.ctx, e.user.ID, "JBSWY3DPEHPK3PXP"))
	require.NoError(t, e.store.Users().EnableMFA(e.ctx, e.user.ID, time.Now().UTC()))

	_, err := e.authorize.IssueAuthorizationCode(e.ctx, AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      testPublicID,
		RedirectURI:   testRedirect,
		CodeChallenge: "plain-verifier",
		Username:      "alice",
		Password:      testPassword,
	})
	var mfaErr *MFARequiredError
	require.True(t, errors.As(err, &mfaErr))

	req := AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      testPublicID,
		RedirectURI:   testRedirect,
		CodeChallenge: "plain-verifier",
		MFAToken:      mfaErr.MFAToken,
		MFAMethod:     "email",
	}

	// No code yet: one is mailed and the challenge repeats.
	_, err = e.authorize.IssueAuthorizationCode(e.ctx, req)
	require.True(t, errors.As(err, &mfaErr))
	require.Equal(t, []string{domain.MFAMethodEmail}, mfaErr.Methods)

	e.mail.mu.Lock()
	body := e.mail.email[e.user.Email]
	e.mail.mu.Unlock()
	require.NotEmpty(t, body)

	code := ""
	for _, f := range strings.Fields(body) {
		if len(f) == 6 && strings.Trim(f, "0123456789") == "" {
			code = f
		}
	}
	require.Len(t, code, 6)

	req.MFACode = code
	resp, err := e.authorize.IssueAuthorizationCode(e.ctx, req)
	require.NoError(t, err)

	pair, err := e.grants.Exchange(e.ctx, TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     testPublicID,
		Code:         resp.Code,
		CodeVerifier: "plain-verifier",
	})
	require.NoError(t, err)

	claims, err := e.issuer.Validate(e.ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Contains(t, claims.AMR, jwtx.AMRMFA)
}

func TestMFAAttemptsExhausted(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	now := time.Now().UTC()
	session := domain.MFASession{
		ID:        "mfa-session-1",
		UserID:    e.user.ID,
		ClientID:  testPublicID,
		AMR:       []string{jwtx.AMRPassword},
		Attempts:  domain.MaxMFAAttempts,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.MFASessionTTL),
	}
	require.NoError(t, e.store.MFASessions().CreateMFASession(e.ctx, session))

	_, err := e.authorize.IssueAuthorizationCode(e.ctx, AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      testPublicID,
		RedirectURI:   testRedirect,
		CodeChallenge: "c",
		MFAToken:      session.ID,
		MFAMethod:     "totp",
		MFACode:       "123456",
	})
	require.ErrorIs(t, err, ErrTooManyAttempts)
}
