package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/service/mfa"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// AuthorizeService issues authorization codes (RFC 6749 section 4.1).
type AuthorizeService struct {
	Store   store.Store
	MFA     *mfa.Factory
	CodeTTL time.Duration
}

// AuthorizeRequest captures the authorize endpoint parameters together with
// whichever way the user is authenticating.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string

	// ApproveConsent records consent for the requested scopes when the
	// client requires it and none is on file.
	ApproveConsent bool

	// Session is set when the caller presented a valid bearer token.
	Session *SessionContext

	Username string
	Password string

	// MFA completion. An empty MFACode with a delivered method (sms, email)
	// sends a fresh code and asks again.
	MFAToken  string
	MFAMethod string
	MFACode   string
}

// SessionContext describes an already authenticated user.
type SessionContext struct {
	UserID    string
	SessionID string
	AMR       []string
}

type AuthorizeCodeResponse struct {
	Code        string
	RedirectURI string
	State       string
}

// authorization is a validated request waiting for an authenticated user.
type authorization struct {
	client    domain.Client
	req       AuthorizeRequest
	scopes    []string
	challenge string
	method    string
}

// IssueAuthorizationCode validates the request, authenticates the user and
// issues a single-use code. The checks run in this order: response_type,
// client, redirect_uri, grant type, PKCE, scopes, authentication, consent.
//
// It returns *MFARequiredError when a second factor is needed,
// ErrConsentRequired when consent is missing, and ErrInvalidRedirectURI or
// ErrInvalidClient for failures that must not be redirected to the client.
func (s *AuthorizeService) IssueAuthorizationCode(ctx context.Context, req AuthorizeRequest) (*AuthorizeCodeResponse, error) {
	az, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if strings.TrimSpace(req.MFAToken) != "" {
		return s.completeMFA(ctx, az, now)
	}

	if req.Session != nil {
		if strings.TrimSpace(req.Session.UserID) == "" {
			return nil, ErrLoginRequired
		}
		user, err := s.activeUser(ctx, req.Session.UserID)
		if err != nil {
			return nil, err
		}
		amr := req.Session.AMR
		if len(amr) == 0 {
			amr = []string{jwtx.AMRPassword}
		}
		return s.issue(ctx, az, user, req.Session.SessionID, amr, "", now)
	}

	return s.passwordLogin(ctx, az, now)
}

func (s *AuthorizeService) validate(ctx context.Context, req AuthorizeRequest) (authorization, error) {
	log := slogx.FromContext(ctx)

	if !strings.EqualFold(strings.TrimSpace(req.ResponseType), "code") {
		return authorization{}, ErrUnsupportedResponseType
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return authorization{}, ErrInvalidClient
	}
	client, err := s.Store.Clients().GetClientByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return authorization{}, ErrInvalidClient
		}
		return authorization{}, err
	}
	if !client.IsActive {
		log.Info("authorize request for inactive client", "client_id", clientID)
		return authorization{}, ErrInvalidClient
	}
	if !client.IsRedirectURIAllowed(strings.TrimSpace(req.RedirectURI)) {
		return authorization{}, ErrInvalidRedirectURI
	}
	if !client.IsGrantTypeAllowed(domain.GrantAuthorizationCode) {
		return authorization{}, ErrUnauthorizedClient
	}

	challenge, method, err := validatePKCE(req.CodeChallenge, req.CodeChallengeMethod, client)
	if err != nil {
		return authorization{}, err
	}

	scopes := dedupe(req.Scope)
	if len(scopes) == 0 {
		scopes = client.AllowedScopes
	}
	if len(scopes) == 0 || !client.AllScopesAllowed(scopes) {
		return authorization{}, ErrInvalidScope
	}

	req.RedirectURI = strings.TrimSpace(req.RedirectURI)
	return authorization{client: client, req: req, scopes: scopes, challenge: challenge, method: method}, nil
}

func (s *AuthorizeService) passwordLogin(ctx context.Context, az authorization, now time.Time) (*AuthorizeCodeResponse, error) {
	log := slogx.FromContext(ctx)
	username := strings.TrimSpace(az.req.Username)
	if username == "" || az.req.Password == "" {
		return nil, ErrLoginRequired
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same time as a real verification.
			_ = cryptox.VerifyPassword(az.req.Password, dummyPasswordHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if cryptox.VerifyPassword(az.req.Password, user.PasswordHash) != nil || !user.IsActive {
		log.Info("password login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	sessionID := idx.NewAt(now).String()
	amr := []string{jwtx.AMRPassword}
	if !user.HasTOTP() {
		return s.issue(ctx, az, user, sessionID, amr, "", now)
	}

	session := domain.MFASession{
		ID:                  idx.NewAt(now).String(),
		UserID:              user.ID,
		ClientID:            az.client.ClientID,
		RedirectURI:         az.req.RedirectURI,
		Scopes:              az.scopes,
		State:               az.req.State,
		CodeChallenge:       az.challenge,
		CodeChallengeMethod: az.method,
		AMR:                 amr,
		SessionID:           sessionID,
		CreatedAt:           now,
		ExpiresAt:           now.Add(domain.MFASessionTTL),
	}
	if err := s.Store.MFASessions().CreateMFASession(ctx, session); err != nil {
		return nil, fmt.Errorf("create mfa session: %w", err)
	}
	return nil, &MFARequiredError{MFAToken: session.ID, Methods: s.methodsFor(user)}
}

// completeMFA finishes a login that stopped at the second factor. The code
// is bound to what the session recorded, not to the resubmitted request.
func (s *AuthorizeService) completeMFA(ctx context.Context, az authorization, now time.Time) (*AuthorizeCodeResponse, error) {
	log := slogx.FromContext(ctx)
	token := strings.TrimSpace(az.req.MFAToken)

	session, err := s.Store.MFASessions().GetMFASession(ctx, token, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if session.AttemptsExhausted() {
		_ = s.Store.MFASessions().DeleteMFASession(ctx, session.ID)
		log.Warn("mfa session exceeded max attempts", "user_id", session.UserID, "attempts", session.Attempts)
		return nil, ErrTooManyAttempts
	}
	if session.ClientID != az.client.ClientID {
		return nil, ErrInvalidGrant
	}

	provider, err := s.provider(az.req.MFAMethod)
	if err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	identifier := mfaIdentifier(provider.Type(), user)

	if strings.TrimSpace(az.req.MFACode) == "" {
		if provider.Type() == mfa.TypeTOTP {
			return nil, invalid("mfa_code", "is required")
		}
		if err := sendCode(ctx, provider, user, identifier); err != nil {
			return nil, err
		}
		return nil, &MFARequiredError{MFAToken: session.ID, Methods: []string{strings.ToLower(provider.Type())}}
	}

	ok, err := provider.VerifyCode(ctx, user, identifier, strings.TrimSpace(az.req.MFACode))
	if err != nil && !errors.Is(err, mfa.ErrTOTPNotEnrolled) {
		return nil, err
	}
	if !ok {
		updated, err := s.Store.MFASessions().IncrementMFASessionAttempts(ctx, session.ID)
		if err != nil {
			log.Error("failed to increment mfa attempts", "error", err)
		} else {
			log.Warn("mfa verification failed", "user_id", user.ID, "attempts", updated.Attempts, "method", provider.Type())
		}
		return nil, ErrInvalidCode
	}

	// The session, not the resubmitted request, decides what the code covers.
	az.scopes = session.Scopes
	az.challenge = session.CodeChallenge
	az.method = session.CodeChallengeMethod
	az.req.RedirectURI = session.RedirectURI
	az.req.State = session.State

	amr := append(dedupe(session.AMR), mfa.AMR(provider.Type()), jwtx.AMRMFA)
	return s.issue(ctx, az, user, session.SessionID, amr, session.ID, now)
}

// issue checks consent and stores the code. mfaSessionID, when set, is
// deleted in the same transaction.
func (s *AuthorizeService) issue(
	ctx context.Context,
	az authorization,
	user domain.User,
	sessionID string,
	amr []string,
	mfaSessionID string,
	now time.Time,
) (*AuthorizeCodeResponse, error) {
	code, err := cryptox.GenerateAuthorizationCode()
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = idx.NewAt(now).String()
	}
	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = domain.AuthorizationCodeTTL
	}

	record := domain.AuthorizationCode{
		ID:                  idx.NewAt(now).String(),
		CodeHash:            cryptox.FingerprintToken(code),
		ClientID:            az.client.ClientID,
		UserID:              user.ID,
		RedirectURI:         az.req.RedirectURI,
		Scopes:              az.scopes,
		State:               az.req.State,
		SessionID:           sessionID,
		AMR:                 dedupe(amr),
		CodeChallenge:       az.challenge,
		CodeChallengeMethod: az.method,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if az.client.RequireConsent {
			if err := ensureConsent(ctx, tx, az, user.ID, now); err != nil {
				return err
			}
		}
		if err := tx.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
			return fmt.Errorf("store authorization code: %w", err)
		}
		if mfaSessionID != "" {
			return tx.MFASessions().DeleteMFASession(ctx, mfaSessionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AuthorizeCodeResponse{Code: code, RedirectURI: record.RedirectURI, State: record.State}, nil
}

func ensureConsent(ctx context.Context, tx store.Tx, az authorization, userID string, now time.Time) error {
	consent, err := tx.Consents().GetConsent(ctx, userID, az.client.ClientID)
	switch {
	case err == nil && consent.IsValid(now) && consent.CoversScopes(az.scopes):
		return nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	case !az.req.ApproveConsent:
		return ErrConsentRequired
	}

	if errors.Is(err, store.ErrNotFound) {
		consent = domain.NewConsent(idx.NewAt(now).String(), userID, az.client.ClientID, now)
	}
	consent.Grant(mergeScopes(consent, az.scopes, now), nil, now)
	return tx.Consents().UpsertConsent(ctx, consent)
}

// mergeScopes keeps what a still valid consent already covered.
func mergeScopes(c domain.Consent, requested []string, now time.Time) []string {
	if !c.IsValid(now) {
		return requested
	}
	return dedupe(append(append([]string{}, c.Scopes...), requested...))
}

func (s *AuthorizeService) activeUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrLoginRequired
		}
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, ErrAccessDenied
	}
	return user, nil
}

func (s *AuthorizeService) provider(method string) (mfa.Provider, error) {
	if s.MFA == nil {
		return nil, invalid("mfa_method", "no mfa providers configured")
	}
	p, err := s.MFA.Get(method)
	if err != nil {
		return nil, invalid("mfa_method", err.Error())
	}
	return p, nil
}

// methodsFor lists the second factors the user can complete.
func (s *AuthorizeService) methodsFor(user domain.User) []string {
	if s.MFA == nil {
		return []string{domain.MFAMethodTOTP}
	}
	var out []string
	for _, t := range s.MFA.Types() {
		if mfaIdentifier(t, user) != "" || t == mfa.TypeTOTP {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}

// mfaIdentifier is the destination on file for a delivered code.
func mfaIdentifier(providerType string, user domain.User) string {
	switch providerType {
	case mfa.TypeEmail:
		return user.Email
	case mfa.TypeSMS:
		return user.PhoneNumber
	default:
		return ""
	}
}

func sendCode(ctx context.Context, p mfa.Provider, user domain.User, identifier string) error {
	if identifier == "" && p.Type() != mfa.TypeTOTP {
		return invalid("identifier", "no destination on file for "+strings.ToLower(p.Type()))
	}
	code, err := p.GenerateCode(ctx, user, identifier)
	if err != nil {
		return err
	}
	sent, err := p.SendCode(ctx, user, identifier, code)
	if err != nil {
		return err
	}
	if !sent {
		return ErrCodeNotSent
	}
	return nil
}

// validatePKCE normalises the challenge. A method without a challenge is an
// error; a challenge without a method means plain (RFC 7636 section 4.3).
// Public clients and clients with require_pkce must send a challenge.
func validatePKCE(challenge, method string, client domain.Client) (string, string, error) {
	challenge = strings.TrimSpace(challenge)
	method = strings.TrimSpace(method)

	if challenge == "" {
		if method != "" {
			return "", "", invalid("code_challenge", "is required with code_challenge_method")
		}
		if client.RequirePKCE || !client.IsConfidential() {
			return "", "", invalid("code_challenge", "is required for this client")
		}
		return "", "", nil
	}

	switch {
	case method == "":
		method = domain.PKCEMethodPlain
	case strings.EqualFold(method, domain.PKCEMethodS256):
		method = domain.PKCEMethodS256
	case strings.EqualFold(method, domain.PKCEMethodPlain):
		method = domain.PKCEMethodPlain
	default:
		return "", "", invalid("code_challenge_method", "must be S256 or plain")
	}
	return challenge, method, nil
}

// dummyPasswordHash is verified against when the username is unknown.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHRzb21lc2FsdA$3Ve0sk2QHvwVb6m9vYkNsg0rPlWbq1tWcaMSTBlr4dA"
