package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

const tokenTypeBearer = "Bearer"

// TokenIssuer mints access and refresh tokens and answers introspection and
// revocation. Access tokens come from one TokenProvider; any registered
// provider can resolve tokens it issued earlier, so switching format does not
// strand tokens already handed out.
type TokenIssuer struct {
	Store    store.Store
	Issuer   string
	Audience []string

	provider  TokenProvider
	providers map[string]TokenProvider
}

func NewTokenIssuer(s store.Store, issuer string, audience []string, provider TokenProvider, resolvers ...TokenProvider) *TokenIssuer {
	t := &TokenIssuer{
		Store:     s,
		Issuer:    issuer,
		Audience:  audience,
		provider:  provider,
		providers: map[string]TokenProvider{provider.Format(): provider},
	}
	for _, r := range resolvers {
		if r != nil {
			t.providers[r.Format()] = r
		}
	}
	return t
}

// Format is the format of newly issued access tokens.
func (t *TokenIssuer) Format() string { return t.provider.Format() }

// UserGrant is everything needed to mint tokens on behalf of a user.
type UserGrant struct {
	Client    domain.Client
	User      domain.User
	Scopes    []string
	SessionID string
	AMR       []string
}

// IssueUserTokens signs an access token and, when the client may refresh,
// stores a new refresh token through tx.
func (t *TokenIssuer) IssueUserTokens(ctx context.Context, tx store.Tx, g UserGrant, now time.Time) (domain.TokenPair, error) {
	role, err := tx.Roles().GetRoleByID(ctx, g.User.RoleID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("load role: %w", err)
	}

	sessionID := g.SessionID
	if sessionID == "" {
		sessionID = idx.NewAt(now).String()
	}
	amr := dedupe(g.AMR)
	if len(amr) == 0 {
		amr = []string{jwtx.AMRPassword}
	}

	ttl := g.Client.AccessTokenTTL()
	claims := jwtx.NewAccessClaims(jwtx.AccessParams{
		Subject:     g.User.ID,
		SessionID:   sessionID,
		ClientID:    g.Client.ClientID,
		Scopes:      g.Scopes,
		Roles:       []string{role.Name},
		Permissions: role.Scopes,
		AMR:         amr,
		Username:    g.User.Username,
		Email:       g.User.Email,
		Issuer:      t.Issuer,
		Audience:    t.audience(g.Client),
		TTL:         ttl,
	}, now)

	access, err := t.provider.Issue(ctx, claims, ttl)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	pair := domain.TokenPair{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   ttl,
		Scope:       strings.Join(g.Scopes, " "),
	}
	if !g.Client.IsGrantTypeAllowed(domain.GrantRefreshToken) {
		return pair, nil
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}
	err = tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		UserID:    g.User.ID,
		ClientID:  g.Client.ClientID,
		TokenHash: cryptox.FingerprintToken(refresh),
		SessionID: sessionID,
		Scopes:    g.Scopes,
		AMR:       amr,
		ExpiresAt: now.Add(g.Client.RefreshTokenTTL()),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	pair.RefreshToken = refresh
	return pair, nil
}

// IssueClientToken mints a client_credentials access token. The client is
// the subject and no refresh token is issued.
func (t *TokenIssuer) IssueClientToken(ctx context.Context, client domain.Client, scopes []string, now time.Time) (domain.TokenPair, error) {
	ttl := client.AccessTokenTTL()
	claims := jwtx.NewAccessClaims(jwtx.AccessParams{
		Subject:    client.ClientID,
		ClientID:   client.ClientID,
		ClientName: client.Name,
		Scopes:     scopes,
		Issuer:     t.Issuer,
		Audience:   t.audience(client),
		TTL:        ttl,
	}, now)

	access, err := t.provider.Issue(ctx, claims, ttl)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	return domain.TokenPair{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   ttl,
		Scope:       strings.Join(scopes, " "),
	}, nil
}

func (t *TokenIssuer) audience(c domain.Client) []string {
	if len(t.Audience) > 0 {
		return t.Audience
	}
	return []string{c.ClientID}
}

// Validate resolves an access token of any registered format.
func (t *TokenIssuer) Validate(ctx context.Context, token string) (jwtx.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return jwtx.Claims{}, ErrInvalidToken
	}
	format := TokenFormatReference
	if looksLikeJWT(token) {
		format = TokenFormatJWT
	}
	p, ok := t.providers[format]
	if !ok {
		return jwtx.Claims{}, ErrInvalidToken
	}
	claims, err := p.Validate(ctx, token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Authenticate adapts Validate to the bearer middleware.
func (t *TokenIssuer) Authenticate(ctx context.Context, token string) (jwtx.Claims, error) {
	return t.Validate(ctx, token)
}

// Introspection is the RFC 7662 response body.
type Introspection struct {
	Active      bool     `json:"active"`
	Scope       string   `json:"scope,omitempty"`
	ClientID    string   `json:"client_id,omitempty"`
	Username    string   `json:"username,omitempty"`
	TokenType   string   `json:"token_type,omitempty"`
	Exp         int64    `json:"exp,omitempty"`
	Iat         int64    `json:"iat,omitempty"`
	Nbf         int64    `json:"nbf,omitempty"`
	Sub         string   `json:"sub,omitempty"`
	Aud         []string `json:"aud,omitempty"`
	Iss         string   `json:"iss,omitempty"`
	Jti         string   `json:"jti,omitempty"`
	SID         string   `json:"sid,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	AMR         []string `json:"amr,omitempty"`
}

// Introspect never fails: anything that is not a live token is inactive.
func (t *TokenIssuer) Introspect(ctx context.Context, token, hint string) Introspection {
	log := slogx.FromContext(ctx)
	token = strings.TrimSpace(token)
	if token == "" {
		return Introspection{}
	}

	if hint == domain.TokenTypeHintRefresh {
		if res, ok := t.introspectRefresh(ctx, token); ok {
			return res
		}
		if res, ok := t.introspectAccess(ctx, token); ok {
			return res
		}
		return Introspection{}
	}

	if res, ok := t.introspectAccess(ctx, token); ok {
		return res
	}
	if res, ok := t.introspectRefresh(ctx, token); ok {
		return res
	}
	log.Debug("introspected inactive token", "hint", hint)
	return Introspection{}
}

func (t *TokenIssuer) introspectAccess(ctx context.Context, token string) (Introspection, bool) {
	claims, err := t.Validate(ctx, token)
	if err != nil {
		return Introspection{}, false
	}
	res := Introspection{
		Active:      true,
		Scope:       claims.Scope,
		ClientID:    claims.ClientID,
		Username:    claims.Username,
		TokenType:   tokenTypeBearer,
		Sub:         claims.Subject,
		Aud:         claims.Audience,
		Iss:         claims.Issuer,
		Jti:         claims.ID,
		SID:         claims.SID,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		AMR:         claims.AMR,
	}
	if claims.ExpiresAt != nil {
		res.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		res.Iat = claims.IssuedAt.Unix()
	}
	if claims.NotBefore != nil {
		res.Nbf = claims.NotBefore.Unix()
	}
	return res, true
}

func (t *TokenIssuer) introspectRefresh(ctx context.Context, token string) (Introspection, bool) {
	rt, err := t.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Warn("refresh token lookup failed during introspection", "error", err)
		}
		return Introspection{}, false
	}
	if !rt.IsValid(time.Now()) {
		return Introspection{}, true
	}
	return Introspection{
		Active:    true,
		Scope:     strings.Join(rt.Scopes, " "),
		ClientID:  rt.ClientID,
		TokenType: domain.TokenTypeHintRefresh,
		Exp:       rt.ExpiresAt.Unix(),
		Iat:       rt.CreatedAt.Unix(),
		Sub:       rt.UserID,
		Iss:       t.Issuer,
		SID:       rt.SessionID,
		AMR:       rt.AMR,
	}, true
}

// Revoke invalidates refresh tokens and reference tokens. Signed access
// tokens and unknown values are accepted silently; only infrastructure
// failures are returned.
func (t *TokenIssuer) Revoke(ctx context.Context, token, hint string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	if hint != domain.TokenTypeHintAccess {
		done, err := t.revokeRefresh(ctx, token)
		if done || err != nil {
			return err
		}
	}

	for _, p := range t.providers {
		done, err := p.Revoke(ctx, token)
		if err != nil {
			return fmt.Errorf("revoke %s token: %w", strings.ToLower(p.Format()), err)
		}
		if done {
			return nil
		}
	}

	if hint == domain.TokenTypeHintAccess {
		_, err := t.revokeRefresh(ctx, token)
		return err
	}
	return nil
}

func (t *TokenIssuer) revokeRefresh(ctx context.Context, token string) (bool, error) {
	hash := cryptox.FingerprintToken(token)
	if _, err := t.Store.RefreshTokens().GetRefreshTokenByHash(ctx, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := t.Store.RefreshTokens().RevokeRefreshToken(ctx, hash, time.Now().UTC()); err != nil {
		return false, err
	}
	return true, nil
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
