package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// TokenRequest is a parsed token endpoint form.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Scopes       []string
}

// GrantHandler exchanges one grant type for tokens. The client passed in is
// already authenticated, active and allowed to use the grant.
type GrantHandler interface {
	Exchange(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error)
}

type GrantHandlerFunc func(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error)

func (f GrantHandlerFunc) Exchange(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error) {
	return f(ctx, client, req)
}

// GrantDispatcher routes token requests to the handler registered for the
// grant type.
type GrantDispatcher struct {
	Store   store.Store
	Metrics *metrics.Metrics

	handlers map[string]GrantHandler
}

func NewGrantDispatcher(s store.Store, m *metrics.Metrics, handlers map[string]GrantHandler) *GrantDispatcher {
	d := &GrantDispatcher{Store: s, Metrics: m, handlers: make(map[string]GrantHandler, len(handlers))}
	for name, h := range handlers {
		d.handlers[strings.ToLower(name)] = h
	}
	return d
}

// DefaultGrants wires the three supported grant types.
func DefaultGrants(s store.Store, issuer *TokenIssuer) map[string]GrantHandler {
	return map[string]GrantHandler{
		domain.GrantAuthorizationCode: &AuthorizationCodeGrant{Store: s, Issuer: issuer},
		domain.GrantClientCredentials: &ClientCredentialsGrant{Issuer: issuer},
		domain.GrantRefreshToken:      &RefreshTokenGrant{Store: s, Issuer: issuer},
	}
}

// SupportedGrantTypes lists registered grant types, sorted.
func (d *GrantDispatcher) SupportedGrantTypes() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (d *GrantDispatcher) Exchange(ctx context.Context, req TokenRequest) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	grant := strings.ToLower(strings.TrimSpace(req.GrantType))
	if grant == "" {
		return domain.TokenPair{}, invalid("grant_type", "is required")
	}
	if grant == domain.GrantDeviceCode || grant == domain.GrantDeviceCodeURN {
		return domain.TokenPair{}, ErrGrantNotImplemented
	}
	handler, ok := d.handlers[grant]
	if !ok {
		return domain.TokenPair{}, ErrUnsupportedGrantType
	}

	client, err := d.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !client.IsGrantTypeAllowed(grant) {
		log.Info("grant type not allowed for client", slog.String("client_id", client.ClientID), slog.String("grant_type", grant))
		return domain.TokenPair{}, ErrUnauthorizedClient
	}

	pair, err := handler.Exchange(ctx, client, req)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := d.Store.Clients().TouchClientLastUsed(ctx, client.ClientID, time.Now().UTC()); err != nil {
		log.Warn("failed to record client usage", "client_id", client.ClientID, "error", err)
	}
	d.Metrics.TokenIssued(grant)
	return pair, nil
}

// authenticateClient verifies the secret of confidential clients. Public
// clients must not present one.
func (d *GrantDispatcher) authenticateClient(ctx context.Context, clientID, secret string) (domain.Client, error) {
	log := slogx.FromContext(ctx)
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return domain.Client{}, ErrInvalidClient
	}

	client, err := d.Store.Clients().GetClientByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, err
	}
	if !client.IsActive {
		log.Info("token request from inactive client", slog.String("client_id", clientID))
		return domain.Client{}, ErrInvalidClient
	}

	if client.IsConfidential() {
		if secret == "" || cryptox.VerifyPassword(secret, client.SecretHash) != nil {
			log.Info("client authentication failed", slog.String("client_id", clientID))
			return domain.Client{}, ErrInvalidClient
		}
	} else if secret != "" {
		return domain.Client{}, ErrInvalidClient
	}
	return client, nil
}

// AuthorizationCodeGrant redeems a code. Marking the code used and storing
// the refresh token share one transaction, so a failure leaves the code
// redeemable and the client sees an error.
type AuthorizationCodeGrant struct {
	Store  store.Store
	Issuer *TokenIssuer
}

func (g *AuthorizationCodeGrant) Exchange(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return domain.TokenPair{}, invalid("code", "is required")
	}
	now := time.Now().UTC()

	var pair domain.TokenPair
	err := g.Store.WithTx(ctx, func(tx store.Tx) error {
		ac, err := tx.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(code))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if err := checkRedeemable(&ac, client, req, now); err != nil {
			log.Info("authorization code rejected", "client_id", client.ClientID, "reason", err.Error())
			return ErrInvalidGrant
		}

		user, err := tx.Users().GetUserByID(ctx, ac.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		if !user.IsActive {
			return ErrInvalidGrant
		}

		if err := ac.MarkUsed(now); err != nil {
			return ErrInvalidGrant
		}
		if err := tx.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, ac.ID, now); err != nil {
			if errors.Is(err, domain.ErrCodeAlreadyUsed) || errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		pair, err = g.Issuer.IssueUserTokens(ctx, tx, UserGrant{
			Client:    client,
			User:      user,
			Scopes:    ac.Scopes,
			SessionID: ac.SessionID,
			AMR:       ac.AMR,
		}, now)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

func checkRedeemable(ac *domain.AuthorizationCode, client domain.Client, req TokenRequest, now time.Time) error {
	switch {
	case ac.IsUsed():
		return errors.New("already used")
	case ac.IsExpired(now):
		return errors.New("expired")
	case ac.ClientID != client.ClientID:
		return errors.New("issued to another client")
	case req.RedirectURI != "" && !strings.EqualFold(req.RedirectURI, ac.RedirectURI):
		return errors.New("redirect_uri mismatch")
	case !client.IsConfidential() && ac.CodeChallenge == "":
		return errors.New("public client code without pkce")
	case !ac.VerifyVerifier(req.CodeVerifier):
		return errors.New("pkce verification failed")
	}
	return nil
}

// ClientCredentialsGrant issues a token to the client itself.
type ClientCredentialsGrant struct {
	Issuer *TokenIssuer
}

func (g *ClientCredentialsGrant) Exchange(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error) {
	if !client.IsConfidential() {
		return domain.TokenPair{}, ErrUnauthorizedClient
	}
	scopes := dedupe(req.Scopes)
	if len(scopes) == 0 {
		scopes = client.AllowedScopes
	}
	if !client.AllScopesAllowed(scopes) {
		return domain.TokenPair{}, ErrInvalidScope
	}
	return g.Issuer.IssueClientToken(ctx, client, scopes, time.Now().UTC())
}

// errRefreshReplayed marks presentation of an already rotated token.
var errRefreshReplayed = errors.New("refresh token replayed")

// RefreshTokenGrant rotates refresh tokens: the presented token is revoked
// and a new pair is issued in the same transaction. Presenting a revoked
// token fails and revokes every token the user holds for that client.
type RefreshTokenGrant struct {
	Store  store.Store
	Issuer *TokenIssuer
}

func (g *RefreshTokenGrant) Exchange(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	presented := strings.TrimSpace(req.RefreshToken)
	if presented == "" {
		return domain.TokenPair{}, invalid("refresh_token", "is required")
	}
	hash := cryptox.FingerprintToken(presented)
	now := time.Now().UTC()

	var (
		pair   domain.TokenPair
		replay domain.RefreshToken
	)
	err := g.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		if rt.ClientID != client.ClientID {
			return ErrInvalidGrant
		}
		if rt.Revoked {
			replay = rt
			return errRefreshReplayed
		}
		if rt.IsExpired(now) {
			return ErrInvalidGrant
		}

		scopes := rt.Scopes
		if len(req.Scopes) > 0 {
			for _, s := range req.Scopes {
				if !slices.Contains(rt.Scopes, s) {
					return ErrInvalidScope
				}
			}
			scopes = dedupe(req.Scopes)
		}

		user, err := tx.Users().GetUserByID(ctx, rt.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		if !user.IsActive {
			return ErrInvalidGrant
		}

		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, hash, now); err != nil {
			return fmt.Errorf("revoke rotated token: %w", err)
		}
		pair, err = g.Issuer.IssueUserTokens(ctx, tx, UserGrant{
			Client:    client,
			User:      user,
			Scopes:    scopes,
			SessionID: rt.SessionID,
			AMR:       rt.AMR,
		}, now)
		return err
	})

	if errors.Is(err, errRefreshReplayed) {
		log.Warn("revoked refresh token presented, revoking token family",
			"client_id", client.ClientID, "user_id", replay.UserID, "session_id", replay.SessionID)
		if err := g.Store.RefreshTokens().RevokeAllUserClientRefreshTokens(ctx, replay.UserID, replay.ClientID, now); err != nil {
			log.Error("failed to revoke token family", "error", err)
		}
		return domain.TokenPair{}, ErrInvalidGrant
	}
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}
