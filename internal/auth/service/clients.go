package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrClientExists    = errors.New("client_id already registered")
	ErrClientProtected = errors.New("client is protected and cannot be deleted")
)

// Client registration limits.
const (
	maxClientIDLength    = 100
	maxClientNameLength  = 200
	maxDescriptionLength = 1000
	minSecretLength      = 32
	maxAccessLifetime    = 86400 // seconds
	maxRefreshLifetime   = 365   // days
)

var clientIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type ClientService struct {
	Store store.Store
}

// CreateClientInput mirrors the admin API body. Zero values take the
// registry defaults.
type CreateClientInput struct {
	ClientID               string
	ClientSecret           string
	Public                 bool
	Name                   string
	Description            string
	RequireConsent         *bool
	RequirePKCE            *bool
	AccessTokenLifetime    int
	RefreshTokenLifetime   int
	AllowedGrantTypes      []string
	AllowedScopes          []string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	CreatedBy              string
}

// CreateClient registers a client. For confidential clients without a
// supplied secret one is generated; the plaintext is returned once.
func (s *ClientService) CreateClient(ctx context.Context, in CreateClientInput) (domain.Client, string, error) {
	l := slogx.FromContext(ctx)
	if err := validateClientInput(in); err != nil {
		return domain.Client{}, "", err
	}

	var secret, secretHash string
	if !in.Public {
		secret = in.ClientSecret
		if secret == "" {
			var err error
			if secret, err = cryptox.GenerateSecret(); err != nil {
				return domain.Client{}, "", err
			}
		}
		var err error
		if secretHash, err = cryptox.HashPassword(secret); err != nil {
			return domain.Client{}, "", err
		}
	}

	now := time.Now().UTC()
	client, ev, err := domain.NewClient(domain.NewClientParams{
		ID:                     idx.NewAt(now).String(),
		ClientID:               strings.TrimSpace(in.ClientID),
		SecretHash:             secretHash,
		Name:                   strings.TrimSpace(in.Name),
		Description:            in.Description,
		RequireConsent:         in.RequireConsent,
		RequirePKCE:            in.RequirePKCE,
		AccessTokenLifetime:    in.AccessTokenLifetime,
		RefreshTokenLifetime:   in.RefreshTokenLifetime,
		AllowedGrantTypes:      in.AllowedGrantTypes,
		AllowedScopes:          in.AllowedScopes,
		RedirectURIs:           in.RedirectURIs,
		PostLogoutRedirectURIs: in.PostLogoutRedirectURIs,
		CreatedBy:              in.CreatedBy,
	}, now)
	if err != nil {
		return domain.Client{}, "", invalid("client", err.Error())
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Clients().CreateClient(ctx, client); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrClientExists
			}
			return err
		}
		return enqueue(ctx, tx, now, ev)
	})
	if err != nil {
		return domain.Client{}, "", err
	}

	l.Info("client created", "client_id", client.ClientID, "name", client.Name, "confidential", client.IsConfidential())
	return client, secret, nil
}

func validateClientInput(in CreateClientInput) error {
	id := strings.TrimSpace(in.ClientID)
	switch {
	case id == "":
		return invalid("client_id", "is required")
	case len(id) > maxClientIDLength:
		return invalid("client_id", "must be at most 100 characters")
	case !clientIDPattern.MatchString(id):
		return invalid("client_id", "may only contain letters, digits, '-' and '_'")
	}

	if in.Public && in.ClientSecret != "" {
		return invalid("client_secret", "public clients have no secret")
	}
	if in.ClientSecret != "" && len(in.ClientSecret) < minSecretLength {
		return invalid("client_secret", "must be at least 32 characters")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalid("name", "is required")
	}
	if len(name) > maxClientNameLength {
		return invalid("name", "must be at most 200 characters")
	}
	if len(in.Description) > maxDescriptionLength {
		return invalid("description", "must be at most 1000 characters")
	}

	if in.AccessTokenLifetime != 0 && (in.AccessTokenLifetime < 1 || in.AccessTokenLifetime > maxAccessLifetime) {
		return invalid("access_token_lifetime", "must be between 1 and 86400 seconds")
	}
	if in.RefreshTokenLifetime != 0 && (in.RefreshTokenLifetime < 1 || in.RefreshTokenLifetime > maxRefreshLifetime) {
		return invalid("refresh_token_lifetime", "must be between 1 and 365 days")
	}

	for _, g := range in.AllowedGrantTypes {
		switch strings.ToLower(g) {
		case domain.GrantAuthorizationCode, domain.GrantClientCredentials, domain.GrantRefreshToken:
		default:
			return invalid("allowed_grant_types", "unsupported grant type "+g)
		}
	}
	for _, u := range in.RedirectURIs {
		if !isAbsoluteURI(strings.TrimSuffix(u, "*")) {
			return invalid("redirect_uris", "must be absolute: "+u)
		}
	}
	for _, u := range in.PostLogoutRedirectURIs {
		if !isAbsoluteURI(u) {
			return invalid("post_logout_redirect_uris", "must be absolute: "+u)
		}
	}
	return nil
}

func isAbsoluteURI(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}

func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	c, err := s.Store.Clients().GetClientByClientID(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, ErrClientNotFound
	}
	return c, err
}

// RotateSecret replaces the secret, generating one when secret is empty,
// and returns the new plaintext. Lifetimes are left alone.
func (s *ClientService) RotateSecret(ctx context.Context, clientID, secret string) (string, error) {
	if secret != "" && len(secret) < minSecretLength {
		return "", invalid("client_secret", "must be at least 32 characters")
	}
	if secret == "" {
		var err error
		if secret, err = cryptox.GenerateSecret(); err != nil {
			return "", err
		}
	}
	hash, err := cryptox.HashPassword(secret)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.Clients().GetClientByClientID(ctx, clientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		ev := c.RotateSecret(hash, now)
		if err := tx.Clients().UpdateClient(ctx, c); err != nil {
			return err
		}
		return enqueue(ctx, tx, now, ev)
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("client secret rotated", "client_id", clientID)
	return secret, nil
}

// SetActive activates or deactivates a client.
func (s *ClientService) SetActive(ctx context.Context, clientID string, active bool) (domain.Client, error) {
	now := time.Now().UTC()
	var out domain.Client
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.Clients().GetClientByClientID(ctx, clientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		if active {
			c.Activate(now)
		} else {
			c.Deactivate(now)
		}
		out = c
		return tx.Clients().UpdateClient(ctx, c)
	})
	return out, err
}

// DeleteClient refuses protected clients such as the bootstrap client.
func (s *ClientService) DeleteClient(ctx context.Context, clientID string) error {
	l := slogx.FromContext(ctx)

	client, err := s.Store.Clients().GetClientByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	if client.Protected {
		l.Warn("attempted to delete protected client", "client_id", clientID)
		return ErrClientProtected
	}

	if err := s.Store.Clients().DeleteClient(ctx, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	l.Info("client deleted", "client_id", clientID)
	return nil
}
