package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// AdminRole must be among the bootstrap roles; the admin user gets it.
const AdminRole = "admin"

type BootstrapService struct {
	Store store.Store
	Token string // BOOTSTRAP_TOKEN; empty disables bootstrap
}

// BootstrapResult carries the generated client secret, shown once.
type BootstrapResult struct {
	AdminUserID  string
	ClientID     string
	ClientSecret string
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	userEmpty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	clientEmpty, err := s.Store.Clients().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !userEmpty && !clientEmpty, nil
}

// Bootstrap seeds roles, the admin user and a protected admin client in one
// transaction.
func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req domain.BootstrapData) (BootstrapResult, error) {
	l := slogx.FromContext(ctx)

	if s.Token == "" || !cryptox.Equal(token, s.Token) {
		l.Warn("unauthorized bootstrap attempt")
		return BootstrapResult{}, ErrBootstrapUnauthorized
	}
	if done, err := s.IsBootstrapped(ctx); err != nil {
		return BootstrapResult{}, err
	} else if done {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return BootstrapResult{}, ErrBootstrapAlready
	}
	if err := validateBootstrap(req); err != nil {
		return BootstrapResult{}, err
	}

	passHash, err := cryptox.HashPassword(req.AdminPassword)
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("hash admin password: %w", err)
	}
	secret, err := cryptox.GenerateSecret()
	if err != nil {
		return BootstrapResult{}, err
	}
	secretHash, err := cryptox.HashPassword(secret)
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("hash client secret: %w", err)
	}

	now := time.Now().UTC()
	requireConsent := false
	client, created, err := domain.NewClient(domain.NewClientParams{
		ID:                idx.NewAt(now).String(),
		ClientID:          req.ClientID,
		SecretHash:        secretHash,
		Name:              req.ClientName,
		RequireConsent:    &requireConsent,
		AllowedGrantTypes: []string{domain.GrantAuthorizationCode, domain.GrantClientCredentials, domain.GrantRefreshToken},
		AllowedScopes:     req.ClientScopes,
		RedirectURIs:      req.RedirectURIs,
		Protected:         true,
		CreatedBy:         "bootstrap",
	}, now)
	if err != nil {
		return BootstrapResult{}, invalid("client", err.Error())
	}

	adminID := idx.NewAt(now).String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		roleIDs := make(map[string]string, len(req.Roles))
		for _, def := range req.Roles {
			id := idx.NewAt(now).String()
			if err := tx.Roles().CreateRole(ctx, domain.Role{
				ID: id, Name: def.Name, Scopes: def.Scopes, CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return fmt.Errorf("create role %s: %w", def.Name, err)
			}
			roleIDs[def.Name] = id
		}

		if err := tx.Users().CreateUser(ctx, domain.User{
			ID:            adminID,
			Username:      req.AdminUsername,
			Email:         req.AdminEmail,
			PreferredName: req.AdminPreferredName,
			PasswordHash:  passHash,
			RoleID:        roleIDs[AdminRole],
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}); err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}

		if err := tx.Clients().CreateClient(ctx, client); err != nil {
			return fmt.Errorf("create admin client: %w", err)
		}
		return enqueue(ctx, tx, now, created)
	})
	if err != nil {
		return BootstrapResult{}, err
	}

	l.Info("successfully bootstrapped system",
		slog.String("admin_user_id", adminID),
		slog.String("client_id", client.ClientID),
	)
	return BootstrapResult{AdminUserID: adminID, ClientID: client.ClientID, ClientSecret: secret}, nil
}

func validateBootstrap(req domain.BootstrapData) error {
	if strings.TrimSpace(req.AdminUsername) == "" {
		return invalid("admin_username", "is required")
	}
	if len(req.AdminPassword) < 12 {
		return invalid("admin_password", "must be at least 12 characters")
	}
	if strings.TrimSpace(req.ClientID) == "" || !clientIDPattern.MatchString(req.ClientID) {
		return invalid("client_id", "may only contain letters, digits, '-' and '_'")
	}
	if strings.TrimSpace(req.ClientName) == "" {
		return invalid("client_name", "is required")
	}
	for _, def := range req.Roles {
		if def.Name == AdminRole {
			return nil
		}
	}
	return invalid("roles", "an admin role is required")
}
