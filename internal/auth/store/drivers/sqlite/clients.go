package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type clientsRepo struct {
	q *gen.Queries
}

func (r *clientsRepo) GetClientByClientID(ctx context.Context, clientID string) (domain.Client, error) {
	row, err := r.q.GetClientByClientID(ctx, clientID)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return mapClient(row), nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.q.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	clients := make([]domain.Client, len(rows))
	for i, row := range rows {
		clients[i] = mapClient(row)
	}
	return clients, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	err := r.q.CreateClient(ctx, gen.CreateClientParams{
		ID:                     c.ID,
		ClientID:               c.ClientID,
		SecretHash:             mapStringNull(c.SecretHash),
		Name:                   c.Name,
		Description:            c.Description,
		IsActive:               c.IsActive,
		RequireConsent:         c.RequireConsent,
		RequirePkce:            c.RequirePKCE,
		AccessTokenLifetime:    int64(c.AccessTokenLifetime),
		RefreshTokenLifetime:   int64(c.RefreshTokenLifetime),
		AllowedGrantTypes:      encodeList(c.AllowedGrantTypes),
		AllowedScopes:          encodeList(c.AllowedScopes),
		RedirectUris:           encodeList(c.RedirectURIs),
		PostLogoutRedirectUris: encodeList(c.PostLogoutRedirectURIs),
		Protected:              c.Protected,
		CreatedBy:              c.CreatedBy,
		CreatedAt:              c.CreatedAt.UTC(),
		UpdatedAt:              c.UpdatedAt.UTC(),
	})
	return mapConflict(err)
}

func (r *clientsRepo) UpdateClient(ctx context.Context, c domain.Client) error {
	n, err := r.q.UpdateClient(ctx, gen.UpdateClientParams{
		SecretHash:             mapStringNull(c.SecretHash),
		Name:                   c.Name,
		Description:            c.Description,
		IsActive:               c.IsActive,
		RequireConsent:         c.RequireConsent,
		RequirePkce:            c.RequirePKCE,
		AccessTokenLifetime:    int64(c.AccessTokenLifetime),
		RefreshTokenLifetime:   int64(c.RefreshTokenLifetime),
		AllowedGrantTypes:      encodeList(c.AllowedGrantTypes),
		AllowedScopes:          encodeList(c.AllowedScopes),
		RedirectUris:           encodeList(c.RedirectURIs),
		PostLogoutRedirectUris: encodeList(c.PostLogoutRedirectURIs),
		UpdatedAt:              c.UpdatedAt.UTC(),
		ClientID:               c.ClientID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *clientsRepo) TouchClientLastUsed(ctx context.Context, clientID string, at time.Time) error {
	return r.q.TouchClientLastUsed(ctx, gen.TouchClientLastUsedParams{
		LastUsedAt: nullTime(at),
		ClientID:   clientID,
	})
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	n, err := r.q.DeleteClient(ctx, clientID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountClients(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
