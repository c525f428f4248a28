package sqlite

import (
	"context"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type consentsRepo struct {
	q *gen.Queries
}

func (r *consentsRepo) GetConsent(ctx context.Context, userID, clientID string) (domain.Consent, error) {
	row, err := r.q.GetConsent(ctx, gen.GetConsentParams{UserID: userID, ClientID: clientID})
	if err != nil {
		return domain.Consent{}, mapNotFound(err)
	}
	return mapConsent(row), nil
}

func (r *consentsRepo) ListUserConsents(ctx context.Context, userID string) ([]domain.Consent, error) {
	rows, err := r.q.ListUserConsents(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Consent, len(rows))
	for i, row := range rows {
		out[i] = mapConsent(row)
	}
	return out, nil
}

func (r *consentsRepo) UpsertConsent(ctx context.Context, c domain.Consent) error {
	return r.q.UpsertConsent(ctx, gen.UpsertConsentParams{
		ID:        c.ID,
		UserID:    c.UserID,
		ClientID:  c.ClientID,
		Scopes:    encodeList(c.Scopes),
		IsGranted: c.IsGranted,
		GrantedAt: mapOptionalTime(c.GrantedAt),
		RevokedAt: mapOptionalTime(c.RevokedAt),
		ExpiresAt: mapOptionalTime(c.ExpiresAt),
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	})
}
