package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type webauthnCredentialsRepo struct {
	q *gen.Queries
}

func (r *webauthnCredentialsRepo) CreateCredential(ctx context.Context, c domain.WebAuthnCredential) error {
	err := r.q.CreateWebauthnCredential(ctx, gen.CreateWebauthnCredentialParams{
		ID:           c.ID,
		UserID:       c.UserID,
		CredentialID: c.CredentialID,
		PublicKey:    c.PublicKey,
		Counter:      int64(c.Counter),
		Name:         c.Name,
		Aaguid:       c.AAGUID,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt.UTC(),
	})
	return mapConflict(err)
}

func (r *webauthnCredentialsRepo) GetCredentialByCredentialID(ctx context.Context, credentialID string) (domain.WebAuthnCredential, error) {
	row, err := r.q.GetWebauthnCredentialByCredentialID(ctx, credentialID)
	if err != nil {
		return domain.WebAuthnCredential{}, mapNotFound(err)
	}
	return mapWebAuthnCredential(row), nil
}

func (r *webauthnCredentialsRepo) ListActiveUserCredentials(ctx context.Context, userID string) ([]domain.WebAuthnCredential, error) {
	rows, err := r.q.ListActiveUserWebauthnCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.WebAuthnCredential, len(rows))
	for i, row := range rows {
		out[i] = mapWebAuthnCredential(row)
	}
	return out, nil
}

// UpdateCounter reports domain.ErrCounterNotIncreased when the stored counter
// is already at or beyond counter.
func (r *webauthnCredentialsRepo) UpdateCounter(ctx context.Context, id string, counter uint32, at time.Time) error {
	n, err := r.q.UpdateWebauthnCounter(ctx, gen.UpdateWebauthnCounterParams{
		Counter:    int64(counter),
		LastUsedAt: nullTime(at),
		ID:         id,
		Counter_2:  int64(counter),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCounterNotIncreased
	}
	return nil
}
