package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type signingKeysRepo struct {
	q *gen.Queries
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	err := r.q.CreateSigningKey(ctx, gen.CreateSigningKeyParams{
		ID:                  key.ID,
		Kid:                 key.Kid,
		Algorithm:           key.Algorithm,
		PrivateKeyEncrypted: key.PrivateKeyEncrypted,
		IsActive:            key.IsActive,
		IsPrevious:          key.IsPrevious,
		ExpiresAt:           mapOptionalTime(key.ExpiresAt),
		CreatedAt:           key.CreatedAt.UTC(),
		RetiredAt:           mapOptionalTime(key.RetiredAt),
	})
	return mapConflict(err)
}

func (r *signingKeysRepo) GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error) {
	row, err := r.q.GetSigningKeyByKid(ctx, kid)
	if err != nil {
		return domain.SigningKey{}, mapNotFound(err)
	}
	return mapSigningKey(row), nil
}

func (r *signingKeysRepo) ListValidSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error) {
	rows, err := r.q.ListValidSigningKeys(ctx, now.UTC())
	if err != nil {
		return nil, err
	}
	return mapSigningKeys(rows), nil
}

func (r *signingKeysRepo) ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	rows, err := r.q.ListAllSigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	return mapSigningKeys(rows), nil
}

// UpdateSigningKeyState surfaces a second active key as store.ErrAlreadyExists.
func (r *signingKeysRepo) UpdateSigningKeyState(ctx context.Context, key domain.SigningKey) error {
	n, err := r.q.UpdateSigningKeyState(ctx, gen.UpdateSigningKeyStateParams{
		IsActive:   key.IsActive,
		IsPrevious: key.IsPrevious,
		ExpiresAt:  mapOptionalTime(key.ExpiresAt),
		RetiredAt:  mapOptionalTime(key.RetiredAt),
		Kid:        key.Kid,
	})
	if err != nil {
		return mapConflict(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredSigningKeys(ctx, now.UTC())
}

func mapSigningKeys(rows []gen.SigningKey) []domain.SigningKey {
	keys := make([]domain.SigningKey, len(rows))
	for i, row := range rows {
		keys[i] = mapSigningKey(row)
	}
	return keys
}
