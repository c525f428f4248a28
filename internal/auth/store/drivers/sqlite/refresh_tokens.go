package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type refreshTokensRepo struct {
	q *gen.Queries
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	err := r.q.CreateRefreshToken(ctx, gen.CreateRefreshTokenParams{
		ID:        t.ID,
		UserID:    t.UserID,
		ClientID:  t.ClientID,
		TokenHash: t.TokenHash,
		SessionID: t.SessionID,
		Scopes:    encodeList(t.Scopes),
		Amr:       encodeList(t.AMR),
		ExpiresAt: t.ExpiresAt.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	})
	return mapConflict(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	row, err := r.q.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return mapRefreshToken(row), nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, at time.Time) error {
	return r.q.RevokeRefreshToken(ctx, gen.RevokeRefreshTokenParams{
		RevokedAt: nullTime(at),
		UpdatedAt: at.UTC(),
		TokenHash: hash,
	})
}

func (r *refreshTokensRepo) RevokeAllUserClientRefreshTokens(
	ctx context.Context,
	userID, clientID string,
	at time.Time,
) error {
	return r.q.RevokeAllUserClientRefreshTokens(ctx, gen.RevokeAllUserClientRefreshTokensParams{
		RevokedAt: nullTime(at),
		UpdatedAt: at.UTC(),
		UserID:    userID,
		ClientID:  clientID,
	})
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredRefreshTokens(ctx, now.UTC())
}
