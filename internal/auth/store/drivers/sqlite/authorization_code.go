package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type authorizationCodesRepo struct {
	q *gen.Queries
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	err := r.q.CreateAuthorizationCode(ctx, gen.CreateAuthorizationCodeParams{
		ID:                  code.ID,
		CodeHash:            code.CodeHash,
		ClientID:            code.ClientID,
		UserID:              code.UserID,
		RedirectUri:         code.RedirectURI,
		Scopes:              encodeList(code.Scopes),
		State:               code.State,
		SessionID:           code.SessionID,
		Amr:                 encodeList(code.AMR),
		CodeChallenge:       code.CodeChallenge,
		CodeChallengeMethod: code.CodeChallengeMethod,
		ExpiresAt:           code.ExpiresAt.UTC(),
		CreatedAt:           code.CreatedAt.UTC(),
	})
	return mapConflict(err)
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	row, err := r.q.GetAuthorizationCodeByHash(ctx, hash)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	return mapAuthorizationCode(row), nil
}

func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error {
	n, err := r.q.MarkAuthorizationCodeUsed(ctx, gen.MarkAuthorizationCodeUsedParams{
		UsedAt: nullTime(at),
		ID:     id,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCodeAlreadyUsed
	}
	return nil
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredAuthorizationCodes(ctx, now.UTC())
}
