package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type mfaSessionsRepo struct {
	q *gen.Queries
}

func (r *mfaSessionsRepo) CreateMFASession(ctx context.Context, s domain.MFASession) error {
	err := r.q.CreateMFASession(ctx, gen.CreateMFASessionParams{
		ID:                  s.ID,
		UserID:              s.UserID,
		ClientID:            s.ClientID,
		RedirectUri:         s.RedirectURI,
		Scopes:              encodeList(s.Scopes),
		State:               s.State,
		CodeChallenge:       s.CodeChallenge,
		CodeChallengeMethod: s.CodeChallengeMethod,
		Amr:                 encodeList(s.AMR),
		SessionID:           s.SessionID,
		CreatedAt:           s.CreatedAt.UTC(),
		ExpiresAt:           s.ExpiresAt.UTC(),
	})
	return mapConflict(err)
}

func (r *mfaSessionsRepo) GetMFASession(ctx context.Context, id string, now time.Time) (domain.MFASession, error) {
	row, err := r.q.GetMFASession(ctx, gen.GetMFASessionParams{ID: id, ExpiresAt: now.UTC()})
	if err != nil {
		return domain.MFASession{}, mapNotFound(err)
	}
	return mapMFASession(row), nil
}

func (r *mfaSessionsRepo) IncrementMFASessionAttempts(ctx context.Context, id string) (domain.MFASession, error) {
	row, err := r.q.IncrementMFASessionAttempts(ctx, id)
	if err != nil {
		return domain.MFASession{}, mapNotFound(err)
	}
	return mapMFASession(row), nil
}

func (r *mfaSessionsRepo) DeleteMFASession(ctx context.Context, id string) error {
	return r.q.DeleteMFASession(ctx, id)
}

func (r *mfaSessionsRepo) DeleteExpiredMFASessions(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredMFASessions(ctx, now.UTC())
}
