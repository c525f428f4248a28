package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row, err := r.q.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		PreferredName: u.PreferredName,
		PasswordHash:  u.PasswordHash,
		RoleID:        u.RoleID,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt.UTC(),
		UpdatedAt:     u.UpdatedAt.UTC(),
	})
	return mapConflict(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return r.q.UpdatePasswordHash(ctx, gen.UpdatePasswordHashParams{
		PasswordHash: newHash,
		UpdatedAt:    time.Now().UTC(),
		ID:           userID,
	})
}

func (r *usersRepo) SetUserActive(ctx context.Context, userID string, active bool) error {
	n, err := r.q.SetUserActive(ctx, gen.SetUserActiveParams{
		IsActive:  active,
		UpdatedAt: time.Now().UTC(),
		ID:        userID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.q.DeleteUser(ctx, userID)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, userID, secret string) error {
	n, err := r.q.UpdateMFASecret(ctx, gen.UpdateMFASecretParams{
		MfaSecret: mapStringNull(secret),
		UpdatedAt: time.Now().UTC(),
		ID:        userID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// EnableMFA reports ErrNotFound when the user has no pending secret.
func (r *usersRepo) EnableMFA(ctx context.Context, userID string, at time.Time) error {
	n, err := r.q.EnableMFA(ctx, gen.EnableMFAParams{
		MfaEnabled: nullTime(at),
		UpdatedAt:  at.UTC(),
		ID:         userID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string) error {
	return r.q.DisableMFA(ctx, gen.DisableMFAParams{
		UpdatedAt: time.Now().UTC(),
		ID:        userID,
	})
}
