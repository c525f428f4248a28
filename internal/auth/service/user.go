package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
)

var (
	ErrUserExists   = errors.New("username already taken")
	ErrUnknownRole  = errors.New("unknown role")
	ErrUserNotFound = errors.New("user not found")
)

type UserService struct {
	Store store.Store
}

type CreateUserInput struct {
	Username      string
	Password      string
	Email         string
	PhoneNumber   string
	PreferredName string
	Role          string
}

// CreateUser adds an active user with the named role.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return domain.User{}, invalid("username", "is required")
	}
	if len(in.Password) < 12 {
		return domain.User{}, invalid("password", "must be at least 12 characters")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return domain.User{}, invalid("email", "is not a valid address")
		}
	}

	role, err := s.Store.Roles().GetRoleByName(ctx, in.Role)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnknownRole
		}
		return domain.User{}, err
	}
	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:            idx.NewAt(now).String(),
		Username:      username,
		Email:         in.Email,
		PhoneNumber:   in.PhoneNumber,
		PreferredName: in.PreferredName,
		PasswordHash:  hash,
		RoleID:        role.ID,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

// Role returns the user's role, used for the userinfo permissions.
func (s *UserService) Role(ctx context.Context, u domain.User) (domain.Role, error) {
	return s.Store.Roles().GetRoleByID(ctx, u.RoleID)
}

func (s *UserService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListAll(ctx)
}
