package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
)

// UsersHandler serves userinfo for the bearer and the admin user and role
// endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleUserInfo godoc
//
//	@Summary		OpenID Connect userinfo
//	@Description	Profile of the user the access token was issued to. Client credentials tokens have no user and are rejected.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserInfoResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Router			/v1/userinfo [get]
func (h *UsersHandler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := httpx.ClaimsFromContext(ctx)

	user, err := h.UserService.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, service.ErrUserNotFound) {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}
	if err != nil {
		writeError(w, r, "failed to load user", err)
		return
	}
	role, err := h.UserService.Role(ctx, user)
	if err != nil {
		writeError(w, r, "failed to load role", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		Sub:           user.ID,
		Username:      user.Username,
		PreferredName: user.PreferredName,
		Email:         user.Email,
		PhoneNumber:   user.PhoneNumber,
		Role:          role.Name,
		MFAEnabled:    user.HasTOTP(),
		AMR:           claims.AMR,
	})
}

// HandleCreate godoc
//
//	@Summary		Create a user
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.CreateUserRequest	true	"User"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse	"Username taken"
//	@Router			/v1/users [post]
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	user, err := h.UserService.CreateUser(r.Context(), service.CreateUserInput{
		Username:      req.Username,
		Password:      req.Password,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		PreferredName: req.PreferredName,
		Role:          req.Role,
	})
	if err != nil {
		writeError(w, r, "failed to create user", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.UserResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		PhoneNumber:   user.PhoneNumber,
		PreferredName: user.PreferredName,
		Role:          req.Role,
		CreatedAt:     formatTime(user.CreatedAt),
	})
}

// HandleListRoles godoc
//
//	@Summary		List roles
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListRolesResponse
//	@Router			/v1/roles [get]
func (h *UsersHandler) HandleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.UserService.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, "failed to list roles", err)
		return
	}

	out := authsdk.ListRolesResponse{Roles: make([]authsdk.RoleInfo, len(roles))}
	for i, role := range roles {
		out.Roles[i] = authsdk.RoleInfo{ID: role.ID, Name: role.Name, Scopes: role.Scopes}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
