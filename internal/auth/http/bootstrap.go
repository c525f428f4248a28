package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

const bootstrapTokenHeader = "X-Bootstrap-Token"

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP seeds an empty installation.
//
//	@Summary		Bootstrap the identity service
//	@Description	Creates the roles, the first admin user and a protected confidential client.
//	@Description	Only available while BOOTSTRAP_TOKEN is set, and only once.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string						true	"Bootstrap token"
//	@Param			request				body		authsdk.BootstrapRequest	true	"Bootstrap configuration"
//	@Success		201					{object}	authsdk.BootstrapResponse	"The client secret is shown once"
//	@Failure		400					{object}	authsdk.ErrorResponse		"Validation failed"
//	@Failure		401					{object}	authsdk.ErrorResponse		"Missing or wrong token"
//	@Failure		404					{object}	authsdk.ErrorResponse		"Bootstrap disabled"
//	@Failure		409					{object}	authsdk.ErrorResponse		"Already bootstrapped"
//	@Router			/v1/bootstrap [post]
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.BootstrapService.Token == "" {
		authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeNotFound, "bootstrap is not enabled").WriteError(w)
		return
	}

	token := r.Header.Get(bootstrapTokenHeader)
	if token == "" {
		authsdk.NewOAuth2Error(http.StatusUnauthorized, authsdk.ErrorCodeInvalidRequest, "X-Bootstrap-Token header is required").WriteError(w)
		return
	}

	var req authsdk.BootstrapRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	roles := make([]domain.RoleDefinition, len(req.Roles))
	for i, def := range req.Roles {
		roles[i] = domain.RoleDefinition{Name: strings.TrimSpace(def.Name), Scopes: def.Scopes}
	}

	slogx.FromContext(r.Context()).Info("bootstrap requested", "client_id", req.ClientID)
	res, err := h.BootstrapService.Bootstrap(r.Context(), token, domain.BootstrapData{
		AdminUsername:      strings.TrimSpace(req.AdminUsername),
		AdminEmail:         strings.TrimSpace(req.AdminEmail),
		AdminPreferredName: strings.TrimSpace(req.AdminPreferredName),
		AdminPassword:      req.AdminPassword,
		ClientID:           strings.TrimSpace(req.ClientID),
		ClientName:         strings.TrimSpace(req.ClientName),
		ClientScopes:       req.ClientScopes,
		RedirectURIs:       req.RedirectURIs,
		Roles:              roles,
	})
	if err != nil {
		writeError(w, r, "bootstrap failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.BootstrapResponse{
		AdminUserID:  res.AdminUserID,
		ClientID:     res.ClientID,
		ClientSecret: res.ClientSecret,
	})
}
