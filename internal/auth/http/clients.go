package http

import (
	"net/http"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
)

// ClientsHandler handles client administration.
type ClientsHandler struct {
	ClientService *service.ClientService
}

// HandleCreate handles POST /v1/clients
//
//	@Summary		Register an OAuth2 client
//	@Description	Confidential clients without a client_secret get a generated one. The secret is returned once.
//	@Description	Send an Idempotency-Key header to make retries safe.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string							false	"Replay protection key"
//	@Param			request			body		authsdk.CreateClientRequest		true	"Client"
//	@Success		201				{object}	authsdk.CreateClientResponse
//	@Failure		400				{object}	authsdk.ErrorResponse
//	@Failure		409				{object}	authsdk.ErrorResponse	"client_id taken"
//	@Router			/v1/clients [post]
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateClientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	client, secret, err := h.ClientService.CreateClient(r.Context(), service.CreateClientInput{
		ClientID:               req.ClientID,
		ClientSecret:           req.ClientSecret,
		Public:                 req.Public,
		Name:                   req.Name,
		Description:            req.Description,
		RequireConsent:         req.RequireConsent,
		RequirePKCE:            req.RequirePKCE,
		AccessTokenLifetime:    req.AccessTokenLifetime,
		RefreshTokenLifetime:   req.RefreshTokenLifetime,
		AllowedGrantTypes:      req.AllowedGrantTypes,
		AllowedScopes:          req.AllowedScopes,
		RedirectURIs:           req.RedirectURIs,
		PostLogoutRedirectURIs: req.PostLogoutRedirectURIs,
		CreatedBy:              httpx.UserIDFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, r, "failed to create client", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.CreateClientResponse{
		Client:       clientInfo(client),
		ClientSecret: secret,
	})
}

// HandleList handles GET /v1/clients
//
//	@Summary		List OAuth2 clients
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListClientsResponse
//	@Router			/v1/clients [get]
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.ClientService.ListClients(r.Context())
	if err != nil {
		writeError(w, r, "failed to list clients", err)
		return
	}

	out := authsdk.ListClientsResponse{Clients: make([]authsdk.ClientInfo, len(clients))}
	for i, c := range clients {
		out.Clients[i] = clientInfo(c)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/clients/{id}
//
//	@Summary		Get an OAuth2 client
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"client_id"
//	@Success		200	{object}	authsdk.ClientInfo
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/v1/clients/{id} [get]
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	client, err := h.ClientService.GetClient(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "failed to load client", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleRotateSecret handles POST /v1/clients/{id}/rotate-secret
//
//	@Summary		Rotate a client secret
//	@Description	The old secret stops working immediately. The new secret is returned once.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string						false	"Replay protection key"
//	@Param			id				path		string						true	"client_id"
//	@Param			request			body		authsdk.RotateSecretRequest	false	"Optional new secret"
//	@Success		200				{object}	authsdk.RotateSecretResponse
//	@Failure		400				{object}	authsdk.ErrorResponse	"Public client or short secret"
//	@Failure		404				{object}	authsdk.ErrorResponse
//	@Router			/v1/clients/{id}/rotate-secret [post]
func (h *ClientsHandler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RotateSecretRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			authsdk.ErrInvalidJSONBody.WriteError(w)
			return
		}
	}

	clientID := r.PathValue("id")
	secret, err := h.ClientService.RotateSecret(r.Context(), clientID, req.ClientSecret)
	if err != nil {
		writeError(w, r, "failed to rotate client secret", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateSecretResponse{ClientID: clientID, ClientSecret: secret})
}

// HandleActivate handles POST /v1/clients/{id}/activate
//
//	@Summary		Activate a client
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"client_id"
//	@Success		200	{object}	authsdk.ClientInfo
//	@Router			/v1/clients/{id}/activate [post]
func (h *ClientsHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// HandleDeactivate handles POST /v1/clients/{id}/deactivate
//
//	@Summary		Deactivate a client
//	@Description	Inactive clients cannot authorize or obtain tokens. Issued tokens stay valid until they expire.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"client_id"
//	@Success		200	{object}	authsdk.ClientInfo
//	@Router			/v1/clients/{id}/deactivate [post]
func (h *ClientsHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *ClientsHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	client, err := h.ClientService.SetActive(r.Context(), r.PathValue("id"), active)
	if err != nil {
		writeError(w, r, "failed to update client", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleDelete handles DELETE /v1/clients/{id}
//
//	@Summary		Delete a client
//	@Description	Protected clients (the bootstrap client) cannot be deleted.
//	@Tags			Clients
//	@Security		BearerAuth
//	@Param			id	path	string	true	"client_id"
//	@Success		204
//	@Failure		403	{object}	authsdk.ErrorResponse	"Protected client"
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/v1/clients/{id} [delete]
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ClientService.DeleteClient(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, "failed to delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
