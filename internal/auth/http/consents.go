package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
)

// ConsentsHandler lets the signed in user review and withdraw consent.
type ConsentsHandler struct {
	ConsentService *service.ConsentService
}

// HandleGrant handles POST /v1/consents
//
//	@Summary		Grant consent to a client
//	@Description	Replaces any earlier consent the user gave the client.
//	@Tags			Consents
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.ConsentRequest	true	"Client and scopes"
//	@Success		200		{object}	authsdk.ConsentInfo
//	@Failure		400		{object}	authsdk.ErrorResponse	"Scope not allowed for the client"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Unknown client"
//	@Router			/v1/consents [post]
func (h *ConsentsHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.ConsentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	consent, err := h.ConsentService.Grant(r.Context(), userID, req.ClientID, req.Scopes)
	if err != nil {
		writeError(w, r, "failed to grant consent", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, consentInfo(consent))
}

// HandleList handles GET /v1/consents
//
//	@Summary		List granted consents
//	@Tags			Consents
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListConsentsResponse
//	@Router			/v1/consents [get]
func (h *ConsentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	consents, err := h.ConsentService.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, "failed to list consents", err)
		return
	}

	now := time.Now()
	out := authsdk.ListConsentsResponse{Consents: make([]authsdk.ConsentInfo, 0, len(consents))}
	for _, c := range consents {
		if !c.IsValid(now) {
			continue
		}
		out.Consents = append(out.Consents, consentInfo(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke handles DELETE /v1/consents/{client_id}
//
//	@Summary		Withdraw consent
//	@Description	The client has to ask again at the next authorization request.
//	@Tags			Consents
//	@Security		BearerAuth
//	@Param			client_id	path	string	true	"client_id"
//	@Success		204
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/v1/consents/{client_id} [delete]
func (h *ConsentsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.ConsentService.Revoke(r.Context(), userID, r.PathValue("client_id")); err != nil {
		writeError(w, r, "failed to revoke consent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
