package http

import (
	"net/http"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
)

// KeysHandler exposes signing key rotation to administrators.
type KeysHandler struct {
	KeyService *service.KeyService
}

// HandleRotate handles POST /v1/keys/rotate
//
//	@Summary		Rotate the signing key
//	@Description	Generates a new active key. The old key keeps verifying tokens for the grace period.
//	@Tags			Keys
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.RotateKeyResponse
//	@Failure		403	{object}	authsdk.ErrorResponse	"Requires admin:write"
//	@Router			/v1/keys/rotate [post]
func (h *KeysHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	rotation, err := h.KeyService.Rotate(r.Context())
	if err != nil {
		writeError(w, r, "failed to rotate signing key", err)
		return
	}

	out := authsdk.RotateKeyResponse{NewKey: keyInfo(rotation.NewKey)}
	if rotation.PreviousKey != nil {
		prev := keyInfo(*rotation.PreviousKey)
		out.PreviousKey = &prev
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleList handles GET /v1/keys
//
//	@Summary		List signing keys
//	@Tags			Keys
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListKeysResponse
//	@Failure		403	{object}	authsdk.ErrorResponse	"Requires admin:read"
//	@Router			/v1/keys [get]
func (h *KeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	keys, err := h.KeyService.List(r.Context())
	if err != nil {
		writeError(w, r, "failed to list signing keys", err)
		return
	}

	out := authsdk.ListKeysResponse{Keys: make([]authsdk.SigningKeyInfo, len(keys))}
	for i, k := range keys {
		out.Keys[i] = keyInfo(k)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
