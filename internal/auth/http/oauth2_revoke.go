package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// RevokeHandler serves POST /v1/oauth2/revoke (RFC 7009). Refresh tokens
// are revoked in the store and reference tokens dropped from the cache; JWT
// access tokens simply run out. The answer is 200 {} whatever the token was.
type RevokeHandler struct {
	Tokens *service.TokenIssuer
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 token revocation
//	@Description	Revokes a refresh token or reference access token. Unknown tokens still return 200.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string	true	"Token to revoke"
//	@Param			token_type_hint	formData	string	false	"Which kind of token to try first"	Enums(access_token, refresh_token)
//	@Success		200				{object}	map[string]interface{}
//	@Failure		400				{object}	authsdk.ErrorResponse
//	@Router			/v1/oauth2/revoke [post]
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !isFormRequest(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Tokens.Revoke(r.Context(), token, r.PostForm.Get("token_type_hint")); err != nil {
		slogx.FromContext(r.Context()).Warn("token revocation failed", "error", err)
	}
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
