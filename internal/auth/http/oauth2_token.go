package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// TokenHandler serves POST /v1/oauth2/token. The grant type picks the
// handler inside the dispatcher; this only parses the form.
type TokenHandler struct {
	Grants *service.GrantDispatcher
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 token endpoint
//	@Description	Exchanges a grant for tokens: authorization_code (with PKCE), client_credentials or refresh_token.
//	@Description	Client credentials may be sent in the form or with HTTP Basic auth.
//	@Description	Refresh tokens rotate on every use; replaying a rotated token revokes the whole session.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, client_credentials, refresh_token)
//	@Param			code			formData	string					false	"Authorization code"
//	@Param			redirect_uri	formData	string					false	"Redirect URI used at /authorize"
//	@Param			code_verifier	formData	string					false	"PKCE verifier"
//	@Param			refresh_token	formData	string					false	"Refresh token"
//	@Param			client_id		formData	string					false	"Client identifier"
//	@Param			client_secret	formData	string					false	"Client secret (confidential clients)"
//	@Param			scope			formData	string					false	"Space-delimited scopes"
//	@Success		200				{object}	authsdk.TokenResponse
//	@Failure		400				{object}	authsdk.ErrorResponse
//	@Failure		401				{object}	authsdk.ErrorResponse
//	@Failure		501				{object}	authsdk.ErrorResponse	"Device code grant"
//	@Header			200				{string}	Cache-Control	"no-store"
//	@Router			/v1/oauth2/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !isFormRequest(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	form := r.PostForm
	req := service.TokenRequest{
		GrantType:    strings.TrimSpace(form.Get("grant_type")),
		ClientID:     strings.TrimSpace(form.Get("client_id")),
		ClientSecret: form.Get("client_secret"),
		Code:         strings.TrimSpace(form.Get("code")),
		RedirectURI:  strings.TrimSpace(form.Get("redirect_uri")),
		CodeVerifier: strings.TrimSpace(form.Get("code_verifier")),
		RefreshToken: strings.TrimSpace(form.Get("refresh_token")),
		Scopes:       httpx.ParseSpaceDelimitedFields(form.Get("scope")),
	}
	if id, secret, ok := r.BasicAuth(); ok {
		if req.ClientID != "" && req.ClientID != id {
			authsdk.ErrInvalidClient.WriteError(w)
			return
		}
		req.ClientID, req.ClientSecret = id, secret
	}

	ctx := slogx.With(r.Context(), "grant_type", req.GrantType, "client_id", req.ClientID)
	pair, err := h.Grants.Exchange(ctx, req)
	if err != nil {
		writeError(w, r.WithContext(ctx), "token request failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}
