package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect (RFC 7662). Any
// token that is not live comes back as {"active": false} without a reason.
type IntrospectHandler struct {
	Tokens *service.TokenIssuer
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 token introspection
//	@Description	Reports whether an access token (JWT or reference) or refresh token is active, with its claims.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			token			formData	string							true	"Token to introspect"
//	@Param			token_type_hint	formData	string							false	"Which kind of token to try first"	Enums(access_token, refresh_token)
//	@Success		200				{object}	authsdk.IntrospectionResponse
//	@Failure		400				{object}	authsdk.ErrorResponse
//	@Failure		401				{object}	authsdk.ErrorResponse
//	@Router			/v1/oauth2/introspect [post]
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	res := h.Tokens.Introspect(r.Context(), token, r.PostForm.Get("token_type_hint"))
	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{
		Active:      res.Active,
		Scope:       res.Scope,
		ClientID:    res.ClientID,
		Username:    res.Username,
		TokenType:   res.TokenType,
		Exp:         res.Exp,
		Iat:         res.Iat,
		Nbf:         res.Nbf,
		Sub:         res.Sub,
		Aud:         res.Aud,
		Iss:         res.Iss,
		Jti:         res.Jti,
		SessionID:   res.SID,
		Roles:       res.Roles,
		Permissions: res.Permissions,
		AMR:         res.AMR,
	})
}
