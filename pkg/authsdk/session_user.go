package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GetUserInfo returns the OIDC claims of the session's user. The server
// accepts either the openid or the profile scope.
func (s *Session) GetUserInfo(ctx context.Context) (*UserInfoResponse, error) {
	var out UserInfoResponse
	if err := s.doAuthJSON(ctx, http.MethodGet, "/v1/userinfo", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// IntrospectToken asks the server about a token (RFC 7662). hint is
// access_token, refresh_token or empty. Inactive tokens are not an error:
// check Active on the response.
func (s *Session) IntrospectToken(ctx context.Context, token, hint string) (*IntrospectionResponse, error) {
	data := url.Values{"token": {token}}
	if hint != "" {
		data.Set("token_type_hint", hint)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/oauth2/introspect",
		strings.NewReader(data.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	)
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser provisions an account.
// Requires: admin:write scope
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	var out UserResponse
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/users", req, &out, http.StatusCreated, nil, "admin:write"); err != nil {
		return nil, err
	}
	return &out, nil
}
