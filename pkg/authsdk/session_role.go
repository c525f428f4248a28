package authsdk

import (
	"context"
	"net/http"
)

// ListRoles returns every role and the scopes it carries.
// Requires: admin:read scope
func (s *Session) ListRoles(ctx context.Context) (*ListRolesResponse, error) {
	var out ListRolesResponse
	if err := s.doAuthJSON(ctx, http.MethodGet, "/v1/roles", nil, &out, http.StatusOK, nil, "admin:read"); err != nil {
		return nil, err
	}
	return &out, nil
}
