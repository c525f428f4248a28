package authsdk

import (
	"context"
	"net/http"
)

// RotateKey generates a new signing key and demotes the current one to a
// verification-only key for the grace period.
// Requires: admin:write scope
func (s *Session) RotateKey(ctx context.Context) (*RotateKeyResponse, error) {
	var out RotateKeyResponse
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/keys/rotate", nil, &out, http.StatusOK, nil, "admin:write"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListKeys returns signing keys newest first.
// Requires: admin:read scope
func (s *Session) ListKeys(ctx context.Context) ([]SigningKeyInfo, error) {
	var out ListKeysResponse
	if err := s.doAuthJSON(ctx, http.MethodGet, "/v1/keys", nil, &out, http.StatusOK, nil, "admin:read"); err != nil {
		return nil, err
	}
	return out.Keys, nil
}
