package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// GrantConsent records approval for clientID to receive scopes on behalf of
// the session's user. Scopes merge with any earlier grant.
func (s *Session) GrantConsent(ctx context.Context, clientID string, scopes []string) (*ConsentInfo, error) {
	var out ConsentInfo
	req := ConsentRequest{ClientID: clientID, Scopes: scopes}
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/consents", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListConsents returns the user's active consents.
func (s *Session) ListConsents(ctx context.Context) ([]ConsentInfo, error) {
	var out ListConsentsResponse
	if err := s.doAuthJSON(ctx, http.MethodGet, "/v1/consents", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return out.Consents, nil
}

// RevokeConsent withdraws consent. The next authorization for clientID will
// answer consent_required again.
func (s *Session) RevokeConsent(ctx context.Context, clientID string) error {
	return s.doAuthJSON(ctx, http.MethodDelete, "/v1/consents/"+url.PathEscape(clientID), nil, nil, 0, nil)
}
