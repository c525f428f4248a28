package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Client administration. Reads need admin:read, writes admin:write.

// CreateClient registers a client. idempotencyKey may be empty; with a key
// a retried call replays the first response instead of creating twice.
func (s *Session) CreateClient(ctx context.Context, req CreateClientRequest, idempotencyKey string) (*CreateClientResponse, error) {
	var out CreateClientResponse
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/clients", req, &out, http.StatusCreated,
		idempotencyHeader(idempotencyKey), "admin:write"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ListClients(ctx context.Context) (*ListClientsResponse, error) {
	var out ListClientsResponse
	if err := s.doAuthJSON(ctx, http.MethodGet, "/v1/clients", nil, &out, http.StatusOK, nil, "admin:read"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) GetClient(ctx context.Context, clientID string) (*ClientInfo, error) {
	var out ClientInfo
	if err := s.doAuthJSON(ctx, http.MethodGet, clientPath(clientID, ""), nil, &out, http.StatusOK, nil, "admin:read"); err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateSecret replaces a confidential client's secret. An empty newSecret
// lets the server generate one. The old secret stops working immediately.
func (s *Session) RotateSecret(ctx context.Context, clientID, newSecret, idempotencyKey string) (*RotateSecretResponse, error) {
	var out RotateSecretResponse
	if err := s.doAuthJSON(ctx, http.MethodPost, clientPath(clientID, "/rotate-secret"),
		RotateSecretRequest{ClientSecret: newSecret}, &out, http.StatusOK,
		idempotencyHeader(idempotencyKey), "admin:write"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ActivateClient(ctx context.Context, clientID string) (*ClientInfo, error) {
	return s.setClientActive(ctx, clientID, "/activate")
}

// DeactivateClient blocks every grant for the client without deleting it.
func (s *Session) DeactivateClient(ctx context.Context, clientID string) (*ClientInfo, error) {
	return s.setClientActive(ctx, clientID, "/deactivate")
}

func (s *Session) setClientActive(ctx context.Context, clientID, action string) (*ClientInfo, error) {
	var out ClientInfo
	if err := s.doAuthJSON(ctx, http.MethodPost, clientPath(clientID, action), nil, &out, http.StatusOK, nil, "admin:write"); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteClient removes a client. Protected clients cannot be deleted.
func (s *Session) DeleteClient(ctx context.Context, clientID string) error {
	return s.doAuthJSON(ctx, http.MethodDelete, clientPath(clientID, ""), nil, nil, 0, nil, "admin:write")
}

func clientPath(clientID, suffix string) string {
	return "/v1/clients/" + url.PathEscape(clientID) + suffix
}
