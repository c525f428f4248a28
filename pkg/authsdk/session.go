package authsdk

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrNoRefreshToken is returned once the access token of a session without
// a refresh token (client credentials) has expired.
var ErrNoRefreshToken = errors.New("authsdk: session has no refresh token")

// Session is a set of tokens for one client. Calls made through it refresh
// the access token shortly before it expires; the refresh token rotates with
// every refresh.
type Session struct {
	client   *SDKClient
	clientID string

	mu        sync.RWMutex
	access    string
	refresh   string
	expiresAt time.Time
	granted   []string // sorted
}

func newSession(client *SDKClient, clientID string, tr *TokenResponse) *Session {
	s := &Session{client: client, clientID: clientID}
	s.apply(tr)
	return s
}

// apply stores a token response. The caller holds the write lock, or owns s.
func (s *Session) apply(tr *TokenResponse) {
	s.access = tr.AccessToken
	if tr.RefreshToken != "" {
		s.refresh = tr.RefreshToken
	}
	s.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - expiryBuffer)
	s.granted = splitScope(tr.Scope)
}

func splitScope(scope string) []string {
	out := strings.Fields(scope)
	slices.Sort(out)
	return slices.Compact(out)
}

// Revoke revokes the refresh token. Rotation has already revoked the ones
// before it, so the session can no longer refresh. Sessions without one
// revoke the access token.
func (s *Session) Revoke(ctx context.Context) error {
	s.mu.RLock()
	token := s.refresh
	if token == "" {
		token = s.access
	}
	s.mu.RUnlock()

	return s.client.RevokeToken(ctx, s.clientID, token)
}

func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, fresh := s.access, time.Now().Before(s.expiresAt)
	s.mu.RUnlock()
	if fresh {
		return token, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.access, nil
	}
	if s.refresh == "" {
		return "", ErrNoRefreshToken
	}

	tr, err := s.client.RefreshGrant(ctx, s.clientID, s.refresh)
	if err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}
	s.apply(tr)
	return s.access, nil
}

// AccessToken returns the current access token as is, even if expired.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the current refresh token, empty for client
// credentials sessions.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// ExpiresAt is when the session will next refresh.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Scopes returns the granted scopes in sorted order.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.granted)
}

func (s *Session) HasScope(scope string) bool {
	return s.HasAllScopes(scope)
}

func (s *Session) HasAllScopes(scopes ...string) bool {
	return len(s.missingScopes(scopes)) == 0
}

func (s *Session) HasAnyScope(scopes ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(scopes, func(sc string) bool {
		_, ok := slices.BinarySearch(s.granted, sc)
		return ok
	})
}

func (s *Session) missingScopes(required []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []string
	for _, sc := range required {
		if _, ok := slices.BinarySearch(s.granted, sc); !ok {
			missing = append(missing, sc)
		}
	}
	return missing
}

// checkScopes fails fast when the client has scope checks on and the
// session lacks a scope the endpoint requires.
func (s *Session) checkScopes(required ...string) error {
	if !s.client.CheckScopes {
		return nil
	}
	if missing := s.missingScopes(required); len(missing) > 0 {
		return fmt.Errorf("missing required scope(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
