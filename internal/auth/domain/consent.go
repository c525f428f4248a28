package domain

import (
	"slices"
	"time"
)

// Consent records which scopes a user has allowed a client to use. There is
// at most one per (user, client).
type Consent struct {
	ID        string
	UserID    string
	ClientID  string
	Scopes    []string
	IsGranted bool
	GrantedAt *time.Time
	RevokedAt *time.Time
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewConsent(id, userID, clientID string, now time.Time) Consent {
	return Consent{ID: id, UserID: userID, ClientID: clientID, CreatedAt: now, UpdatedAt: now}
}

// Grant replaces the consented scopes and clears any previous revocation.
func (c *Consent) Grant(scopes []string, expiresAt *time.Time, now time.Time) {
	c.Scopes = slices.Clone(scopes)
	c.IsGranted = true
	c.GrantedAt = &now
	c.RevokedAt = nil
	c.ExpiresAt = expiresAt
	c.UpdatedAt = now
}

func (c *Consent) Revoke(now time.Time) {
	c.IsGranted = false
	c.RevokedAt = &now
	c.UpdatedAt = now
}

func (c *Consent) IsValid(now time.Time) bool {
	if !c.IsGranted || c.RevokedAt != nil {
		return false
	}
	return c.ExpiresAt == nil || now.Before(*c.ExpiresAt)
}

func (c *Consent) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// CoversScopes reports whether every requested scope was consented to.
func (c *Consent) CoversScopes(scopes []string) bool {
	for _, s := range scopes {
		if !c.HasScope(s) {
			return false
		}
	}
	return true
}
