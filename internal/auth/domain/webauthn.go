package domain

import "time"

// WebAuthnCredential is a registered authenticator public key.
type WebAuthnCredential struct {
	ID           string
	UserID       string
	CredentialID string // base64url
	PublicKey    []byte // COSE_Key from the attested credential data
	Counter      uint32
	Name         string
	AAGUID       string
	IsActive     bool
	CreatedAt    time.Time
	LastUsedAt   *time.Time
}

type NewWebAuthnCredentialParams struct {
	ID           string
	UserID       string
	CredentialID string
	PublicKey    []byte
	Counter      uint32
	Name         string
	AAGUID       string
}

func NewWebAuthnCredential(p NewWebAuthnCredentialParams, now time.Time) (WebAuthnCredential, Event) {
	c := WebAuthnCredential{
		ID:           p.ID,
		UserID:       p.UserID,
		CredentialID: p.CredentialID,
		PublicKey:    p.PublicKey,
		Counter:      p.Counter,
		Name:         p.Name,
		AAGUID:       p.AAGUID,
		IsActive:     true,
		CreatedAt:    now,
	}
	return c, WebAuthnCredentialRegistered{
		UserID:       c.UserID,
		CredentialID: c.CredentialID,
		Name:         c.Name,
		OccurredAt:   now,
	}
}

// AdvanceCounter accepts a new signature counter. It must strictly increase,
// including when both values are zero.
func (c *WebAuthnCredential) AdvanceCounter(counter uint32, now time.Time) (Event, error) {
	if counter <= c.Counter {
		return nil, ErrCounterNotIncreased
	}
	c.Counter = counter
	c.LastUsedAt = &now
	return WebAuthnAuthenticated{
		UserID:       c.UserID,
		CredentialID: c.CredentialID,
		Counter:      counter,
		OccurredAt:   now,
	}, nil
}
