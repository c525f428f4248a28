package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is a domain event raised by an entity mutator. Events are never
// stored with the entity; the service writes them to the outbox in the same
// transaction as the state change.
type Event interface {
	EventType() string
}

// Stable message type names. These are persisted in outbox rows and used as
// the stream field on the bus, so never rename them.
const (
	EventClientCreated                = "client.created"
	EventClientSecretRotated          = "client.secret_rotated"
	EventSigningKeyCreated            = "signing_key.created"
	EventSigningKeyRotated            = "signing_key.rotated"
	EventWebAuthnCredentialRegistered = "webauthn.credential_registered"
	EventWebAuthnAuthenticated        = "webauthn.authenticated"
)

type ClientCreated struct {
	ClientID   string    `json:"client_id"`
	Name       string    `json:"name"`
	CreatedBy  string    `json:"created_by,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ClientSecretRotated struct {
	ClientID   string    `json:"client_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type SigningKeyCreated struct {
	Kid        string    `json:"kid"`
	Algorithm  string    `json:"algorithm"`
	OccurredAt time.Time `json:"occurred_at"`
}

type SigningKeyRotated struct {
	PreviousKid string    `json:"previous_kid,omitempty"`
	NewKid      string    `json:"new_kid"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type WebAuthnCredentialRegistered struct {
	UserID       string    `json:"user_id"`
	CredentialID string    `json:"credential_id"`
	Name         string    `json:"name,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type WebAuthnAuthenticated struct {
	UserID       string    `json:"user_id"`
	CredentialID string    `json:"credential_id"`
	Counter      uint32    `json:"counter"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (ClientCreated) EventType() string                { return EventClientCreated }
func (ClientSecretRotated) EventType() string          { return EventClientSecretRotated }
func (SigningKeyCreated) EventType() string            { return EventSigningKeyCreated }
func (SigningKeyRotated) EventType() string            { return EventSigningKeyRotated }
func (WebAuthnCredentialRegistered) EventType() string { return EventWebAuthnCredentialRegistered }
func (WebAuthnAuthenticated) EventType() string        { return EventWebAuthnAuthenticated }

// eventTypes maps persisted message types to decoders. New events must be
// registered here or the publisher will fail them.
var eventTypes = map[string]func([]byte) (Event, error){
	EventClientCreated:                decodeAs[ClientCreated],
	EventClientSecretRotated:          decodeAs[ClientSecretRotated],
	EventSigningKeyCreated:            decodeAs[SigningKeyCreated],
	EventSigningKeyRotated:            decodeAs[SigningKeyRotated],
	EventWebAuthnCredentialRegistered: decodeAs[WebAuthnCredentialRegistered],
	EventWebAuthnAuthenticated:        decodeAs[WebAuthnAuthenticated],
}

func decodeAs[E Event](payload []byte) (Event, error) {
	var e E
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeEvent rebuilds an event from an outbox row.
func DecodeEvent(messageType string, payload []byte) (Event, error) {
	dec, ok := eventTypes[messageType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, messageType)
	}
	ev, err := dec(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", messageType, err)
	}
	return ev, nil
}

// IsRegisteredEvent reports whether messageType has a decoder.
func IsRegisteredEvent(messageType string) bool {
	_, ok := eventTypes[messageType]
	return ok
}
