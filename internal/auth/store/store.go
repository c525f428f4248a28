package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// Repositories are exposed as methods so a transaction can hand out the same
// set bound to its own connection, and so nobody opens a transaction inside
// a transaction by accident.
type Store interface {
	Users() Users
	Roles() Roles
	Clients() Clients
	Consents() Consents
	AuthorizationCodes() AuthorizationCodes
	RefreshTokens() RefreshTokens
	WebAuthnCredentials() WebAuthnCredentials
	SigningKeys() SigningKeys
	MFASessions() MFASessions
	Outbox() Outbox

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used by the password login step of authorize.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	CreateUser(ctx context.Context, u domain.User) error
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	SetUserActive(ctx context.Context, userID string, active bool) error
	DeleteUser(ctx context.Context, userID string) error
	IsEmpty(ctx context.Context) (bool, error)

	// UpdateMFASecret stores a pending TOTP secret; EnableMFA activates it.
	UpdateMFASecret(ctx context.Context, userID, secret string) error
	EnableMFA(ctx context.Context, userID string, at time.Time) error
	DisableMFA(ctx context.Context, userID string) error
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	ListAll(ctx context.Context) ([]domain.Role, error)
	CreateRole(ctx context.Context, r domain.Role) error
	IsEmpty(ctx context.Context) (bool, error)
}

type Clients interface {
	// GetClientByClientID looks a client up by its public client_id.
	GetClientByClientID(ctx context.Context, clientID string) (domain.Client, error)

	// ListClients returns all clients, newest first.
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient returns ErrAlreadyExists when client_id is taken.
	CreateClient(ctx context.Context, c domain.Client) error

	// UpdateClient persists every mutable column of c.
	UpdateClient(ctx context.Context, c domain.Client) error

	TouchClientLastUsed(ctx context.Context, clientID string, at time.Time) error
	DeleteClient(ctx context.Context, clientID string) error
	IsEmpty(ctx context.Context) (bool, error)
}

type Consents interface {
	GetConsent(ctx context.Context, userID, clientID string) (domain.Consent, error)
	ListUserConsents(ctx context.Context, userID string) ([]domain.Consent, error)

	// UpsertConsent inserts or replaces the (user, client) consent.
	UpsertConsent(ctx context.Context, c domain.Consent) error
}

type AuthorizationCodes interface {
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// MarkAuthorizationCodeUsed only succeeds on an unused code; a lost race
	// reports domain.ErrCodeAlreadyUsed.
	MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error

	// DeleteExpiredAuthorizationCodes removes codes that expired or were used before now.
	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked. Revoking twice is not an error.
	RevokeRefreshToken(ctx context.Context, hash string, at time.Time) error
	RevokeAllUserClientRefreshTokens(ctx context.Context, userID, clientID string, at time.Time) error
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type WebAuthnCredentials interface {
	// CreateCredential returns ErrAlreadyExists for a duplicate credential_id.
	CreateCredential(ctx context.Context, c domain.WebAuthnCredential) error
	GetCredentialByCredentialID(ctx context.Context, credentialID string) (domain.WebAuthnCredential, error)
	ListActiveUserCredentials(ctx context.Context, userID string) ([]domain.WebAuthnCredential, error)

	// UpdateCounter stores the new counter only when it is greater than the
	// stored one, so two concurrent assertions cannot both win.
	UpdateCounter(ctx context.Context, id string, counter uint32, at time.Time) error
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error
	GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error)

	// ListValidSigningKeys returns active and previous keys not yet expired,
	// active first.
	ListValidSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error)

	// ListAllSigningKeys includes retired and expired keys, newest first.
	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// UpdateSigningKeyState persists is_active, is_previous, expires_at and retired_at.
	UpdateSigningKeyState(ctx context.Context, key domain.SigningKey) error

	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error)
}

type MFASessions interface {
	CreateMFASession(ctx context.Context, s domain.MFASession) error

	// GetMFASession only returns sessions that have not expired at now.
	GetMFASession(ctx context.Context, id string, now time.Time) (domain.MFASession, error)
	IncrementMFASessionAttempts(ctx context.Context, id string) (domain.MFASession, error)
	DeleteMFASession(ctx context.Context, id string) error
	DeleteExpiredMFASessions(ctx context.Context, now time.Time) (int64, error)
}

type Outbox interface {
	Enqueue(ctx context.Context, m domain.OutboxMessage) error

	// ListEligible returns up to limit unprocessed messages, oldest first,
	// with retry_count < maxRetries and next_retry_at due.
	ListEligible(ctx context.Context, now time.Time, maxRetries, limit int) ([]domain.OutboxMessage, error)
	GetMessage(ctx context.Context, id string) (domain.OutboxMessage, error)

	// SaveDeliveryState persists processed_at, error_message, retry_count
	// and next_retry_at.
	SaveDeliveryState(ctx context.Context, m domain.OutboxMessage) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
