package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{
		tx: tx,
		q:  gen.New(tx),
	}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the owner commits or rolls back and the DB stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                           { return &usersRepo{q: t.q} }
func (t *txStore) Roles() store.Roles                           { return &rolesRepo{q: t.q} }
func (t *txStore) Clients() store.Clients                       { return &clientsRepo{q: t.q} }
func (t *txStore) Consents() store.Consents                     { return &consentsRepo{q: t.q} }
func (t *txStore) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{q: t.q} }
func (t *txStore) RefreshTokens() store.RefreshTokens           { return &refreshTokensRepo{q: t.q} }
func (t *txStore) WebAuthnCredentials() store.WebAuthnCredentials {
	return &webauthnCredentialsRepo{q: t.q}
}
func (t *txStore) SigningKeys() store.SigningKeys { return &signingKeysRepo{q: t.q} }
func (t *txStore) MFASessions() store.MFASessions { return &mfaSessionsRepo{q: t.q} }
func (t *txStore) Outbox() store.Outbox           { return &outboxRepo{q: t.q} }

// ApplyMigrations is a no-op; migrations run before any transaction starts.
func (t *txStore) ApplyMigrations() error { return nil }
