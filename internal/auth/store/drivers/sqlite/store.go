package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite serialises writers anyway, and ":memory:" gives every
	// connection its own database.
	db.SetMaxOpenConns(1)

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction. Only the tx handed to fn may be
// used inside it: the pool holds a single connection.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                           { return &usersRepo{q: s.q} }
func (s *Store) Roles() store.Roles                           { return &rolesRepo{q: s.q} }
func (s *Store) Clients() store.Clients                       { return &clientsRepo{q: s.q} }
func (s *Store) Consents() store.Consents                     { return &consentsRepo{q: s.q} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{q: s.q} }
func (s *Store) RefreshTokens() store.RefreshTokens           { return &refreshTokensRepo{q: s.q} }
func (s *Store) WebAuthnCredentials() store.WebAuthnCredentials {
	return &webauthnCredentialsRepo{q: s.q}
}
func (s *Store) SigningKeys() store.SigningKeys { return &signingKeysRepo{q: s.q} }
func (s *Store) MFASessions() store.MFASessions { return &mfaSessionsRepo{q: s.q} }
func (s *Store) Outbox() store.Outbox           { return &outboxRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConflict turns unique and primary key violations into store.ErrAlreadyExists.
func mapConflict(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		}
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time.UTC()
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Lists live in TEXT columns as JSON arrays.
func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(s string) []string {
	var out []string
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		ID:            row.ID,
		Username:      row.Username,
		Email:         row.Email,
		PhoneNumber:   row.PhoneNumber,
		PreferredName: row.PreferredName,
		PasswordHash:  row.PasswordHash,
		RoleID:        row.RoleID,
		IsActive:      row.IsActive,
		MFAEnabled:    mapNullTimePtr(row.MfaEnabled),
		MFASecret:     mapNullStringPtr(row.MfaSecret),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func mapRole(row gen.Role) domain.Role {
	return domain.Role{
		ID:        row.ID,
		Name:      row.Name,
		Scopes:    decodeList(row.Scopes),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func mapClient(row gen.Client) domain.Client {
	return domain.Client{
		ID:                     row.ID,
		ClientID:               row.ClientID,
		SecretHash:             mapNullString(row.SecretHash),
		Name:                   row.Name,
		Description:            row.Description,
		IsActive:               row.IsActive,
		RequireConsent:         row.RequireConsent,
		RequirePKCE:            row.RequirePkce,
		AccessTokenLifetime:    int(row.AccessTokenLifetime),
		RefreshTokenLifetime:   int(row.RefreshTokenLifetime),
		AllowedGrantTypes:      decodeList(row.AllowedGrantTypes),
		AllowedScopes:          decodeList(row.AllowedScopes),
		RedirectURIs:           decodeList(row.RedirectUris),
		PostLogoutRedirectURIs: decodeList(row.PostLogoutRedirectUris),
		Protected:              row.Protected,
		CreatedBy:              row.CreatedBy,
		LastUsedAt:             mapNullTimePtr(row.LastUsedAt),
		CreatedAt:              row.CreatedAt.UTC(),
		UpdatedAt:              row.UpdatedAt.UTC(),
	}
}

func mapConsent(row gen.Consent) domain.Consent {
	return domain.Consent{
		ID:        row.ID,
		UserID:    row.UserID,
		ClientID:  row.ClientID,
		Scopes:    decodeList(row.Scopes),
		IsGranted: row.IsGranted,
		GrantedAt: mapNullTimePtr(row.GrantedAt),
		RevokedAt: mapNullTimePtr(row.RevokedAt),
		ExpiresAt: mapNullTimePtr(row.ExpiresAt),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func mapAuthorizationCode(row gen.AuthorizationCode) domain.AuthorizationCode {
	return domain.AuthorizationCode{
		ID:                  row.ID,
		CodeHash:            row.CodeHash,
		ClientID:            row.ClientID,
		UserID:              row.UserID,
		RedirectURI:         row.RedirectUri,
		Scopes:              decodeList(row.Scopes),
		State:               row.State,
		SessionID:           row.SessionID,
		AMR:                 decodeList(row.Amr),
		CodeChallenge:       row.CodeChallenge,
		CodeChallengeMethod: row.CodeChallengeMethod,
		ExpiresAt:           row.ExpiresAt.UTC(),
		UsedAt:              mapNullTimePtr(row.UsedAt),
		CreatedAt:           row.CreatedAt.UTC(),
	}
}

func mapRefreshToken(row gen.RefreshToken) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        row.ID,
		UserID:    row.UserID,
		ClientID:  row.ClientID,
		TokenHash: row.TokenHash,
		SessionID: row.SessionID,
		Scopes:    decodeList(row.Scopes),
		AMR:       decodeList(row.Amr),
		ExpiresAt: row.ExpiresAt.UTC(),
		Revoked:   row.Revoked,
		RevokedAt: mapNullTimePtr(row.RevokedAt),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func mapWebAuthnCredential(row gen.WebauthnCredential) domain.WebAuthnCredential {
	return domain.WebAuthnCredential{
		ID:           row.ID,
		UserID:       row.UserID,
		CredentialID: row.CredentialID,
		PublicKey:    row.PublicKey,
		Counter:      uint32(row.Counter),
		Name:         row.Name,
		AAGUID:       row.Aaguid,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		LastUsedAt:   mapNullTimePtr(row.LastUsedAt),
	}
}

func mapSigningKey(row gen.SigningKey) domain.SigningKey {
	return domain.SigningKey{
		ID:                  row.ID,
		Kid:                 row.Kid,
		Algorithm:           row.Algorithm,
		PrivateKeyEncrypted: row.PrivateKeyEncrypted,
		IsActive:            row.IsActive,
		IsPrevious:          row.IsPrevious,
		ExpiresAt:           mapNullTimePtr(row.ExpiresAt),
		CreatedAt:           row.CreatedAt.UTC(),
		RetiredAt:           mapNullTimePtr(row.RetiredAt),
	}
}

func mapMFASession(row gen.MfaSession) domain.MFASession {
	return domain.MFASession{
		ID:                  row.ID,
		UserID:              row.UserID,
		ClientID:            row.ClientID,
		RedirectURI:         row.RedirectUri,
		Scopes:              decodeList(row.Scopes),
		State:               row.State,
		CodeChallenge:       row.CodeChallenge,
		CodeChallengeMethod: row.CodeChallengeMethod,
		AMR:                 decodeList(row.Amr),
		SessionID:           row.SessionID,
		Attempts:            int(row.Attempts),
		CreatedAt:           row.CreatedAt.UTC(),
		ExpiresAt:           row.ExpiresAt.UTC(),
	}
}

func mapOutboxMessage(row gen.OutboxMessage) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:           row.ID,
		MessageType:  row.MessageType,
		Payload:      []byte(row.Payload),
		CreatedAt:    row.CreatedAt.UTC(),
		ProcessedAt:  mapNullTimePtr(row.ProcessedAt),
		ErrorMessage: row.ErrorMessage,
		RetryCount:   int(row.RetryCount),
		NextRetryAt:  mapNullTimePtr(row.NextRetryAt),
	}
}
