package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/identity/pkg/idx"
)

var now = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seed inserts a role, a user and a client and returns their ids.
func seed(t *testing.T, s *sqlite.Store) (userID, clientID string) {
	t.Helper()
	ctx := context.Background()

	role := domain.Role{ID: idx.New().String(), Name: "admin", Scopes: []string{"admin:read"}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Roles().CreateRole(ctx, role))

	user := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		RoleID:       role.ID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(ctx, user))

	client := domain.Client{
		ID:                idx.New().String(),
		ClientID:          "web",
		Name:              "Web",
		IsActive:          true,
		RequireConsent:    true,
		AllowedGrantTypes: []string{domain.GrantAuthorizationCode, domain.GrantRefreshToken},
		AllowedScopes:     []string{"openid", "profile"},
		RedirectURIs:      []string{"https://app.example.com/cb"},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, s.Clients().CreateClient(ctx, client))

	return user.ID, client.ClientID
}

func TestUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	userID, _ := seed(t, s)

	t.Run("lookup by username", func(t *testing.T) {
		u, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, userID, u.ID)
		require.Equal(t, "alice@example.com", u.Email)
		require.True(t, u.IsActive)
		require.Nil(t, u.MFAEnabled)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.Users().GetUserByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		u, err := s.Users().GetUserByID(ctx, userID)
		require.NoError(t, err)
		u.ID = idx.New().String()
		require.ErrorIs(t, s.Users().CreateUser(ctx, u), store.ErrAlreadyExists)
	})

	t.Run("mfa needs a secret before enabling", func(t *testing.T) {
		require.ErrorIs(t, s.Users().EnableMFA(ctx, userID, now), store.ErrNotFound)

		require.NoError(t, s.Users().UpdateMFASecret(ctx, userID, "JBSWY3DPEHPK3PXP"))
		require.NoError(t, s.Users().EnableMFA(ctx, userID, now))

		u, err := s.Users().GetUserByID(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, u.MFAEnabled)
		require.True(t, u.MFAEnabled.Equal(now))
		require.Equal(t, "JBSWY3DPEHPK3PXP", *u.MFASecret)

		require.NoError(t, s.Users().DisableMFA(ctx, userID))
		u, err = s.Users().GetUserByID(ctx, userID)
		require.NoError(t, err)
		require.Nil(t, u.MFAEnabled)
		require.Nil(t, u.MFASecret)
	})
}

func TestClients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	_, clientID := seed(t, s)

	c, err := s.Clients().GetClientByClientID(ctx, clientID)
	require.NoError(t, err)
	require.Equal(t, []string{"openid", "profile"}, c.AllowedScopes)
	require.Equal(t, []string{"https://app.example.com/cb"}, c.RedirectURIs)
	require.Empty(t, c.SecretHash)
	require.Nil(t, c.LastUsedAt)

	t.Run("duplicate client_id", func(t *testing.T) {
		dup := c
		dup.ID = idx.New().String()
		require.ErrorIs(t, s.Clients().CreateClient(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("update and touch", func(t *testing.T) {
		c.SecretHash = "argon2id$x"
		c.AllowedScopes = append(c.AllowedScopes, "email")
		c.UpdatedAt = now.Add(time.Minute)
		require.NoError(t, s.Clients().UpdateClient(ctx, c))
		require.NoError(t, s.Clients().TouchClientLastUsed(ctx, clientID, now.Add(time.Hour)))

		got, err := s.Clients().GetClientByClientID(ctx, clientID)
		require.NoError(t, err)
		require.Equal(t, "argon2id$x", got.SecretHash)
		require.Equal(t, []string{"openid", "profile", "email"}, got.AllowedScopes)
		require.NotNil(t, got.LastUsedAt)
		require.True(t, got.LastUsedAt.Equal(now.Add(time.Hour)))
	})

	t.Run("delete unknown", func(t *testing.T) {
		require.ErrorIs(t, s.Clients().DeleteClient(ctx, "ghost"), store.ErrNotFound)
	})
}

func TestConsentUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	userID, clientID := seed(t, s)

	_, err := s.Consents().GetConsent(ctx, userID, clientID)
	require.ErrorIs(t, err, store.ErrNotFound)

	consent := domain.NewConsent(idx.New().String(), userID, clientID, now)
	consent.Grant([]string{"openid"}, nil, now)
	require.NoError(t, s.Consents().UpsertConsent(ctx, consent))

	// A second upsert with a fresh id replaces the row for the same pair.
	again := domain.NewConsent(idx.New().String(), userID, clientID, now)
	again.Grant([]string{"openid", "profile"}, nil, now)
	require.NoError(t, s.Consents().UpsertConsent(ctx, again))

	got, err := s.Consents().GetConsent(ctx, userID, clientID)
	require.NoError(t, err)
	require.Equal(t, consent.ID, got.ID)
	require.Equal(t, []string{"openid", "profile"}, got.Scopes)
	require.True(t, got.IsGranted)

	list, err := s.Consents().ListUserConsents(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAuthorizationCodeSingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	userID, clientID := seed(t, s)

	code := domain.AuthorizationCode{
		ID:                  idx.New().String(),
		CodeHash:            "hash-1",
		ClientID:            clientID,
		UserID:              userID,
		RedirectURI:         "https://app.example.com/cb",
		Scopes:              []string{"openid"},
		SessionID:           "sid",
		AMR:                 []string{"pwd"},
		CodeChallenge:       "challenge",
		CodeChallengeMethod: domain.PKCEMethodS256,
		ExpiresAt:           now.Add(domain.AuthorizationCodeTTL),
		CreatedAt:           now,
	}
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	got, err := s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, []string{"pwd"}, got.AMR)
	require.Nil(t, got.UsedAt)

	require.NoError(t, s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.ID, now))
	require.ErrorIs(t, s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.ID, now), domain.ErrCodeAlreadyUsed)

	// Used codes are swept regardless of expiry.
	n, err := s.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRefreshTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	userID, clientID := seed(t, s)

	mk := func(hash string, expires time.Time) domain.RefreshToken {
		return domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    userID,
			ClientID:  clientID,
			TokenHash: hash,
			SessionID: "sid",
			Scopes:    []string{"openid"},
			ExpiresAt: expires,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, mk("a", now.Add(time.Hour))))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, mk("b", now.Add(time.Hour))))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, mk("old", now.Add(-time.Hour))))

	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "a", now))
	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "a", now.Add(time.Minute)))

	a, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "a")
	require.NoError(t, err)
	require.True(t, a.Revoked)
	require.True(t, a.RevokedAt.Equal(now), "first revocation time is kept")

	require.NoError(t, s.RefreshTokens().RevokeAllUserClientRefreshTokens(ctx, userID, clientID, now))
	b, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "b")
	require.NoError(t, err)
	require.True(t, b.Revoked)

	n, err := s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestWebAuthnCounterOnlyMovesForward(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	userID, _ := seed(t, s)

	cred := domain.WebAuthnCredential{
		ID:           idx.New().String(),
		UserID:       userID,
		CredentialID: "cred-1",
		PublicKey:    []byte{1, 2, 3},
		Counter:      0,
		IsActive:     true,
		CreatedAt:    now,
	}
	require.NoError(t, s.WebAuthnCredentials().CreateCredential(ctx, cred))
	require.ErrorIs(t, s.WebAuthnCredentials().CreateCredential(ctx, cred), store.ErrAlreadyExists)

	repo := s.WebAuthnCredentials()
	require.NoError(t, repo.UpdateCounter(ctx, cred.ID, 5, now))
	require.ErrorIs(t, repo.UpdateCounter(ctx, cred.ID, 5, now), domain.ErrCounterNotIncreased)
	require.ErrorIs(t, repo.UpdateCounter(ctx, cred.ID, 3, now), domain.ErrCounterNotIncreased)

	got, err := repo.GetCredentialByCredentialID(ctx, "cred-1")
	require.NoError(t, err)
	require.EqualValues(t, 5, got.Counter)
	require.Equal(t, []byte{1, 2, 3}, got.PublicKey)

	list, err := repo.ListActiveUserCredentials(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSigningKeysSingleActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	first, _ := domain.NewSigningKey(idx.New().String(), "k1", "EdDSA", []byte("sealed"), now)
	first.Activate()
	require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, first))

	second, _ := domain.NewSigningKey(idx.New().String(), "k2", "EdDSA", []byte("sealed"), now.Add(time.Second))
	second.Activate()
	require.ErrorIs(t, s.SigningKeys().CreateSigningKey(ctx, second), store.ErrAlreadyExists)

	second.IsActive = false
	require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, second))

	// Demote first, then promote second.
	first.MarkAsPrevious(time.Hour, now)
	require.NoError(t, s.SigningKeys().UpdateSigningKeyState(ctx, first))
	second.Activate()
	require.NoError(t, s.SigningKeys().UpdateSigningKeyState(ctx, second))

	valid, err := s.SigningKeys().ListValidSigningKeys(ctx, now)
	require.NoError(t, err)
	require.Len(t, valid, 2)
	require.Equal(t, "k2", valid[0].Kid)
	require.True(t, valid[0].IsActive)
	require.True(t, valid[1].IsPrevious)

	later := now.Add(2 * time.Hour)
	valid, err = s.SigningKeys().ListValidSigningKeys(ctx, later)
	require.NoError(t, err)
	require.Len(t, valid, 1)

	n, err := s.SigningKeys().DeleteExpiredSigningKeys(ctx, later)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestMFASessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	userID, clientID := seed(t, s)

	sess := domain.MFASession{
		ID:        idx.New().String(),
		UserID:    userID,
		ClientID:  clientID,
		Scopes:    []string{"openid"},
		AMR:       []string{"pwd"},
		SessionID: "sid",
		CreatedAt: now,
		ExpiresAt: now.Add(domain.MFASessionTTL),
	}
	require.NoError(t, s.MFASessions().CreateMFASession(ctx, sess))

	got, err := s.MFASessions().IncrementMFASessionAttempts(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)

	_, err = s.MFASessions().GetMFASession(ctx, sess.ID, now)
	require.NoError(t, err)
	_, err = s.MFASessions().GetMFASession(ctx, sess.ID, sess.ExpiresAt)
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err := s.MFASessions().DeleteExpiredMFASessions(ctx, sess.ExpiresAt)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestOutboxEligibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	ob := s.Outbox()

	var ids []string
	for i := range 3 {
		m, err := domain.NewOutboxMessage(idx.New().String(), domain.ClientSecretRotated{ClientID: "web"}, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, ob.Enqueue(ctx, m))
		ids = append(ids, m.ID)
	}

	eligible, err := ob.ListEligible(ctx, now.Add(time.Minute), 5, 10)
	require.NoError(t, err)
	require.Len(t, eligible, 3)
	require.Equal(t, ids[0], eligible[0].ID, "oldest first")

	first := eligible[0]
	first.MarkProcessed(now)
	require.NoError(t, ob.SaveDeliveryState(ctx, first))

	second := eligible[1]
	second.ScheduleRetry("bus down", now)
	require.NoError(t, ob.SaveDeliveryState(ctx, second))

	third := eligible[2]
	third.MarkFailed("poison", 5)
	require.NoError(t, ob.SaveDeliveryState(ctx, third))

	eligible, err = ob.ListEligible(ctx, now, 5, 10)
	require.NoError(t, err)
	require.Empty(t, eligible)

	eligible, err = ob.ListEligible(ctx, *second.NextRetryAt, 5, 10)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	require.Equal(t, 1, eligible[0].RetryCount)
	require.Equal(t, "bus down", eligible[0].ErrorMessage)

	n, err := ob.DeleteProcessedBefore(ctx, now.Add(time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = ob.GetMessage(ctx, first.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		role := domain.Role{ID: idx.New().String(), Name: "temp", CreatedAt: now, UpdatedAt: now}
		require.NoError(t, tx.Roles().CreateRole(ctx, role))
		return boom
	})
	require.ErrorIs(t, err, boom)

	empty, err := s.Roles().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	})
	require.Error(t, err, "nested transactions are refused")
}
