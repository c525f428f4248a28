package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/cache"
	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/service/mfa"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

const (
	testIssuer      = "https://id.example.test"
	testPassword    = "correct-horse-battery"
	testRedirect    = "https://acme.example/callback"
	testSecret      = "acme-api-secret-0123456789abcdef0123"
	testPublicID    = "acme-spa"
	testConfidentID = "acme-api"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type outbox struct {
	mu    sync.Mutex
	email map[string]string
}

func (o *outbox) SendEmail(_ context.Context, to, _, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.email == nil {
		o.email = map[string]string{}
	}
	o.email[to] = body
	return nil
}

// env is a wired set of services over an in-memory database and redis.
type env struct {
	ctx       context.Context
	store     *sqlite.Store
	cache     *cache.Redis
	mr        *miniredis.Miniredis
	ring      *jwtx.KeyRing
	issuer    *TokenIssuer
	grants    *GrantDispatcher
	authorize *AuthorizeService
	mail      *outbox
	role      domain.Role
	user      domain.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")

	ring, err := jwtx.NewEphemeralKeyRing("test-kid")
	require.NoError(t, err)
	provider, err := NewTokenProvider(TokenFormatJWT, ring, ring.Verifier(jwtx.VerifyOptions{Issuer: testIssuer}), c)
	require.NoError(t, err)
	issuer := NewTokenIssuer(s, testIssuer, nil, provider, &ReferenceProvider{Cache: c})

	mail := &outbox{}
	factory := mfa.NewFactory(&mfa.TOTPProvider{}, mfa.NewEmailProvider(c, mail, discard, nil))

	e := &env{
		ctx:       ctx,
		store:     s,
		cache:     c,
		mr:        mr,
		ring:      ring,
		issuer:    issuer,
		grants:    NewGrantDispatcher(s, nil, DefaultGrants(s, issuer)),
		authorize: &AuthorizeService{Store: s, MFA: factory},
		mail:      mail,
	}
	e.seed(t)
	return e
}

func (e *env) seed(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()

	e.role = domain.Role{ID: idx.New().String(), Name: "member", Scopes: []string{"profile:read"}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.store.Roles().CreateRole(e.ctx, e.role))

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)
	e.user = domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		Email:        "alice@acme.example",
		PasswordHash: hash,
		RoleID:       e.role.ID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.Users().CreateUser(e.ctx, e.user))

	noConsent := false
	e.addClient(t, domain.NewClientParams{
		ClientID:          testPublicID,
		Name:              "Acme SPA",
		RequireConsent:    &noConsent,
		AllowedGrantTypes: []string{domain.GrantAuthorizationCode, domain.GrantRefreshToken},
		AllowedScopes:     []string{"openid", "profile"},
		RedirectURIs:      []string{testRedirect},
	})

	secretHash, err := cryptox.HashPassword(testSecret)
	require.NoError(t, err)
	e.addClient(t, domain.NewClientParams{
		ClientID:          testConfidentID,
		SecretHash:        secretHash,
		Name:              "Acme API",
		RequireConsent:    &noConsent,
		AllowedGrantTypes: []string{domain.GrantAuthorizationCode, domain.GrantClientCredentials, domain.GrantRefreshToken},
		AllowedScopes:     []string{"openid", "api:read", "api:write"},
		RedirectURIs:      []string{"https://api.acme.example/*"},
	})
}

func (e *env) addClient(t *testing.T, p domain.NewClientParams) domain.Client {
	t.Helper()
	p.ID = idx.New().String()
	c, _, err := domain.NewClient(p, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, e.store.Clients().CreateClient(e.ctx, c))
	return c
}

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// login runs the authorize endpoint for alice with S256 PKCE and returns the
// code.
func (e *env) login(t *testing.T, clientID, verifier string, scopes ...string) string {
	t.Helper()
	resp, err := e.authorize.IssueAuthorizationCode(e.ctx, AuthorizeRequest{
		ResponseType:        "code",
		ClientID:            clientID,
		RedirectURI:         testRedirect,
		Scope:               scopes,
		State:               "xyz",
		CodeChallenge:       s256(verifier),
		CodeChallengeMethod: domain.PKCEMethodS256,
		Username:            "alice",
		Password:            testPassword,
	})
	require.NoError(t, err)
	require.Equal(t, "xyz", resp.State)
	return resp.Code
}
