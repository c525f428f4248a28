package http_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/cache"
	authhttp "github.com/aussiebroadwan/identity/internal/auth/http"
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/internal/auth/service/mfa"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

const (
	testIssuer     = "https://id.example.test"
	bootstrapToken = "test-bootstrap-token-12345"
	adminUsername  = "admin"
	adminPassword  = "Admin-password-123"
	adminClientID  = "identity-admin"
	userPassword   = "correct-horse-battery"
	spaClientID    = "acme-spa"
	spaRedirect    = "http://localhost:9999/callback"
)

var adminScopes = []string{"openid", "profile", "admin:read", "admin:write"}

func roleDefinitions() []authsdk.RoleDefinition {
	return []authsdk.RoleDefinition{
		{Name: "admin", Scopes: adminScopes},
		{Name: "user", Scopes: []string{"openid", "profile"}},
	}
}

// mailbox records the last message per recipient.
type mailbox struct {
	mu   sync.Mutex
	sent map[string]string
}

func (m *mailbox) SendEmail(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = map[string]string{}
	}
	m.sent[to] = body
	return nil
}

// code pulls the one-time code out of the last message to addr.
func (m *mailbox) code(t *testing.T, addr string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.sent[addr]
	require.True(t, ok, "no mail sent to %s", addr)
	_, rest, ok := strings.Cut(body, "code is: ")
	require.True(t, ok)
	code, _, _ := strings.Cut(rest, "\r\n")
	return code
}

type testServer struct {
	URL    string
	Client *authsdk.SDKClient
	Mail   *mailbox
	Redis  *miniredis.Miniredis
}

// serverOption adjusts the router before routes are applied.
type serverOption func(*authhttp.Router)

func withRateLimits(p httpx.RateLimitProfiles) serverOption {
	return func(r *authhttp.Router) { r.RateLimits = p }
}

func generousLimits() httpx.RateLimitProfiles {
	l := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	return httpx.RateLimitProfiles{Strict: l, Moderate: l, Lenient: l, Public: l}
}

// newTestServer wires the full service graph over sqlite :memory: and
// miniredis and serves it from httptest.
func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")
	m := metrics.New()

	ring := jwtx.NewKeyRing()
	keys := &service.KeyService{Store: st, Ring: ring, Algorithm: jwtx.AlgorithmES256, Logger: logger}
	require.NoError(t, keys.Load(ctx))

	provider, err := service.NewTokenProvider(service.TokenFormatJWT, ring, ring.Verifier(jwtx.VerifyOptions{Issuer: testIssuer}), c)
	require.NoError(t, err)
	tokens := service.NewTokenIssuer(st, testIssuer, nil, provider, &service.ReferenceProvider{Cache: c})

	mail := &mailbox{}
	factory := mfa.NewFactory(&mfa.TOTPProvider{Metrics: m}, mfa.NewEmailProvider(c, mail, logger, m))

	r := authhttp.NewRouter(ring.KeySet(), testIssuer, "test", st, logger)
	r.Cache = c
	r.Metrics = m
	r.RateLimits = generousLimits()
	r.Tokens = tokens
	r.Grants = service.NewGrantDispatcher(st, m, service.DefaultGrants(st, tokens))
	r.AuthorizeService = &service.AuthorizeService{Store: st, MFA: factory}
	r.UserService = &service.UserService{Store: st}
	r.ClientService = &service.ClientService{Store: st}
	r.ConsentService = &service.ConsentService{Store: st}
	r.MFAService = &service.MFAService{Store: st, Factory: factory, Issuer: "identity-test"}
	r.WebAuthnService = &service.WebAuthnService{
		Store:   st,
		Cache:   c,
		Config:  service.WebAuthnConfig{RPID: "id.example.test", RPName: "Identity", Origin: testIssuer},
		Metrics: m,
	}
	r.KeyService = keys
	r.BootstrapService = &service.BootstrapService{Store: st, Token: bootstrapToken}
	for _, opt := range opts {
		opt(r)
	}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{
		URL:    srv.URL,
		Client: authsdk.NewSDKClient(srv.URL, authsdk.WithHTTPClient(srv.Client())),
		Mail:   mail,
		Redis:  mr,
	}
}

// bootstrap seeds the server and returns a client credentials session for
// the admin client.
func (ts *testServer) bootstrap(t *testing.T) *authsdk.Session {
	t.Helper()
	resp, err := ts.Client.Bootstrap(t.Context(), bootstrapToken, authsdk.BootstrapRequest{
		AdminUsername: adminUsername,
		AdminEmail:    "admin@example.test",
		AdminPassword: adminPassword,
		ClientID:      adminClientID,
		ClientName:    "Identity admin",
		ClientScopes:  adminScopes,
		RedirectURIs:  []string{"http://localhost:9999/admin"},
		Roles:         roleDefinitions(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ClientSecret)

	session, err := ts.Client.AuthenticateWithClientCredentials(t.Context(), adminClientID, resp.ClientSecret, adminScopes[2:])
	require.NoError(t, err)
	return session
}

// seedUserAndSPA creates a user and a public PKCE client that requires
// consent.
func (ts *testServer) seedUserAndSPA(t *testing.T, admin *authsdk.Session, username string) {
	t.Helper()
	_, err := admin.CreateUser(t.Context(), authsdk.CreateUserRequest{
		Username: username,
		Password: userPassword,
		Email:    username + "@example.test",
		Role:     "user",
	})
	require.NoError(t, err)

	_, err = admin.GetClient(t.Context(), spaClientID)
	if err == nil {
		return
	}
	_, err = admin.CreateClient(t.Context(), authsdk.CreateClientRequest{
		ClientID:      spaClientID,
		Public:        true,
		Name:          "Acme SPA",
		AllowedScopes: []string{"openid", "profile"},
		RedirectURIs:  []string{spaRedirect},
	}, "")
	require.NoError(t, err)
}

func spaAuthorizeRequest(username string) authsdk.AuthorizeRequest {
	return authsdk.AuthorizeRequest{
		ClientID:    spaClientID,
		RedirectURI: spaRedirect,
		Scopes:      []string{"openid", "profile"},
		State:       "state-" + username,
		Username:    username,
		Password:    userPassword,
	}
}

// login runs the authorization code flow for username, approving consent.
func (ts *testServer) login(t *testing.T, username string) *authsdk.Session {
	t.Helper()
	ar := spaAuthorizeRequest(username)
	ar.ApproveConsent = true
	session, err := ts.Client.AuthorizeAndExchange(t.Context(), ar, "")
	require.NoError(t, err)
	return session
}

func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.NotEmpty(t, resp.Scope)
}
