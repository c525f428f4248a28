package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/identity/api/identity" // swagger docs
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

const (
	scopeAdminRead  = "admin:read"
	scopeAdminWrite = "admin:write"
)

// ResponseCache backs readiness checks and idempotent replays.
type ResponseCache interface {
	Pinger
	httpx.ResponseStore
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// Nil disables the cache check and idempotent replays.
	Cache          ResponseCache
	Metrics        *metrics.Metrics
	RateLimits     httpx.RateLimitProfiles
	IdempotencyTTL time.Duration

	Tokens           *service.TokenIssuer
	Grants           *service.GrantDispatcher
	AuthorizeService *service.AuthorizeService
	UserService      *service.UserService
	ClientService    *service.ClientService
	ConsentService   *service.ConsentService
	MFAService       *service.MFAService
	WebAuthnService  *service.WebAuthnService
	KeyService       *service.KeyService
	BootstrapService *service.BootstrapService
}

func NewRouter(keys *jwtx.KeySet, issuer, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		keys:           keys,
		issuer:         issuer,
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		store:          st,
		logger:         logger,
		RateLimits:     httpx.DefaultRateLimitProfiles(),
		IdempotencyTTL: httpx.DefaultIdempotencyTTL,
	}
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerWellKnown()
	r.registerUsers()
	r.registerClients()
	r.registerConsents()
	r.registerMFA()
	r.registerWebAuthn()
	r.registerKeys()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Identity Service API
//	@version					0.1.0
//	@description				OAuth2 and OpenID Connect authorization server: authorization code with PKCE,
//	@description				client credentials, rotating refresh tokens, introspection and revocation,
//	@description				WebAuthn passkeys and one-time code MFA.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/identity
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authed requires a valid access token and, when scopes are given, any one
// of them. Limits are applied per user.
func (r *Router) authed(h http.Handler, limit httpx.RateLimitConfig, scopes ...string) http.Handler {
	mws := []httpx.Middleware{httpx.AuthnMiddleware(r.Tokens)}
	if len(scopes) > 0 {
		mws = append(mws, httpx.RequireAnyScope(scopes...))
	}
	mws = append(mws, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, mws...)
}

// idempotent is a no-op without a cache.
func (r *Router) idempotent(h http.Handler, command string) http.Handler {
	if r.Cache == nil {
		return h
	}
	return httpx.Chain(h, httpx.Idempotent(r.Cache, command, r.IdempotencyTTL))
}

func (r *Router) registerOAuth2() {
	limits := r.RateLimits
	authorize := &AuthorizeHandler{AuthorizeService: r.AuthorizeService, Sessions: r.Tokens}

	r.Mux.Handle("GET /v1/oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorize.HandleGet),
			httpx.RateLimitByIP(limits.Lenient),
		),
	)
	// Keyed on IP and username.
	r.Mux.Handle("POST /v1/oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorize.HandlePost),
			httpx.RateLimitByIPAndFormField(limits.Strict, "username"),
		),
	)

	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(&TokenHandler{Grants: r.Grants},
			httpx.RateLimitByIP(limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/oauth2/revoke",
		httpx.Chain(&RevokeHandler{Tokens: r.Tokens},
			httpx.RateLimitByIP(limits.Moderate),
		),
	)
	r.Mux.Handle("POST /v1/oauth2/introspect",
		r.authed(&IntrospectHandler{Tokens: r.Tokens}, limits.Moderate),
	)
}

func (r *Router) registerWellKnown() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.RateLimits.Public),
		),
	)
	r.Mux.Handle("GET /.well-known/openid-configuration",
		httpx.Chain(DiscoveryHandler(r.issuer, r.keys, r.Grants.SupportedGrantTypes()),
			httpx.RateLimitByIP(r.RateLimits.Public),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}
	limits := r.RateLimits

	r.Mux.Handle("GET /v1/userinfo", r.authed(http.HandlerFunc(h.HandleUserInfo), limits.Lenient, "openid", "profile"))
	r.Mux.Handle("POST /v1/users", r.authed(http.HandlerFunc(h.HandleCreate), limits.Moderate, scopeAdminWrite))
	r.Mux.Handle("GET /v1/roles", r.authed(http.HandlerFunc(h.HandleListRoles), limits.Moderate, scopeAdminRead))
}

func (r *Router) registerClients() {
	h := &ClientsHandler{ClientService: r.ClientService}
	m := r.RateLimits.Moderate

	r.Mux.Handle("POST /v1/clients", r.authed(r.idempotent(http.HandlerFunc(h.HandleCreate), "clients.create"), m, scopeAdminWrite))
	r.Mux.Handle("GET /v1/clients", r.authed(http.HandlerFunc(h.HandleList), m, scopeAdminRead))
	r.Mux.Handle("GET /v1/clients/{id}", r.authed(http.HandlerFunc(h.HandleGet), m, scopeAdminRead))
	r.Mux.Handle("POST /v1/clients/{id}/rotate-secret", r.authed(r.idempotent(http.HandlerFunc(h.HandleRotateSecret), "clients.rotate_secret"), m, scopeAdminWrite))
	r.Mux.Handle("POST /v1/clients/{id}/activate", r.authed(http.HandlerFunc(h.HandleActivate), m, scopeAdminWrite))
	r.Mux.Handle("POST /v1/clients/{id}/deactivate", r.authed(http.HandlerFunc(h.HandleDeactivate), m, scopeAdminWrite))
	r.Mux.Handle("DELETE /v1/clients/{id}", r.authed(http.HandlerFunc(h.HandleDelete), m, scopeAdminWrite))
}

func (r *Router) registerConsents() {
	h := &ConsentsHandler{ConsentService: r.ConsentService}
	m := r.RateLimits.Moderate

	r.Mux.Handle("POST /v1/consents", r.authed(http.HandlerFunc(h.HandleGrant), m))
	r.Mux.Handle("GET /v1/consents", r.authed(http.HandlerFunc(h.HandleList), r.RateLimits.Lenient))
	r.Mux.Handle("DELETE /v1/consents/{client_id}", r.authed(http.HandlerFunc(h.HandleRevoke), m))
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}
	limits := r.RateLimits

	r.Mux.Handle("POST /v1/mfa/totp/enroll", r.authed(http.HandlerFunc(h.HandleEnroll), limits.Moderate))
	r.Mux.Handle("POST /v1/mfa/totp/enable", r.authed(http.HandlerFunc(h.HandleEnable), limits.Strict))
	r.Mux.Handle("DELETE /v1/mfa/totp", r.authed(http.HandlerFunc(h.HandleDisable), limits.Strict))
	r.Mux.Handle("POST /v1/mfa/send-code", r.authed(r.idempotent(http.HandlerFunc(h.HandleSendCode), "mfa.send_code"), limits.Strict))
	r.Mux.Handle("POST /v1/mfa/verify-code", r.authed(http.HandlerFunc(h.HandleVerifyCode), limits.Strict))
}

func (r *Router) registerWebAuthn() {
	h := &WebAuthnHandler{WebAuthnService: r.WebAuthnService}
	limits := r.RateLimits

	r.Mux.Handle("POST /v1/webauthn/register/challenge", r.authed(http.HandlerFunc(h.HandleRegisterChallenge), limits.Moderate))
	r.Mux.Handle("POST /v1/webauthn/register/complete", r.authed(r.idempotent(http.HandlerFunc(h.HandleRegisterComplete), "webauthn.register_complete"), limits.Moderate))
	r.Mux.Handle("POST /v1/webauthn/authenticate/challenge", r.authed(http.HandlerFunc(h.HandleAuthenticateChallenge), limits.Moderate))
	r.Mux.Handle("POST /v1/webauthn/authenticate/complete", r.authed(http.HandlerFunc(h.HandleAuthenticateComplete), limits.Strict))
}

func (r *Router) registerKeys() {
	h := &KeysHandler{KeyService: r.KeyService}
	m := r.RateLimits.Moderate

	r.Mux.Handle("POST /v1/keys/rotate", r.authed(http.HandlerFunc(h.HandleRotate), m, scopeAdminWrite))
	r.Mux.Handle("GET /v1/keys", r.authed(http.HandlerFunc(h.HandleList), m, scopeAdminRead))
}

func (r *Router) registerSystem() {
	lenient := r.RateLimits.Lenient
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(lenient),
		),
	)

	var cache Pinger
	if r.Cache != nil {
		cache = r.Cache
	}
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, cache, r.keys),
			httpx.RateLimitByIP(lenient),
		),
	)
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}

func (r *Router) registerBootstrap() {
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(&BootstrapHandler{BootstrapService: r.BootstrapService},
			httpx.RateLimitByIP(r.RateLimits.Strict),
		),
	)
}
