package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// TokenAuthenticator resolves a bearer token into claims. JWTs and opaque
// reference tokens are both handled behind this.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (jwtx.Claims, error)
}

// VerifierAuthenticator adapts a plain jwtx.Verifier.
type VerifierAuthenticator struct{ jwtx.Verifier }

func (v VerifierAuthenticator) Authenticate(_ context.Context, token string) (jwtx.Claims, error) {
	return v.Verify(token)
}

func AuthnMiddleware(a TokenAuthenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := a.Authenticate(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Warn("bearer token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = WithClaims(ctx, claims, raw)
			ctx = slogx.With(ctx, "sub", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
