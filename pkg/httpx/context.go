package httpx

import (
	"context"

	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

type ctxKey string

const (
	ctxKeyClaims ctxKey = "claims"
	ctxKeyToken  ctxKey = "access_token"
)

// WithClaims stores the authenticated caller on ctx.
func WithClaims(ctx context.Context, c jwtx.Claims, rawToken string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClaims, c)
	return context.WithValue(ctx, ctxKeyToken, rawToken)
}

// ClaimsFromContext returns the claims set by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(jwtx.Claims)
	return c, ok
}

// UserIDFromContext is the subject of the bearer token, or "".
func UserIDFromContext(ctx context.Context) string {
	c, _ := ClaimsFromContext(ctx)
	return c.Subject
}

// AccessTokenFromContext returns the raw bearer token that authenticated the request.
func AccessTokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyToken).(string)
	return s
}
