package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/cache"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

// Access token formats selectable with AUTH_TOKEN_FORMAT.
const (
	TokenFormatJWT       = "JWT"
	TokenFormatReference = "REFERENCE"
)

var ErrUnknownTokenFormat = errors.New("unknown token format")

// TokenProvider mints and resolves access tokens of one format.
type TokenProvider interface {
	Format() string
	Issue(ctx context.Context, claims jwtx.Claims, ttl time.Duration) (string, error)
	Validate(ctx context.Context, token string) (jwtx.Claims, error)

	// Revoke reports whether the token was one this provider can revoke.
	Revoke(ctx context.Context, token string) (bool, error)
}

// NewTokenProvider picks the provider for format, case-insensitively.
func NewTokenProvider(format string, keys *jwtx.KeyRing, verifier jwtx.Verifier, c cache.Cache) (TokenProvider, error) {
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case TokenFormatJWT, "":
		return &JWTProvider{Keys: keys, Verifier: verifier}, nil
	case TokenFormatReference:
		if c == nil {
			return nil, errors.New("reference tokens need a cache")
		}
		return &ReferenceProvider{Cache: c}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTokenFormat, format)
	}
}

// JWTProvider signs self-contained tokens with the active key of the ring.
type JWTProvider struct {
	Keys     *jwtx.KeyRing
	Verifier jwtx.Verifier
}

func (p *JWTProvider) Format() string { return TokenFormatJWT }

func (p *JWTProvider) Issue(_ context.Context, claims jwtx.Claims, _ time.Duration) (string, error) {
	return p.Keys.Sign(claims)
}

func (p *JWTProvider) Validate(_ context.Context, token string) (jwtx.Claims, error) {
	return p.Verifier.Verify(token)
}

// Revoke cannot invalidate a signed token before it expires.
func (p *JWTProvider) Revoke(context.Context, string) (bool, error) {
	return false, nil
}

// ReferenceProvider hands out opaque handles and keeps the claims in the
// cache, keyed by the handle's fingerprint, until the token expires.
type ReferenceProvider struct {
	Cache cache.Cache
	Now   func() time.Time
}

func (p *ReferenceProvider) Format() string { return TokenFormatReference }

func (p *ReferenceProvider) Issue(ctx context.Context, claims jwtx.Claims, ttl time.Duration) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode reference claims: %w", err)
	}
	if err := p.Cache.Set(ctx, cache.ReferenceTokenKey(cryptox.FingerprintToken(token)), data, ttl); err != nil {
		return "", fmt.Errorf("store reference token: %w", err)
	}
	return token, nil
}

func (p *ReferenceProvider) Validate(ctx context.Context, token string) (jwtx.Claims, error) {
	data, err := p.Cache.Get(ctx, cache.ReferenceTokenKey(cryptox.FingerprintToken(token)))
	if errors.Is(err, cache.ErrMiss) {
		return jwtx.Claims{}, ErrInvalidToken
	}
	if err != nil {
		return jwtx.Claims{}, err
	}

	var claims jwtx.Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		return jwtx.Claims{}, fmt.Errorf("decode reference claims: %w", err)
	}
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	if err := claims.ValidateTime(now, 0); err != nil {
		return jwtx.Claims{}, err
	}
	return claims, nil
}

func (p *ReferenceProvider) Revoke(ctx context.Context, token string) (bool, error) {
	if looksLikeJWT(token) {
		return false, nil
	}
	key := cache.ReferenceTokenKey(cryptox.FingerprintToken(token))
	if _, err := p.Cache.Get(ctx, key); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return false, nil
		}
		return false, err
	}
	return true, p.Cache.Delete(ctx, key)
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}
