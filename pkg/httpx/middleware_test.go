package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type staticAuth map[string]jwtx.Claims

func (s staticAuth) Authenticate(_ context.Context, tok string) (jwtx.Claims, error) {
	c, ok := s[tok]
	if !ok {
		return jwtx.Claims{}, errors.New("unknown token")
	}
	return c, nil
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := httpx.Chain(okHandler, mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestAuthnAndScopes(t *testing.T) {
	t.Parallel()

	auth := staticAuth{
		"admin": {RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Scope: "openid", Permissions: []string{"admin:write"}},
		"user":  {RegisteredClaims: jwt.RegisteredClaims{Subject: "u2"}, Scope: "openid profile"},
	}

	var seenSub string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSub = httpx.UserIDFromContext(r.Context())
		require.NotEmpty(t, httpx.AccessTokenFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
	h := httpx.Chain(inner, httpx.AuthnMiddleware(auth), httpx.RequireAnyScope("admin:write"))

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing token", func(t *testing.T) {
		rec := call("")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("unknown token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, call("Bearer nope").Code)
	})

	t.Run("insufficient scope", func(t *testing.T) {
		rec := call("Bearer user")
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})

	t.Run("permission grants scope", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, call("bearer admin").Code)
		require.Equal(t, "u1", seenSub)
	})
}

type memResponses struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func (m *memResponses) GetResponse(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("cache down")
	}
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memResponses) PutResponse(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cache down")
	}
	m.data[key] = data
	return nil
}

func TestIdempotent(t *testing.T) {
	t.Parallel()

	newHandler := func(store httpx.ResponseStore) (http.Handler, *atomic.Int32) {
		var calls atomic.Int32
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			httpx.WriteJSON(w, http.StatusCreated, map[string]int32{"n": n})
		})
		return httpx.Idempotent(store, "create_client", time.Hour)(inner), &calls
	}
	send := func(h http.Handler, subject, path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if key != "" {
			req.Header.Set(httpx.IdempotencyKeyHeader, key)
		}
		if subject != "" {
			claims := jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
			req = req.WithContext(httpx.WithClaims(req.Context(), claims, "tok"))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	post := func(h http.Handler, key string) *httptest.ResponseRecorder {
		return send(h, "", "/", key)
	}

	t.Run("replays byte identical", func(t *testing.T) {
		t.Parallel()
		store := &memResponses{data: map[string][]byte{}}
		h, calls := newHandler(store)

		first := post(h, "k1")
		second := post(h, "k1")

		require.Equal(t, http.StatusCreated, second.Code)
		require.Equal(t, first.Body.Bytes(), second.Body.Bytes())
		require.Equal(t, "true", second.Header().Get(httpx.IdempotentReplayedHeader))
		require.Empty(t, first.Header().Get(httpx.IdempotentReplayedHeader))
		require.EqualValues(t, 1, calls.Load())
		require.Contains(t, store.data, httpx.IdempotencyKey("create_client", "", "/", "k1"))
	})

	t.Run("scoped to subject and path", func(t *testing.T) {
		t.Parallel()
		store := &memResponses{data: map[string][]byte{}}
		h, calls := newHandler(store)

		a := send(h, "alice", "/v1/clients/svc-a/rotate-secret", "rotate-1")
		b := send(h, "alice", "/v1/clients/svc-b/rotate-secret", "rotate-1")
		c := send(h, "bob", "/v1/clients/svc-a/rotate-secret", "rotate-1")

		require.EqualValues(t, 3, calls.Load())
		require.NotEqual(t, a.Body.Bytes(), b.Body.Bytes())
		require.NotEqual(t, a.Body.Bytes(), c.Body.Bytes())
		require.Empty(t, b.Header().Get(httpx.IdempotentReplayedHeader))
		require.Empty(t, c.Header().Get(httpx.IdempotentReplayedHeader))

		again := send(h, "alice", "/v1/clients/svc-a/rotate-secret", "rotate-1")
		require.Equal(t, "true", again.Header().Get(httpx.IdempotentReplayedHeader))
		require.Equal(t, a.Body.Bytes(), again.Body.Bytes())
		require.EqualValues(t, 3, calls.Load())
	})

	t.Run("no key passes through", func(t *testing.T) {
		t.Parallel()
		h, calls := newHandler(&memResponses{data: map[string][]byte{}})
		post(h, "")
		post(h, "")
		require.EqualValues(t, 2, calls.Load())
	})

	t.Run("cache failure ignored", func(t *testing.T) {
		t.Parallel()
		h, calls := newHandler(&memResponses{data: map[string][]byte{}, fail: true})
		require.Equal(t, http.StatusCreated, post(h, "k").Code)
		require.Equal(t, http.StatusCreated, post(h, "k").Code)
		require.EqualValues(t, 2, calls.Load())
	})
}
