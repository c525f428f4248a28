package httpx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, target, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "remote addr", want: "192.168.1.1"},
		{name: "forwarded for first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 192.168.1.1"}, want: "203.0.113.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.2"}, want: "203.0.113.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestClientIDKeyExtractor(t *testing.T) {
	t.Parallel()

	t.Run("basic auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.SetBasicAuth("acme", "secret")
		require.Equal(t, "acme", httpx.ClientIDKeyExtractor(req))
	})

	t.Run("form field", func(t *testing.T) {
		form := url.Values{"client_id": {"spa"}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, "spa", httpx.ClientIDKeyExtractor(req))
	})

	t.Run("composite skips empty parts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1"
		key := httpx.CompositeKeyExtractor(":", httpx.ClientIDKeyExtractor, httpx.IPKeyExtractor)(req)
		require.Equal(t, "10.0.0.1", key)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("blocks after burst", func(t *testing.T) {
		t.Parallel()
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3})(okHandler)

		for i := range 3 {
			require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code, "request %d", i+1)
		}
		rec := hit(h, "/", "192.168.1.1:1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("keys tracked separately", func(t *testing.T) {
		t.Parallel()
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)

		require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code)
		require.Equal(t, http.StatusTooManyRequests, hit(h, "/", "192.168.1.1:1").Code)
		require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.2:1").Code)
	})

	t.Run("ip and form field", func(t *testing.T) {
		t.Parallel()
		h := httpx.RateLimitByIPAndFormField(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, "username")(okHandler)

		require.Equal(t, http.StatusOK, hit(h, "/?username=alice", "192.168.1.1:1").Code)
		require.Equal(t, http.StatusTooManyRequests, hit(h, "/?username=alice", "192.168.1.1:1").Code)
		require.Equal(t, http.StatusOK, hit(h, "/?username=bob", "192.168.1.1:1").Code)
	})

	t.Run("no key allows", func(t *testing.T) {
		t.Parallel()
		empty := func(*http.Request) string { return "" }
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, empty)(okHandler)
		for range 3 {
			require.Equal(t, http.StatusOK, hit(h, "/", "").Code)
		}
	})

	t.Run("reject hook", func(t *testing.T) {
		t.Parallel()
		var rejected atomic.Int32
		h := httpx.RateLimitByIP(
			httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			httpx.OnReject(func(*http.Request) { rejected.Add(1) }),
		)(okHandler)

		hit(h, "/", "10.0.0.1:1")
		hit(h, "/", "10.0.0.1:1")
		hit(h, "/", "10.0.0.1:1")
		require.EqualValues(t, 2, rejected.Load())
	})
}

func TestLoadRateLimitProfiles(t *testing.T) {
	t.Parallel()

	t.Run("defaults ordered", func(t *testing.T) {
		p := httpx.LoadRateLimitProfiles(func(string) string { return "" })
		require.Equal(t, httpx.DefaultRateLimitProfiles(), p)
		require.Less(t, p.Strict.RequestsPerWindow, p.Moderate.RequestsPerWindow)
		require.Less(t, p.Moderate.RequestsPerWindow, p.Lenient.RequestsPerWindow)
		require.Less(t, p.Lenient.RequestsPerWindow, p.Public.RequestsPerWindow)
	})

	t.Run("overrides", func(t *testing.T) {
		env := map[string]string{
			"RATELIMIT_STRICT_REQUESTS":   "200",
			"RATELIMIT_STRICT_WINDOW_SEC": "30",
			"RATELIMIT_STRICT_BURST":      "250",
		}
		p := httpx.LoadRateLimitProfiles(func(k string) string { return env[k] })
		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250}, p.Strict)
		require.Equal(t, httpx.DefaultRateLimitProfiles().Public, p.Public)
	})

	t.Run("invalid values keep defaults", func(t *testing.T) {
		env := map[string]string{
			"RATELIMIT_TEST_REQUESTS":   "invalid",
			"RATELIMIT_TEST_WINDOW_SEC": "-10",
			"RATELIMIT_TEST_BURST":      "0",
		}
		def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}
		require.Equal(t, def, httpx.ParseRateLimit(func(k string) string { return env[k] }, "TEST", def))
	})
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000})(okHandler)
	for i := 0; b.Loop(); i++ {
		hit(h, "/", fmt.Sprintf("192.168.%d.%d:1", i%255, (i/255)%255))
	}
}
