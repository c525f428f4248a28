package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/auth/outbox"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"AUTH_ISSUER", "AUTH_ALGORITHM", "EVENT_BUS", "WEBAUTHN_RP_ID", "WEBAUTHN_ORIGIN", "OUTBOX_BATCH_SIZE"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.Issuer)
	require.Equal(t, jwtx.AlgorithmEdDSA, cfg.Algorithm)
	require.Equal(t, "log", cfg.EventBus)
	require.Equal(t, outbox.DefaultBatchSize, cfg.Outbox.BatchSize)
	require.Equal(t, "localhost", cfg.WebAuthn.RPID)
	require.Equal(t, "http://localhost:8080", cfg.WebAuthn.Origin)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "https://id.example.com/")
	t.Setenv("AUTH_AUDIENCE", "api, billing ,")
	t.Setenv("AUTH_TOKEN_FORMAT", "reference")
	t.Setenv("EVENT_BUS", "Redis")
	t.Setenv("OUTBOX_POLL_INTERVAL", "2")
	t.Setenv("IDEMPOTENCY_TTL", "90s")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "7")
	t.Setenv("WEBAUTHN_RP_ID", "")
	t.Setenv("WEBAUTHN_ORIGIN", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"api", "billing"}, cfg.Audience)
	require.Equal(t, "reference", cfg.TokenFormat)
	require.Equal(t, "redis", cfg.EventBus)
	require.Equal(t, 2*time.Minute, cfg.Outbox.PollInterval)
	require.Equal(t, 90*time.Second, cfg.IdempotencyTTL)
	require.Equal(t, 7, cfg.RateLimits.Strict.RequestsPerWindow)
	require.Equal(t, "id.example.com", cfg.WebAuthn.RPID)
	require.Equal(t, "https://id.example.com", cfg.WebAuthn.Origin)
}
