package app

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/identity/internal/auth/outbox"
	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

type Config struct {
	Issuer         string   // issuer claim and base URL (default: http://localhost:8080)
	Audience       []string // extra audience values added to every access token
	TokenFormat    string   // JWT or REFERENCE (default: JWT)
	BootstrapToken string   // enables POST /v1/bootstrap when set

	Algorithm      string        // RS256, ES256 or EdDSA (default: EdDSA)
	RSABits        int           // RS256 only (default: 4096)
	KeyGracePeriod time.Duration // how long a rotated-out key still verifies (default: 30 days)
	MasterKeyPath  string        // file holding the key that seals private keys at rest
	DatabaseFile   string        // SQLite file (default: identity.db)
	PepperFile     string        // password pepper file (default: pepper)

	RedisAddr     string // empty runs an embedded redis (single process only)
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	EventBus    string // log or redis (default: log)
	EventStream string
	Outbox      outbox.Config

	WebAuthn service.WebAuthnConfig
	SMTP     SMTPConfig

	IdempotencyTTL time.Duration
	RateLimits     httpx.RateLimitProfiles

	Env                  string
	LogLevel             string
	LogFormat            string
	Port                 int
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when one exists. Variables already set win over the file.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "http://localhost:8080"),
		Audience:       splitList(os.Getenv("AUTH_AUDIENCE")),
		TokenFormat:    getEnvOrDefault("AUTH_TOKEN_FORMAT", service.TokenFormatJWT),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),

		Algorithm:      getEnvOrDefault("AUTH_ALGORITHM", jwtx.AlgorithmEdDSA),
		RSABits:        getEnvIntOrDefault("AUTH_RSA_BITS", 0),
		KeyGracePeriod: getEnvDurationOrDefault("AUTH_KEY_GRACE_PERIOD", service.DefaultKeyGracePeriod),
		MasterKeyPath:  os.Getenv("AUTH_MASTER_KEY_PATH"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "identity.db"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		RedisPrefix:   getEnvOrDefault("REDIS_PREFIX", "identity:"),

		EventBus:    strings.ToLower(getEnvOrDefault("EVENT_BUS", "log")),
		EventStream: getEnvOrDefault("EVENT_STREAM", outbox.DefaultStream),
		Outbox: outbox.Config{
			PollInterval: getEnvDurationOrDefault("OUTBOX_POLL_INTERVAL", outbox.DefaultPollInterval),
			BatchSize:    getEnvIntOrDefault("OUTBOX_BATCH_SIZE", outbox.DefaultBatchSize),
			MaxRetries:   getEnvIntOrDefault("OUTBOX_MAX_RETRIES", outbox.DefaultMaxRetries),
		},

		SMTP: SMTPConfig{
			Host:     os.Getenv("MFA_SMTP_HOST"),
			Port:     getEnvIntOrDefault("MFA_SMTP_PORT", 587),
			Username: os.Getenv("MFA_SMTP_USERNAME"),
			Password: os.Getenv("MFA_SMTP_PASSWORD"),
			From:     getEnvOrDefault("MFA_SMTP_FROM", "no-reply@localhost"),
		},

		IdempotencyTTL: getEnvDurationOrDefault("IDEMPOTENCY_TTL", httpx.DefaultIdempotencyTTL),
		RateLimits:     httpx.LoadRateLimitProfiles(os.Getenv),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	// The relying party defaults to the issuer's host and origin.
	cfg.WebAuthn = service.WebAuthnConfig{
		RPID:   getEnvOrDefault("WEBAUTHN_RP_ID", hostOf(cfg.Issuer)),
		RPName: getEnvOrDefault("WEBAUTHN_RP_NAME", "Identity"),
		Origin: getEnvOrDefault("WEBAUTHN_ORIGIN", strings.TrimSuffix(cfg.Issuer, "/")),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hostOf(issuer string) string {
	u, err := url.Parse(issuer)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
