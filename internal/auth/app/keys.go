package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

// initKeys loads the persisted signing keys into a fresh ring, generating
// the first key on an empty database.
//
// Private keys are sealed with the master key before they reach the
// database. Without AUTH_MASTER_KEY_PATH or AUTH_MASTER_KEY the master key
// lives only for this process, so stored keys are skipped after a restart
// and a new one is generated.
func initKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*service.KeyService, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	} else if os.Getenv(cryptox.MasterKeyEnv) == "" {
		logger.Warn("no master key configured, signing keys will not survive a restart")
	}

	keys := &service.KeyService{
		Store:       db,
		Ring:        jwtx.NewKeyRing(),
		Algorithm:   cfg.Algorithm,
		RSABits:     cfg.RSABits,
		GracePeriod: cfg.KeyGracePeriod,
		Logger:      logger,
	}
	if err := keys.Load(ctx); err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}

	active, _ := keys.Ring.Active()
	logger.Info("signing keys ready",
		"algorithm", cfg.Algorithm,
		"active_kid", active.KID(),
		"grace_period", cfg.KeyGracePeriod,
	)
	return keys, nil
}
