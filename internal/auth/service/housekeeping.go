package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/store"
)

// ProcessedOutboxRetention is how long delivered outbox rows are kept.
const ProcessedOutboxRetention = 7 * 24 * time.Hour

// HousekeepingService periodically deletes expired codes, tokens, MFA
// sessions, signing keys and old delivered outbox rows.
type HousekeepingService struct {
	Store    store.Store
	Keys     *KeyService // optional; also drops pruned keys from the ring
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults interval to one hour.
func NewHousekeepingService(s store.Store, keys *KeyService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    s,
		Keys:     keys,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs cleanup in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background(), time.Now().UTC())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background(), time.Now().UTC())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failing step is logged
// and the rest still run. It returns the number of rows deleted.
func (s *HousekeepingService) Cleanup(ctx context.Context, now time.Time) int64 {
	steps := []struct {
		name string
		fn   func() (int64, error)
	}{
		{"authorization codes", func() (int64, error) {
			return s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now)
		}},
		{"refresh tokens", func() (int64, error) {
			return s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
		}},
		{"mfa sessions", func() (int64, error) {
			return s.Store.MFASessions().DeleteExpiredMFASessions(ctx, now)
		}},
		{"signing keys", func() (int64, error) {
			if s.Keys != nil {
				return s.Keys.Prune(ctx, now)
			}
			return s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
		}},
		{"outbox messages", func() (int64, error) {
			return s.Store.Outbox().DeleteProcessedBefore(ctx, now.Add(-ProcessedOutboxRetention))
		}},
	}

	var total int64
	for _, step := range steps {
		n, err := step.fn()
		if err != nil {
			s.Logger.Error("housekeeping step failed", "step", step.name, "error", err)
			continue
		}
		if n > 0 {
			s.Logger.Debug("housekeeping deleted rows", "step", step.name, "rows", n)
		}
		total += n
	}
	s.Logger.Info("housekeeping cleanup completed", "deleted", total)
	return total
}
