// Package outbox relays events written to the outbox table to an event bus.
// Rows are only marked processed after the bus accepts them, so delivery is
// at least once.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
	"github.com/aussiebroadwan/identity/internal/auth/store"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 100
	DefaultMaxRetries   = 5
)

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// Publisher polls for eligible rows, oldest first, and hands each to the
// bus. One publisher runs per process.
type Publisher struct {
	Store   store.Store
	Bus     EventBus
	Config  Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPublisher(s store.Store, bus EventBus, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{
		Store:   s,
		Bus:     bus,
		Config:  cfg.withDefaults(),
		Logger:  logger,
		Metrics: m,
	}
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// Start runs the poll loop until ctx is cancelled or Stop is called.
func (p *Publisher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)
	p.Logger.Info("outbox publisher started",
		"poll_interval", p.Config.PollInterval,
		"batch_size", p.Config.BatchSize,
		"max_retries", p.Config.MaxRetries,
	)
}

// Stop waits for the message in flight, if any.
func (p *Publisher) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	p.Logger.Info("outbox publisher stopped")
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.Config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.Logger.Error("outbox batch failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// ProcessBatch delivers up to one batch and returns how many rows were
// published. A failing message never stops the rest of the batch.
func (p *Publisher) ProcessBatch(ctx context.Context) (int, error) {
	msgs, err := p.Store.Outbox().ListEligible(ctx, p.now(), p.Config.MaxRetries, p.Config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list outbox messages: %w", err)
	}

	published := 0
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if p.process(ctx, msg) {
			published++
		}
	}
	return published, nil
}

func (p *Publisher) process(ctx context.Context, msg domain.OutboxMessage) bool {
	log := p.Logger.With("outbox_id", msg.ID, "type", msg.MessageType)

	if !domain.IsRegisteredEvent(msg.MessageType) {
		msg.MarkFailed(fmt.Sprintf("no decoder registered for message type %q", msg.MessageType), p.Config.MaxRetries)
		log.Error("outbox message has unknown type, parking it")
		p.Metrics.OutboxFailed()
		p.save(ctx, log, msg)
		return false
	}

	ev, err := domain.DecodeEvent(msg.MessageType, msg.Payload)
	if err == nil {
		err = p.Bus.Publish(ctx, msg, ev)
	}
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; leave the row untouched for the next run.
			return false
		}
		msg.ScheduleRetry(err.Error(), p.now())
		if msg.RetryCount >= p.Config.MaxRetries {
			log.Error("outbox message exhausted retries", "retries", msg.RetryCount, "error", err)
			p.Metrics.OutboxFailed()
		} else {
			log.Warn("outbox publish failed, retry scheduled", "retries", msg.RetryCount, "next_retry_at", msg.NextRetryAt, "error", err)
			p.Metrics.OutboxRetried()
		}
		p.save(ctx, log, msg)
		return false
	}

	msg.MarkProcessed(p.now())
	p.save(ctx, log, msg)
	p.Metrics.OutboxPublished()
	log.Debug("outbox message published")
	return true
}

func (p *Publisher) save(ctx context.Context, log *slog.Logger, msg domain.OutboxMessage) {
	if err := p.Store.Outbox().SaveDeliveryState(ctx, msg); err != nil {
		log.Error("failed to save outbox delivery state", "error", err)
	}
}
