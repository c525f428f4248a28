package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/idx"
)

// enqueue writes events to the outbox through tx so they commit or roll back
// together with the state change that raised them.
func enqueue(ctx context.Context, tx store.Tx, now time.Time, events ...domain.Event) error {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		msg, err := domain.NewOutboxMessage(idx.NewAt(now).String(), ev, now)
		if err != nil {
			return fmt.Errorf("encode %s: %w", ev.EventType(), err)
		}
		if err := tx.Outbox().Enqueue(ctx, msg); err != nil {
			return fmt.Errorf("enqueue %s: %w", ev.EventType(), err)
		}
	}
	return nil
}
