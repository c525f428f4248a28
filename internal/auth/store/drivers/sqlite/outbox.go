package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite/gen"
)

type outboxRepo struct {
	q *gen.Queries
}

func (r *outboxRepo) Enqueue(ctx context.Context, m domain.OutboxMessage) error {
	err := r.q.EnqueueOutboxMessage(ctx, gen.EnqueueOutboxMessageParams{
		ID:          m.ID,
		MessageType: m.MessageType,
		Payload:     string(m.Payload),
		CreatedAt:   m.CreatedAt.UTC(),
	})
	return mapConflict(err)
}

func (r *outboxRepo) ListEligible(ctx context.Context, now time.Time, maxRetries, limit int) ([]domain.OutboxMessage, error) {
	rows, err := r.q.ListEligibleOutboxMessages(ctx, gen.ListEligibleOutboxMessagesParams{
		RetryCount:  int64(maxRetries),
		NextRetryAt: now.UTC(),
		Limit:       int64(limit),
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.OutboxMessage, len(rows))
	for i, row := range rows {
		out[i] = mapOutboxMessage(row)
	}
	return out, nil
}

func (r *outboxRepo) GetMessage(ctx context.Context, id string) (domain.OutboxMessage, error) {
	row, err := r.q.GetOutboxMessage(ctx, id)
	if err != nil {
		return domain.OutboxMessage{}, mapNotFound(err)
	}
	return mapOutboxMessage(row), nil
}

func (r *outboxRepo) SaveDeliveryState(ctx context.Context, m domain.OutboxMessage) error {
	n, err := r.q.UpdateOutboxDeliveryState(ctx, gen.UpdateOutboxDeliveryStateParams{
		ProcessedAt:  mapOptionalTime(m.ProcessedAt),
		ErrorMessage: m.ErrorMessage,
		RetryCount:   int64(m.RetryCount),
		NextRetryAt:  mapOptionalTime(m.NextRetryAt),
		ID:           m.ID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return r.q.DeleteProcessedOutboxMessages(ctx, nullTime(before))
}
