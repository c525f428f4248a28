package domain

import (
	"encoding/json"
	"time"
)

// OutboxRetryBase is the first retry delay; each retry doubles it.
const OutboxRetryBase = 5 * time.Second

// OutboxMessage is a pending event awaiting delivery to the bus.
type OutboxMessage struct {
	ID           string
	MessageType  string
	Payload      []byte // JSON
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	ErrorMessage string
	RetryCount   int
	NextRetryAt  *time.Time
}

// NewOutboxMessage serialises ev for the outbox row id.
func NewOutboxMessage(id string, ev Event, now time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		ID:          id,
		MessageType: ev.EventType(),
		Payload:     payload,
		CreatedAt:   now,
	}, nil
}

// IsEligible reports whether the publisher may pick the message up now.
func (m *OutboxMessage) IsEligible(now time.Time, maxRetries int) bool {
	if m.ProcessedAt != nil || m.RetryCount >= maxRetries {
		return false
	}
	return m.NextRetryAt == nil || !m.NextRetryAt.After(now)
}

func (m *OutboxMessage) MarkProcessed(now time.Time) {
	m.ProcessedAt = &now
	m.ErrorMessage = ""
}

// ScheduleRetry records a failed attempt. The delay is computed from the
// retry count before the increment: 5s, 10s, 20s, ...
func (m *OutboxMessage) ScheduleRetry(reason string, now time.Time) {
	next := now.Add(RetryDelay(m.RetryCount))
	m.RetryCount++
	m.NextRetryAt = &next
	m.ErrorMessage = reason
}

// MarkFailed parks the message permanently. It is kept for inspection but
// never selected again.
func (m *OutboxMessage) MarkFailed(reason string, maxRetries int) {
	m.RetryCount = max(m.RetryCount, maxRetries)
	m.ErrorMessage = reason
}

// RetryDelay is 2^retryCount * OutboxRetryBase.
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 20 {
		retryCount = 20
	}
	return (1 << retryCount) * OutboxRetryBase
}
