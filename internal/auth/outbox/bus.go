package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
)

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "identity.events"

// EventBus delivers one decoded event. A nil error means the bus accepted
// the event; the publisher only then marks the row processed.
type EventBus interface {
	Publish(ctx context.Context, msg domain.OutboxMessage, ev domain.Event) error
}

// Envelope is the wire form shared by every bus.
type Envelope struct {
	EventID    string          `json:"event_id"`
	OutboxID   string          `json:"outbox_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func newEnvelope(msg domain.OutboxMessage, ev domain.Event) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:    uuid.NewString(),
		OutboxID:   msg.ID,
		Type:       ev.EventType(),
		Payload:    payload,
		EnqueuedAt: msg.CreatedAt,
	}, nil
}

// RedisStreamBus appends events to a Redis stream with XADD. Consumers
// dedupe on outbox_id since delivery is at least once.
type RedisStreamBus struct {
	Client redis.UniversalClient
	Stream string
	MaxLen int64 // approximate trim; 0 keeps everything
}

func NewRedisStreamBus(client redis.UniversalClient, stream string) *RedisStreamBus {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamBus{Client: client, Stream: stream}
}

func (b *RedisStreamBus) Publish(ctx context.Context, msg domain.OutboxMessage, ev domain.Event) error {
	env, err := newEnvelope(msg, ev)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: b.Stream,
		Values: map[string]any{
			"event_id":    env.EventID,
			"outbox_id":   env.OutboxID,
			"type":        env.Type,
			"payload":     string(env.Payload),
			"enqueued_at": env.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if b.MaxLen > 0 {
		args.MaxLen = b.MaxLen
		args.Approx = true
	}
	return b.Client.XAdd(ctx, args).Err()
}

// LogBus writes events to the log. It is the default when no broker is
// configured.
type LogBus struct {
	Logger *slog.Logger
}

func (b LogBus) Publish(ctx context.Context, msg domain.OutboxMessage, ev domain.Event) error {
	env, err := newEnvelope(msg, ev)
	if err != nil {
		return err
	}
	b.Logger.InfoContext(ctx, "event published",
		slog.String("event_id", env.EventID),
		slog.String("outbox_id", env.OutboxID),
		slog.String("type", env.Type),
		slog.String("payload", string(env.Payload)),
	)
	return nil
}
