package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/domain/shared"
)

// Publisher delivers an event to every queue bound to exchange under routingKey
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, event shared.Event) error
}

// Redeliverer moves a consumed message back to its queue or on to its dead-letter queue
type Redeliverer interface {
	Requeue(ctx context.Context, queue string, msg kafka.Message) error
	// DeadLetter reports false when the queue has no dead-letter target and the
	// message was dropped.
	DeadLetter(ctx context.Context, queue string, msg kafka.Message, reason string) (bool, error)
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
