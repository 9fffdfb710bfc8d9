// Package deadletter describes messages that exhausted their retry budget and the
// archive that keeps them for inspection.
package deadletter

import (
	"context"
	"fmt"
	"time"
)

// Message is an archived dead-lettered message.
type Message struct {
	Queue          string    `bson:"queue" json:"queue"`
	OriginalQueue  string    `bson:"original_queue" json:"original_queue"`
	EventID        string    `bson:"event_id,omitempty" json:"event_id,omitempty"`
	EventType      string    `bson:"event_type,omitempty" json:"event_type,omitempty"`
	CorrelationID  string    `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	Key            string    `bson:"key,omitempty" json:"key,omitempty"`
	Payload        string    `bson:"payload" json:"payload"`
	Reason         string    `bson:"reason" json:"reason"`
	RetryCount     int       `bson:"retry_count" json:"retry_count"`
	DeadLetteredAt time.Time `bson:"dead_lettered_at" json:"dead_lettered_at"`
}

// Repository stores dead-lettered messages per DLQ. Implementations bound each queue
// to a maximum length and expire entries after a retention period.
type Repository interface {
	EnsureIndexes(ctx context.Context) error
	Archive(ctx context.Context, msg *Message) error
	// Counts returns the number of archived messages for every known DLQ.
	Counts(ctx context.Context) (map[string]int64, error)
	// Latest returns up to limit messages of a queue, newest first.
	Latest(ctx context.Context, queue string, limit int) ([]*Message, error)
	Purge(ctx context.Context, queue string) (int64, error)
}

// ErrUnknownQueue indicates a queue that is not a dead-letter queue
type ErrUnknownQueue struct {
	Queue string
}

func (e ErrUnknownQueue) Error() string {
	return fmt.Sprintf("unknown dead-letter queue: %q", e.Queue)
}

func (e ErrUnknownQueue) Is(target error) bool {
	_, ok := target.(ErrUnknownQueue)
	return ok
}
