package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/domain/deadletter"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

// Archiver stores dead-lettered messages.
type Archiver interface {
	Archive(ctx context.Context, msg *deadletter.Message) error
}

// DeadLetterHandler archives messages arriving on a dead-letter queue.
type DeadLetterHandler struct {
	queue   string
	archive Archiver
	clock   service.Clock
	logger  *slog.Logger
}

func NewDeadLetterHandler(queue string, archive Archiver, clock service.Clock, logger *slog.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{
		queue:   queue,
		archive: archive,
		clock:   clock,
		logger:  logger,
	}
}

func (h *DeadLetterHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	record := ToArchived(h.queue, msg, h.clock.Now())
	if err := h.archive.Archive(ctx, record); err != nil {
		return fmt.Errorf("failed to archive message from %s: %w", record.OriginalQueue, err)
	}

	h.logger.Warn("Archived dead-lettered message",
		"original_queue", record.OriginalQueue,
		"event_id", record.EventID,
		"reason", record.Reason,
		"retry_count", record.RetryCount,
	)
	return nil
}

// ToArchived builds the archive record of msg read from the dead-letter queue queue.
func ToArchived(queue string, msg kafka.Message, now time.Time) *deadletter.Message {
	env := headers.ToEnvelope(msg.Headers)
	record := &deadletter.Message{
		Queue:          queue,
		OriginalQueue:  headers.Get(msg.Headers, headers.OriginalQueue),
		EventID:        env.EventID,
		EventType:      env.EventType,
		CorrelationID:  env.CorrelationID,
		Key:            string(msg.Key),
		Payload:        string(msg.Value),
		Reason:         headers.Get(msg.Headers, headers.DeathReason),
		RetryCount:     headers.Retries(msg.Headers),
		DeadLetteredAt: now.UTC(),
	}
	if ts, err := time.Parse(time.RFC3339Nano, headers.Get(msg.Headers, headers.DeadLetteredAt)); err == nil {
		record.DeadLetteredAt = ts.UTC()
	}
	return record
}
