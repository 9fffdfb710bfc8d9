package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
)

// DLQProducer moves consumed messages onward: back to the tail of their queue for
// another attempt, or to the dead-letter queue the topology assigns.
type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	topology *topology.Topology
	now      func() time.Time
}

func NewDLQProducer(logger *slog.Logger, writer KafkaWriter, topo *topology.Topology) *DLQProducer {
	return &DLQProducer{
		logger:   logger,
		writer:   writer,
		topology: topo,
		now:      time.Now,
	}
}

// DeadLetter publishes msg unchanged to the dead-letter queue of queue, recording why
// and from where in headers. Queues without a dead-letter target drop the message.
func (p *DLQProducer) DeadLetter(ctx context.Context, queue string, msg kafka.Message, reason string) (bool, error) {
	dlq, ok := p.topology.DeadLetterFor(queue)
	if !ok {
		p.logger.Warn("Queue has no dead-letter target, dropping message",
			"queue", queue,
			"event_id", headers.Get(msg.Headers, headers.EventID),
			"reason", reason)
		return false, nil
	}

	hs := headers.Set(msg.Headers, headers.DeathReason, reason)
	hs = headers.Set(hs, headers.OriginalQueue, queue)
	hs = headers.Set(hs, headers.DeadLetteredAt, p.now().UTC().Format(time.RFC3339Nano))
	hs = headers.WithRetries(hs, headers.Retries(msg.Headers))

	out := kafka.Message{
		Topic:   dlq.Name,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: hs,
	}

	if err := p.writer.WriteMessages(ctx, out); err != nil {
		p.logger.Error("Failed to publish message to DLQ",
			"queue", queue,
			"dlq", dlq.Name,
			"error", err,
		)
		return false, fmt.Errorf("failed to publish message to DLQ %s: %w", dlq.Name, err)
	}

	p.logger.Info("Dead-lettered message",
		"queue", queue,
		"dlq", dlq.Name,
		"reason", reason,
		"retry_count", headers.Retries(hs),
	)
	return true, nil
}

func (p *DLQProducer) Close() error {
	p.logger.Info("Closing DLQ producer")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq writer: %w", err)
	}
	return nil
}
