package producers

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
)

// Requeue appends msg to the tail of queue with its retry count incremented.
func (p *DLQProducer) Requeue(ctx context.Context, queue string, msg kafka.Message) error {
	retries := headers.Retries(msg.Headers) + 1

	out := kafka.Message{
		Topic:   queue,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers.WithRetries(msg.Headers, retries),
	}
	if err := p.writer.WriteMessages(ctx, out); err != nil {
		p.logger.Error("Failed to requeue message", "queue", queue, "retry_count", retries, "error", err)
		return fmt.Errorf("failed to requeue message to %s: %w", queue, err)
	}

	p.logger.Info("Requeued message", "queue", queue, "retry_count", retries)
	return nil
}
