package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
	"github.com/todaysales-settlement/internal/platform/messaging/producers"
	"github.com/todaysales-settlement/internal/platform/metrics"
)

// Disposition is how a handled message leaves its queue. Every message ends in
// exactly one of them.
type Disposition int

const (
	Ack Disposition = iota
	Requeue
	DeadLetter
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case DeadLetter:
		return "dead_letter"
	default:
		return fmt.Sprintf("disposition(%d)", int(d))
	}
}

// Result is what a handler decided for a message. Reason is kept with dead-lettered messages.
type Result struct {
	Disposition Disposition
	Reason      string
}

type Handler func(ctx context.Context, msg kafka.Message) Result

// MessageReader wraps kafka.Reader methods for testing
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer drains one queue with a fixed number of group members, each running
// as a task of a shared worker pool, and turns handler results into broker actions.
type KafkaConsumer struct {
	queue       string
	readers     []MessageReader
	redeliverer producers.Redeliverer
	pool        *ants.Pool
	logger      *slog.Logger
	metrics     *metrics.Metrics
	retryDelay  time.Duration
}

// NewKafkaConsumer creates workers readers in the consumer group for queue. prefetch
// bounds the messages each reader buffers ahead of the handler.
func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig, queue string, workers, prefetch int, redeliverer producers.Redeliverer, pool *ants.Pool, m *metrics.Metrics) *KafkaConsumer {
	readers := make([]MessageReader, 0, workers)
	for i := 0; i < workers; i++ {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:       strings.Split(cfg.Brokers, ","),
			Topic:         queue,
			GroupID:       GroupID(cfg.ConsumerGroup, queue),
			MinBytes:      cfg.MinBytes,
			MaxBytes:      cfg.MaxBytes,
			MaxWait:       cfg.MaxWait,
			QueueCapacity: prefetch,
			StartOffset:   kafka.FirstOffset,
		}))
	}
	return newKafkaConsumer(logger, queue, readers, redeliverer, pool, m)
}

// GroupID is the consumer group draining queue. Each queue gets its own group so a
// rebalance on one topic never pauses the others.
func GroupID(group, queue string) string {
	return group + "." + queue
}

func newKafkaConsumer(logger *slog.Logger, queue string, readers []MessageReader, redeliverer producers.Redeliverer, pool *ants.Pool, m *metrics.Metrics) *KafkaConsumer {
	return &KafkaConsumer{
		queue:       queue,
		readers:     readers,
		redeliverer: redeliverer,
		pool:        pool,
		logger:      logger.With("queue", queue),
		metrics:     m,
		retryDelay:  time.Second,
	}
}

func (c *KafkaConsumer) Queue() string {
	return c.queue
}

func (c *KafkaConsumer) Workers() int {
	return len(c.readers)
}

// Run consumes until ctx is cancelled. It blocks until every worker has stopped.
func (c *KafkaConsumer) Run(ctx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i, reader := range c.readers {
		reader := reader
		worker := i
		wg.Add(1)
		if err := c.pool.Submit(func() {
			defer wg.Done()
			c.consume(ctx, worker, reader, handler)
		}); err != nil {
			wg.Done()
			c.logger.Error("Failed to start consumer worker", "worker", worker, "error", err)
			cancel()
			wg.Wait()
			return fmt.Errorf("failed to start consumer worker for %s: %w", c.queue, err)
		}
	}

	c.logger.Info("Consuming queue", "workers", len(c.readers))
	wg.Wait()
	c.logger.Info("Stopped consuming queue")
	return nil
}

func (c *KafkaConsumer) consume(ctx context.Context, worker int, reader MessageReader, handler Handler) {
	logger := c.logger.With("worker", worker)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to fetch message from Kafka", "error", err)
			if !c.wait(ctx) {
				return
			}
			continue
		}

		logger.Debug("Received message from Kafka",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"retry_count", headers.Retries(msg.Headers),
		)

		start := time.Now()
		result := handler(ctx, msg)
		if ctx.Err() != nil {
			// shutting down; the uncommitted message is redelivered on restart
			return
		}
		if !c.settle(ctx, logger, reader, msg, result) {
			return
		}
		c.metrics.ObserveMessage(c.queue, result.Disposition.String(), time.Since(start))
	}
}

// settle performs the broker side of result. Redelivery is retried until it succeeds
// because committing a later offset would silently acknowledge this message.
func (c *KafkaConsumer) settle(ctx context.Context, logger *slog.Logger, reader MessageReader, msg kafka.Message, result Result) bool {
	switch result.Disposition {
	case Requeue:
		for {
			err := c.redeliverer.Requeue(ctx, c.queue, msg)
			if err == nil {
				break
			}
			logger.Error("Failed to requeue message, retrying", "offset", msg.Offset, "error", err)
			if !c.wait(ctx) {
				return false
			}
		}
	case DeadLetter:
		for {
			routed, err := c.redeliverer.DeadLetter(ctx, c.queue, msg, result.Reason)
			if err == nil {
				if !routed {
					logger.Warn("Dropped rejected message", "offset", msg.Offset, "reason", result.Reason)
				}
				break
			}
			logger.Error("Failed to dead-letter message, retrying", "offset", msg.Offset, "error", err)
			if !c.wait(ctx) {
				return false
			}
		}
	case Ack:
	default:
		logger.Error("Unknown disposition, dead-lettering", "disposition", result.Disposition.String())
		return c.settle(ctx, logger, reader, msg, Result{Disposition: DeadLetter, Reason: "unknown disposition"})
	}

	if err := reader.CommitMessages(ctx, msg); err != nil {
		logger.Error("Failed to commit message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"disposition", result.Disposition.String(),
			"error", err,
		)
		return ctx.Err() == nil
	}
	logger.Debug("Message committed", "offset", msg.Offset, "disposition", result.Disposition.String())
	return true
}

func (c *KafkaConsumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retryDelay):
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	var errs []error
	for _, r := range c.readers {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
