package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
	"github.com/todaysales-settlement/internal/platform/metrics"
)

// ErrUnroutable means no queue is bound to the exchange for the routing key.
var ErrUnroutable = errors.New("message is unroutable")

// PublishError reports an event the broker did not accept within the retry budget.
type PublishError struct {
	Exchange   string
	RoutingKey string
	EventID    string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish event %s to %s/%s: %v", e.EventID, e.Exchange, e.RoutingKey, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// EventPublisher writes events to the topics their routing key resolves to and
// retries transient broker failures with exponential backoff.
type EventPublisher struct {
	logger     *slog.Logger
	writer     KafkaWriter
	topology   *topology.Topology
	metrics    *metrics.Metrics
	newBackOff func() backoff.BackOff
}

func NewEventPublisher(logger *slog.Logger, writer KafkaWriter, topo *topology.Topology, cfg *config.PublisherConfig, m *metrics.Metrics) *EventPublisher {
	return &EventPublisher{
		logger:   logger,
		writer:   writer,
		topology: topo,
		metrics:  m,
		newBackOff: func() backoff.BackOff {
			return NewBackOff(cfg)
		},
	}
}

// NewBackOff builds the publish retry schedule: 500ms doubling up to 10s by default,
// abandoned once MaxElapsedTime is spent.
func NewBackOff(cfg *config.PublisherConfig) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.Multiplier = cfg.Multiplier
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = cfg.MaxElapsedTime
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Publish marshals event as the message body, carries its envelope in headers and
// writes one message per bound queue.
func (p *EventPublisher) Publish(ctx context.Context, exchange, routingKey string, event shared.Event) error {
	env := event.Meta()
	logger := p.logger.With(
		"exchange", exchange,
		"routing_key", routingKey,
		"event_id", env.EventID,
		"event_type", env.EventType,
		"correlation_id", env.CorrelationID,
	)

	queues := p.topology.Route(exchange, routingKey)
	if len(queues) == 0 {
		logger.Error("Event returned by broker: no queue bound for routing key")
		p.metrics.ObservePublish(exchange, routingKey, metrics.OutcomeUnroutable)
		return &PublishError{Exchange: exchange, RoutingKey: routingKey, EventID: env.EventID, Err: ErrUnroutable}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return &PublishError{Exchange: exchange, RoutingKey: routingKey, EventID: env.EventID, Err: fmt.Errorf("failed to marshal event: %w", err)}
	}

	hs := append(headers.FromEnvelope(env),
		kafka.Header{Key: headers.Exchange, Value: []byte(exchange)},
		kafka.Header{Key: headers.RoutingKey, Value: []byte(routingKey)},
	)
	msgs := make([]kafka.Message, 0, len(queues))
	for _, q := range queues {
		msgs = append(msgs, kafka.Message{
			Topic:   q.Name,
			Key:     []byte(env.EventID),
			Value:   body,
			Headers: hs,
		})
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			logger.Warn("Publish attempt failed", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(p.newBackOff(), ctx)); err != nil {
		logger.Error("Failed to publish event, giving up", "attempts", attempt, "error", err)
		p.metrics.ObservePublish(exchange, routingKey, metrics.OutcomeFailed)
		return &PublishError{Exchange: exchange, RoutingKey: routingKey, EventID: env.EventID, Err: err}
	}

	logger.Debug("Published event", "queues", len(queues), "attempts", attempt)
	p.metrics.ObservePublish(exchange, routingKey, metrics.OutcomeConfirmed)
	return nil
}

func (p *EventPublisher) Close() error {
	p.logger.Info("Closing event publisher")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close event publisher writer: %w", err)
	}
	return nil
}
