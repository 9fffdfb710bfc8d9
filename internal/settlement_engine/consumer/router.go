package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/consumers"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
)

// MessageHandler processes one message of a queue. A nil error acknowledges it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg kafka.Message) error
}

// HandlerFunc adapts a function to MessageHandler.
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

func (f HandlerFunc) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return f(ctx, msg)
}

// Router wraps queue handlers with the retry policy. Every message leaves the router
// with exactly one disposition, panics included.
type Router struct {
	topology *topology.Topology
	policy   RetryPolicy
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger, topo *topology.Topology, policy RetryPolicy) *Router {
	return &Router{
		topology: topo,
		policy:   policy,
		logger:   logger,
	}
}

// Route returns the transport handler for queue.
func (r *Router) Route(queue string, h MessageHandler) consumers.Handler {
	q, _ := r.topology.Queue(queue)
	hasDeadLetter := q.HasDeadLetter()

	return func(ctx context.Context, msg kafka.Message) consumers.Result {
		env := headers.ToEnvelope(msg.Headers)
		retries := headers.Retries(msg.Headers)
		logger := r.logger.With(
			"queue", queue,
			"event_id", env.EventID,
			"event_type", env.EventType,
			"correlation_id", env.CorrelationID,
			"retry_count", retries,
		)
		ctx = shared.WithCorrelationID(ctx, env.CorrelationID)

		err := r.invoke(ctx, h, msg)
		result := r.policy.Decide(err, retries, hasDeadLetter)

		switch {
		case err == nil:
			logger.Debug("Message processed")
		case !hasDeadLetter:
			logger.Error("Failed to process dead-lettered message, acknowledging", "error", err)
		case result.Disposition == consumers.Requeue:
			logger.Warn("Failed to process message, requeueing", "error", err, "max_retries", r.policy.MaxRetries)
		default:
			logger.Error("Failed to process message, dead-lettering", "error", err, "reason", result.Reason)
		}
		return result
	}
}

func (r *Router) invoke(ctx context.Context, h MessageHandler, msg kafka.Message) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return h.HandleMessage(ctx, msg)
}
