package consumer

import (
	"errors"
	"fmt"

	"github.com/todaysales-settlement/internal/platform/messaging/consumers"
)

// DefaultMaxRetries is how many times a failed message is requeued before it is
// dead-lettered.
const DefaultMaxRetries = 3

// ErrPoison marks a message that can never be processed, such as an undecodable
// payload. Poison messages skip the retry budget.
var ErrPoison = errors.New("poison message")

// Poison wraps err so that it matches ErrPoison.
func Poison(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPoison, fmt.Sprintf(format, args...))
}

// RetryPolicy maps a handler outcome to a disposition.
type RetryPolicy struct {
	MaxRetries int
}

func NewRetryPolicy(maxRetries int) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return RetryPolicy{MaxRetries: maxRetries}
}

// Decide returns the disposition for a message that failed with err after retries
// redeliveries. Messages on queues without a dead-letter target are never requeued.
func (p RetryPolicy) Decide(err error, retries int, hasDeadLetter bool) consumers.Result {
	if err == nil {
		return consumers.Result{Disposition: consumers.Ack}
	}
	if !hasDeadLetter {
		return consumers.Result{Disposition: consumers.Ack}
	}
	if errors.Is(err, ErrPoison) {
		return consumers.Result{Disposition: consumers.DeadLetter, Reason: err.Error()}
	}
	if retries < p.MaxRetries {
		return consumers.Result{Disposition: consumers.Requeue}
	}
	return consumers.Result{
		Disposition: consumers.DeadLetter,
		Reason:      fmt.Sprintf("retries exhausted after %d attempts: %v", retries+1, err),
	}
}
