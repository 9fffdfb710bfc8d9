package service

import (
	"context"
	"time"

	"github.com/todaysales-settlement/internal/domain/deadletter"
	"github.com/todaysales-settlement/internal/domain/shared"
)

// SettlementRequester queues settlement runs for the engine instead of running them
// inside the request.
type SettlementRequester interface {
	// RequestSettlement publishes a settlement request for date and returns the event
	// that was sent.
	RequestSettlement(ctx context.Context, date time.Time, requestedBy string) (*shared.SettlementRequestEvent, error)
}

// DeadLetterService inspects and clears the dead-letter archive
type DeadLetterService interface {
	// Counts returns the archived message count of every dead-letter queue
	Counts(ctx context.Context) (map[string]int64, error)

	// Latest returns the newest archived messages of queue, at most limit of them.
	// Returns deadletter.ErrUnknownQueue for a queue that is not a dead-letter queue
	Latest(ctx context.Context, queue string, limit int) ([]*deadletter.Message, error)

	// Purge deletes every archived message of queue and returns how many were removed
	Purge(ctx context.Context, queue string) (int64, error)
}
