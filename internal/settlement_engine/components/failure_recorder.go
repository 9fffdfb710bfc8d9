package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
	"github.com/todaysales-settlement/internal/platform/persistence"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

// NotePrefix starts the note of every settlement marked failed by the recorder.
const NotePrefix = "Error: "

type FailureRecorderImpl struct {
	tx          persistence.TxRunner
	settlements settlement.Repository
	publisher   service.EventPublisher
	notifier    service.Notifier
	clock       service.Clock
	timeout     time.Duration
	logger      *slog.Logger
}

func NewFailureRecorder(
	tx persistence.TxRunner,
	settlements settlement.Repository,
	publisher service.EventPublisher,
	notifier service.Notifier,
	clock service.Clock,
	timeout time.Duration,
	logger *slog.Logger,
) *FailureRecorderImpl {
	return &FailureRecorderImpl{
		tx:          tx,
		settlements: settlements,
		publisher:   publisher,
		notifier:    notifier,
		clock:       clock,
		timeout:     timeout,
		logger:      logger,
	}
}

// RecordFailure marks the settlement of date failed in a transaction of its own, or
// creates a failed shell when the failed run left no row behind. The caller's
// cancellation does not reach it; only the recorder's own timeout does.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, date time.Time, reason string) error {
	day := settlement.Day(date)
	correlationID := shared.CorrelationIDFromContext(ctx)
	logger := r.logger.With("settlement_date", settlement.FormatDate(day))
	if correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	logger.Info("Recording failed settlement", "reason", reason)

	now := r.clock.Now()
	note := NotePrefix + reason

	var recorded *settlement.Settlement
	err := r.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		settlements := r.settlements.WithTx(tx)

		existing, err := settlements.GetByDate(ctx, day)
		if err != nil && !errors.Is(err, settlement.ErrSettlementNotFound{}) {
			return err
		}

		if existing != nil {
			locked, err := settlements.LockByID(ctx, existing.ID)
			if err != nil {
				return err
			}
			// a failed row only gets its note refreshed; other final states stay as they are
			if locked.Status.Terminal() && locked.Status != settlement.StatusFailed {
				logger.Warn("Settlement already finalized, leaving it unchanged", "settlement_id", locked.ID, "status", locked.Status)
				return nil
			}
			if err := locked.Fail(note, now); err != nil {
				return err
			}
			if err := settlements.Update(ctx, locked); err != nil {
				return err
			}
			logger.Info("Marked existing settlement as FAILED", "settlement_id", locked.ID)
			recorded = locked
			return nil
		}

		shell := settlement.NewFailed(day, note, now)
		if err := settlements.Create(ctx, shell); err != nil {
			return err
		}
		logger.Info("Created FAILED settlement record", "settlement_id", shell.ID)
		recorded = shell
		return nil
	})
	if err != nil {
		logger.Error("Failed to record settlement failure", "error", err)
		r.notifier.NotifyCritical(ctx, day, reason, err.Error())
		return err
	}

	if recorded != nil {
		event := settlement.NewFailedEvent(recorded.ID, day, recorded.Note, correlationID, now)
		if err := r.publisher.Publish(ctx, topology.SalesExchange, topology.KeySettlement, event); err != nil {
			logger.Error("Failed to publish settlement failed event", "settlement_id", recorded.ID, "error", err)
		}
	}

	r.notifier.NotifyUrgent(ctx, day, reason)
	return nil
}
