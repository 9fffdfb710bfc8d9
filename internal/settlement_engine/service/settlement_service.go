package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/domain/fee"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
	"github.com/todaysales-settlement/internal/platform/metrics"
	"github.com/todaysales-settlement/internal/platform/persistence"
)

const defaultPublishTimeout = 5 * time.Second

type SettlementServiceImpl struct {
	tx              persistence.TxRunner
	settlements     settlement.Repository
	sales           sale.Repository
	publisher       EventPublisher
	failureRecorder FailureRecorder
	clock           Clock
	location        *time.Location
	timeout         time.Duration
	publishTimeout  time.Duration
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

func NewSettlementService(
	tx persistence.TxRunner,
	settlements settlement.Repository,
	sales sale.Repository,
	publisher EventPublisher,
	failureRecorder FailureRecorder,
	clock Clock,
	cfg *config.SettlementConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SettlementServiceImpl {
	svc := &SettlementServiceImpl{
		tx:              tx,
		settlements:     settlements,
		sales:           sales,
		publisher:       publisher,
		failureRecorder: failureRecorder,
		clock:           clock,
		location:        cfg.Location(),
		timeout:         cfg.Timeout,
		publishTimeout:  cfg.PublishTimeout,
		metrics:         m,
		logger:          logger,
	}
	if svc.publishTimeout <= 0 {
		svc.publishTimeout = defaultPublishTimeout
	}
	return svc
}

// RunSettlement settles every completed, unclaimed sale of date in one unit of work.
//
// A second run for the same date fails with settlement.ErrDuplicateSettlement and
// changes nothing. Any other failure rolls the unit of work back, is recorded by the
// FailureRecorder and is returned as a *PersistenceError. The completion event is
// published after commit; a publish failure does not fail the run.
func (s *SettlementServiceImpl) RunSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	day := settlement.Day(date)
	correlationID := shared.CorrelationIDFromContext(ctx)
	logger := s.logger.With("settlement_date", settlement.FormatDate(day))
	if correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}

	started := s.clock.Now()
	logger.Info("Starting settlement run")

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result *settlement.Settlement
	err := s.tx.ExecuteTx(runCtx, func(tx pgx.Tx) error {
		var err error
		result, err = s.settle(runCtx, tx, day)
		return err
	})

	if err != nil {
		if errors.Is(err, settlement.ErrDuplicateSettlement{}) {
			logger.Warn("Settlement already exists for date")
			s.metrics.ObserveSettlement(metrics.OutcomeDuplicate, s.clock.Now().Sub(started), 0)
			return nil, settlement.ErrDuplicateSettlement{Date: day}
		}

		logger.Error("Settlement run failed, rolled back", "error", err)
		s.metrics.ObserveSettlement(metrics.OutcomeFailed, s.clock.Now().Sub(started), 0)
		if recordErr := s.failureRecorder.RecordFailure(ctx, day, err.Error()); recordErr != nil {
			logger.Error("Failed to record settlement failure", "error", recordErr)
		}
		return nil, &PersistenceError{Date: day, Err: err}
	}

	logger.Info("Settlement completed",
		"settlement_id", result.ID,
		"transaction_count", result.TransactionCount,
		"total_amount", result.TotalAmount.String(),
		"total_fee", result.TotalFee.String(),
		"net_amount", result.NetAmount.String(),
	)
	s.metrics.ObserveSettlement(metrics.OutcomeCompleted, s.clock.Now().Sub(started), result.TransactionCount)

	// The run is committed; a broker outage must not hold the caller for the
	// publisher's whole retry budget.
	publishCtx, cancelPublish := context.WithTimeout(ctx, s.publishTimeout)
	defer cancelPublish()
	event := settlement.NewCompletedEvent(result, correlationID, s.clock.Now())
	if err := s.publisher.Publish(publishCtx, topology.SalesExchange, topology.KeySettlement, event); err != nil {
		logger.Error("Failed to publish settlement completed event", "settlement_id", result.ID, "error", err)
	}

	return result, nil
}

// settle is the body of the unit of work. The existence check and the insert of the
// processing row share the transaction; the unique date constraint catches a
// concurrent run that passed the check at the same time.
func (s *SettlementServiceImpl) settle(ctx context.Context, tx pgx.Tx, day time.Time) (*settlement.Settlement, error) {
	settlements := s.settlements.WithTx(tx)
	sales := s.sales.WithTx(tx)
	now := s.clock.Now()

	exists, err := settlements.ExistsByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, settlement.ErrDuplicateSettlement{Date: day}
	}

	st := settlement.New(day, now)
	if err := st.Start(); err != nil {
		return nil, err
	}
	if err := settlements.Create(ctx, st); err != nil {
		return nil, err
	}

	from, to := settlement.Window(day, s.location)
	pending, err := sales.LockUnsettled(ctx, from, to)
	if err != nil {
		return nil, err
	}

	for _, sl := range pending {
		if err := st.Include(sl, fee.ComputeFee(sl.Amount, sl.PaymentMethod), now); err != nil {
			return nil, fmt.Errorf("failed to include sale %d: %w", sl.ID, err)
		}
		if err := sales.Claim(ctx, sl); err != nil {
			return nil, err
		}
	}

	if err := st.Complete(now); err != nil {
		return nil, err
	}
	if err := settlements.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ReprocessSettlement deletes a failed settlement, releasing any sales it still
// claims, and runs the date again. Settlements in any other state are rejected with
// settlement.ErrInvalidState and left untouched.
func (s *SettlementServiceImpl) ReprocessSettlement(ctx context.Context, id int64) (*settlement.Settlement, error) {
	logger := s.logger.With("settlement_id", id)

	var date time.Time
	err := s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		settlements := s.settlements.WithTx(tx)

		st, err := settlements.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if !st.CanReprocess() {
			return settlement.ErrInvalidState{ID: st.ID, Status: st.Status}
		}

		released, err := s.sales.WithTx(tx).ReleaseBySettlement(ctx, id)
		if err != nil {
			return err
		}
		if err := settlements.Delete(ctx, id); err != nil {
			return err
		}

		date = st.SettlementDate
		logger.Info("Deleted failed settlement for reprocessing",
			"settlement_date", settlement.FormatDate(date),
			"released_sales", released,
		)
		return nil
	})
	if err != nil {
		logger.Warn("Settlement cannot be reprocessed", "error", err)
		return nil, err
	}

	return s.RunSettlement(ctx, date)
}

func (s *SettlementServiceImpl) GetUnsettledSales(ctx context.Context, date time.Time) ([]*sale.Sale, error) {
	from, to := settlement.Window(date, s.location)
	return s.sales.FindUnsettled(ctx, from, to)
}

func (s *SettlementServiceImpl) CheckSettlementExists(ctx context.Context, date time.Time) (bool, error) {
	return s.settlements.ExistsByDate(ctx, settlement.Day(date))
}

func (s *SettlementServiceImpl) GetSettlement(ctx context.Context, id int64) (*settlement.Settlement, error) {
	return s.settlements.GetByID(ctx, id)
}

func (s *SettlementServiceImpl) GetSettlementByDate(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	return s.settlements.GetByDate(ctx, date)
}

func (s *SettlementServiceImpl) ListSettlements(ctx context.Context, from, to time.Time) ([]*settlement.Settlement, error) {
	if settlement.Day(from).After(settlement.Day(to)) {
		return nil, ErrInvalidDateRange
	}
	return s.settlements.ListByDateRange(ctx, from, to)
}

// GetFailedSettlement returns the settlement of date only if it failed.
func (s *SettlementServiceImpl) GetFailedSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	st, err := s.settlements.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if st.Status != settlement.StatusFailed {
		return nil, settlement.ErrSettlementNotFound{Date: settlement.Day(date)}
	}
	return st, nil
}

// CanReprocess reports whether id names a failed settlement. A missing settlement
// cannot be reprocessed.
func (s *SettlementServiceImpl) CanReprocess(ctx context.Context, id int64) (bool, error) {
	st, err := s.settlements.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, settlement.ErrSettlementNotFound{}) {
			return false, nil
		}
		return false, err
	}
	return st.CanReprocess(), nil
}
