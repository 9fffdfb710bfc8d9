// Package scheduler triggers the daily settlement of the previous business day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

const jobName = "daily-settlement"

// Settler is the part of the settlement service the scheduler drives.
type Settler interface {
	CheckSettlementExists(ctx context.Context, date time.Time) (bool, error)
	RunSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error)
}

// DailyScheduler settles yesterday once a day at a fixed wall-clock time. It holds no
// state between runs; the target date is derived from the clock on every run.
type DailyScheduler struct {
	settler  Settler
	failures service.FailureRecorder
	clock    service.Clock
	location *time.Location
	hour     uint
	minute   uint
	logger   *slog.Logger
}

func NewDailyScheduler(settler Settler, failures service.FailureRecorder, clock service.Clock, cfg *config.SchedulerConfig, logger *slog.Logger) (*DailyScheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}
	return &DailyScheduler{
		settler:  settler,
		failures: failures,
		clock:    clock,
		location: loc,
		hour:     uint(cfg.RunHour),
		minute:   uint(cfg.RunMinute),
		logger:   logger,
	}, nil
}

// Run registers the daily job and blocks until ctx is done.
func (s *DailyScheduler) Run(ctx context.Context) error {
	sched, err := s.newScheduler(ctx)
	if err != nil {
		return err
	}

	sched.Start()
	s.logger.Info("Daily settlement scheduler started",
		"run_at", fmt.Sprintf("%02d:%02d", s.hour, s.minute),
		"timezone", s.location.String(),
	)

	<-ctx.Done()

	s.logger.Info("Stopping daily settlement scheduler")
	return sched.Shutdown()
}

func (s *DailyScheduler) newScheduler(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(s.hour, s.minute, 0))),
		gocron.NewTask(func() {
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Daily settlement run failed", "error", err)
			}
		}),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register daily settlement job: %w", err)
	}
	return sched, nil
}

// TargetDate is the business day before now in the scheduler's zone.
func (s *DailyScheduler) TargetDate() time.Time {
	return settlement.Day(s.clock.Now().In(s.location).AddDate(0, 0, -1))
}

// RunOnce settles the previous day unless it is already settled. Failures are handed
// to the failure recorder; a panic is recovered so the timer keeps firing.
func (s *DailyScheduler) RunOnce(ctx context.Context) (err error) {
	date := s.TargetDate()
	logger := s.logger.With("settlement_date", settlement.FormatDate(date))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("daily settlement panicked: %v", r)
			logger.Error("Recovered from panic in daily settlement", "panic", r)
			s.recordFailure(ctx, logger, date, err)
		}
	}()

	logger.Info("Daily settlement triggered")

	exists, err := s.settler.CheckSettlementExists(ctx, date)
	if err != nil {
		logger.Error("Failed to check for existing settlement", "error", err)
		s.recordFailure(ctx, logger, date, err)
		return err
	}
	if exists {
		logger.Warn("Settlement already exists, skipping")
		return nil
	}

	result, err := s.settler.RunSettlement(ctx, date)
	if err != nil {
		var persistenceErr *service.PersistenceError
		switch {
		case errors.Is(err, settlement.ErrDuplicateSettlement{}):
			logger.Warn("Settlement created concurrently, skipping")
			return nil
		case errors.As(err, &persistenceErr):
			// already recorded by the processor
			return err
		default:
			s.recordFailure(ctx, logger, date, err)
			return err
		}
	}

	logger.Info("Daily settlement finished", "settlement_id", result.ID, "net_amount", result.NetAmount.String())
	return nil
}

func (s *DailyScheduler) recordFailure(ctx context.Context, logger *slog.Logger, date time.Time, cause error) {
	if err := s.failures.RecordFailure(ctx, date, cause.Error()); err != nil {
		logger.Error("Failed to record daily settlement failure", "error", err)
	}
}
