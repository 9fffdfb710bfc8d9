package components

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
)

type MockSettlementRepo struct {
	mock.Mock
}

func (m *MockSettlementRepo) Create(ctx context.Context, s *settlement.Settlement) error {
	args := m.Called(ctx, s)
	if args.Error(0) == nil {
		s.ID = 99
	}
	return args.Error(0)
}

func (m *MockSettlementRepo) ExistsByDate(ctx context.Context, date time.Time) (bool, error) {
	args := m.Called(ctx, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepo) GetByID(ctx context.Context, id int64) (*settlement.Settlement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementRepo) GetByDate(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementRepo) LockByID(ctx context.Context, id int64) (*settlement.Settlement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementRepo) Update(ctx context.Context, s *settlement.Settlement) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSettlementRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSettlementRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]*settlement.Settlement, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementRepo) WithTx(pgx.Tx) settlement.Repository {
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, exchange, routingKey string, event shared.Event) error {
	args := m.Called(ctx, exchange, routingKey, event)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyUrgent(ctx context.Context, date time.Time, message string) {
	m.Called(ctx, date, message)
}

func (m *MockNotifier) NotifyCritical(ctx context.Context, date time.Time, cause, saveErr string) {
	m.Called(ctx, date, cause, saveErr)
}

// passthroughTx runs fn without a real transaction.
type passthroughTx struct {
	calls       int
	ctxErr      error
	hasDeadline bool
}

func (p *passthroughTx) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	p.calls++
	p.ctxErr = ctx.Err()
	_, p.hasDeadline = ctx.Deadline()
	return fn(nil)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
