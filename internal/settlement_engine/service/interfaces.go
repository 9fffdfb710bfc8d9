package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
)

// SettlementService runs and queries daily settlements. Every trigger (scheduler,
// manual API call, settlement request message, reprocess) ends up in RunSettlement.
type SettlementService interface {
	RunSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error)
	ReprocessSettlement(ctx context.Context, id int64) (*settlement.Settlement, error)
	GetUnsettledSales(ctx context.Context, date time.Time) ([]*sale.Sale, error)
	CheckSettlementExists(ctx context.Context, date time.Time) (bool, error)
	GetSettlement(ctx context.Context, id int64) (*settlement.Settlement, error)
	GetSettlementByDate(ctx context.Context, date time.Time) (*settlement.Settlement, error)
	ListSettlements(ctx context.Context, from, to time.Time) ([]*settlement.Settlement, error)
	GetFailedSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error)
	CanReprocess(ctx context.Context, id int64) (bool, error)
}

// SaleService ingests sales.
type SaleService interface {
	RecordSale(ctx context.Context, cmd RecordSaleCommand) (*sale.Sale, error)
}

// RecordSaleCommand carries a sale as submitted by a point of sale.
type RecordSaleCommand struct {
	StoreID         string
	OrderNumber     string
	Amount          decimal.Decimal
	PaymentMethod   sale.PaymentMethod
	Channel         sale.Channel
	TransactionTime time.Time
}

// FailureRecorder persists the outcome of a failed run in its own unit of work.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, date time.Time, reason string) error
}

// EventPublisher puts events on the broker.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, event shared.Event) error
}

// Notifier emits operator notifications. Its methods have no error result: a
// notification that cannot be delivered is logged and dropped.
type Notifier interface {
	NotifyUrgent(ctx context.Context, date time.Time, message string)
	NotifyCritical(ctx context.Context, date time.Time, cause, saveErr string)
}

// Clock supplies the current time to business logic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
