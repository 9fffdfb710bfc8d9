package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/todaysales-settlement/internal/domain/fee"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/domain/store"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
)

type SaleServiceImpl struct {
	sales     sale.Repository
	stores    store.Repository
	publisher EventPublisher
	clock     Clock
	logger    *slog.Logger
}

func NewSaleService(sales sale.Repository, stores store.Repository, publisher EventPublisher, clock Clock, logger *slog.Logger) *SaleServiceImpl {
	return &SaleServiceImpl{
		sales:     sales,
		stores:    stores,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// RecordSale stores a completed sale of an active store with a provisional fee and
// announces it. The fee is recomputed when the sale is settled.
func (s *SaleServiceImpl) RecordSale(ctx context.Context, cmd RecordSaleCommand) (*sale.Sale, error) {
	correlationID := shared.CorrelationIDFromContext(ctx)
	logger := s.logger.With("order_number", cmd.OrderNumber, "store_id", cmd.StoreID)
	if correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}

	txTime := cmd.TransactionTime
	if txTime.IsZero() {
		txTime = s.clock.Now()
	}
	if err := sale.CheckTransactionTime(txTime, s.clock.Now()); err != nil {
		logger.Warn("Rejected sale", "transaction_time", txTime, "error", err)
		return nil, err
	}

	provisional := fee.ComputeFee(cmd.Amount, cmd.PaymentMethod)
	sl, err := sale.NewSale(cmd.StoreID, cmd.OrderNumber, cmd.Amount, cmd.PaymentMethod, cmd.Channel, txTime, provisional)
	if err != nil {
		return nil, err
	}

	st, err := s.stores.GetByID(ctx, cmd.StoreID)
	if err != nil {
		logger.Warn("Rejected sale", "error", err)
		return nil, err
	}
	if !st.Active() {
		logger.Warn("Rejected sale for inactive store", "status", st.Status)
		return nil, store.ErrStoreInactive{ID: st.ID, Status: st.Status}
	}
	sl.StoreName = st.Name

	if err := s.sales.Create(ctx, sl); err != nil {
		logger.Error("Failed to record sale", "error", err)
		return nil, err
	}
	logger.Info("Sale recorded", "sale_id", sl.ID, "amount", sl.Amount.String(), "provisional_fee", sl.Fee.String())

	now := s.clock.Now()
	created := &shared.SaleCreatedEvent{
		Envelope:        shared.NewEnvelope(shared.EventTypeSaleCreated, shared.SaleCreatedVersion, correlationID, now),
		SaleID:          sl.ID,
		StoreID:         sl.StoreID,
		StoreName:       sl.StoreName,
		OrderNumber:     sl.OrderNumber,
		Amount:          sl.Amount,
		ProvisionalFee:  sl.Fee,
		PaymentMethod:   string(sl.PaymentMethod),
		Channel:         string(sl.Channel),
		SaleStatus:      string(sl.Status),
		TransactionTime: sl.TransactionTime,
	}
	if err := s.publisher.Publish(ctx, topology.SalesExchange, topology.KeySaleCreated, created); err != nil {
		logger.Error("Failed to publish sale created event", "sale_id", sl.ID, "error", err)
	}

	notice := shared.NewNotification(
		shared.SeverityInfo,
		"New sale",
		fmt.Sprintf("Store %s recorded order %s for %s", sl.StoreID, sl.OrderNumber, sl.Amount.StringFixed(2)),
		"",
		correlationID,
		now,
	)
	if err := s.publisher.Publish(ctx, topology.SalesExchange, topology.KeyNotification, notice); err != nil {
		logger.Error("Failed to publish sale notification", "sale_id", sl.ID, "error", err)
	}

	return sl, nil
}
