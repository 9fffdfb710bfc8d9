package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

// CacheInvalidator evicts cached dashboards of a store.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, storeID string, days ...time.Time) error
}

// SaleCreatedHandler evicts the dashboards a new sale makes stale: today's and the
// one for the day the sale happened.
type SaleCreatedHandler struct {
	cache    CacheInvalidator
	clock    service.Clock
	location *time.Location
	logger   *slog.Logger
}

func NewSaleCreatedHandler(cache CacheInvalidator, clock service.Clock, loc *time.Location, logger *slog.Logger) *SaleCreatedHandler {
	return &SaleCreatedHandler{
		cache:    cache,
		clock:    clock,
		location: loc,
		logger:   logger,
	}
}

func (h *SaleCreatedHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event shared.SaleCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return Poison("failed to decode sale created event: %v", err)
	}
	if event.StoreID == "" {
		return Poison("sale created event %d has no store id", event.SaleID)
	}

	today := h.clock.Now().In(h.location)
	days := []time.Time{today}
	if !event.TransactionTime.IsZero() {
		days = append(days, event.TransactionTime.In(h.location))
	}

	if err := h.cache.Invalidate(ctx, event.StoreID, days...); err != nil {
		return fmt.Errorf("failed to invalidate dashboards for sale %d: %w", event.SaleID, err)
	}

	h.logger.Info("Sale created",
		"sale_id", event.SaleID,
		"store_id", event.StoreID,
		"order_number", event.OrderNumber,
		"amount", event.Amount.String(),
	)
	return nil
}
