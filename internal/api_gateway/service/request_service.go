package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/producers"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
)

// RequestServiceImpl implements the SettlementRequester interface
type RequestServiceImpl struct {
	publisher producers.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewRequestService creates a new settlement request service
func NewRequestService(logger *slog.Logger, publisher producers.Publisher) *RequestServiceImpl {
	return &RequestServiceImpl{
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// RequestSettlement publishes a settlement request to the settlement queue. The
// request carries the correlation id of ctx so the engine's run can be traced back.
func (s *RequestServiceImpl) RequestSettlement(ctx context.Context, date time.Time, requestedBy string) (*shared.SettlementRequestEvent, error) {
	day := settlement.FormatDate(settlement.Day(date))
	req := shared.NewSettlementRequest(day, requestedBy, shared.CorrelationIDFromContext(ctx), s.now())

	if err := s.publisher.Publish(ctx, topology.SalesExchange, topology.KeySettlement, req); err != nil {
		s.logger.Error("Failed to publish settlement request",
			"settlement_date", day,
			"requested_by", requestedBy,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Settlement request published",
		"settlement_date", day,
		"event_id", req.EventID,
		"correlation_id", req.CorrelationID,
	)
	return req, nil
}
