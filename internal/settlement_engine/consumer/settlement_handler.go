package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

// SettlementRunner runs the settlement of one day.
type SettlementRunner interface {
	RunSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error)
}

// SettlementHandler consumes settlement.queue, which carries both settlement requests
// and the outcome events of finished runs.
type SettlementHandler struct {
	runner SettlementRunner
	logger *slog.Logger
}

func NewSettlementHandler(runner SettlementRunner, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		runner: runner,
		logger: logger,
	}
}

func (h *SettlementHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	switch eventType := headers.Get(msg.Headers, headers.EventType); eventType {
	case shared.EventTypeSettlementRequest:
		return h.handleRequest(ctx, msg)
	case shared.EventTypeSettlementCompleted, shared.EventTypeSettlementFailed:
		return h.handleOutcome(msg)
	default:
		return Poison("unexpected event type %q on settlement queue", eventType)
	}
}

func (h *SettlementHandler) handleRequest(ctx context.Context, msg kafka.Message) error {
	var req shared.SettlementRequestEvent
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return Poison("failed to decode settlement request: %v", err)
	}
	date, err := settlement.ParseDate(req.SettlementDate)
	if err != nil {
		return Poison("%v", err)
	}

	logger := h.logger.With("settlement_date", req.SettlementDate, "requested_by", req.RequestedBy)
	logger.Info("Settlement requested")

	s, err := h.runner.RunSettlement(ctx, date)
	if err != nil {
		var persistenceErr *service.PersistenceError
		switch {
		case errors.Is(err, settlement.ErrDuplicateSettlement{}):
			logger.Warn("Settlement already exists, ignoring request")
			return nil
		case errors.As(err, &persistenceErr):
			// the failed run is on record and can be reprocessed
			logger.Error("Requested settlement failed", "error", err)
			return nil
		default:
			return fmt.Errorf("failed to run requested settlement for %s: %w", req.SettlementDate, err)
		}
	}

	logger.Info("Requested settlement completed", "settlement_id", s.ID)
	return nil
}

func (h *SettlementHandler) handleOutcome(msg kafka.Message) error {
	var event settlement.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return Poison("failed to decode settlement event: %v", err)
	}

	if event.Status == string(settlement.StatusFailed) {
		h.logger.Error(FormatOutcome(&event),
			"settlement_id", event.SettlementID,
			"settlement_date", event.SettlementDate,
		)
		return nil
	}

	h.logger.Info(FormatOutcome(&event),
		"settlement_id", event.SettlementID,
		"settlement_date", event.SettlementDate,
		"transaction_count", event.TransactionCount,
	)
	return nil
}

// FormatOutcome renders a settlement event as an operator notification line.
func FormatOutcome(e *settlement.Event) string {
	if e.Status == string(settlement.StatusFailed) {
		return fmt.Sprintf("Settlement failed for %s: %s", e.SettlementDate, e.Message)
	}
	return fmt.Sprintf("Settlement completed for %s: %d sales, total %s, fee %s, net %s",
		e.SettlementDate,
		e.TransactionCount,
		e.TotalAmount.StringFixed(2),
		e.TotalFee.StringFixed(2),
		e.NetAmount.StringFixed(2),
	)
}
