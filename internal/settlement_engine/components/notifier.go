package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
	"github.com/todaysales-settlement/internal/platform/metrics"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

type NotifierImpl struct {
	publisher service.EventPublisher
	clock     service.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewNotifier(publisher service.EventPublisher, clock service.Clock, m *metrics.Metrics, logger *slog.Logger) *NotifierImpl {
	return &NotifierImpl{
		publisher: publisher,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// NotifyUrgent announces a settlement failure that has been recorded.
func (n *NotifierImpl) NotifyUrgent(ctx context.Context, date time.Time, message string) {
	body := fmt.Sprintf(
		"Settlement failed\nDate: %s\nError: %s\nTime: %s\nOperator attention required.",
		settlement.FormatDate(date), message, n.clock.Now().Format(time.RFC3339),
	)
	if n.send(ctx, shared.SeverityUrgent, "Settlement failure", body, date) {
		n.logger.Warn("Urgent notification sent", "settlement_date", settlement.FormatDate(date))
	}
}

// NotifyCritical announces a failure that could not even be recorded. If the
// notification cannot be published either, the log line is all that is left.
func (n *NotifierImpl) NotifyCritical(ctx context.Context, date time.Time, cause, saveErr string) {
	body := fmt.Sprintf(
		"Settlement failure could not be recorded\nDate: %s\nOriginal error: %s\nRecording error: %s\nTime: %s\nCheck the settlement store immediately.",
		settlement.FormatDate(date), cause, saveErr, n.clock.Now().Format(time.RFC3339),
	)
	if !n.send(ctx, shared.SeverityCritical, "Settlement failure not recorded", body, date) {
		n.logger.Error("CRITICAL: settlement failure was neither recorded nor announced",
			"settlement_date", settlement.FormatDate(date),
			"cause", cause,
			"save_error", saveErr,
		)
	}
}

// send reports whether the notification reached the broker. It never panics or
// returns an error to its caller.
func (n *NotifierImpl) send(ctx context.Context, severity shared.Severity, subject, body string, date time.Time) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Recovered from panic while sending notification", "severity", severity, "panic", r)
			delivered = false
		}
		outcome := metrics.OutcomeDelivered
		if !delivered {
			outcome = metrics.OutcomeUndelivered
		}
		n.metrics.ObserveNotification(string(severity), outcome)
	}()

	event := shared.NewNotification(severity, subject, body, settlement.FormatDate(date), shared.CorrelationIDFromContext(ctx), n.clock.Now())
	if err := n.publisher.Publish(ctx, topology.SalesExchange, topology.KeyNotification, event); err != nil {
		n.logger.Error("Failed to send notification",
			"severity", severity,
			"settlement_date", settlement.FormatDate(date),
			"error", err,
		)
		return false
	}
	return true
}
