package consumer

import (
	"log/slog"
	"time"

	"github.com/todaysales-settlement/internal/platform/messaging/topology"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

// Deps are the collaborators of the queue handlers.
type Deps struct {
	Runner   SettlementRunner
	Cache    CacheInvalidator
	Archive  Archiver
	Clock    service.Clock
	Location *time.Location
	Logger   *slog.Logger
}

// Handlers returns the handler of every queue in the default topology.
func Handlers(d Deps) map[string]MessageHandler {
	handlers := map[string]MessageHandler{
		topology.SalesQueue:        NewSaleCreatedHandler(d.Cache, d.Clock, d.Location, d.Logger.With("handler", "sale_created")),
		topology.SettlementQueue:   NewSettlementHandler(d.Runner, d.Logger.With("handler", "settlement")),
		topology.NotificationQueue: NewNotificationHandler(d.Logger.With("handler", "notification")),
	}
	for _, q := range []string{topology.DLQSales, topology.DLQSettlement, topology.DLQNotification} {
		handlers[q] = NewDeadLetterHandler(q, d.Archive, d.Clock, d.Logger.With("handler", "dead_letter", "dlq", q))
	}
	return handlers
}
