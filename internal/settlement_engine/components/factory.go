package components

import (
	"log/slog"

	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/store"
	"github.com/todaysales-settlement/internal/platform/metrics"
	"github.com/todaysales-settlement/internal/platform/persistence"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

// CreateFailureRecorder wires the failure recorder with its notifier. Triggers that can
// fail before reaching the processor record through it directly.
func CreateFailureRecorder(
	tx persistence.TxRunner,
	settlementRepo settlement.Repository,
	publisher service.EventPublisher,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) service.FailureRecorder {
	clock := service.SystemClock{}
	notifier := NewNotifier(publisher, clock, m, logger.With("component", "notifier"))
	return NewFailureRecorder(
		tx,
		settlementRepo,
		publisher,
		notifier,
		clock,
		cfg.Settlement.FailureRecordTimeout,
		logger.With("component", "failure_recorder"),
	)
}

// CreateSettlementService wires the settlement processor with its own failure recorder.
func CreateSettlementService(
	tx persistence.TxRunner,
	settlementRepo settlement.Repository,
	saleRepo sale.Repository,
	publisher service.EventPublisher,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) service.SettlementService {
	logger.Info("Created settlement service",
		"timezone", cfg.Settlement.Timezone,
		"timeout", cfg.Settlement.Timeout.String(),
	)
	return service.NewSettlementService(
		tx,
		settlementRepo,
		saleRepo,
		publisher,
		CreateFailureRecorder(tx, settlementRepo, publisher, cfg, m, logger),
		service.SystemClock{},
		&cfg.Settlement,
		m,
		logger.With("component", "settlement_service"),
	)
}

// CreateSaleService wires sale ingestion.
func CreateSaleService(saleRepo sale.Repository, storeRepo store.Repository, publisher service.EventPublisher, logger *slog.Logger) service.SaleService {
	return service.NewSaleService(saleRepo, storeRepo, publisher, service.SystemClock{}, logger.With("component", "sale_service"))
}
