package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/todaysales-settlement/internal/api_gateway"
	"github.com/todaysales-settlement/internal/api_gateway/service"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/data/mongo"
	"github.com/todaysales-settlement/internal/data/postgres"
	"github.com/todaysales-settlement/internal/logger"
	"github.com/todaysales-settlement/internal/platform/messaging/producers"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
	"github.com/todaysales-settlement/internal/platform/metrics"
	"github.com/todaysales-settlement/internal/platform/persistence"
	"github.com/todaysales-settlement/internal/settlement_engine/components"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	topo := topology.Default(cfg.Broker)
	if err = producers.DeclareTopology(log, &cfg.Kafka, topo); err != nil {
		log.Error("Failed to declare broker topology", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	publisher := producers.NewEventPublisher(log.With("component", "publisher"), producers.NewKafkaWriter(log, &cfg.Kafka), topo, &cfg.Publisher, m)

	settlementRepo := postgres.NewSettlementRepository(log, postgresDB)
	saleRepo := postgres.NewSaleRepository(log, postgresDB)
	storeRepo := postgres.NewStoreRepository(log, postgresDB)
	deadLetterRepo := mongo.NewDeadLetterRepository(log, mongoDB.Database(), topo.DeadLetterQueues(), int64(cfg.Broker.DLQMaxLength), cfg.Broker.DLQTTL)

	settlementService := components.CreateSettlementService(postgresDB, settlementRepo, saleRepo, publisher, cfg, m, log)

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Settlements: settlementService,
		Sales:       components.CreateSaleService(saleRepo, storeRepo, publisher, log),
		Requester:   service.NewRequestService(log, publisher),
		DeadLetters: service.NewDeadLetterService(log, deadLetterRepo),
		Metrics:     metrics.Handler(reg),
	})
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain requests before closing what they depend on.
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = publisher.Close(); err != nil {
		log.Error("Error closing event publisher", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
