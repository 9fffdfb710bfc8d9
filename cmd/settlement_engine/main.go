package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/data/mongo"
	"github.com/todaysales-settlement/internal/data/postgres"
	"github.com/todaysales-settlement/internal/logger"
	"github.com/todaysales-settlement/internal/platform/cache"
	"github.com/todaysales-settlement/internal/platform/messaging/consumers"
	"github.com/todaysales-settlement/internal/platform/messaging/producers"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
	"github.com/todaysales-settlement/internal/platform/metrics"
	"github.com/todaysales-settlement/internal/platform/persistence"
	"github.com/todaysales-settlement/internal/settlement_engine/components"
	"github.com/todaysales-settlement/internal/settlement_engine/consumer"
	"github.com/todaysales-settlement/internal/settlement_engine/scheduler"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
	"golang.org/x/sync/errgroup"
)

func main() {
	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.LoadConfig("settlement_engine")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Engine",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"timezone", cfg.Settlement.Timezone,
	)

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

	// The dashboard cache is optional; sales keep flowing without it.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.Connect(appCtx, &cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, dashboard cache invalidation disabled", "error", err)
			redisClient = nil
		}
	}

	topo := topology.Default(cfg.Broker)
	if err = producers.DeclareTopology(log, &cfg.Kafka, topo); err != nil {
		log.Error("Failed to declare broker topology", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	publisher := producers.NewEventPublisher(log.With("component", "publisher"), producers.NewKafkaWriter(log, &cfg.Kafka), topo, &cfg.Publisher, m)
	dlqProducer := producers.NewDLQProducer(log.With("component", "dlq_producer"), producers.NewKafkaWriter(log, &cfg.Kafka), topo)

	settlementRepo := postgres.NewSettlementRepository(log, postgresDB)
	saleRepo := postgres.NewSaleRepository(log, postgresDB)
	deadLetters := mongo.NewDeadLetterRepository(log, mongoDB.Database(), topo.DeadLetterQueues(), int64(cfg.Broker.DLQMaxLength), cfg.Broker.DLQTTL)
	if err = deadLetters.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create dead-letter indexes", "error", err)
		os.Exit(1)
	}

	settlementService := components.CreateSettlementService(postgresDB, settlementRepo, saleRepo, publisher, cfg, m, log)
	failureRecorder := components.CreateFailureRecorder(postgresDB, settlementRepo, publisher, cfg, m, log)

	poolSize := max(cfg.WorkerPool.Size, 3*cfg.Consumer.Concurrency+3*cfg.Consumer.DLQConcurrency)
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		log.Error("Failed to create worker pool", "error", err)
		os.Exit(1)
	}

	router := consumer.NewRouter(log.With("component", "consumer"), topo, consumer.NewRetryPolicy(cfg.Broker.MaxRetries))
	handlers := consumer.Handlers(consumer.Deps{
		Runner:   settlementService,
		Cache:    cache.NewDashboardCache(log.With("component", "cache"), redisClient),
		Archive:  deadLetters,
		Clock:    service.SystemClock{},
		Location: cfg.Settlement.Location(),
		Logger:   log,
	})

	var queueConsumers []*consumers.KafkaConsumer
	for _, q := range topo.LiveQueues() {
		queueConsumers = append(queueConsumers,
			consumers.NewKafkaConsumer(log, &cfg.Kafka, q, cfg.Consumer.Concurrency, cfg.Consumer.Prefetch, dlqProducer, pool, m))
	}
	for _, q := range topo.DeadLetterQueues() {
		queueConsumers = append(queueConsumers,
			consumers.NewKafkaConsumer(log, &cfg.Kafka, q, cfg.Consumer.DLQConcurrency, cfg.Consumer.Prefetch, dlqProducer, pool, m))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(appCtx)

	for _, c := range queueConsumers {
		c := c
		handler, ok := handlers[c.Queue()]
		if !ok {
			log.Error("No handler registered for queue", "queue", c.Queue())
			os.Exit(1)
		}
		g.Go(func() error {
			return c.Run(ctx, router.Route(c.Queue(), handler))
		})
	}

	if cfg.Scheduler.Enabled {
		daily, err := scheduler.NewDailyScheduler(settlementService, failureRecorder, service.SystemClock{}, &cfg.Scheduler, log.With("component", "scheduler"))
		if err != nil {
			log.Error("Failed to create scheduler", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return daily.Run(ctx)
		})
	} else {
		log.Info("Daily scheduler disabled")
	}

	g.Go(func() error {
		log.Info("Starting metrics server", "port", cfg.Metrics.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	serviceErr := g.Wait()
	if serviceErr != nil {
		log.Error("Service error occurred", "error", serviceErr)
	} else {
		log.Info("Shutdown signal received")
	}

	log.Info("Starting graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	shutdown(log, "queue consumers", func() error {
		var errs []error
		for _, c := range queueConsumers {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	})
	log.Info("Releasing worker pool", "running_workers", pool.Running())
	pool.Release()

	shutdown(log, "event publisher", publisher.Close)
	shutdown(log, "DLQ producer", dlqProducer.Close)
	if redisClient != nil {
		shutdown(log, "Redis client", redisClient.Close)
	}
	postgresDB.Close()
	shutdown(log, "MongoDB connection", func() error { return mongoDB.Close(shutdownCtx) })

	if serviceErr != nil {
		log.Error("Settlement Engine shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Settlement Engine shutdown completed successfully")
}

func shutdown(log *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("Error closing "+name, "error", err)
	}
}
