package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/todaysales-settlement/internal/api_gateway/handler"
	"github.com/todaysales-settlement/internal/api_gateway/service"
	"github.com/todaysales-settlement/internal/config"
	engine "github.com/todaysales-settlement/internal/settlement_engine/service"
)

// Services are the collaborators the gateway routes requests to
type Services struct {
	Settlements engine.SettlementService
	Sales       engine.SaleService
	Requester   service.SettlementRequester
	DeadLetters service.DeadLetterService
	Metrics     http.Handler // served at /metrics when set
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, svc Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	setupRouter(log, httpRouter, handlers{
		settlements: handler.NewSettlementHandler(log, svc.Settlements, svc.Requester),
		sales:       handler.NewSaleHandler(log, svc.Sales),
		deadLetters: handler.NewDeadLetterHandler(log, svc.DeadLetters),
		metrics:     svc.Metrics,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
