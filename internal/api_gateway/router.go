package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/todaysales-settlement/internal/api_gateway/handler"
	"github.com/todaysales-settlement/internal/api_gateway/middleware"
)

// handlers groups the route targets of the gateway
type handlers struct {
	settlements *handler.SettlementHandler
	sales       *handler.SaleHandler
	deadLetters *handler.DeadLetterHandler
	metrics     http.Handler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	v1 := r.Group("/api/v1")
	{
		settlements := v1.Group("/settlements")
		{
			settlements.GET("", h.settlements.List)
			settlements.POST("/manual", h.settlements.RunManual)
			settlements.POST("/requests", h.settlements.Request)
			settlements.GET("/:id", h.settlements.GetByID)
			settlements.POST("/:id/reprocess", h.settlements.Reprocess)
			settlements.GET("/date/:date", h.settlements.GetByDate)
			settlements.GET("/unsettled/:date", h.settlements.Unsettled)
			settlements.GET("/check/:date", h.settlements.Check)
		}

		v1.POST("/sales", h.sales.Create)

		dlq := v1.Group("/dlq")
		{
			dlq.GET("", h.deadLetters.Counts)
			dlq.GET("/:queue/messages", h.deadLetters.Messages)
			dlq.DELETE("/:queue", h.deadLetters.Purge)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
}
