package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/todaysales-settlement/internal/api_gateway/service"
	"github.com/todaysales-settlement/internal/domain/deadletter"
)

// DeadLetterHandler serves the dead-letter queue monitor
type DeadLetterHandler struct {
	deadLetters service.DeadLetterService
	logger      *slog.Logger
}

// NewDeadLetterHandler creates a new dead-letter handler
func NewDeadLetterHandler(logger *slog.Logger, deadLetters service.DeadLetterService) *DeadLetterHandler {
	return &DeadLetterHandler{
		deadLetters: deadLetters,
		logger:      logger,
	}
}

// Counts returns the archived message count per dead-letter queue
func (h *DeadLetterHandler) Counts(c *gin.Context) {
	counts, err := h.deadLetters.Counts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to count dead-lettered messages", "error", err)
		RespondInternalError(c)
		return
	}
	RespondOK(c, counts)
}

// Messages returns the newest archived messages of a queue; ?limit= bounds the result
func (h *DeadLetterHandler) Messages(c *gin.Context) {
	queue := c.Param("queue")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid limit")
			return
		}
		limit = n
	}

	messages, err := h.deadLetters.Latest(c.Request.Context(), queue, limit)
	if err != nil {
		h.respondError(c, queue, err)
		return
	}

	response := make([]DeadLetterResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, mapDeadLetterToResponse(m))
	}
	RespondOK(c, response)
}

// Purge deletes every archived message of a queue
func (h *DeadLetterHandler) Purge(c *gin.Context) {
	queue := c.Param("queue")
	deleted, err := h.deadLetters.Purge(c.Request.Context(), queue)
	if err != nil {
		h.respondError(c, queue, err)
		return
	}
	RespondOK(c, gin.H{"queue": queue, "deleted": deleted})
}

func (h *DeadLetterHandler) respondError(c *gin.Context, queue string, err error) {
	if errors.Is(err, deadletter.ErrUnknownQueue{}) {
		RespondBadRequest(c, err.Error())
		return
	}
	h.logger.Error("Dead-letter operation failed", "queue", queue, "error", err)
	RespondInternalError(c)
}
