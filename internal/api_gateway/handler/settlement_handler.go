package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/todaysales-settlement/internal/api_gateway/service"
	"github.com/todaysales-settlement/internal/domain/settlement"
	engine "github.com/todaysales-settlement/internal/settlement_engine/service"
)

// SettlementHandler handles HTTP requests for settlement operations
type SettlementHandler struct {
	settlements engine.SettlementService
	requester   service.SettlementRequester
	logger      *slog.Logger
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(logger *slog.Logger, settlements engine.SettlementService, requester service.SettlementRequester) *SettlementHandler {
	return &SettlementHandler{
		settlements: settlements,
		requester:   requester,
		logger:      logger,
	}
}

// RunManual settles the date given in the query string synchronously. An existing
// settlement for the date is reported as a conflict.
func (h *SettlementHandler) RunManual(c *gin.Context) {
	date, ok := h.parseDate(c, c.Query("date"))
	if !ok {
		return
	}

	s, err := h.settlements.RunSettlement(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	RespondCreated(c, mapSettlementToResponse(s))
}

// Request queues a settlement run for the engine and returns immediately
func (h *SettlementHandler) Request(c *gin.Context) {
	var body SettlementRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	date, ok := h.parseDate(c, body.Date)
	if !ok {
		return
	}
	if body.RequestedBy == "" {
		body.RequestedBy = "api"
	}

	req, err := h.requester.RequestSettlement(c.Request.Context(), date, body.RequestedBy)
	if err != nil {
		RespondInternalError(c)
		return
	}
	RespondAccepted(c, SettlementRequestResponse{
		EventID:        req.EventID,
		SettlementDate: req.SettlementDate,
		Status:         "QUEUED",
	})
}

// Reprocess deletes a failed settlement and runs its date again
func (h *SettlementHandler) Reprocess(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	s, err := h.settlements.ReprocessSettlement(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	RespondOK(c, mapSettlementToResponse(s))
}

func (h *SettlementHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	s, err := h.settlements.GetSettlement(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	RespondOK(c, mapSettlementToResponse(s))
}

func (h *SettlementHandler) GetByDate(c *gin.Context) {
	date, ok := h.parseDate(c, c.Param("date"))
	if !ok {
		return
	}

	s, err := h.settlements.GetSettlementByDate(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	RespondOK(c, mapSettlementToResponse(s))
}

// List returns the settlements between the from and to query dates, both inclusive
func (h *SettlementHandler) List(c *gin.Context) {
	from, ok := h.parseDate(c, c.Query("from"))
	if !ok {
		return
	}
	to, ok := h.parseDate(c, c.Query("to"))
	if !ok {
		return
	}

	list, err := h.settlements.ListSettlements(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	settlements := make([]SettlementResponse, 0, len(list))
	for _, s := range list {
		settlements = append(settlements, mapSettlementToResponse(s))
	}
	RespondOK(c, settlements)
}

func (h *SettlementHandler) Unsettled(c *gin.Context) {
	date, ok := h.parseDate(c, c.Param("date"))
	if !ok {
		return
	}

	list, err := h.settlements.GetUnsettledSales(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	sales := make([]SaleResponse, 0, len(list))
	for _, s := range list {
		sales = append(sales, mapSaleToResponse(s))
	}
	RespondOK(c, sales)
}

func (h *SettlementHandler) Check(c *gin.Context) {
	date, ok := h.parseDate(c, c.Param("date"))
	if !ok {
		return
	}

	exists, err := h.settlements.CheckSettlementExists(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"settlement_date": settlement.FormatDate(date),
		"exists":          exists,
	})
}

func (h *SettlementHandler) parseDate(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		RespondBadRequest(c, "Date is required (YYYY-MM-DD)")
		return time.Time{}, false
	}
	t, err := settlement.ParseDate(raw)
	if err != nil {
		h.logger.Error("Invalid settlement date", "date", raw, "error", err)
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (h *SettlementHandler) parseID(c *gin.Context) (int64, bool) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid settlement ID", "id", idParam)
		RespondBadRequest(c, "Invalid settlement ID")
		return 0, false
	}
	return id, true
}

// respondError maps settlement errors onto HTTP statuses
func (h *SettlementHandler) respondError(c *gin.Context, err error) {
	var invalidState settlement.ErrInvalidState
	var persistenceErr *engine.PersistenceError

	switch {
	case errors.Is(err, settlement.ErrDuplicateSettlement{}):
		RespondConflict(c, err.Error())
	case errors.Is(err, settlement.ErrSettlementNotFound{}):
		RespondNotFound(c, err.Error())
	case errors.As(err, &invalidState):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, engine.ErrInvalidDateRange):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &persistenceErr):
		h.logger.Error("Settlement run failed", "error", err)
		RespondWithError(c, http.StatusInternalServerError, "SETTLEMENT_FAILED", persistenceErr.Error())
	default:
		h.logger.Error("Settlement operation failed", "error", err)
		RespondInternalError(c)
	}
}
