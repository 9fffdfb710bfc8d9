package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/domain/store"
	engine "github.com/todaysales-settlement/internal/settlement_engine/service"
)

// SaleHandler handles HTTP requests for sale ingestion
type SaleHandler struct {
	sales  engine.SaleService
	logger *slog.Logger
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(logger *slog.Logger, sales engine.SaleService) *SaleHandler {
	return &SaleHandler{
		sales:  sales,
		logger: logger,
	}
}

// Create records a completed sale
func (h *SaleHandler) Create(c *gin.Context) {
	var req RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cmd, err := toRecordSaleCommand(req)
	if err != nil {
		h.logger.Error("Invalid sale", "order_number", req.OrderNumber, "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	s, err := h.sales.RecordSale(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, sale.ErrDuplicateOrderNumber{}):
			RespondConflict(c, err.Error())
		case errors.Is(err, store.ErrStoreNotFound{}):
			RespondNotFound(c, err.Error())
		case errors.Is(err, sale.ErrInvalidAmount),
			errors.Is(err, sale.ErrAmountScale),
			errors.Is(err, sale.ErrFutureTransaction),
			errors.Is(err, sale.ErrEmptyOrderNumber),
			errors.Is(err, sale.ErrEmptyStoreID),
			errors.Is(err, sale.ErrNegativeFee),
			errors.Is(err, store.ErrStoreInactive{}):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to record sale", "order_number", req.OrderNumber, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapSaleToResponse(s))
}

func toRecordSaleCommand(req RecordSaleRequest) (engine.RecordSaleCommand, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return engine.RecordSaleCommand{}, errors.New("invalid amount")
	}
	method, err := sale.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return engine.RecordSaleCommand{}, err
	}
	channel, err := sale.ParseChannel(req.Channel)
	if err != nil {
		return engine.RecordSaleCommand{}, err
	}

	var txTime time.Time
	if req.TransactionTime != "" {
		txTime, err = time.Parse(time.RFC3339, req.TransactionTime)
		if err != nil {
			return engine.RecordSaleCommand{}, errors.New("invalid transaction_time, expected RFC 3339")
		}
	}

	return engine.RecordSaleCommand{
		StoreID:         req.StoreID,
		OrderNumber:     req.OrderNumber,
		Amount:          amount,
		PaymentMethod:   method,
		Channel:         channel,
		TransactionTime: txTime,
	}, nil
}
