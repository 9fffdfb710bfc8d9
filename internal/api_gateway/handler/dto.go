package handler

import (
	"time"

	"github.com/todaysales-settlement/internal/domain/deadletter"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/domain/settlement"
)

// RecordSaleRequest represents a sale submitted by a point of sale
type RecordSaleRequest struct {
	StoreID         string `json:"store_id" binding:"required"`
	OrderNumber     string `json:"order_number" binding:"required"`
	Amount          string `json:"amount" binding:"required"` // Decimal string, e.g. "12000.50"
	PaymentMethod   string `json:"payment_method" binding:"required"`
	Channel         string `json:"channel"`
	TransactionTime string `json:"transaction_time,omitempty"` // RFC 3339; defaults to now
}

// SettlementRequestBody asks for an asynchronous settlement run
type SettlementRequestBody struct {
	Date        string `json:"date" binding:"required"`
	RequestedBy string `json:"requested_by"`
}

// SettlementResponse represents a settlement in API responses
type SettlementResponse struct {
	ID               int64  `json:"id"`
	SettlementDate   string `json:"settlement_date"`
	TotalAmount      string `json:"total_amount"`
	TotalFee         string `json:"total_fee"`
	NetAmount        string `json:"net_amount"`
	TransactionCount int    `json:"transaction_count"`
	Status           string `json:"status"`
	Note             string `json:"note,omitempty"`
	CreatedAt        string `json:"created_at"`
	CompletedAt      string `json:"completed_at,omitempty"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID              int64  `json:"id"`
	StoreID         string `json:"store_id"`
	StoreName       string `json:"store_name,omitempty"`
	OrderNumber     string `json:"order_number"`
	Amount          string `json:"amount"`
	Fee             string `json:"fee"`
	FeeProvisional  bool   `json:"fee_provisional"` // fee is final only once the sale is settled
	NetAmount       string `json:"net_amount"`
	PaymentMethod   string `json:"payment_method"`
	Channel         string `json:"channel"`
	Status          string `json:"status"`
	Settled         bool   `json:"settled"`
	SettlementID    *int64 `json:"settlement_id,omitempty"`
	TransactionTime string `json:"transaction_time"`
}

// SettlementRequestResponse acknowledges a queued settlement request
type SettlementRequestResponse struct {
	EventID        string `json:"event_id"`
	SettlementDate string `json:"settlement_date"`
	Status         string `json:"status"`
}

// DeadLetterResponse represents an archived dead-lettered message
type DeadLetterResponse struct {
	Queue          string `json:"queue"`
	OriginalQueue  string `json:"original_queue"`
	EventID        string `json:"event_id,omitempty"`
	EventType      string `json:"event_type,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`
	Payload        string `json:"payload"`
	Reason         string `json:"reason"`
	RetryCount     int    `json:"retry_count"`
	DeadLetteredAt string `json:"dead_lettered_at"`
}

func mapSettlementToResponse(s *settlement.Settlement) SettlementResponse {
	response := SettlementResponse{
		ID:               s.ID,
		SettlementDate:   settlement.FormatDate(s.SettlementDate),
		TotalAmount:      s.TotalAmount.StringFixed(2),
		TotalFee:         s.TotalFee.StringFixed(2),
		NetAmount:        s.NetAmount.StringFixed(2),
		TransactionCount: s.TransactionCount,
		Status:           string(s.Status),
		Note:             s.Note,
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
	}
	if s.CompletedAt != nil {
		response.CompletedAt = s.CompletedAt.Format(time.RFC3339)
	}
	return response
}

func mapSaleToResponse(s *sale.Sale) SaleResponse {
	return SaleResponse{
		ID:              s.ID,
		StoreID:         s.StoreID,
		StoreName:       s.StoreName,
		OrderNumber:     s.OrderNumber,
		Amount:          s.Amount.StringFixed(2),
		Fee:             s.Fee.StringFixed(2),
		FeeProvisional:  !s.Settled,
		NetAmount:       s.NetAmount.StringFixed(2),
		PaymentMethod:   string(s.PaymentMethod),
		Channel:         string(s.Channel),
		Status:          string(s.Status),
		Settled:         s.Settled,
		SettlementID:    s.SettlementID,
		TransactionTime: s.TransactionTime.Format(time.RFC3339),
	}
}

func mapDeadLetterToResponse(m *deadletter.Message) DeadLetterResponse {
	return DeadLetterResponse{
		Queue:          m.Queue,
		OriginalQueue:  m.OriginalQueue,
		EventID:        m.EventID,
		EventType:      m.EventType,
		CorrelationID:  m.CorrelationID,
		Payload:        m.Payload,
		Reason:         m.Reason,
		RetryCount:     m.RetryCount,
		DeadLetteredAt: m.DeadLetteredAt.Format(time.RFC3339),
	}
}
