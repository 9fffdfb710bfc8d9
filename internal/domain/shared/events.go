package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleCreatedEvent announces an ingested sale.
type SaleCreatedEvent struct {
	Envelope
	SaleID          int64           `json:"sale_id"`
	StoreID         string          `json:"store_id"`
	StoreName       string          `json:"store_name,omitempty"`
	OrderNumber     string          `json:"order_number"`
	Amount          decimal.Decimal `json:"amount"`
	ProvisionalFee  decimal.Decimal `json:"provisional_fee"`
	PaymentMethod   string          `json:"payment_method"`
	Channel         string          `json:"channel"`
	SaleStatus      string          `json:"sale_status"`
	TransactionTime time.Time       `json:"transaction_time"`
}

// SettlementRequestEvent asks the engine to settle a date asynchronously.
type SettlementRequestEvent struct {
	Envelope
	SettlementDate string `json:"settlement_date"`
	RequestedBy    string `json:"requested_by,omitempty"`
	Period         string `json:"period"`
}

// Severity of a notification.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityUrgent   Severity = "URGENT"
	SeverityCritical Severity = "CRITICAL"
)

// NotificationEvent is an operator-facing message.
type NotificationEvent struct {
	Envelope
	Severity       Severity `json:"severity"`
	Subject        string   `json:"subject"`
	Message        string   `json:"message"`
	SettlementDate string   `json:"settlement_date,omitempty"`
}

// NewSettlementRequest builds a daily settlement request for date (YYYY-MM-DD).
func NewSettlementRequest(date, requestedBy, correlationID string, now time.Time) *SettlementRequestEvent {
	return &SettlementRequestEvent{
		Envelope:       NewEnvelope(EventTypeSettlementRequest, SettlementRequestVersion, correlationID, now),
		SettlementDate: date,
		RequestedBy:    requestedBy,
		Period:         "DAILY",
	}
}

// NewNotification builds a notification event.
func NewNotification(severity Severity, subject, message, date, correlationID string, now time.Time) *NotificationEvent {
	return &NotificationEvent{
		Envelope:       NewEnvelope(EventTypeNotification, NotificationVersion, correlationID, now),
		Severity:       severity,
		Subject:        subject,
		Message:        message,
		SettlementDate: date,
	}
}
