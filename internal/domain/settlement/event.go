package settlement

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/todaysales-settlement/internal/domain/shared"
)

// Event is the wire snapshot of a settlement outcome. The envelope travels in
// message headers, the body is the flat outcome.
type Event struct {
	Envelope         shared.Envelope `json:"-"`
	SettlementID     int64           `json:"settlement_id"`
	SettlementDate   string          `json:"settlement_date"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TotalFee         decimal.Decimal `json:"total_fee"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TransactionCount int             `json:"transaction_count"`
	Status           string          `json:"status"`
	ProcessedAt      time.Time       `json:"processed_at"`
	Message          string          `json:"message,omitempty"`
}

// Meta implements shared.Event.
func (e *Event) Meta() shared.Envelope {
	return e.Envelope
}

// NewCompletedEvent snapshots a finalized settlement.
func NewCompletedEvent(s *Settlement, correlationID string, now time.Time) *Event {
	return &Event{
		Envelope:         shared.NewEnvelope(shared.EventTypeSettlementCompleted, shared.SettlementEventVersion, correlationID, now),
		SettlementID:     s.ID,
		SettlementDate:   FormatDate(s.SettlementDate),
		TotalAmount:      s.TotalAmount,
		TotalFee:         s.TotalFee,
		NetAmount:        s.NetAmount,
		TransactionCount: s.TransactionCount,
		Status:           string(StatusCompleted),
		ProcessedAt:      now.UTC(),
		Message:          s.Note,
	}
}

// NewFailedEvent describes a failed run. settlementID is zero when no row could be recorded.
func NewFailedEvent(settlementID int64, date time.Time, reason, correlationID string, now time.Time) *Event {
	return &Event{
		Envelope:       shared.NewEnvelope(shared.EventTypeSettlementFailed, shared.SettlementEventVersion, correlationID, now),
		SettlementID:   settlementID,
		SettlementDate: FormatDate(date),
		TotalAmount:    decimal.Zero,
		TotalFee:       decimal.Zero,
		NetAmount:      decimal.Zero,
		Status:         string(StatusFailed),
		ProcessedAt:    now.UTC(),
		Message:        reason,
	}
}
