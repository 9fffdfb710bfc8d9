// Package shared holds the message envelope and the event payloads exchanged
// between the settlement services and other producers.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried in the envelope.
const (
	EventTypeSaleCreated         = "SALE_CREATED"
	EventTypeSettlementRequest   = "SETTLEMENT_REQUEST"
	EventTypeSettlementCompleted = "SETTLEMENT_COMPLETED"
	EventTypeSettlementFailed    = "SETTLEMENT_FAILED"
	EventTypeNotification        = "NOTIFICATION"
)

// Schema versions per event type. Bump when a payload changes incompatibly.
const (
	SaleCreatedVersion       = 1
	SettlementRequestVersion = 1
	SettlementEventVersion   = 1
	NotificationVersion      = 1
)

// Envelope is the metadata every event carries next to its payload.
type Envelope struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	CreatedAt     time.Time `json:"created_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Version       int       `json:"version"`
}

// NewEnvelope stamps a fresh event id. Without a correlation id the event starts
// its own trace.
func NewEnvelope(eventType string, version int, correlationID string, now time.Time) Envelope {
	id := uuid.New().String()
	if correlationID == "" {
		correlationID = id
	}
	return Envelope{
		EventID:       id,
		EventType:     eventType,
		CreatedAt:     now.UTC(),
		CorrelationID: correlationID,
		Version:       version,
	}
}

// Meta returns the envelope itself so that payloads embedding it satisfy Event.
func (e Envelope) Meta() Envelope {
	return e
}

// Event is anything the publisher can put on the wire.
type Event interface {
	Meta() Envelope
}
