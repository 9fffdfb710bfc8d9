// Package headers maps the event envelope and redelivery bookkeeping onto Kafka
// message headers.
package headers

import (
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/domain/shared"
)

const (
	EventID       = "x-event-id"
	EventType     = "x-event-type"
	CorrelationID = "x-correlation-id"
	CreatedAt     = "x-created-at"
	SchemaVersion = "x-schema-version"
	Exchange      = "x-exchange"
	RoutingKey    = "x-routing-key"

	RetryCount     = "x-retry-count"
	DeathReason    = "x-death-reason"
	OriginalQueue  = "x-original-queue"
	DeadLetteredAt = "x-dead-lettered-at"
)

// FromEnvelope renders env as headers.
func FromEnvelope(env shared.Envelope) []kafka.Header {
	return []kafka.Header{
		{Key: EventID, Value: []byte(env.EventID)},
		{Key: EventType, Value: []byte(env.EventType)},
		{Key: CorrelationID, Value: []byte(env.CorrelationID)},
		{Key: CreatedAt, Value: []byte(env.CreatedAt.UTC().Format(time.RFC3339Nano))},
		{Key: SchemaVersion, Value: []byte(strconv.Itoa(env.Version))},
	}
}

// ToEnvelope reads the envelope back. Missing or malformed fields stay zero.
func ToEnvelope(hs []kafka.Header) shared.Envelope {
	env := shared.Envelope{
		EventID:       Get(hs, EventID),
		EventType:     Get(hs, EventType),
		CorrelationID: Get(hs, CorrelationID),
	}
	if ts, err := time.Parse(time.RFC3339Nano, Get(hs, CreatedAt)); err == nil {
		env.CreatedAt = ts
	}
	if v, err := strconv.Atoi(Get(hs, SchemaVersion)); err == nil {
		env.Version = v
	}
	return env
}

// Get returns the last value of key, or "".
func Get(hs []kafka.Header, key string) string {
	for i := len(hs) - 1; i >= 0; i-- {
		if hs[i].Key == key {
			return string(hs[i].Value)
		}
	}
	return ""
}

// Set returns a copy of hs with key replaced by value.
func Set(hs []kafka.Header, key, value string) []kafka.Header {
	out := make([]kafka.Header, 0, len(hs)+1)
	for _, h := range hs {
		if h.Key != key {
			out = append(out, h)
		}
	}
	return append(out, kafka.Header{Key: key, Value: []byte(value)})
}

// Retries reads the retry count; absent or unparsable means zero.
func Retries(hs []kafka.Header) int {
	n, err := strconv.Atoi(Get(hs, RetryCount))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func WithRetries(hs []kafka.Header, n int) []kafka.Header {
	return Set(hs, RetryCount, strconv.Itoa(n))
}
