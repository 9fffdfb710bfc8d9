package headers

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/todaysales-settlement/internal/domain/shared"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := shared.NewEnvelope(shared.EventTypeSettlementCompleted, shared.SettlementEventVersion, "corr-1", time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC))

	got := ToEnvelope(FromEnvelope(env))

	assert.Equal(t, env, got)
}

func TestRetries(t *testing.T) {
	tests := []struct {
		name string
		hs   []kafka.Header
		want int
	}{
		{"absent", nil, 0},
		{"present", []kafka.Header{{Key: RetryCount, Value: []byte("2")}}, 2},
		{"garbage", []kafka.Header{{Key: RetryCount, Value: []byte("two")}}, 0},
		{"negative", []kafka.Header{{Key: RetryCount, Value: []byte("-1")}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retries(tt.hs))
		})
	}
}

func TestSetReplaces(t *testing.T) {
	hs := []kafka.Header{{Key: RetryCount, Value: []byte("1")}, {Key: EventID, Value: []byte("e-1")}}

	out := WithRetries(hs, 2)

	assert.Len(t, out, 2)
	assert.Equal(t, 2, Retries(out))
	assert.Equal(t, "e-1", Get(out, EventID))
	assert.Equal(t, "1", Get(hs, RetryCount), "input is not modified")
}
