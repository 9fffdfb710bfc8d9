package consumer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/domain/deadletter"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	args := m.Called(ctx, date)
	s, _ := args.Get(0).(*settlement.Settlement)
	return s, args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(ctx context.Context, storeID string, days ...time.Time) error {
	args := m.Called(ctx, storeID, days)
	return args.Error(0)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, msg *deadletter.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTopology() *topology.Topology {
	return topology.Default(config.BrokerConfig{
		QueueTTL:       24 * time.Hour,
		QueueMaxLength: 10000,
		DLQTTL:         7 * 24 * time.Hour,
		DLQMaxLength:   1000,
		MaxRetries:     3,
	})
}

// eventMessage encodes event the way the publisher does.
func eventMessage(t *testing.T, event shared.Event) kafka.Message {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{
		Key:     []byte(event.Meta().EventID),
		Value:   body,
		Headers: headers.FromEnvelope(event.Meta()),
	}
}
