package components

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
	"github.com/todaysales-settlement/internal/platform/metrics"
)

func TestNotifier_NotifyUrgent(t *testing.T) {
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, topology.SalesExchange, topology.KeyNotification, mock.MatchedBy(func(e *shared.NotificationEvent) bool {
		return e.Severity == shared.SeverityUrgent &&
			e.SettlementDate == "2024-03-14" &&
			e.CorrelationID == "corr-3" &&
			strings.Contains(e.Message, "timeout")
	})).Return(nil).Once()

	m := metrics.New(prometheus.NewRegistry())
	n := NewNotifier(pub, fixedClock{now: day}, m, discardLogger())
	n.NotifyUrgent(shared.WithCorrelationID(context.Background(), "corr-3"), day, "timeout")

	pub.AssertExpectations(t)
}

func TestNotifier_NeverPropagates(t *testing.T) {
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("publish error", func(t *testing.T) {
		pub := &MockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Twice()

		n := NewNotifier(pub, fixedClock{now: day}, nil, discardLogger())
		assert.NotPanics(t, func() {
			n.NotifyUrgent(context.Background(), day, "boom")
			n.NotifyCritical(context.Background(), day, "boom", "insert failed")
		})
		pub.AssertExpectations(t)
	})

	t.Run("publisher panic", func(t *testing.T) {
		pub := &MockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Panic("nil writer").Once()

		n := NewNotifier(pub, fixedClock{now: day}, nil, discardLogger())
		assert.NotPanics(t, func() {
			n.NotifyCritical(context.Background(), day, "boom", "insert failed")
		})
	})
}

func TestNotifier_RecordsOutcome(t *testing.T) {
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	n := NewNotifier(pub, fixedClock{now: day}, m, discardLogger())
	n.NotifyCritical(context.Background(), day, "boom", "insert failed")

	count, err := testutil.GatherAndCount(reg, "settlement_notifications_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
