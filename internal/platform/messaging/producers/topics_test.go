package producers

import (
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
)

type mockTopicAdmin struct {
	mock.Mock
}

func (m *mockTopicAdmin) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	args := m.Called(topics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kafka.Partition), args.Error(1)
}

func (m *mockTopicAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	args := m.Called(topics)
	return args.Error(0)
}

func TestTopicConfig_RetentionFromTTL(t *testing.T) {
	topo := testTopology()

	live, _ := topo.Queue(topology.SalesQueue)
	tc := topicConfig(live, 3, 1)
	assert.Equal(t, topology.SalesQueue, tc.Topic)
	assert.Equal(t, 3, tc.NumPartitions)
	require.Len(t, tc.ConfigEntries, 1)
	assert.Equal(t, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: "86400000"}, tc.ConfigEntries[0])

	dlq, _ := topo.Queue(topology.DLQSales)
	assert.Equal(t, "604800000", topicConfig(dlq, 0, 0).ConfigEntries[0].ConfigValue)
	assert.Equal(t, 1, topicConfig(dlq, 0, 0).NumPartitions)
}

func TestDeclareTopics(t *testing.T) {
	logger := newTestLogger()

	t.Run("CreatesOnlyMissingTopics", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		topo := testTopology()
		for _, q := range topo.Queues() {
			if q.Name == topology.DLQSales {
				admin.On("ReadPartitions", []string{q.Name}).Return(nil, errors.New("unknown topic"))
				continue
			}
			admin.On("ReadPartitions", []string{q.Name}).Return([]kafka.Partition{{Topic: q.Name}}, nil)
		}
		admin.On("CreateTopics", mock.MatchedBy(func(tcs []kafka.TopicConfig) bool {
			return len(tcs) == 1 && tcs[0].Topic == topology.DLQSales
		})).Return(nil).Once()

		require.NoError(t, declareTopics(admin, topo, 3, 1, logger, 2, 0))
		admin.AssertExpectations(t)
		admin.AssertNumberOfCalls(t, "CreateTopics", 1)
	})

	t.Run("CreationFailureStops", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", mock.Anything).Return(nil, errors.New("unknown topic"))
		admin.On("CreateTopics", mock.Anything).Return(errors.New("not controller")).Once()

		err := declareTopics(admin, testTopology(), 3, 1, logger, 1, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create kafka topic dlq.notification")
	})
}
