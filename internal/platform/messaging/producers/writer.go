package producers

import (
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
)

// NewKafkaWriter returns a writer without a fixed topic; every message names its own.
// Writes wait for all in-sync replicas, and the completion callback only logs the
// broker's confirmation.
func NewKafkaWriter(logger *slog.Logger, cfg *config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: false,
		Completion: func(messages []kafka.Message, err error) {
			for _, m := range messages {
				if err != nil {
					logger.Warn("Broker did not confirm message",
						"topic", m.Topic,
						"event_id", headers.Get(m.Headers, headers.EventID),
						"error", err)
					continue
				}
				logger.Debug("Broker confirmed message",
					"topic", m.Topic,
					"partition", m.Partition,
					"offset", m.Offset,
					"event_id", headers.Get(m.Headers, headers.EventID))
			}
		},
	}
}
