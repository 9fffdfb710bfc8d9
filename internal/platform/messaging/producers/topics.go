package producers

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/platform/messaging/topology"
)

// topicAdmin is the part of *kafka.Conn used to declare topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// DeclareTopology creates a topic for every queue of topo that does not exist yet.
// A queue's TTL becomes the topic's retention.
func DeclareTopology(logger *slog.Logger, cfg *config.KafkaConfig, topo *topology.Topology) error {
	conn, err := kafka.Dial("tcp", strings.Split(cfg.Brokers, ",")[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka for topic declaration: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find kafka controller: %w", err)
	}
	ctrl, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer ctrl.Close()

	return declareTopics(ctrl, topo, cfg.NumPartitions, cfg.ReplicationFactor, logger, 5, 2*time.Second)
}

func declareTopics(admin topicAdmin, topo *topology.Topology, numPartitions, replicationFactor int, log *slog.Logger, attempts int, delay time.Duration) error {
	for _, q := range topo.Queues() {
		if err := createKafkaTopicIfNotExists(admin, topicConfig(q, numPartitions, replicationFactor), log, attempts, delay); err != nil {
			return err
		}
	}
	return nil
}

func topicConfig(q topology.Queue, numPartitions, replicationFactor int) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             q.Name,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if tc.NumPartitions == 0 {
		tc.NumPartitions = 1
	}
	if tc.ReplicationFactor == 0 {
		tc.ReplicationFactor = 1
	}
	if q.TTL > 0 {
		tc.ConfigEntries = append(tc.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: strconv.FormatInt(q.TTL.Milliseconds(), 10),
		})
	}
	return tc
}

// createKafkaTopicIfNotExists creates the topic if it is not found, retrying partition reads first
func createKafkaTopicIfNotExists(admin topicAdmin, tc kafka.TopicConfig, log *slog.Logger, attempts int, delay time.Duration) error {
	var partitions []kafka.Partition
	var err error

	log.Info("Checking if Kafka topic exists", "topic", tc.Topic)
	for i := 0; i < attempts; i++ {
		partitions, err = admin.ReadPartitions(tc.Topic)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying...", "topic", tc.Topic, "attempt", i+1, "error", err)
		time.Sleep(delay)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", tc.Topic, "partitions", len(partitions))
		return nil
	}

	log.Info("Kafka topic does not exist, creating it", "topic", tc.Topic, "last_error_read", err)
	if err := admin.CreateTopics(tc); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", tc.Topic, err)
	}
	log.Info("Successfully created Kafka topic", "topic", tc.Topic)
	return nil
}
