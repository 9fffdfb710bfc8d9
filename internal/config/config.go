// Package config provides configuration structures and validation for the settlement services.
// It covers the HTTP server, databases, the message broker topology, consumer and publisher
// tuning, the daily scheduler and the settlement run itself.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Broker      BrokerConfig
	Consumer    ConsumerConfig
	Publisher   PublisherConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Scheduler   SchedulerConfig
	Settlement  SettlementConfig
	Metrics     MetricsConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka connection and client tuning
type KafkaConfig struct {
	Brokers           string
	NumPartitions     int // Number of partitions for declared topics
	ReplicationFactor int // Replication factor for declared topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	WriteTimeout      time.Duration
}

// BrokerConfig contains queue retention and retry limits
type BrokerConfig struct {
	QueueTTL       time.Duration
	QueueMaxLength int
	DLQTTL         time.Duration
	DLQMaxLength   int
	MaxRetries     int // Requeue attempts before a message is dead-lettered
}

// ConsumerConfig controls consumer parallelism and backpressure
type ConsumerConfig struct {
	Concurrency    int // Workers per live queue
	DLQConcurrency int // Workers per dead-letter queue
	Prefetch       int // Unacknowledged messages buffered per worker
}

// PublisherConfig contains the publish retry policy
type PublisherConfig struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration // Overall retry budget for one publish
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains the dashboard cache connection
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// SchedulerConfig describes the daily settlement trigger
type SchedulerConfig struct {
	Enabled   bool
	Timezone  string
	RunHour   int
	RunMinute int
}

// SettlementConfig contains settlement run limits
type SettlementConfig struct {
	Timezone             string        // Zone that defines a business day
	Timeout              time.Duration // Upper bound for one run's unit of work
	FailureRecordTimeout time.Duration // Upper bound for recording a failure
	PublishTimeout       time.Duration // Upper bound for announcing a committed run
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	Port int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	if c.Broker.QueueTTL <= 0 || c.Broker.DLQTTL <= 0 {
		validationErrors = append(validationErrors, "BROKER_QUEUE_TTL and BROKER_DLQ_TTL must be greater than 0")
	}
	if c.Broker.QueueMaxLength <= 0 || c.Broker.DLQMaxLength <= 0 {
		validationErrors = append(validationErrors, "BROKER_QUEUE_MAX_LENGTH and BROKER_DLQ_MAX_LENGTH must be greater than 0")
	}
	if c.Broker.MaxRetries < 0 {
		validationErrors = append(validationErrors, "BROKER_MAX_RETRIES must not be negative")
	}

	if c.Consumer.Concurrency < 1 || c.Consumer.Concurrency > 10 {
		validationErrors = append(validationErrors, "CONSUMER_CONCURRENCY must be between 1 and 10")
	}
	if c.Consumer.DLQConcurrency < 1 {
		validationErrors = append(validationErrors, "CONSUMER_DLQ_CONCURRENCY must be greater than 0")
	}
	if c.Consumer.Prefetch <= 0 {
		validationErrors = append(validationErrors, "CONSUMER_PREFETCH must be greater than 0")
	}

	if c.Publisher.InitialInterval <= 0 {
		validationErrors = append(validationErrors, "PUBLISHER_INITIAL_INTERVAL must be greater than 0")
	}
	if c.Publisher.Multiplier < 1 {
		validationErrors = append(validationErrors, "PUBLISHER_MULTIPLIER must be at least 1")
	}
	if c.Publisher.MaxInterval < c.Publisher.InitialInterval {
		validationErrors = append(validationErrors, "PUBLISHER_MAX_INTERVAL must not be less than PUBLISHER_INITIAL_INTERVAL")
	}
	if c.Publisher.MaxElapsedTime <= 0 {
		validationErrors = append(validationErrors, "PUBLISHER_MAX_ELAPSED_TIME must be greater than 0")
	}

	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required when REDIS_ENABLED is true")
	}

	if c.Scheduler.RunHour < 0 || c.Scheduler.RunHour > 23 {
		validationErrors = append(validationErrors, "SCHEDULER_RUN_HOUR must be between 0 and 23")
	}
	if c.Scheduler.RunMinute < 0 || c.Scheduler.RunMinute > 59 {
		validationErrors = append(validationErrors, "SCHEDULER_RUN_MINUTE must be between 0 and 59")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		validationErrors = append(validationErrors, "SCHEDULER_TIMEZONE must be a valid IANA zone")
	}
	if _, err := time.LoadLocation(c.Settlement.Timezone); err != nil {
		validationErrors = append(validationErrors, "SETTLEMENT_TIMEZONE must be a valid IANA zone")
	}

	if c.Settlement.Timeout <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_TIMEOUT must be greater than 0")
	}
	if c.Settlement.FailureRecordTimeout <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_FAILURE_RECORD_TIMEOUT must be greater than 0")
	}
	if c.Settlement.PublishTimeout <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_PUBLISH_TIMEOUT must be greater than 0")
	}

	if c.Metrics.Port <= 0 {
		validationErrors = append(validationErrors, "METRICS_PORT must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

// Location returns the zone that bounds a settlement day.
func (c SettlementConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
