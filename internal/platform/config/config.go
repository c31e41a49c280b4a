package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures all externally supplied settings. Nothing in here is
// computed by the pipeline itself; main loads it once and hands slices of it
// to the components that need them.
type Config struct {
	HTTPAddr        string        `env:"WATCHTOWER_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"WATCHTOWER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	JWTSigningKey   string        `env:"WATCHTOWER_JWT_SIGNING_KEY,required"`

	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Alerting  AlertingConfig
	Retention RetentionConfig
}

// PostgresConfig holds connection settings for the audit and alert stores.
type PostgresConfig struct {
	DSN          string        `env:"WATCHTOWER_POSTGRES_DSN,required"`
	MaxOpenConns int           `env:"WATCHTOWER_POSTGRES_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int           `env:"WATCHTOWER_POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	ConnLifetime time.Duration `env:"WATCHTOWER_POSTGRES_CONN_LIFETIME" envDefault:"30m"`
}

// RedisConfig holds connection settings for the rate counter and
// suppression stores.
type RedisConfig struct {
	URL          string        `env:"WATCHTOWER_REDIS_URL,required"`
	PoolSize     int           `env:"WATCHTOWER_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"WATCHTOWER_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"WATCHTOWER_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"WATCHTOWER_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WATCHTOWER_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig holds broker settings for the job queue.
type KafkaConfig struct {
	Brokers       []string `env:"WATCHTOWER_KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	ConsumerGroup string   `env:"WATCHTOWER_KAFKA_CONSUMER_GROUP" envDefault:"watchtower-pipeline"`
	// TopicPartitions applies when the startup bootstrap has to create the
	// job topics on a fresh broker.
	TopicPartitions int32 `env:"WATCHTOWER_KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
}

// AlertingConfig tunes suppression and webhook delivery.
type AlertingConfig struct {
	SuppressionWindow  time.Duration `env:"WATCHTOWER_SUPPRESSION_WINDOW" envDefault:"15m"`
	WebhookURL         string        `env:"WATCHTOWER_WEBHOOK_URL"`
	WebhookMaxAttempts int           `env:"WATCHTOWER_WEBHOOK_MAX_ATTEMPTS" envDefault:"3"`
	WebhookBaseDelay   time.Duration `env:"WATCHTOWER_WEBHOOK_BASE_DELAY" envDefault:"5s"`
	WebhookTimeout     time.Duration `env:"WATCHTOWER_WEBHOOK_TIMEOUT" envDefault:"10s"`
}

// RetentionConfig tunes the archive-and-purge job.
type RetentionConfig struct {
	Days       int    `env:"WATCHTOWER_RETENTION_DAYS" envDefault:"90"`
	BatchSize  int    `env:"WATCHTOWER_RETENTION_BATCH_SIZE" envDefault:"500"`
	ArchiveDir string `env:"WATCHTOWER_ARCHIVE_DIR" envDefault:"./archives"`
	// Interval between archiver runs. Daily in production; short in tests.
	Interval time.Duration `env:"WATCHTOWER_RETENTION_INTERVAL" envDefault:"24h"`
}

// FromEnv builds the full config from environment variables so main stays lean.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config from env: %w", err)
	}
	return &cfg, nil
}
