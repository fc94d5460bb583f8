// Package config loads the batcher's configuration from an optional YAML
// file overlaid with environment variables, following the teacher repo's
// LoadConfig/applyDefaults/ValidateConfig shape but using caarlos0/env for
// the environment overlay instead of hand-rolled os.Getenv parsing.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v2"
)

// BatcherSection mirrors internal/batcher.Config's YAML-facing shape.
type BatcherSection struct {
	ID                   string `yaml:"id" env:"NOTIFYHUB_BATCHER_ID"`
	MaxBatchSize         int    `yaml:"maxBatchSize" env:"NOTIFYHUB_MAX_BATCH_SIZE"`
	MaxWaitMs            int64  `yaml:"maxWaitMs" env:"NOTIFYHUB_MAX_WAIT_MS"`
	ConcurrentProcessors int    `yaml:"concurrentProcessors" env:"NOTIFYHUB_CONCURRENT_PROCESSORS"`
	Singleton            bool   `yaml:"singleton" env:"NOTIFYHUB_SINGLETON" envDefault:"true"`
}

// WebhookSinkConfig configures the illustrative webhook processor.
type WebhookSinkConfig struct {
	Enabled       bool   `yaml:"enabled" env:"NOTIFYHUB_WEBHOOK_ENABLED"`
	Endpoint      string `yaml:"endpoint" env:"NOTIFYHUB_WEBHOOK_ENDPOINT"`
	Token         string `yaml:"token" env:"NOTIFYHUB_WEBHOOK_TOKEN"`
	RateLimitRPS  int    `yaml:"rateLimitRps" env:"NOTIFYHUB_WEBHOOK_RATE_LIMIT_RPS" envDefault:"5"`
	FailThreshold int    `yaml:"failThreshold" env:"NOTIFYHUB_WEBHOOK_FAIL_THRESHOLD" envDefault:"5"`
	Development   bool   `yaml:"development" env:"NOTIFYHUB_WEBHOOK_DEV"`
}

// KafkaSinkConfig configures the illustrative Kafka processor.
type KafkaSinkConfig struct {
	Enabled bool     `yaml:"enabled" env:"NOTIFYHUB_KAFKA_ENABLED"`
	Brokers []string `yaml:"brokers" envSeparator:","  env:"NOTIFYHUB_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"NOTIFYHUB_KAFKA_TOPIC"`
}

// S3ArchiveSinkConfig configures the illustrative S3 archive processor.
type S3ArchiveSinkConfig struct {
	Enabled bool   `yaml:"enabled" env:"NOTIFYHUB_S3_ENABLED"`
	Bucket  string `yaml:"bucket" env:"NOTIFYHUB_S3_BUCKET"`
	Prefix  string `yaml:"prefix" env:"NOTIFYHUB_S3_PREFIX"`
	Region  string `yaml:"region" env:"NOTIFYHUB_S3_REGION"`
}

// NATSSinkConfig configures the illustrative NATS fan-out processor.
type NATSSinkConfig struct {
	Enabled bool   `yaml:"enabled" env:"NOTIFYHUB_NATS_ENABLED"`
	URL     string `yaml:"url" env:"NOTIFYHUB_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	Subject string `yaml:"subject" env:"NOTIFYHUB_NATS_SUBJECT" envDefault:"notifyhub.batches"`
}

// AuditSinkConfig configures the illustrative Postgres audit-trail processor.
type AuditSinkConfig struct {
	Enabled bool   `yaml:"enabled" env:"NOTIFYHUB_AUDIT_ENABLED"`
	DSN     string `yaml:"dsn" env:"NOTIFYHUB_AUDIT_DSN"`
}

// HTTPServerConfig configures the introspection HTTP server.
type HTTPServerConfig struct {
	Enabled bool   `yaml:"enabled" env:"NOTIFYHUB_HTTP_ENABLED" envDefault:"true"`
	Addr    string `yaml:"addr" env:"NOTIFYHUB_HTTP_ADDR" envDefault:":8401"`
}

// Config is the full configuration surface for a notifyhub deployment.
type Config struct {
	LogLevel   string              `yaml:"logLevel" env:"NOTIFYHUB_LOG_LEVEL" envDefault:"info"`
	Batcher    BatcherSection      `yaml:"batcher"`
	Webhook    WebhookSinkConfig   `yaml:"webhook"`
	Kafka      KafkaSinkConfig     `yaml:"kafka"`
	S3Archive  S3ArchiveSinkConfig `yaml:"s3archive"`
	NATS       NATSSinkConfig      `yaml:"nats"`
	Audit      AuditSinkConfig     `yaml:"audit"`
	HTTPServer HTTPServerConfig    `yaml:"httpServer"`
}

// Load reads configFile (if non-empty), applies defaults for anything the
// file left unset, and finally lets environment variables override both —
// the same file-then-defaults-then-env layering the teacher's LoadConfig
// uses, with caarlos0/env doing the overlay instead of hand-rolled parsing.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Batcher.ID == "" {
		cfg.Batcher.ID = "default"
	}
	if cfg.Batcher.MaxBatchSize == 0 {
		cfg.Batcher.MaxBatchSize = 100
	}
	if cfg.Batcher.MaxWaitMs == 0 {
		cfg.Batcher.MaxWaitMs = 60000
	}
	if cfg.Batcher.ConcurrentProcessors == 0 {
		cfg.Batcher.ConcurrentProcessors = 3
	}
}

// Validate rejects configuration combinations that would otherwise fail at
// runtime with a less obvious error (an enabled sink missing its required
// field).
func Validate(cfg *Config) error {
	if cfg.Batcher.MaxBatchSize <= 0 {
		return fmt.Errorf("batcher.maxBatchSize must be positive")
	}
	if cfg.Batcher.MaxWaitMs <= 0 {
		return fmt.Errorf("batcher.maxWaitMs must be positive")
	}
	if cfg.Batcher.ConcurrentProcessors <= 0 {
		return fmt.Errorf("batcher.concurrentProcessors must be positive")
	}
	if cfg.Webhook.Enabled && cfg.Webhook.Endpoint == "" {
		return fmt.Errorf("webhook.endpoint is required when webhook is enabled")
	}
	if cfg.Kafka.Enabled && (len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if cfg.S3Archive.Enabled && cfg.S3Archive.Bucket == "" {
		return fmt.Errorf("s3archive.bucket is required when s3archive is enabled")
	}
	if cfg.Audit.Enabled && cfg.Audit.DSN == "" {
		return fmt.Errorf("audit.dsn is required when audit is enabled")
	}
	return nil
}
