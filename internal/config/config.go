// Package config centralises configuration parsing for the training service binaries.
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures runtime configuration values for the training service.
type Config struct {
	HTTPAddress        string
	MetricsAddress     string
	PostgresURL        string
	RedisAddr          string
	RedisPassword      string
	StatsCacheTTL      time.Duration
	KafkaBrokers       []string
	SchemaRegistryURL  string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	JWTSecret          string
	JWTIssuer          string
	DLQPollInterval    time.Duration // Interval between DLQ polling iterations.
	DLQMaxRetries      int           // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay       time.Duration // Base delay used for exponential backoff.
	ConsumerGroupID    string
	ConsumerTopics     []string
	CORSAllowedOrigins []string
}

// Load reads environment variables (and the optional TRAINING_CONFIG file) into Config,
// applying defaults for local dev. A file that fails to parse is reported and ignored.
func Load() Config {
	v := viper.New()
	if err := readConfigFile(v); err != nil {
		log.Printf("config: ignoring config file: %v", err)
	}
	return FromViper(v)
}

// FromViper builds a Config from an already prepared viper instance.
func FromViper(v *viper.Viper) Config {
	setDefaults(v)
	v.AutomaticEnv()

	return Config{
		HTTPAddress:        v.GetString("HTTP_ADDRESS"),
		MetricsAddress:     v.GetString("METRICS_ADDRESS"),
		PostgresURL:        v.GetString("POSTGRES_URL"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		StatsCacheTTL:      v.GetDuration("STATS_CACHE_TTL"),
		KafkaBrokers:       splitAndTrim(v.GetString("KAFKA_BROKERS")),
		SchemaRegistryURL:  v.GetString("SCHEMA_REGISTRY_URL"),
		OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		OutboxBatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		DLQPollInterval:    v.GetDuration("DLQ_POLL_INTERVAL"),
		DLQMaxRetries:      v.GetInt("DLQ_MAX_RETRIES"),
		DLQBaseDelay:       v.GetDuration("DLQ_BASE_DELAY"),
		ConsumerGroupID:    v.GetString("CONSUMER_GROUP_ID"),
		ConsumerTopics:     splitAndTrim(v.GetString("CONSUMER_TOPICS")),
		CORSAllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
	}
}

func readConfigFile(v *viper.Viper) error {
	_ = v.BindEnv("TRAINING_CONFIG")
	path := v.GetString("TRAINING_CONFIG")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return v.ReadInConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("METRICS_ADDRESS", ":9102")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("STATS_CACHE_TTL", 5*time.Minute)
	v.SetDefault("KAFKA_BROKERS", "kafka:9092")
	v.SetDefault("SCHEMA_REGISTRY_URL", "http://schema-registry:8081")
	v.SetDefault("OUTBOX_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("OUTBOX_BATCH_SIZE", 25)
	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_ISSUER", "i5e.identity")
	v.SetDefault("DLQ_POLL_INTERVAL", 30*time.Second)
	v.SetDefault("DLQ_MAX_RETRIES", 5)
	v.SetDefault("DLQ_BASE_DELAY", time.Minute)
	v.SetDefault("CONSUMER_GROUP_ID", "training-event-log")
	v.SetDefault("CONSUMER_TOPICS", "training_events,training_state_changed")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
