package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := FromViper(viper.New())

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Empty(t, cfg.PostgresURL)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	require.Equal(t, 25, cfg.OutboxBatchSize)
	require.Equal(t, 5, cfg.DLQMaxRetries)
	require.Equal(t, []string{"training_events", "training_state_changed"}, cfg.ConsumerTopics)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("OUTBOX_POLL_INTERVAL", "750ms")
	t.Setenv("DLQ_MAX_RETRIES", "9")

	cfg := Load()

	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 750*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, 9, cfg.DLQMaxRetries)
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.yaml")
	require.NoError(t, os.WriteFile(path, []byte("POSTGRES_URL: postgres://local/fitness\nOUTBOX_BATCH_SIZE: 3\n"), 0o600))
	t.Setenv("TRAINING_CONFIG", path)

	cfg := Load()

	require.Equal(t, "postgres://local/fitness", cfg.PostgresURL)
	require.Equal(t, 3, cfg.OutboxBatchSize)
}

func TestSplitAndTrim(t *testing.T) {
	require.Empty(t, splitAndTrim(""))
	require.Equal(t, []string{"a", "b"}, splitAndTrim("a, b,"))
}
