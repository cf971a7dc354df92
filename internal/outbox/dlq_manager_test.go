package outbox

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDLQBackoffDelayDoublesUpToOneHour(t *testing.T) {
	m := NewDLQManager(nil, 0, 0)
	require.Equal(t, defaultDLQMaxRetries, m.maxRetries)
	require.Equal(t, time.Minute, m.baseDelay)

	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 2*time.Minute, m.backoffDelay(2))
	require.Equal(t, 16*time.Minute, m.backoffDelay(5))
	require.Equal(t, time.Hour, m.backoffDelay(7))
	require.Equal(t, time.Hour, m.backoffDelay(20))
}

func TestDLQBackoffHonoursBaseDelay(t *testing.T) {
	m := NewDLQManager(nil, 3, 30*time.Second)
	require.Equal(t, 30*time.Second, m.backoffDelay(1))
	require.Equal(t, 2*time.Minute, m.backoffDelay(3))
}

func TestDLQOutcomeMetrics(t *testing.T) {
	entry := dlqEntry{Topic: "training_events", EventType: "training.recorded"}
	requeued := dlqProcessedCounter.WithLabelValues(entry.Topic, entry.EventType, dlqOutcomeRequeued)
	quarantined := dlqProcessedCounter.WithLabelValues(entry.Topic, entry.EventType, dlqOutcomeQuarantined)

	before := testutil.ToFloat64(requeued)
	recordDLQRequeued(entry)
	require.Equal(t, before+1, testutil.ToFloat64(requeued))

	before = testutil.ToFloat64(quarantined)
	recordDLQQuarantined(entry)
	require.Equal(t, before+1, testutil.ToFloat64(quarantined))
}
