//go:build integration

package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/training/internal/domain"
	"example.com/training/internal/persistence/postgres"
	"example.com/training/internal/testsupport"
)

type recordingProducer struct {
	mu     sync.Mutex
	err    error
	writes map[string][]kafka.Message
}

func (p *recordingProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.writes == nil {
		p.writes = make(map[string][]kafka.Message)
	}
	p.writes[topic] = append(p.writes[topic], msgs...)
	return nil
}

func recordTraining(t *testing.T, ctx context.Context, pool *pgxpool.Pool) domain.TrainingAggregate {
	t.Helper()
	service := domain.NewService(postgres.NewRepository(pool), nil)
	agg, _, err := service.RecordTraining(ctx, domain.RecordTrainingInput{
		TenantID: uuid.NewString(),
		UserID:   uuid.NewString(),
		Code:     "RUN",
		Data:     []float64{15000, 1, 75},
		Source:   "integration-test",
	})
	require.NoError(t, err)
	return *agg
}

func trainingState(t *testing.T, ctx context.Context, pool *pgxpool.Pool, id string) string {
	t.Helper()
	var state string
	require.NoError(t, pool.QueryRow(ctx, `SELECT processing_state FROM trainings WHERE training_id = $1`, id).Scan(&state))
	return state
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, batchDuration.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestDispatcherPublishesAndMarksTrainingSynced(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	agg := recordTraining(t, ctx, pool)

	producer := &recordingProducer{}
	registry := &stubRegistry{ids: map[string]int{"training_events-value": 3, "training_state_changed-value": 4}}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 10)

	beforeDelivered := testutil.ToFloat64(deliveredCounter)
	beforeSynced := testutil.ToFloat64(markedSyncedCounter)
	beforeBatches := histogramSampleCount(t)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes["training_events"], 1)
	require.Len(t, producer.writes["training_state_changed"], 1)
	require.Equal(t, beforeDelivered+2, testutil.ToFloat64(deliveredCounter))
	require.Equal(t, beforeSynced+1, testutil.ToFloat64(markedSyncedCounter))
	require.Greater(t, histogramSampleCount(t), beforeBatches)
	require.Equal(t, string(domain.TrainingStateSynced), trainingState(t, ctx, pool, agg.ID))

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Zero(t, pending)

	require.NoError(t, dispatcher.processBatch(ctx))
	require.Len(t, producer.writes["training_events"], 1)
}

func TestDispatcherFailureRoutesToDLQAndManagerRequeues(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	agg := recordTraining(t, ctx, pool)

	producer := &recordingProducer{err: errors.New("kafka write failed")}
	registry := &stubRegistry{ids: map[string]int{}}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 10)

	beforeFailed := testutil.ToFloat64(failedCounter)
	require.NoError(t, dispatcher.processBatch(ctx))
	require.Equal(t, beforeFailed+2, testutil.ToFloat64(failedCounter))
	require.Equal(t, string(domain.TrainingStateFailed), trainingState(t, ctx, pool, agg.ID))

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE aggregate_id = $1`, agg.ID).Scan(&dlqCount))
	require.Equal(t, 2, dlqCount)

	manager := NewDLQManager(pool, 3, time.Minute)
	processed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 2, processed)
	require.Zero(t, testutil.ToFloat64(dlqBacklogGauge))

	producer.err = nil
	require.NoError(t, dispatcher.processBatch(ctx))
	require.Len(t, producer.writes["training_events"], 1)
	require.Equal(t, string(domain.TrainingStateSynced), trainingState(t, ctx, pool, agg.ID))
}

func TestRepeatedDeliveryFailureRaisesRetryCount(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	agg := recordTraining(t, ctx, pool)

	producer := &recordingProducer{err: errors.New("kafka write failed")}
	dispatcher := NewDispatcher(pool, producer, &stubRegistry{ids: map[string]int{}}, 10*time.Millisecond, 10)
	manager := NewDLQManager(pool, 1, time.Minute)

	require.NoError(t, dispatcher.processBatch(ctx))
	processed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 2, processed)

	require.NoError(t, dispatcher.processBatch(ctx))

	var retries []int
	rows, err := pool.Query(ctx, `SELECT retry_count FROM outbox_dlq WHERE aggregate_id = $1`, agg.ID)
	require.NoError(t, err)
	for rows.Next() {
		var n int
		require.NoError(t, rows.Scan(&n))
		retries = append(retries, n)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []int{1, 1}, retries)

	_, err = manager.RunOnce(ctx, 10)
	require.NoError(t, err)

	var quarantined int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_dlq WHERE aggregate_id = $1 AND quarantined_at IS NOT NULL`, agg.ID).Scan(&quarantined))
	require.Equal(t, 2, quarantined)
}

func TestDLQManagerQuarantinesExhaustedEntries(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	tenantID := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO outbox_dlq (tenant_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count, next_retry_at)
         VALUES ($1, 1, 'training.recorded', 'training_events', '{}', 'boom', 'training', 'tr-1', 'training_events-value', 'k', 3, NOW())`,
		tenantID)
	require.NoError(t, err)

	quarantined := dlqProcessedCounter.WithLabelValues("training_events", "training.recorded", dlqOutcomeQuarantined)
	before := testutil.ToFloat64(quarantined)

	processed, err := NewDLQManager(pool, 3, time.Minute).RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, processed)
	require.Equal(t, before+1, testutil.ToFloat64(quarantined))

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT quarantine_reason FROM outbox_dlq WHERE tenant_id = $1 AND quarantined_at IS NOT NULL`, tenantID).Scan(&reason))
	require.Equal(t, quarantineReason, reason)
}

func TestDLQManagerReschedulesFailedRequeue(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	tenantID := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO outbox_dlq (tenant_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
         VALUES ($1, 1, 'training.recorded', 'training_events', '{}', 'boom', 'training', 'tr-1', '', 'k', NOW())`,
		tenantID)
	require.NoError(t, err)

	processed, err := NewDLQManager(pool, 3, time.Minute).RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	var (
		retries      int
		delaySeconds float64
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT retry_count, EXTRACT(EPOCH FROM next_retry_at - last_attempt_at)::float8 FROM outbox_dlq WHERE tenant_id = $1`, tenantID,
	).Scan(&retries, &delaySeconds))
	require.Equal(t, 1, retries)
	require.Equal(t, time.Minute.Seconds(), delaySeconds)
}
