package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	dlqOutcomeRequeued    = "requeued"
	dlqOutcomeRescheduled = "rescheduled"
	dlqOutcomeQuarantined = "quarantined"
)

var (
	dlqProcessedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "dlq",
		Name:      "entries_processed_total",
		Help:      "DLQ entries handled by the manager, labeled by outcome.",
	}, []string{"topic", "event_type", "outcome"})

	dlqBacklogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "training_service",
		Subsystem: "dlq",
		Name:      "backlog_entries",
		Help:      "DLQ entries waiting for a retry (quarantined entries excluded).",
	})
)

func init() {
	prometheus.MustRegister(dlqProcessedCounter, dlqBacklogGauge)
}

func recordDLQRequeued(entry dlqEntry) {
	dlqProcessedCounter.WithLabelValues(entry.Topic, entry.EventType, dlqOutcomeRequeued).Inc()
}

func recordDLQRetry(entry dlqEntry) {
	dlqProcessedCounter.WithLabelValues(entry.Topic, entry.EventType, dlqOutcomeRescheduled).Inc()
}

func recordDLQQuarantined(entry dlqEntry) {
	dlqProcessedCounter.WithLabelValues(entry.Topic, entry.EventType, dlqOutcomeQuarantined).Inc()
}

// updateBacklogGauge refreshes the backlog gauge; a failed count keeps the previous value.
func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		return
	}
	dlqBacklogGauge.Set(float64(count))
}
