// Package observability registers process-wide Prometheus metrics for the training service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	summariesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "calculator",
		Name:      "summaries_total",
		Help:      "Number of training summaries computed, labeled by workout code.",
	}, []string{"workout_type"})

	distanceHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "training_service",
		Subsystem: "calculator",
		Name:      "distance_km",
		Help:      "Distribution of computed training distances in kilometers.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 21.1, 42.2},
	}, []string{"workout_type"})

	caloriesHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "training_service",
		Subsystem: "calculator",
		Name:      "calories_kcal",
		Help:      "Distribution of computed calories spent per training.",
		Buckets:   prometheus.ExponentialBuckets(25, 2, 8),
	}, []string{"workout_type"})

	trainingPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "training_service",
		Subsystem: "persistence",
		Name:      "last_training_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent training persisted to Postgres.",
	})
	trainingSyncedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "training_service",
		Subsystem: "persistence",
		Name:      "last_training_synced_timestamp_seconds",
		Help:      "Unix timestamp of the most recent training transitioned to synced.",
	})
)

func init() {
	prometheus.MustRegister(summariesCounter, distanceHistogram, caloriesHistogram, trainingPersistGauge, trainingSyncedGauge)
}

// RecordSummary counts a computed summary and observes its distance and calories.
func RecordSummary(workoutType string, distanceKm, caloriesKcal float64) {
	summariesCounter.WithLabelValues(workoutType).Inc()
	distanceHistogram.WithLabelValues(workoutType).Observe(distanceKm)
	caloriesHistogram.WithLabelValues(workoutType).Observe(caloriesKcal)
}

// RecordTrainingPersisted updates the persistence watermark gauge.
func RecordTrainingPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	trainingPersistGauge.Set(float64(ts.Unix()))
}

// RecordTrainingSynced updates the synced watermark gauge.
func RecordTrainingSynced(ts time.Time) {
	if ts.IsZero() {
		return
	}
	trainingSyncedGauge.Set(float64(ts.Unix()))
}
