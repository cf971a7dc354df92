// Package postgres stores trainings and their outbox events in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/training/internal/domain"
	"example.com/training/internal/events"
	"example.com/training/internal/observability"
)

const trainingColumns = `training_id, tenant_id, user_id, workout_type, inputs, training_name, duration_h, distance_km, mean_speed_kmh, calories_kcal, started_at, source, version, processing_state, created_at, updated_at`

// Repository provides Postgres-backed persistence for trainings and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// withTenant runs fn inside a transaction scoped to tenantID for row level security.
func (r *Repository) withTenant(ctx context.Context, tenantID string, fn func(pgx.Tx) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindByIdempotency checks if a training already exists for the supplied idempotency key.
func (r *Repository) FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.TrainingAggregate, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	query := `SELECT ` + trainingColumns + ` FROM trainings WHERE tenant_id=$1 AND user_id=$2 AND idempotency_key=$3`

	var found *domain.TrainingAggregate
	err := r.withTenant(ctx, tenantID, func(tx pgx.Tx) error {
		agg, err := scanTraining(tx.QueryRow(ctx, query, tenantID, userID, idempotencyKey))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = &agg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Create persists the aggregate and records outbox events inside a single transaction.
func (r *Repository) Create(ctx context.Context, aggregate domain.TrainingAggregate, idempotencyKey string) error {
	const insertTraining = `INSERT INTO trainings (training_id, tenant_id, user_id, workout_type, inputs, training_name, duration_h, distance_km, mean_speed_kmh, calories_kcal, started_at, source, idempotency_key, version, processing_state, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	err := r.withTenant(ctx, aggregate.TenantID, func(tx pgx.Tx) error {
		summary := aggregate.Summary
		if _, err := tx.Exec(ctx, insertTraining,
			aggregate.ID,
			aggregate.TenantID,
			aggregate.UserID,
			string(aggregate.WorkoutType),
			aggregate.Inputs,
			summary.TrainingType,
			summary.Duration,
			summary.Distance,
			summary.Speed,
			summary.Calories,
			aggregate.StartedAt,
			aggregate.Source,
			nullIfEmpty(idempotencyKey),
			aggregate.Version,
			string(aggregate.State),
			aggregate.CreatedAt,
			aggregate.UpdatedAt,
		); err != nil {
			return err
		}

		if err := insertOutbox(ctx, tx, aggregate, events.TypeTrainingRecorded, events.TrainingRecorded{
			TrainingID:    aggregate.ID,
			TenantID:      aggregate.TenantID,
			UserID:        aggregate.UserID,
			WorkoutType:   string(aggregate.WorkoutType),
			TrainingName:  summary.TrainingType,
			StartedAt:     aggregate.StartedAt,
			DurationHours: summary.Duration,
			DistanceKm:    summary.Distance,
			MeanSpeedKmh:  summary.Speed,
			CaloriesKcal:  summary.Calories,
			Message:       summary.Message(),
			Source:        aggregate.Source,
			Version:       aggregate.Version,
		}); err != nil {
			return err
		}

		return insertOutbox(ctx, tx, aggregate, events.TypeTrainingStateChanged, events.TrainingStateChanged{
			TrainingID: aggregate.ID,
			TenantID:   aggregate.TenantID,
			UserID:     aggregate.UserID,
			State:      string(aggregate.State),
			OccurredAt: aggregate.UpdatedAt,
		})
	})
	if err != nil {
		return err
	}
	observability.RecordTrainingPersisted(aggregate.UpdatedAt)
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregate domain.TrainingAggregate, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		aggregate.TenantID,
		"training",
		aggregate.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(aggregate),
		body,
		fmt.Sprintf("%s:%s", aggregate.ID, eventType),
	)
	return err
}

// Get retrieves a training by ID.
func (r *Repository) Get(ctx context.Context, tenantID, trainingID string) (*domain.TrainingAggregate, error) {
	query := `SELECT ` + trainingColumns + ` FROM trainings WHERE tenant_id=$1 AND training_id=$2`

	var found *domain.TrainingAggregate
	err := r.withTenant(ctx, tenantID, func(tx pgx.Tx) error {
		agg, err := scanTraining(tx.QueryRow(ctx, query, tenantID, trainingID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = &agg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListByUser returns trainings for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.TrainingAggregate, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + trainingColumns + ` FROM trainings WHERE tenant_id=$1 AND user_id=$2`
	if cursor != nil {
		query += ` AND (started_at, training_id) < ($4, $5)`
		args = append(args, cursor.StartedAt, cursor.ID)
	}
	query += ` ORDER BY started_at DESC, training_id DESC LIMIT $3`

	results := make([]domain.TrainingAggregate, 0, limit)
	err := r.withTenant(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			agg, err := scanTraining(rows)
			if err != nil {
				return err
			}
			results = append(results, agg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{StartedAt: last.StartedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

// StatsByUser totals trainings per workout type started at or after since.
func (r *Repository) StatsByUser(ctx context.Context, tenantID, userID string, since time.Time) ([]domain.TypeTotals, *time.Time, error) {
	const query = `SELECT workout_type, COUNT(*), COALESCE(SUM(duration_h),0), COALESCE(SUM(distance_km),0), COALESCE(SUM(calories_kcal),0), MAX(started_at)
        FROM trainings
        WHERE tenant_id=$1 AND user_id=$2 AND started_at >= $3
        GROUP BY workout_type`

	var (
		totals []domain.TypeTotals
		last   *time.Time
	)
	err := r.withTenant(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, userID, since)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				t      domain.TypeTotals
				wt     string
				latest time.Time
			)
			if err := rows.Scan(&wt, &t.Count, &t.DurationHours, &t.DistanceKm, &t.CaloriesKcal, &latest); err != nil {
				return err
			}
			t.WorkoutType = domain.WorkoutType(wt)
			totals = append(totals, t)
			if last == nil || latest.After(*last) {
				ts := latest.UTC()
				last = &ts
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}
	return totals, last, nil
}

func scanTraining(row pgx.Row) (domain.TrainingAggregate, error) {
	var (
		agg         domain.TrainingAggregate
		workoutType string
		state       string
	)
	err := row.Scan(
		&agg.ID, &agg.TenantID, &agg.UserID, &workoutType, &agg.Inputs,
		&agg.Summary.TrainingType, &agg.Summary.Duration, &agg.Summary.Distance, &agg.Summary.Speed, &agg.Summary.Calories,
		&agg.StartedAt, &agg.Source, &agg.Version, &state, &agg.CreatedAt, &agg.UpdatedAt,
	)
	if err != nil {
		return domain.TrainingAggregate{}, err
	}
	agg.WorkoutType = domain.WorkoutType(workoutType)
	agg.State = domain.TrainingState(state)
	return agg, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.TrainingAggregate) string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeTrainingRecorded: {
		Topic:         "training_events",
		SchemaSubject: "training_events-value",
		PartitionKeyFn: func(a domain.TrainingAggregate) string {
			return fmt.Sprintf("%s:%s", a.TenantID, a.UserID)
		},
	},
	events.TypeTrainingStateChanged: {
		Topic:         "training_state_changed",
		SchemaSubject: "training_state_changed-value",
		PartitionKeyFn: func(a domain.TrainingAggregate) string {
			return a.ID
		},
	},
}
