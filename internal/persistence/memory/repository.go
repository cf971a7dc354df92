// Package memory keeps trainings in process memory for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/training/internal/domain"
)

type idempotencyKey struct {
	tenantID string
	userID   string
	key      string
}

// Repository implements domain.TrainingRepository without a database.
type Repository struct {
	mu          sync.RWMutex
	trainings   map[string]domain.TrainingAggregate
	idempotency map[idempotencyKey]string
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		trainings:   make(map[string]domain.TrainingAggregate),
		idempotency: make(map[idempotencyKey]string),
	}
}

// FindByIdempotency implements domain.TrainingRepository.
func (r *Repository) FindByIdempotency(_ context.Context, tenantID, userID, key string) (*domain.TrainingAggregate, error) {
	if key == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idempotency[idempotencyKey{tenantID: tenantID, userID: userID, key: key}]
	if !ok {
		return nil, nil
	}
	agg := clone(r.trainings[id])
	return &agg, nil
}

// Create implements domain.TrainingRepository.
func (r *Repository) Create(_ context.Context, aggregate domain.TrainingAggregate, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trainings[aggregate.ID] = clone(aggregate)
	if key != "" {
		r.idempotency[idempotencyKey{tenantID: aggregate.TenantID, userID: aggregate.UserID, key: key}] = aggregate.ID
	}
	return nil
}

// Get implements domain.TrainingRepository. Trainings of other tenants are invisible.
func (r *Repository) Get(_ context.Context, tenantID, trainingID string) (*domain.TrainingAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agg, ok := r.trainings[trainingID]
	if !ok || agg.TenantID != tenantID {
		return nil, nil
	}
	out := clone(agg)
	return &out, nil
}

// ListByUser implements domain.TrainingRepository with the same ordering as the Postgres store.
func (r *Repository) ListByUser(_ context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.TrainingAggregate, *domain.Cursor, error) {
	matches := r.userTrainings(tenantID, userID, time.Time{})
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].StartedAt.Equal(matches[j].StartedAt) {
			return matches[i].StartedAt.After(matches[j].StartedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	results := make([]domain.TrainingAggregate, 0, limit)
	for _, agg := range matches {
		if cursor != nil && !before(agg, *cursor) {
			continue
		}
		if len(results) == limit {
			break
		}
		results = append(results, agg)
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{StartedAt: last.StartedAt, ID: last.ID}
	}
	return results, next, nil
}

// StatsByUser implements domain.TrainingRepository.
func (r *Repository) StatsByUser(_ context.Context, tenantID, userID string, since time.Time) ([]domain.TypeTotals, *time.Time, error) {
	byType := make(map[domain.WorkoutType]*domain.TypeTotals)
	var last *time.Time
	for _, agg := range r.userTrainings(tenantID, userID, since) {
		t, ok := byType[agg.WorkoutType]
		if !ok {
			t = &domain.TypeTotals{WorkoutType: agg.WorkoutType}
			byType[agg.WorkoutType] = t
		}
		t.Count++
		t.DurationHours += agg.Summary.Duration
		t.DistanceKm += agg.Summary.Distance
		t.CaloriesKcal += agg.Summary.Calories
		if last == nil || agg.StartedAt.After(*last) {
			ts := agg.StartedAt
			last = &ts
		}
	}

	totals := make([]domain.TypeTotals, 0, len(byType))
	for _, t := range byType {
		totals = append(totals, *t)
	}
	return totals, last, nil
}

func (r *Repository) userTrainings(tenantID, userID string, since time.Time) []domain.TrainingAggregate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TrainingAggregate, 0)
	for _, agg := range r.trainings {
		if agg.TenantID != tenantID || agg.UserID != userID {
			continue
		}
		if !since.IsZero() && agg.StartedAt.Before(since) {
			continue
		}
		out = append(out, clone(agg))
	}
	return out
}

func before(agg domain.TrainingAggregate, cursor domain.Cursor) bool {
	if agg.StartedAt.Equal(cursor.StartedAt) {
		return agg.ID < cursor.ID
	}
	return agg.StartedAt.Before(cursor.StartedAt)
}

func clone(agg domain.TrainingAggregate) domain.TrainingAggregate {
	agg.Inputs = append([]float64(nil), agg.Inputs...)
	return agg
}
