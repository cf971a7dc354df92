// Package domain defines the training calculations and the business logic around recorded trainings.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/training/internal/cache"
	"example.com/training/internal/observability"
)

var (
	// ErrTrainingNotFound is returned when a training cannot be located.
	ErrTrainingNotFound = errors.New("training not found")
	// ErrUserIDRequired is returned by per-user queries called without a user.
	ErrUserIDRequired = errors.New("user_id is required")
	// ErrNonFiniteSummary is returned when a package yields an infinite or NaN value, e.g. a zero height.
	ErrNonFiniteSummary = errors.New("package produces a non-finite summary")
)

// TrainingRepository captures persistence operations.
type TrainingRepository interface {
	FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*TrainingAggregate, error)
	Create(ctx context.Context, aggregate TrainingAggregate, idempotencyKey string) error
	Get(ctx context.Context, tenantID, trainingID string) (*TrainingAggregate, error)
	ListByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]TrainingAggregate, *Cursor, error)
	StatsByUser(ctx context.Context, tenantID, userID string, since time.Time) ([]TypeTotals, *time.Time, error)
}

// Service orchestrates training workflows.
type Service struct {
	repo  TrainingRepository
	cache cache.StatsCache
	now   func() time.Time
}

// NewService constructs a Service. A nil cache disables stats caching.
func NewService(repo TrainingRepository, statsCache cache.StatsCache) *Service {
	if statsCache == nil {
		statsCache = cache.NoopCache{}
	}
	return &Service{repo: repo, cache: statsCache, now: time.Now}
}

// RecordTrainingInput captures the payload from the API layer.
type RecordTrainingInput struct {
	TenantID       string
	UserID         string
	Code           string
	Data           []float64
	StartedAt      time.Time
	Source         string
	IdempotencyKey string
}

// Summarize runs a package through the calculator without persisting anything.
func (s *Service) Summarize(code string, data []float64) (Summary, error) {
	training, err := ReadPackage(code, data)
	if err != nil {
		return Summary{}, err
	}
	summary := Summarize(training)
	if !summary.finite() {
		return Summary{}, ErrNonFiniteSummary
	}
	observability.RecordSummary(training.Type().Code(), summary.Distance, summary.Calories)
	return summary, nil
}

// RecordTraining computes the summary and stores it with idempotent create semantics.
func (s *Service) RecordTraining(ctx context.Context, input RecordTrainingInput) (*TrainingAggregate, bool, error) {
	if existing, err := s.repo.FindByIdempotency(ctx, input.TenantID, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
		return existing, true, nil
	}

	training, err := ReadPackage(input.Code, input.Data)
	if err != nil {
		return nil, false, err
	}
	summary := Summarize(training)
	if !summary.finite() {
		return nil, false, ErrNonFiniteSummary
	}

	now := s.now().UTC()
	startedAt := input.StartedAt.UTC()
	if input.StartedAt.IsZero() {
		startedAt = now
	}
	aggregate := TrainingAggregate{
		ID:          uuid.NewString(),
		TenantID:    input.TenantID,
		UserID:      input.UserID,
		WorkoutType: training.Type(),
		Inputs:      append([]float64(nil), input.Data...),
		Summary:     summary,
		StartedAt:   startedAt,
		Source:      input.Source,
		Version:     "v1",
		State:       TrainingStatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, aggregate, input.IdempotencyKey); err != nil {
		return nil, false, err
	}
	observability.RecordSummary(training.Type().Code(), summary.Distance, summary.Calories)

	// Invalidation failures never fail a committed write.
	if err := s.cache.Invalidate(ctx, statsKey(input.TenantID, input.UserID)); err != nil {
		log.Printf("stats cache invalidation failed (tenant=%s, user=%s): %v", input.TenantID, input.UserID, err)
	}

	return &aggregate, false, nil
}

// GetTraining fetches by ID.
func (s *Service) GetTraining(ctx context.Context, tenantID, trainingID string) (*TrainingAggregate, error) {
	agg, err := s.repo.Get(ctx, tenantID, trainingID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, ErrTrainingNotFound
	}
	return agg, nil
}

// ListTrainingsByUser fetches trainings with cursor pagination.
func (s *Service) ListTrainingsByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]TrainingAggregate, *Cursor, error) {
	return s.repo.ListByUser(ctx, tenantID, userID, cursor, limit)
}

// GetTrainingStats totals a user's trainings started within window; a zero window covers all history.
func (s *Service) GetTrainingStats(ctx context.Context, tenantID, userID string, window time.Duration) (TrainingStats, error) {
	if strings.TrimSpace(userID) == "" {
		return TrainingStats{}, ErrUserIDRequired
	}

	key := statsKey(tenantID, userID)
	field := strconv.FormatInt(int64(window/time.Second), 10)
	if raw, ok, err := s.cache.Get(ctx, key, field); err == nil && ok {
		var cached TrainingStats
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	var since time.Time
	if window > 0 {
		since = s.now().UTC().Add(-window)
	}
	totals, last, err := s.repo.StatsByUser(ctx, tenantID, userID, since)
	if err != nil {
		return TrainingStats{}, err
	}
	stats := NewTrainingStats(totals, last, window)

	if raw, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, field, raw); err != nil {
			log.Printf("stats cache write failed (tenant=%s, user=%s): %v", tenantID, userID, err)
		}
	}
	return stats, nil
}

func statsKey(tenantID, userID string) string {
	return fmt.Sprintf("training-stats:%s:%s", tenantID, userID)
}
