package domain

import "time"

// TrainingState represents the delivery status of a recorded training.
type TrainingState string

const (
	TrainingStatePending TrainingState = "pending"
	TrainingStateSynced  TrainingState = "synced"
	TrainingStateFailed  TrainingState = "failed"
)

// TrainingAggregate is the persisted training: raw package plus its computed summary.
type TrainingAggregate struct {
	ID          string
	TenantID    string
	UserID      string
	WorkoutType WorkoutType
	Inputs      []float64
	Summary     Summary
	StartedAt   time.Time
	Source      string
	Version     string
	State       TrainingState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Cursor models the pagination token.
type Cursor struct {
	StartedAt time.Time
	ID        string
}

// TypeTotals accumulates trainings of a single workout type.
type TypeTotals struct {
	WorkoutType   WorkoutType `json:"workout_type"`
	Count         int         `json:"count"`
	DurationHours float64     `json:"duration_h"`
	DistanceKm    float64     `json:"distance_km"`
	CaloriesKcal  float64     `json:"calories_kcal"`
}

// TrainingStats summarises a user's trainings over a window.
type TrainingStats struct {
	Count          int          `json:"count"`
	DurationHours  float64      `json:"duration_h"`
	DistanceKm     float64      `json:"distance_km"`
	CaloriesKcal   float64      `json:"calories_kcal"`
	MeanSpeedKmh   float64      `json:"mean_speed_kmh"`
	ByType         []TypeTotals `json:"by_type"`
	LastTrainingAt *time.Time   `json:"last_training_at,omitempty"`
	WindowSeconds  int64        `json:"window_seconds"`
}

// NewTrainingStats folds per-type totals into overall stats ordered by workout type.
func NewTrainingStats(totals []TypeTotals, last *time.Time, window time.Duration) TrainingStats {
	byType := make(map[WorkoutType]TypeTotals, len(totals))
	for _, t := range totals {
		acc := byType[t.WorkoutType]
		acc.WorkoutType = t.WorkoutType
		acc.Count += t.Count
		acc.DurationHours += t.DurationHours
		acc.DistanceKm += t.DistanceKm
		acc.CaloriesKcal += t.CaloriesKcal
		byType[t.WorkoutType] = acc
	}

	stats := TrainingStats{
		ByType:         make([]TypeTotals, 0, len(byType)),
		LastTrainingAt: last,
		WindowSeconds:  int64(window / time.Second),
	}
	for _, wt := range WorkoutTypes() {
		t, ok := byType[wt]
		if !ok {
			continue
		}
		stats.ByType = append(stats.ByType, t)
		stats.Count += t.Count
		stats.DurationHours += t.DurationHours
		stats.DistanceKm += t.DistanceKm
		stats.CaloriesKcal += t.CaloriesKcal
	}
	if stats.DurationHours > 0 {
		stats.MeanSpeedKmh = stats.DistanceKm / stats.DurationHours
	}
	return stats
}
