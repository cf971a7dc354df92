// Package events defines the training event payloads published through the outbox.
package events

import "time"

// TrainingRecorded represents the message emitted when a training is accepted and summarised.
type TrainingRecorded struct {
	TrainingID    string    `json:"training_id"`
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id"`
	WorkoutType   string    `json:"workout_type"`
	TrainingName  string    `json:"training_name"`
	StartedAt     time.Time `json:"started_at"`
	DurationHours float64   `json:"duration_h"`
	DistanceKm    float64   `json:"distance_km"`
	MeanSpeedKmh  float64   `json:"mean_speed_kmh"`
	CaloriesKcal  float64   `json:"calories_kcal"`
	Message       string    `json:"message"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
}

// TrainingStateChanged tracks state transitions (pending, synced, failed).
type TrainingStateChanged struct {
	TrainingID string    `json:"training_id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	State      string    `json:"state"`
	OccurredAt time.Time `json:"occurred_at"`
	Reason     string    `json:"reason,omitempty"`
}

const (
	TypeTrainingRecorded     = "training.recorded"
	TypeTrainingStateChanged = "training.state_changed"
)
