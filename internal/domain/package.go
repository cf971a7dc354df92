package domain

import (
	"fmt"
	"math"
)

// Package is one (code, raw data) pair as produced by a sensor feed.
type Package struct {
	Code string
	Data []float64
}

// ReadPackage resolves the workout code and builds the matching training from raw data.
// Data is ordered as action, duration, weight, then the type specific extras.
func ReadPackage(code string, data []float64) (Training, error) {
	workoutType, err := ParseWorkoutType(code)
	if err != nil {
		return nil, err
	}
	if len(data) != workoutType.Arity() {
		return nil, &ArgumentCountError{Type: workoutType, Want: workoutType.Arity(), Got: len(data)}
	}

	rec, err := recordFrom(data)
	if err != nil {
		return nil, fmt.Errorf("%s package: %w", workoutType, err)
	}

	var training Training
	switch workoutType {
	case WorkoutRunning:
		training, err = NewRunning(rec)
	case WorkoutWalking:
		training, err = NewWalking(rec, data[3])
	case WorkoutSwimming:
		training, err = NewSwimming(rec, data[3], data[4])
	}
	if err != nil {
		return nil, fmt.Errorf("%s package: %w", workoutType, err)
	}
	return training, nil
}

func recordFrom(data []float64) (Record, error) {
	action := data[0]
	if action < 0 || action != math.Trunc(action) || math.IsInf(action, 0) {
		return Record{}, ErrInvalidAction
	}
	return Record{
		Action:        int(action),
		DurationHours: data[1],
		WeightKg:      data[2],
	}, nil
}
