package domain

import (
	"errors"
	"fmt"
)

// WorkoutType identifies a training kind by its short package code.
type WorkoutType string

const (
	WorkoutRunning  WorkoutType = "RUN"
	WorkoutWalking  WorkoutType = "WLK"
	WorkoutSwimming WorkoutType = "SWM"
)

var (
	// ErrUnsupportedWorkoutType is matched by *UnsupportedWorkoutTypeError.
	ErrUnsupportedWorkoutType = errors.New("unsupported workout type")
	// ErrInvalidArgumentCount is matched by *ArgumentCountError.
	ErrInvalidArgumentCount = errors.New("invalid argument count")
	// ErrInvalidDuration is returned when a training lasts zero or negative hours.
	ErrInvalidDuration = errors.New("duration must be > 0")
	// ErrInvalidAction is returned for negative or fractional action counts.
	ErrInvalidAction = errors.New("action must be a non-negative integer")
)

// UnsupportedWorkoutTypeError carries the code that failed to resolve.
type UnsupportedWorkoutTypeError struct {
	Code string
}

func (e *UnsupportedWorkoutTypeError) Error() string {
	return fmt.Sprintf("unsupported workout type '%s'", e.Code)
}

// Is reports ErrUnsupportedWorkoutType equivalence for errors.Is.
func (e *UnsupportedWorkoutTypeError) Is(target error) bool {
	return target == ErrUnsupportedWorkoutType
}

// ArgumentCountError reports a raw data length that does not match the workout arity.
type ArgumentCountError struct {
	Type WorkoutType
	Want int
	Got  int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("workout type %s expects %d values, got %d", e.Type, e.Want, e.Got)
}

// Is reports ErrInvalidArgumentCount equivalence for errors.Is.
func (e *ArgumentCountError) Is(target error) bool {
	return target == ErrInvalidArgumentCount
}

// ParseWorkoutType resolves a package code into a WorkoutType.
func ParseWorkoutType(code string) (WorkoutType, error) {
	switch t := WorkoutType(code); t {
	case WorkoutRunning, WorkoutWalking, WorkoutSwimming:
		return t, nil
	default:
		return "", &UnsupportedWorkoutTypeError{Code: code}
	}
}

// WorkoutTypes lists every supported type in dispatch-table order.
func WorkoutTypes() []WorkoutType {
	return []WorkoutType{WorkoutRunning, WorkoutWalking, WorkoutSwimming}
}

// Code returns the short package code.
func (t WorkoutType) Code() string {
	return string(t)
}

// Name returns the display name printed in summaries.
func (t WorkoutType) Name() string {
	switch t {
	case WorkoutRunning:
		return "Running"
	case WorkoutWalking:
		return "SportsWalking"
	case WorkoutSwimming:
		return "Swimming"
	default:
		return string(t)
	}
}

// Arity is the number of raw values a package of this type carries.
func (t WorkoutType) Arity() int {
	switch t {
	case WorkoutRunning:
		return 3
	case WorkoutWalking:
		return 4
	case WorkoutSwimming:
		return 5
	default:
		return 0
	}
}
