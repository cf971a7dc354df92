package domain

import "math"

const (
	MetersInKilometer = 1000
	MinutesInHour     = 60
	DefaultStepLength = 0.65
)

const (
	runningSpeedMultiplier = 18
	runningSpeedShift      = 1.79
)

const (
	walkingWeightMultiplier = 0.035
	walkingHeightMultiplier = 0.029
	walkingKmhToMs          = 0.278
	walkingCmInMeter        = 100
)

const (
	swimmingStepLength         = 1.38
	swimmingSpeedShift         = 1.1
	swimmingCaloriesMultiplier = 2
)

// Training is implemented by every concrete workout variant.
type Training interface {
	Type() WorkoutType
	Duration() float64
	Distance() float64
	MeanSpeed() float64
	SpentCalories() float64
}

// Record holds the inputs shared by every workout kind.
type Record struct {
	Action        int
	DurationHours float64
	WeightKg      float64
}

func (r Record) validate() error {
	if r.Action < 0 {
		return ErrInvalidAction
	}
	if r.DurationHours <= 0 || math.IsNaN(r.DurationHours) {
		return ErrInvalidDuration
	}
	return nil
}

// base carries the common inputs and default formulas. It does not satisfy Training.
type base struct {
	rec Record
}

func (b base) Duration() float64 { return b.rec.DurationHours }

// Record returns a copy of the shared inputs.
func (b base) Record() Record { return b.rec }

func (b base) distance(stepLength float64) float64 {
	return float64(b.rec.Action) * stepLength / MetersInKilometer
}

func (b base) meanSpeed(stepLength float64) float64 {
	return b.distance(stepLength) / b.rec.DurationHours
}

func (b base) minutes() float64 {
	return b.rec.DurationHours * MinutesInHour
}

// Running counts steps at the default step length.
type Running struct {
	base
}

// NewRunning validates the record and builds a Running training.
func NewRunning(rec Record) (Running, error) {
	if err := rec.validate(); err != nil {
		return Running{}, err
	}
	return Running{base{rec: rec}}, nil
}

func (Running) Type() WorkoutType { return WorkoutRunning }

func (r Running) Distance() float64 { return r.distance(DefaultStepLength) }

func (r Running) MeanSpeed() float64 { return r.meanSpeed(DefaultStepLength) }

func (r Running) SpentCalories() float64 {
	return (runningSpeedMultiplier*r.MeanSpeed() + runningSpeedShift) *
		r.rec.WeightKg / MetersInKilometer * r.minutes()
}

// Walking adds the walker's height to the calorie estimate.
type Walking struct {
	base
	heightCm float64
}

// NewWalking validates the record and builds a Walking training.
func NewWalking(rec Record, heightCm float64) (Walking, error) {
	if err := rec.validate(); err != nil {
		return Walking{}, err
	}
	return Walking{base: base{rec: rec}, heightCm: heightCm}, nil
}

func (Walking) Type() WorkoutType { return WorkoutWalking }

// HeightCm returns the walker's height in centimeters.
func (w Walking) HeightCm() float64 { return w.heightCm }

func (w Walking) Distance() float64 { return w.distance(DefaultStepLength) }

func (w Walking) MeanSpeed() float64 { return w.meanSpeed(DefaultStepLength) }

func (w Walking) SpentCalories() float64 {
	speedMs := w.MeanSpeed() * walkingKmhToMs
	heightM := w.heightCm / walkingCmInMeter
	weight := w.rec.WeightKg
	return (walkingWeightMultiplier*weight +
		(speedMs*speedMs/heightM)*walkingHeightMultiplier*weight) * w.minutes()
}

// Swimming derives speed from pool length and laps rather than strokes.
type Swimming struct {
	base
	poolLengthM float64
	poolLaps    float64
}

// NewSwimming validates the record and builds a Swimming training.
func NewSwimming(rec Record, poolLengthM, poolLaps float64) (Swimming, error) {
	if err := rec.validate(); err != nil {
		return Swimming{}, err
	}
	return Swimming{base: base{rec: rec}, poolLengthM: poolLengthM, poolLaps: poolLaps}, nil
}

func (Swimming) Type() WorkoutType { return WorkoutSwimming }

// PoolLengthM returns the pool length in meters.
func (s Swimming) PoolLengthM() float64 { return s.poolLengthM }

// PoolLaps returns the number of pool lengths swum.
func (s Swimming) PoolLaps() float64 { return s.poolLaps }

// Distance counts strokes at the swimming stroke length.
func (s Swimming) Distance() float64 { return s.distance(swimmingStepLength) }

func (s Swimming) MeanSpeed() float64 {
	return s.poolLengthM * s.poolLaps / MetersInKilometer / s.rec.DurationHours
}

func (s Swimming) SpentCalories() float64 {
	return (s.MeanSpeed() + swimmingSpeedShift) * swimmingCaloriesMultiplier *
		s.rec.WeightKg * s.rec.DurationHours
}

// Summarize computes distance, mean speed and calories, in that order.
func Summarize(t Training) Summary {
	distance := t.Distance()
	speed := t.MeanSpeed()
	calories := t.SpentCalories()
	return Summary{
		TrainingType: t.Type().Name(),
		Duration:     t.Duration(),
		Distance:     distance,
		Speed:        speed,
		Calories:     calories,
	}
}
