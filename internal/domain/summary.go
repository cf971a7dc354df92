package domain

import (
	"fmt"
	"math"
)

const summaryTemplate = "Training type: %s; Duration: %.3f h; Distance: %.3f km; Mean speed: %.3f km/h; Calories spent: %.3f."

// Summary is the computed outcome of one training.
type Summary struct {
	TrainingType string  `json:"training_type"`
	Duration     float64 `json:"duration_h"`
	Distance     float64 `json:"distance_km"`
	Speed        float64 `json:"mean_speed_kmh"`
	Calories     float64 `json:"calories_kcal"`
}

// Message renders the summary as a single report line.
func (s Summary) Message() string {
	return fmt.Sprintf(summaryTemplate, s.TrainingType, s.Duration, s.Distance, s.Speed, s.Calories)
}

func (s Summary) finite() bool {
	for _, v := range []float64{s.Duration, s.Distance, s.Speed, s.Calories} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
