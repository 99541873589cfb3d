package domain

import (
	"fmt"
	"math"
)

// Default calibration anchors for the decision score.
const (
	DefaultMinScore = -0.2 // risk 100
	DefaultMaxScore = 0.2  // risk 0
)

// Calibration maps a raw decision score onto a 0–100 risk percentage.
type Calibration struct {
	MinScore float64
	MaxScore float64
}

// DefaultCalibration returns the production anchors.
func DefaultCalibration() Calibration {
	return Calibration{MinScore: DefaultMinScore, MaxScore: DefaultMaxScore}
}

// Validate rejects anchors that cannot define a linear scale.
func (c Calibration) Validate() error {
	if math.IsNaN(c.MinScore) || math.IsNaN(c.MaxScore) || c.MinScore >= c.MaxScore {
		return fmt.Errorf("invalid risk calibration: min %g must be below max %g", c.MinScore, c.MaxScore)
	}
	return nil
}

// Normalize returns 100*(max-s)/(max-min), clamped to [0, 100] and rounded
// half to even. NaN maps to 100.
func (c Calibration) Normalize(s float64) int {
	if math.IsNaN(s) {
		return 100
	}
	risk := 100 * (c.MaxScore - s) / (c.MaxScore - c.MinScore)
	risk = math.Max(0, math.Min(100, risk))
	return int(math.RoundToEven(risk))
}

// Normalize maps s with the default calibration.
func Normalize(s float64) int {
	return DefaultCalibration().Normalize(s)
}
