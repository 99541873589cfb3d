package domain

import (
	"fmt"
	"math"
)

// AnomalyModel is a fitted unsupervised model. DecisionFunction returns a
// score where lower means more anomalous. Implementations must be safe for
// concurrent use.
type AnomalyModel interface {
	DecisionFunction(x []float64) (float64, error)
}

// ScoreAnomaly runs the model on one feature vector. Any model failure,
// including a panic or a non-finite score, is returned as a *PredictionError.
func ScoreAnomaly(model AnomalyModel, x FeatureVector) (score float64, err error) {
	if len(x) == 0 {
		return 0, &PredictionError{Err: ErrEmptyFeatureVector}
	}

	defer func() {
		if r := recover(); r != nil {
			score, err = 0, &PredictionError{Err: fmt.Errorf("model panic: %v", r)}
		}
	}()

	s, err := model.DecisionFunction(x)
	if err != nil {
		return 0, &PredictionError{Err: err}
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, &PredictionError{Err: fmt.Errorf("model returned non-finite score %v", s)}
	}
	return s, nil
}
