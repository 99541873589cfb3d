package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrArtifactsUnavailable is returned for every request when the encoder,
// model or column order failed to load at startup.
var ErrArtifactsUnavailable = errors.New("model artifacts unavailable")

// ErrEmptyFeatureVector means the model input columns are empty, so there is
// nothing meaningful to score.
var ErrEmptyFeatureVector = errors.New("empty feature vector")

// MissingFieldsError reports an incomplete observation. Required always lists
// every required field, not only the absent ones.
type MissingFieldsError struct {
	Required []string
	Missing  []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("Missing required input fields. Need: [%s]", strings.Join(e.Required, ", "))
}

// EncodingError wraps a categorical encoder failure.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string { return "encode categorical features: " + e.Err.Error() }

func (e *EncodingError) Unwrap() error { return e.Err }

// PredictionError wraps an anomaly model failure.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string { return "prediction failed: " + e.Err.Error() }

func (e *PredictionError) Unwrap() error { return e.Err }

// IsClientError reports whether err was caused by the caller's input and can
// succeed once the input is corrected.
func IsClientError(err error) bool {
	var mf *MissingFieldsError
	return errors.As(err, &mf)
}
