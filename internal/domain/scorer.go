package domain

import (
	"context"
	"errors"
	"fmt"
)

// Artifacts bundles the read-only fitted encoder, fitted model and column
// order. Build it once at startup and share it across requests.
type Artifacts struct {
	encoder CategoricalEncoder
	model   AnomalyModel
	columns ModelInputColumns
}

// NewArtifacts validates and bundles loaded artifacts. Any missing piece is
// reported as ErrArtifactsUnavailable.
func NewArtifacts(encoder CategoricalEncoder, model AnomalyModel, columns ModelInputColumns) (*Artifacts, error) {
	switch {
	case encoder == nil:
		return nil, fmt.Errorf("%w: no categorical encoder", ErrArtifactsUnavailable)
	case model == nil:
		return nil, fmt.Errorf("%w: no anomaly model", ErrArtifactsUnavailable)
	case columns.Len() == 0:
		return nil, fmt.Errorf("%w: no model input columns", ErrArtifactsUnavailable)
	}
	return &Artifacts{encoder: encoder, model: model, columns: columns}, nil
}

// Columns returns the model input column order.
func (a *Artifacts) Columns() ModelInputColumns { return a.columns }

// Scorer runs the full pipeline for one observation at a time. A Scorer
// holds no mutable state and may be shared between goroutines.
type Scorer struct {
	artifacts   *Artifacts
	calibration Calibration
}

// NewScorer creates a Scorer. A nil artifacts makes every call fail with
// ErrArtifactsUnavailable.
func NewScorer(artifacts *Artifacts, calibration Calibration) *Scorer {
	return &Scorer{artifacts: artifacts, calibration: calibration}
}

// Ready reports whether artifacts are loaded.
func (s *Scorer) Ready() bool { return s != nil && s.artifacts != nil }

// CheckReadiness returns ErrArtifactsUnavailable until artifacts are loaded.
func (s *Scorer) CheckReadiness(_ context.Context) error {
	if !s.Ready() {
		return ErrArtifactsUnavailable
	}
	return nil
}

// Features runs validation, encoding and assembly, returning the exact vector
// the model would receive.
func (s *Scorer) Features(rec InputRecord) (FeatureVector, error) {
	if !s.Ready() {
		return nil, ErrArtifactsUnavailable
	}
	rec, err := Validate(rec)
	if err != nil {
		return nil, err
	}
	enc, err := EncodeCategoricals(s.artifacts.encoder, rec)
	if err != nil {
		return nil, err
	}
	return AssembleFeatures(rec, enc, s.artifacts.columns)
}

// Assess scores one observation.
func (s *Scorer) Assess(rec InputRecord) (Assessment, error) {
	x, err := s.Features(rec)
	if err != nil {
		return Assessment{}, err
	}
	raw, err := ScoreAnomaly(s.artifacts.model, x)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{
		RiskPercentage:  s.calibration.Normalize(raw),
		RawAnomalyScore: raw,
	}, nil
}

// ErrorKind classifies a pipeline error for callers that map it onto a
// transport status or a metric label.
func ErrorKind(err error) string {
	var (
		mf *MissingFieldsError
		ee *EncodingError
		pe *PredictionError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrArtifactsUnavailable):
		return "unavailable"
	case errors.As(err, &mf):
		return "missing_fields"
	case errors.As(err, &ee):
		return "encoding_error"
	case errors.As(err, &pe):
		return "prediction_error"
	default:
		return "error"
	}
}
