package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/field-risk-service/internal/domain"
	"github.com/couchcryptid/field-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Assessor scores one observation.
type Assessor interface {
	Assess(rec domain.InputRecord) (domain.Assessment, error)
}

// ErrNoInput reports a message whose value is not a non-empty JSON object.
var ErrNoInput = errors.New("no input data provided")

// RiskTransformer implements Transformer by decoding an observation and
// running it through an Assessor.
type RiskTransformer struct {
	assessor Assessor
	metrics  *observability.Metrics
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewTransformer creates a RiskTransformer. A nil clock uses the real clock.
func NewTransformer(assessor Assessor, metrics *observability.Metrics, clock clockwork.Clock, logger *slog.Logger) *RiskTransformer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RiskTransformer{
		assessor: assessor,
		metrics:  metrics,
		clock:    clock,
		logger:   logger,
	}
}

func (t *RiskTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	start := t.clock.Now()

	rec, err := decodeObservation(raw.Value)
	if err != nil {
		t.metrics.ObservePrediction("kafka", "bad_request", 0, 0, t.clock.Since(start))
		return domain.OutputEvent{}, err
	}

	assessment, err := t.assessor.Assess(rec)
	t.metrics.ObservePrediction("kafka", domain.ErrorKind(err), assessment.RiskPercentage, assessment.RawAnomalyScore, t.clock.Since(start))
	if err != nil {
		return domain.OutputEvent{}, err
	}

	scored := domain.ScoredObservation{
		ObservationID: string(raw.Key),
		Assessment:    assessment,
		ScoredAt:      t.clock.Now().UTC(),
	}
	return serializeScored(raw.Key, scored)
}

func decodeObservation(value []byte) (domain.InputRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode observation: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, ErrNoInput
	}
	return domain.InputRecord(obj), nil
}

func serializeScored(key []byte, scored domain.ScoredObservation) (domain.OutputEvent, error) {
	data, err := json.Marshal(scored)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return domain.OutputEvent{
		Key:   key,
		Value: data,
		Headers: map[string]string{
			"risk_percentage": strconv.Itoa(scored.RiskPercentage),
			"scored_at":       scored.ScoredAt.Format(time.RFC3339),
		},
	}, nil
}
