package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/field-risk-service/internal/adapter/http"
	"github.com/couchcryptid/field-risk-service/internal/domain"
	"github.com/couchcryptid/field-risk-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockAssessor struct {
	assessment domain.Assessment
	err        error
	got        domain.InputRecord
}

func (m *mockAssessor) Assess(rec domain.InputRecord) (domain.Assessment, error) {
	m.got = rec
	return m.assessment, m.err
}

func newTestServer(assessor httpadapter.Assessor, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", assessor, &mockReadiness{err: readyErr},
		observability.NewMetricsForTesting(), slog.Default(), 1<<16)
}

func postPredict(t *testing.T, srv *httpadapter.Server, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	srv.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

const validBody = `{
	"soil_type": "loam",
	"crop_type": "corn",
	"tillage_type": "no-till",
	"season": "spring",
	"temp_7day_avg_f": 68,
	"precip_7day_total_in": 1.2
}`

func TestPredictReturnsAssessment(t *testing.T) {
	assessor := &mockAssessor{assessment: domain.Assessment{RiskPercentage: 68, RawAnomalyScore: -0.0703}}
	srv := newTestServer(assessor, nil)

	rec, body := postPredict(t, srv, validBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.InDelta(t, 68, body["risk_percentage"], 0)
	assert.InDelta(t, -0.0703, body["raw_anomaly_score"], 1e-12)
	assert.Equal(t, "loam", assessor.got[domain.FieldSoilType])
	assert.Equal(t, json.Number("68"), assessor.got[domain.FieldTempAvgF])
}

func TestPredictNoInput(t *testing.T) {
	for name, body := range map[string]string{
		"empty body":   "",
		"empty object": "{}",
		"null":         "null",
		"array":        `[{"soil_type": "loam"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			assessor := &mockAssessor{}
			srv := newTestServer(assessor, nil)

			rec, out := postPredict(t, srv, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "No input data provided", out["error"])
			assert.Nil(t, assessor.got)
		})
	}
}

func TestPredictInvalidJSON(t *testing.T) {
	srv := newTestServer(&mockAssessor{}, nil)

	rec, out := postPredict(t, srv, `{"soil_type": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", out["error"])
}

func TestPredictBodyTooLarge(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockAssessor{}, &mockReadiness{},
		observability.NewMetricsForTesting(), slog.Default(), 16)

	rec, out := postPredict(t, srv, validBody)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body too large", out["error"])
}

func TestPredictMissingFields(t *testing.T) {
	srv := newTestServer(domain.NewScorer(nil, domain.DefaultCalibration()), nil)
	// An unloaded scorer reports unavailability before validation.
	rec, out := postPredict(t, srv, `{"soil_type": "loam"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Model not loaded. Check server logs.", out["error"])

	missing := &domain.MissingFieldsError{
		Required: domain.RequiredFields(),
		Missing:  []string{domain.FieldSeason},
	}
	srv = newTestServer(&mockAssessor{err: missing}, nil)

	rec, out = postPredict(t, srv, `{"soil_type": "loam"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, missing.Error(), out["error"])
	assert.Contains(t, out["error"], "Need: [")
}

func TestPredictServerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"encoding", &domain.EncodingError{Err: errors.New("unknown category")}},
		{"prediction", &domain.PredictionError{Err: errors.New("model exploded")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockAssessor{err: tt.err}, nil)

			rec, out := postPredict(t, srv, validBody)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tt.err.Error(), out["error"])
		})
	}
}

func TestPredictRejectsGet(t *testing.T) {
	srv := newTestServer(&mockAssessor{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/predict", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockAssessor{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockAssessor{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockAssessor{}, fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockAssessor{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
