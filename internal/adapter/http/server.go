package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/field-risk-service/internal/domain"
	"github.com/couchcryptid/field-risk-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assessor scores one observation.
type Assessor interface {
	Assess(rec domain.InputRecord) (domain.Assessment, error)
}

// Server exposes the prediction API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	assessor   Assessor
	metrics    *observability.Metrics
	logger     *slog.Logger
	maxBody    int64
}

// NewServer creates an HTTP server with /api/predict, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, assessor Assessor, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger, maxBody int64) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		assessor: assessor,
		metrics:  metrics,
		logger:   logger,
		maxBody:  maxBody,
	}

	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rec, err := decodeRecord(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.metrics.ObservePrediction("http", "bad_request", 0, 0, time.Since(start))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := s.assessor.Assess(rec)
	outcome := domain.ErrorKind(err)
	s.metrics.ObservePrediction("http", outcome, assessment.RiskPercentage, assessment.RawAnomalyScore, time.Since(start))
	if err != nil {
		status, msg := errorResponse(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("prediction request failed", "error", err, "outcome", outcome)
		}
		writeError(w, status, msg)
		return
	}

	s.logger.Debug("prediction served",
		"risk_percentage", assessment.RiskPercentage,
		"raw_anomaly_score", assessment.RawAnomalyScore,
	)
	sharedobs.WriteJSON(w, http.StatusOK, assessment)
}

var errNoInput = errors.New("No input data provided") //nolint:staticcheck // user-facing message

// decodeRecord reads a single JSON object. Numbers are kept as json.Number.
func decodeRecord(body io.Reader) (domain.InputRecord, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoInput
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.New("request body too large")
		}
		return nil, errors.New("invalid JSON body")
	}

	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, errNoInput
	}
	return domain.InputRecord(obj), nil
}

// errorResponse maps pipeline failures to a status: incomplete input is the
// caller's to fix, everything else is a server-side failure.
func errorResponse(err error) (int, string) {
	var mf *domain.MissingFieldsError
	switch {
	case errors.As(err, &mf):
		return http.StatusBadRequest, mf.Error()
	case errors.Is(err, domain.ErrArtifactsUnavailable):
		return http.StatusServiceUnavailable, "Model not loaded. Check server logs."
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
