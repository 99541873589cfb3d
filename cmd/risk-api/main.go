package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/field-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/field-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/field-risk-service/internal/artifact"
	"github.com/couchcryptid/field-risk-service/internal/config"
	"github.com/couchcryptid/field-risk-service/internal/domain"
	"github.com/couchcryptid/field-risk-service/internal/observability"
	"github.com/couchcryptid/field-risk-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	calibration := domain.Calibration{MinScore: cfg.RiskMinScore, MaxScore: cfg.RiskMaxScore}
	if err := calibration.Validate(); err != nil {
		logger.Error("invalid calibration", "error", err)
		os.Exit(1)
	}

	// The service still starts without artifacts: predictions return 503
	// and /readyz reports not ready.
	bundle, err := artifact.Load(artifact.Options{
		ModelPath:       cfg.ModelPath,
		EncoderPath:     cfg.EncoderPath,
		ONNXLibraryPath: cfg.ONNXLibraryPath,
	})
	var artifacts *domain.Artifacts
	if err != nil {
		logger.Error("failed to load artifacts", "error", err,
			"model_path", cfg.ModelPath, "encoder_path", cfg.EncoderPath)
		metrics.ArtifactsLoaded.Set(0)
	} else {
		artifacts = bundle.Artifacts
		metrics.ArtifactsLoaded.Set(1)
		logger.Info("artifacts loaded",
			"backend", bundle.Backend,
			"model_path", cfg.ModelPath,
			"encoder_path", cfg.EncoderPath,
			"columns", artifacts.Columns().Len(),
		)
	}
	scorer := domain.NewScorer(artifacts, calibration)

	srv := httpadapter.NewServer(cfg.HTTPAddr, scorer, scorer, metrics, logger, cfg.MaxRequestBytes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		done   = make(chan struct{})
	)
	if cfg.KafkaEnabled && scorer.Ready() {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(scorer, metrics, nil, logger)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

		go func() {
			defer close(done)
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		if cfg.KafkaEnabled {
			logger.Warn("kafka streaming disabled until artifacts are available")
		}
		close(done)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := bundle.Close(); err != nil {
		logger.Error("artifact close error", "error", err)
	}

	logger.Info("shutdown complete")
}
