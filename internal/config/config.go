package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxRequestBytes int64

	// Artifact locations.
	ModelPath       string
	EncoderPath     string
	ONNXLibraryPath string

	// Risk calibration anchors for the raw decision score.
	RiskMinScore float64
	RiskMaxScore float64

	// Optional Kafka streaming transport.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	minScore, err := parseFloat("RISK_MIN_SCORE", -0.2)
	if err != nil {
		return nil, err
	}
	maxScore, err := parseFloat("RISK_MAX_SCORE", 0.2)
	if err != nil {
		return nil, err
	}

	maxRequestBytes, err := parseMaxRequestBytes()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxRequestBytes: maxRequestBytes,

		ModelPath:       sharedcfg.EnvOrDefault("MODEL_PATH", "models/isolation_forest.json"),
		EncoderPath:     sharedcfg.EnvOrDefault("ENCODER_PATH", "models/one_hot_encoder.json"),
		ONNXLibraryPath: sharedcfg.EnvOrDefault("ONNX_LIBRARY_PATH", "libonnxruntime.so"),

		RiskMinScore: minScore,
		RiskMaxScore: maxScore,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "field-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "field-risk-assessments"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "field-risk"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.RiskMinScore >= cfg.RiskMaxScore {
		return nil, errors.New("RISK_MIN_SCORE must be below RISK_MAX_SCORE")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseMaxRequestBytes() (int64, error) {
	s := os.Getenv("MAX_REQUEST_BYTES")
	if s == "" {
		return 64 << 10, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid MAX_REQUEST_BYTES")
	}
	return n, nil
}
