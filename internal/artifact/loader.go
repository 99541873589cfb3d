// Package artifact loads the fitted encoder and anomaly model the service
// scores with. Artifacts are read once at startup and never modified.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/field-risk-service/internal/adapter/onnx"
	"github.com/couchcryptid/field-risk-service/internal/domain"
)

// Backend names.
const (
	BackendForest = "forest"
	BackendONNX   = "onnx"
)

// Options locates the artifact files.
type Options struct {
	ModelPath       string
	EncoderPath     string
	ONNXLibraryPath string
}

// Bundle is the loaded, validated artifact set.
type Bundle struct {
	Artifacts *domain.Artifacts
	Backend   string
	closer    func() error
}

// Close releases model resources.
func (b *Bundle) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer()
}

// model is what a backend provides beyond scoring.
type model interface {
	domain.AnomalyModel
	NumFeatures() int
}

type featureNamer interface {
	FeatureNames() []string
}

// Load reads the encoder and model and derives the model input columns.
// Every failure wraps domain.ErrArtifactsUnavailable.
func Load(opts Options) (*Bundle, error) {
	enc, err := LoadEncoder(opts.EncoderPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrArtifactsUnavailable, err)
	}

	var (
		m       model
		backend string
		closer  func() error
	)
	switch strings.ToLower(filepath.Ext(opts.ModelPath)) {
	case ".onnx":
		om, err := onnx.NewModel(opts.ModelPath, opts.ONNXLibraryPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrArtifactsUnavailable, err)
		}
		m, backend, closer = om, BackendONNX, om.Close
	default:
		fm, err := LoadForest(opts.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrArtifactsUnavailable, err)
		}
		m, backend = fm, BackendForest
	}

	cols := columnsFor(enc, m)
	if cols.Len() != m.NumFeatures() {
		if closer != nil {
			_ = closer()
		}
		return nil, fmt.Errorf("%w: model expects %d features but %d input columns were derived",
			domain.ErrArtifactsUnavailable, m.NumFeatures(), cols.Len())
	}

	artifacts, err := domain.NewArtifacts(enc, m, cols)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}
	return &Bundle{Artifacts: artifacts, Backend: backend, closer: closer}, nil
}

// columnsFor prefers the column order recorded with the model at fit time
// and falls back to numerical columns followed by the encoder's outputs.
func columnsFor(enc domain.CategoricalEncoder, m model) domain.ModelInputColumns {
	if fn, ok := m.(featureNamer); ok {
		if names := fn.FeatureNames(); len(names) > 0 {
			return domain.NewModelInputColumns(names)
		}
	}
	return domain.DeriveModelInputColumns(enc.FeatureNamesOut())
}
