// Command score runs observations from a file through the risk pipeline
// without starting the service. Input is JSON (one object, an array of
// objects, or one object per line) or CSV with a header row. Each result is
// written to stdout as one JSON line.
//
// Usage:
//
//	go run ./cmd/score \
//	  -model models/isolation_forest.json \
//	  -encoder models/one_hot_encoder.json \
//	  -input observations.csv
package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/field-risk-service/internal/artifact"
	"github.com/couchcryptid/field-risk-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

type result struct {
	Row             int      `json:"row"`
	RiskPercentage  *int     `json:"risk_percentage,omitempty"`
	RawAnomalyScore *float64 `json:"raw_anomaly_score,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func main() {
	modelPath := flag.String("model", sharedcfg.EnvOrDefault("MODEL_PATH", "models/isolation_forest.json"), "path to the fitted model (.json forest or .onnx)")
	encoderPath := flag.String("encoder", sharedcfg.EnvOrDefault("ENCODER_PATH", "models/one_hot_encoder.json"), "path to the fitted one-hot encoder")
	onnxLib := flag.String("onnx-lib", sharedcfg.EnvOrDefault("ONNX_LIBRARY_PATH", "libonnxruntime.so"), "onnxruntime shared library, used for .onnx models")
	input := flag.String("input", "-", "observations file, or - for stdin")
	format := flag.String("format", "", "input format: json or csv (default: from file extension)")
	minScore := flag.Float64("min-score", domain.DefaultMinScore, "decision score mapped to risk 100")
	maxScore := flag.Float64("max-score", domain.DefaultMaxScore, "decision score mapped to risk 0")
	flag.Parse()

	if err := run(*modelPath, *encoderPath, *onnxLib, *input, *format, domain.Calibration{MinScore: *minScore, MaxScore: *maxScore}); err != nil {
		fmt.Fprintln(os.Stderr, "score:", err)
		os.Exit(1)
	}
}

func run(modelPath, encoderPath, onnxLib, input, format string, cal domain.Calibration) error {
	if err := cal.Validate(); err != nil {
		return err
	}

	bundle, err := artifact.Load(artifact.Options{
		ModelPath:       modelPath,
		EncoderPath:     encoderPath,
		ONNXLibraryPath: onnxLib,
	})
	if err != nil {
		return err
	}
	defer bundle.Close()

	r, closeInput, err := openInput(input)
	if err != nil {
		return err
	}
	defer closeInput()

	if format == "" {
		format = formatFromPath(input)
	}

	var records []domain.InputRecord
	switch format {
	case "csv":
		records, err = readCSV(r)
	case "json":
		records, err = readJSON(r)
	default:
		return fmt.Errorf("unknown input format %q", format)
	}
	if err != nil {
		return err
	}

	failed := score(domain.NewScorer(bundle.Artifacts, cal), records, os.Stdout)
	if failed > 0 {
		return fmt.Errorf("%d of %d observations failed", failed, len(records))
	}
	return nil
}

// score writes one result line per record and returns the number of failures.
func score(scorer *domain.Scorer, records []domain.InputRecord, w io.Writer) int {
	out := bufio.NewWriter(w)
	defer out.Flush()
	enc := json.NewEncoder(out)

	failed := 0
	for i, rec := range records {
		res := result{Row: i + 1}
		a, err := scorer.Assess(rec)
		if err != nil {
			res.Error = err.Error()
			failed++
		} else {
			res.RiskPercentage = &a.RiskPercentage
			res.RawAnomalyScore = &a.RawAnomalyScore
		}
		_ = enc.Encode(res)
	}
	return failed
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "csv"
	}
	return "json"
}

// readCSV maps each row onto the header names. Empty cells are left out so
// they are reported as missing fields.
func readCSV(r io.Reader) ([]domain.InputRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []domain.InputRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rec := make(domain.InputRecord, len(header))
		for i, v := range row {
			if i < len(header) && strings.TrimSpace(v) != "" {
				rec[header[i]] = strings.TrimSpace(v)
			}
		}
		records = append(records, rec)
	}
}

// readJSON accepts a stream of JSON values, each an object or an array of
// objects.
func readJSON(r io.Reader) ([]domain.InputRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []domain.InputRecord
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		switch val := v.(type) {
		case map[string]any:
			records = append(records, val)
		case []any:
			for i, item := range val {
				obj, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("array element %d is not an object", i)
				}
				records = append(records, obj)
			}
		default:
			return nil, fmt.Errorf("unexpected JSON value of type %T", v)
		}
	}
}
