// Package onnx serves an anomaly model exported to ONNX, such as a
// scikit-learn IsolationForest converted with skl2onnx.
package onnx

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// scoreOutput is the skl2onnx output holding decision_function values.
const scoreOutput = "scores"

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Model implements domain.AnomalyModel with an ONNX Runtime session.
// Session.Run is safe for concurrent callers.
type Model struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	numFeatures int
}

// NewModel loads the model at modelPath. libPath points at the ONNX Runtime
// shared library.
func NewModel(modelPath, libPath string) (*Model, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input tensor, got %d", len(inputs))
	}
	dims := inputs[0].Dimensions
	if len(dims) != 2 || dims[1] <= 0 {
		return nil, fmt.Errorf("onnx: expected input shape [batch, features], got %v", dims)
	}

	outputName, err := findOutput(outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &Model{
		session:     session,
		inputName:   inputs[0].Name,
		outputName:  outputName,
		numFeatures: int(dims[1]),
	}, nil
}

func findOutput(outputs []ort.InputOutputInfo) (string, error) {
	for _, o := range outputs {
		if o.Name == scoreOutput {
			return o.Name, nil
		}
	}
	if len(outputs) == 1 {
		return outputs[0].Name, nil
	}
	return "", fmt.Errorf("onnx: model has no %q output", scoreOutput)
}

// NumFeatures returns the model's input width.
func (m *Model) NumFeatures() int { return m.numFeatures }

// DecisionFunction implements domain.AnomalyModel for a single row.
func (m *Model) DecisionFunction(x []float64) (float64, error) {
	if len(x) != m.numFeatures {
		return 0, fmt.Errorf("onnx: expected %d features, got %d", m.numFeatures, len(x))
	}

	row := make([]float32, len(x))
	for i, v := range x {
		row[i] = float32(v)
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(row))), row)
	if err != nil {
		return 0, fmt.Errorf("onnx: failed to create %s tensor: %w", m.inputName, err)
	}
	defer input.Destroy()

	// A nil output is allocated by the runtime with the model's output shape.
	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return 0, fmt.Errorf("onnx: inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	scores, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("onnx: %s output is not a float32 tensor", m.outputName)
	}
	data := scores.GetData()
	if len(data) == 0 {
		return 0, errors.New("onnx: empty score output")
	}
	return float64(data[0]), nil
}

// Close releases the ONNX session.
func (m *Model) Close() error {
	return m.session.Destroy()
}
