package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

const eulerGamma = 0.5772156649015329

// Forest evaluates an exported scikit-learn IsolationForest. DecisionFunction
// reproduces the fitted model's decision_function: lower is more anomalous,
// negative values are outliers at the fitted contamination.
type Forest struct {
	numFeatures  int
	featureNames []string
	offset       float64
	denominator  float64
	trees        []isolationTree
}

type isolationTree struct {
	features      []int // column subset the tree was fitted on; nil means all
	childrenLeft  []int
	childrenRight []int
	feature       []int
	threshold     []float64
	leafPathAdj   []float64 // averagePathLength(n_node_samples) per node
}

// forestFile is the JSON export of a fitted IsolationForest: estimators_,
// estimators_features_, max_samples_, offset_ and feature_names_in_.
type forestFile struct {
	NumFeatures  int          `json:"n_features_in"`
	FeatureNames []string     `json:"feature_names_in"`
	MaxSamples   int          `json:"max_samples"`
	Offset       float64      `json:"offset"`
	Estimators   []forestTree `json:"estimators"`
}

type forestTree struct {
	Features      []int     `json:"features"`
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	NodeSamples   []int     `json:"n_node_samples"`
}

// LoadForest reads a JSON isolation forest export.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read forest: %w", err)
	}
	var f forestFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse forest: %w", err)
	}
	return newForest(f)
}

// newForest validates an export and precomputes per-leaf path adjustments.
func newForest(f forestFile) (*Forest, error) {
	if f.NumFeatures <= 0 {
		return nil, errors.New("forest: n_features_in must be positive")
	}
	if len(f.FeatureNames) > 0 && len(f.FeatureNames) != f.NumFeatures {
		return nil, fmt.Errorf("forest: %d feature names for %d features", len(f.FeatureNames), f.NumFeatures)
	}
	if f.MaxSamples <= 0 {
		return nil, errors.New("forest: max_samples must be positive")
	}
	if len(f.Estimators) == 0 {
		return nil, errors.New("forest: no estimators")
	}

	forest := &Forest{
		numFeatures:  f.NumFeatures,
		featureNames: append([]string(nil), f.FeatureNames...),
		offset:       f.Offset,
		denominator:  float64(len(f.Estimators)) * averagePathLength(f.MaxSamples),
		trees:        make([]isolationTree, 0, len(f.Estimators)),
	}
	if forest.denominator == 0 {
		return nil, errors.New("forest: max_samples too small to score")
	}

	for i, est := range f.Estimators {
		tree, err := newIsolationTree(est, f.NumFeatures)
		if err != nil {
			return nil, fmt.Errorf("forest: estimator %d: %w", i, err)
		}
		forest.trees = append(forest.trees, tree)
	}
	return forest, nil
}

func newIsolationTree(t forestTree, numFeatures int) (isolationTree, error) {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return isolationTree{}, errors.New("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.NodeSamples) != n {
		return isolationTree{}, errors.New("node arrays differ in length")
	}

	width := numFeatures
	if t.Features != nil && len(t.Features) == 0 {
		return isolationTree{}, errors.New("empty feature subset")
	}
	if len(t.Features) > 0 {
		for _, col := range t.Features {
			if col < 0 || col >= numFeatures {
				return isolationTree{}, fmt.Errorf("feature subset index %d out of range", col)
			}
		}
		width = len(t.Features)
	}

	adj := make([]float64, n)
	for node := range n {
		left, right := t.ChildrenLeft[node], t.ChildrenRight[node]
		if left == -1 {
			adj[node] = averagePathLength(t.NodeSamples[node])
			continue
		}
		if left <= node || left >= n || right <= node || right >= n {
			return isolationTree{}, fmt.Errorf("node %d has invalid children %d/%d", node, left, right)
		}
		if t.Feature[node] < 0 || t.Feature[node] >= width {
			return isolationTree{}, fmt.Errorf("node %d splits on feature %d outside %d columns", node, t.Feature[node], width)
		}
	}

	return isolationTree{
		features:      t.Features,
		childrenLeft:  t.ChildrenLeft,
		childrenRight: t.ChildrenRight,
		feature:       t.Feature,
		threshold:     t.Threshold,
		leafPathAdj:   adj,
	}, nil
}

// NumFeatures returns the input width the forest was fitted on.
func (f *Forest) NumFeatures() int { return f.numFeatures }

// FeatureNames returns the fitted column order, or nil if it was not exported.
func (f *Forest) FeatureNames() []string {
	if len(f.featureNames) == 0 {
		return nil
	}
	return append([]string(nil), f.featureNames...)
}

// DecisionFunction implements domain.AnomalyModel.
func (f *Forest) DecisionFunction(x []float64) (float64, error) {
	if len(x) != f.numFeatures {
		return 0, fmt.Errorf("forest: expected %d features, got %d", f.numFeatures, len(x))
	}

	var depths float64
	for i := range f.trees {
		depths += f.trees[i].pathLength(x)
	}
	score := -math.Pow(2, -depths/f.denominator)
	return score - f.offset, nil
}

// pathLength returns the depth of x's leaf plus the expected remaining depth
// of an unbuilt subtree holding the leaf's training samples.
func (t *isolationTree) pathLength(x []float64) float64 {
	node, depth := 0, 0
	for t.childrenLeft[node] != -1 {
		col := t.feature[node]
		if len(t.features) > 0 {
			col = t.features[col]
		}
		// Trees compare in float32, as they were fitted.
		if float64(float32(x[col])) <= t.threshold[node] {
			node = t.childrenLeft[node]
		} else {
			node = t.childrenRight[node]
		}
		depth++
	}
	return float64(depth) + t.leafPathAdj[node]
}

// averagePathLength is the mean path length of an unsuccessful search in a
// binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}
