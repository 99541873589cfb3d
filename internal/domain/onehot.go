package domain

import (
	"errors"
	"fmt"
)

// HandleUnknown selects how OneHotEncoder treats a category it was not fitted on.
type HandleUnknown string

const (
	// HandleUnknownIgnore encodes an unseen category as all zeros for that feature.
	HandleUnknownIgnore HandleUnknown = "ignore"
	// HandleUnknownError rejects an unseen category.
	HandleUnknownError HandleUnknown = "error"
)

// OneHotEncoder is a fitted one-hot encoder: one output slot per
// (feature, category) pair, in feature order then category order.
type OneHotEncoder struct {
	features      []string
	categories    [][]string
	handleUnknown HandleUnknown
	names         []string
	offsets       []map[string]int
}

// NewOneHotEncoder builds an encoder from fitted categories. categories[i]
// lists the categories of features[i]. Output columns are named
// "<feature>_<category>".
func NewOneHotEncoder(features []string, categories [][]string, handleUnknown HandleUnknown) (*OneHotEncoder, error) {
	if len(features) == 0 {
		return nil, errors.New("one-hot encoder: no input features")
	}
	if len(features) != len(categories) {
		return nil, fmt.Errorf("one-hot encoder: %d features but %d category lists", len(features), len(categories))
	}
	switch handleUnknown {
	case "":
		handleUnknown = HandleUnknownIgnore
	case HandleUnknownIgnore, HandleUnknownError:
	default:
		return nil, fmt.Errorf("one-hot encoder: unsupported handle_unknown %q", handleUnknown)
	}

	e := &OneHotEncoder{
		features:      append([]string(nil), features...),
		categories:    make([][]string, len(categories)),
		handleUnknown: handleUnknown,
		offsets:       make([]map[string]int, len(features)),
	}

	slot := 0
	for i, cats := range categories {
		if len(cats) == 0 {
			return nil, fmt.Errorf("one-hot encoder: feature %q has no categories", features[i])
		}
		e.categories[i] = append([]string(nil), cats...)
		e.offsets[i] = make(map[string]int, len(cats))
		for _, c := range cats {
			if _, dup := e.offsets[i][c]; dup {
				return nil, fmt.Errorf("one-hot encoder: feature %q has duplicate category %q", features[i], c)
			}
			e.offsets[i][c] = slot
			e.names = append(e.names, features[i]+"_"+c)
			slot++
		}
	}

	return e, nil
}

// Features returns the encoder's input feature names.
func (e *OneHotEncoder) Features() []string { return append([]string(nil), e.features...) }

// FeatureNamesOut implements CategoricalEncoder.
func (e *OneHotEncoder) FeatureNamesOut() []string { return append([]string(nil), e.names...) }

// Transform implements CategoricalEncoder.
func (e *OneHotEncoder) Transform(values []string) ([]float64, error) {
	if len(values) != len(e.features) {
		return nil, fmt.Errorf("expected %d categorical values, got %d", len(e.features), len(values))
	}

	out := make([]float64, len(e.names))
	for i, v := range values {
		slot, ok := e.offsets[i][v]
		if !ok {
			if e.handleUnknown == HandleUnknownError {
				return nil, fmt.Errorf("found unknown category %q in feature %q", v, e.features[i])
			}
			continue
		}
		out[slot] = 1
	}
	return out, nil
}
