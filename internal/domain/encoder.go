package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CategoricalEncoder is a fitted transform from categorical values to a
// fixed-width numeric representation. Implementations must be safe for
// concurrent use and must not change after construction.
type CategoricalEncoder interface {
	// Transform encodes one row of values given in CategoricalFields order.
	Transform(values []string) ([]float64, error)

	// FeatureNamesOut labels each slot produced by Transform, in order.
	FeatureNamesOut() []string
}

// EncodedCategoricalVector is one request's encoder output and its labels.
type EncodedCategoricalVector struct {
	Columns []string
	Values  []float64
}

// EncodeCategoricals applies the fitted encoder to the categorical subset of
// a validated record. Non-string values are formatted with their natural
// string form before lookup.
func EncodeCategoricals(enc CategoricalEncoder, rec InputRecord) (EncodedCategoricalVector, error) {
	values := make([]string, len(categoricalFields))
	for i, f := range categoricalFields {
		values[i] = categoryString(rec[f])
	}

	encoded, err := enc.Transform(values)
	if err != nil {
		return EncodedCategoricalVector{}, &EncodingError{Err: err}
	}
	names := enc.FeatureNamesOut()
	if len(encoded) != len(names) {
		return EncodedCategoricalVector{}, &EncodingError{
			Err: fmt.Errorf("encoder produced %d values for %d output columns", len(encoded), len(names)),
		}
	}

	return EncodedCategoricalVector{Columns: names, Values: encoded}, nil
}

func categoryString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
