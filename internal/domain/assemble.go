package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ModelInputColumns is the fixed column order the anomaly model was fitted on.
// It is immutable once built.
type ModelInputColumns struct {
	names []string
}

// NewModelInputColumns copies names into an immutable column order.
func NewModelInputColumns(names []string) ModelInputColumns {
	return ModelInputColumns{names: append([]string(nil), names...)}
}

// DeriveModelInputColumns builds the training-time order: numerical columns
// followed by the encoder's output columns.
func DeriveModelInputColumns(encoderNames []string) ModelInputColumns {
	names := make([]string, 0, len(numericalFields)+len(encoderNames))
	names = append(names, numericalFields...)
	names = append(names, encoderNames...)
	return ModelInputColumns{names: names}
}

// Names returns a copy of the column order.
func (c ModelInputColumns) Names() []string { return append([]string(nil), c.names...) }

// Len returns the number of columns.
func (c ModelInputColumns) Len() int { return len(c.names) }

// LabeledRow is a single row of values with a column name per value.
type LabeledRow struct {
	Columns []string
	Values  []float64
}

// FeatureVector is the numeric model input, one value per ModelInputColumns entry.
type FeatureVector []float64

// Reindex lays row out in cols order. A column the row does not carry is
// filled with 0; row columns not in cols are dropped. If a column appears
// more than once in row, the first occurrence wins.
func Reindex(row LabeledRow, cols ModelInputColumns) FeatureVector {
	byName := make(map[string]float64, len(row.Columns))
	for i, name := range row.Columns {
		if i >= len(row.Values) {
			break
		}
		if _, seen := byName[name]; !seen {
			byName[name] = row.Values[i]
		}
	}

	out := make(FeatureVector, len(cols.names))
	for i, name := range cols.names {
		out[i] = byName[name]
	}
	return out
}

// AssembleFeatures concatenates the numerical fields (temperature, then
// precipitation) with the encoded categoricals and reindexes the result
// against cols. The output always has cols.Len() values.
func AssembleFeatures(rec InputRecord, enc EncodedCategoricalVector, cols ModelInputColumns) (FeatureVector, error) {
	row := LabeledRow{
		Columns: make([]string, 0, len(numericalFields)+len(enc.Columns)),
		Values:  make([]float64, 0, len(numericalFields)+len(enc.Values)),
	}
	for _, f := range numericalFields {
		v, err := toFloat(rec[f])
		if err != nil {
			return nil, &EncodingError{Err: fmt.Errorf("field %s: %w", f, err)}
		}
		row.Columns = append(row.Columns, f)
		row.Values = append(row.Values, v)
	}
	row.Columns = append(row.Columns, enc.Columns...)
	row.Values = append(row.Values, enc.Values...)

	return Reindex(row, cols), nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
