package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub encoders ---

// partialEncoder emits only the slots for categories it recognizes, so its
// output names vary per request.
type partialEncoder struct {
	known map[string]bool
	last  []string
}

func (p *partialEncoder) Transform(values []string) ([]float64, error) {
	p.last = p.last[:0]
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if p.known[v] {
			p.last = append(p.last, categoricalFields[i]+"_"+v)
			out = append(out, 1)
		}
	}
	return out, nil
}

func (p *partialEncoder) FeatureNamesOut() []string { return append([]string(nil), p.last...) }

type failingEncoder struct{ err error }

func (f failingEncoder) Transform([]string) ([]float64, error) { return nil, f.err }
func (f failingEncoder) FeatureNamesOut() []string { return nil }

type mismatchedEncoder struct{}

func (mismatchedEncoder) Transform([]string) ([]float64, error) { return []float64{1, 0}, nil }
func (mismatchedEncoder) FeatureNamesOut() []string { return []string{"only_one"} }

// --- EncodeCategoricals ---

func TestEncodeCategoricals(t *testing.T) {
	enc := testEncoder(t, HandleUnknownIgnore)

	got, err := EncodeCategoricals(enc, validRecord())
	require.NoError(t, err)
	assert.Equal(t, enc.FeatureNamesOut(), got.Columns)
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 0, 1, 0, 1, 0}, got.Values)
}

func TestEncodeCategoricals_NonStringCategory(t *testing.T) {
	enc, err := NewOneHotEncoder(CategoricalFields(), [][]string{{"1"}, {"corn"}, {"no-till"}, {"spring"}}, HandleUnknownIgnore)
	require.NoError(t, err)

	rec := validRecord()
	rec["soil_type"] = json.Number("1")

	got, err := EncodeCategoricals(enc, rec)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, got.Values)
}

func TestEncodeCategoricals_EncoderFailure(t *testing.T) {
	cause := errors.New("bad shape")

	_, err := EncodeCategoricals(failingEncoder{err: cause}, validRecord())

	var ee *EncodingError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsClientError(err))
}

func TestEncodeCategoricals_LabelMismatch(t *testing.T) {
	_, err := EncodeCategoricals(mismatchedEncoder{}, validRecord())

	var ee *EncodingError
	require.ErrorAs(t, err, &ee)
}

// --- Reindex ---

func TestReindex_ZeroFillsAndDrops(t *testing.T) {
	cols := NewModelInputColumns([]string{"a", "b", "c"})
	row := LabeledRow{Columns: []string{"c", "x", "a"}, Values: []float64{3, 99, 1}}

	got := Reindex(row, cols)
	assert.Equal(t, FeatureVector{1, 0, 3}, got)
}

func TestReindex_Idempotent(t *testing.T) {
	cols := NewModelInputColumns([]string{"a", "b", "c"})
	row := LabeledRow{Columns: cols.Names(), Values: []float64{1.5, -2, 0.25}}

	got := Reindex(row, cols)
	if diff := cmp.Diff(row.Values, []float64(got)); diff != "" {
		t.Errorf("reindex of an ordered complete row changed it (-want +got):\n%s", diff)
	}
}

func TestReindex_FirstDuplicateWins(t *testing.T) {
	cols := NewModelInputColumns([]string{"a"})
	got := Reindex(LabeledRow{Columns: []string{"a", "a"}, Values: []float64{1, 2}}, cols)
	assert.Equal(t, FeatureVector{1}, got)
}

func TestReindex_EmptyColumns(t *testing.T) {
	got := Reindex(LabeledRow{Columns: []string{"a"}, Values: []float64{1}}, ModelInputColumns{})
	assert.Empty(t, got)
}

// --- AssembleFeatures ---

func TestDeriveModelInputColumns(t *testing.T) {
	cols := DeriveModelInputColumns([]string{"soil_type_loam", "season_spring"})
	assert.Equal(t, []string{"temp_7day_avg_f", "precip_7day_total_in", "soil_type_loam", "season_spring"}, cols.Names())
	assert.Equal(t, 4, cols.Len())
}

func TestModelInputColumns_Immutable(t *testing.T) {
	names := []string{"a", "b"}
	cols := NewModelInputColumns(names)
	names[0] = "z"
	cols.Names()[1] = "z"

	assert.Equal(t, []string{"a", "b"}, cols.Names())
}

func TestAssembleFeatures(t *testing.T) {
	enc := testEncoder(t, HandleUnknownIgnore)
	cols := DeriveModelInputColumns(enc.FeatureNamesOut())
	encoded, err := EncodeCategoricals(enc, validRecord())
	require.NoError(t, err)

	got, err := AssembleFeatures(validRecord(), encoded, cols)
	require.NoError(t, err)

	want := FeatureVector{68.0, 1.2, 0, 1, 0, 1, 0, 0, 1, 0, 1, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("feature vector mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleFeatures_UnseenCategoryZeroFilled(t *testing.T) {
	full := testEncoder(t, HandleUnknownIgnore)
	cols := DeriveModelInputColumns(full.FeatureNamesOut())

	enc := &partialEncoder{known: map[string]bool{"corn": true, "no-till": true, "spring": true}}
	rec := validRecord()
	rec["soil_type"] = "peat"

	encoded, err := EncodeCategoricals(enc, rec)
	require.NoError(t, err)
	require.Len(t, encoded.Columns, 3)

	got, err := AssembleFeatures(rec, encoded, cols)
	require.NoError(t, err)
	require.Len(t, got, cols.Len())
	assert.Equal(t, FeatureVector{68.0, 1.2, 0, 0, 0, 1, 0, 0, 1, 0, 1, 0}, got)
}

func TestAssembleFeatures_LengthAlwaysMatchesColumns(t *testing.T) {
	enc := testEncoder(t, HandleUnknownIgnore)
	cols := DeriveModelInputColumns(enc.FeatureNamesOut())

	inputs := []InputRecord{
		validRecord(),
		{"soil_type": "sand", "crop_type": "soy", "tillage_type": "conventional", "season": "fall", "temp_7day_avg_f": -5, "precip_7day_total_in": 0},
		{"soil_type": "x", "crop_type": "y", "tillage_type": "z", "season": "w", "temp_7day_avg_f": "71.5", "precip_7day_total_in": json.Number("3")},
	}
	for _, rec := range inputs {
		encoded, err := EncodeCategoricals(enc, rec)
		require.NoError(t, err)
		got, err := AssembleFeatures(rec, encoded, cols)
		require.NoError(t, err)
		assert.Len(t, got, cols.Len())
	}
}

func TestAssembleFeatures_NumericCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"float64", 68.0, 68},
		{"int", 68, 68},
		{"json number", json.Number("68.5"), 68.5},
		{"numeric string", " 70 ", 70},
		{"bool", true, 1},
	}
	cols := NewModelInputColumns([]string{FieldTempAvgF})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec[FieldTempAvgF] = tt.value

			got, err := AssembleFeatures(rec, EncodedCategoricalVector{}, cols)
			require.NoError(t, err)
			assert.Equal(t, FeatureVector{tt.want}, got)
		})
	}
}

func TestAssembleFeatures_NonNumeric(t *testing.T) {
	rec := validRecord()
	rec[FieldPrecipTotalIn] = "lots"

	_, err := AssembleFeatures(rec, EncodedCategoricalVector{}, NewModelInputColumns([]string{"a"}))

	var ee *EncodingError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, err.Error(), FieldPrecipTotalIn)
}

func TestAssembleFeatures_EmptyColumns(t *testing.T) {
	got, err := AssembleFeatures(validRecord(), EncodedCategoricalVector{}, ModelInputColumns{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
