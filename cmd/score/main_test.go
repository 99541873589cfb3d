package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/field-risk-service/internal/artifact"
	"github.com/couchcryptid/field-risk-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testModelPath   = filepath.Join("..", "..", "internal", "artifact", "testdata", "isolation_forest.json")
	testEncoderPath = filepath.Join("..", "..", "internal", "artifact", "testdata", "one_hot_encoder.json")
)

func newTestScorer(t *testing.T) *domain.Scorer {
	t.Helper()
	b, err := artifact.Load(artifact.Options{ModelPath: testModelPath, EncoderPath: testEncoderPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return domain.NewScorer(b.Artifacts, domain.DefaultCalibration())
}

func TestReadCSV(t *testing.T) {
	in := `soil_type,crop_type,tillage_type,season,temp_7day_avg_f,precip_7day_total_in
loam, corn, no-till, spring, 68, 1.2
sand,soy,conventional,,55,0.4
`
	records, err := readCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "corn", records[0][domain.FieldCropType])
	assert.Equal(t, "68", records[0][domain.FieldTempAvgF])
	assert.NotContains(t, records[1], domain.FieldSeason)
}

func TestReadJSON(t *testing.T) {
	in := `{"soil_type": "loam", "temp_7day_avg_f": 68}
[{"soil_type": "sand"}, {"soil_type": "clay"}]
`
	records, err := readJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, json.Number("68"), records[0][domain.FieldTempAvgF])
	assert.Equal(t, "clay", records[2][domain.FieldSoilType])
}

func TestReadJSON_Invalid(t *testing.T) {
	for name, in := range map[string]string{
		"scalar":        `42`,
		"array scalars": `[1, 2]`,
		"truncated":     `{"soil_type": `,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := readJSON(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestScore(t *testing.T) {
	records, err := readCSV(strings.NewReader(`soil_type,crop_type,tillage_type,season,temp_7day_avg_f,precip_7day_total_in
loam,corn,no-till,spring,68,1.2
loam,corn,no-till,,68,1.2
`))
	require.NoError(t, err)

	var out bytes.Buffer
	failed := score(newTestScorer(t), records, &out)
	assert.Equal(t, 1, failed)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var ok, bad result
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &bad))

	assert.Equal(t, 1, ok.Row)
	require.NotNil(t, ok.RiskPercentage)
	assert.Equal(t, 68, *ok.RiskPercentage)
	assert.Empty(t, ok.Error)

	assert.Equal(t, 2, bad.Row)
	assert.Nil(t, bad.RiskPercentage)
	assert.Contains(t, bad.Error, "Missing required input fields")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "csv", formatFromPath("obs.CSV"))
	assert.Equal(t, "json", formatFromPath("obs.jsonl"))
	assert.Equal(t, "json", formatFromPath("-"))
}
