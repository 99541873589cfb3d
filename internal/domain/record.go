package domain

// Observation field names.
const (
	FieldSoilType      = "soil_type"
	FieldCropType      = "crop_type"
	FieldTillageType   = "tillage_type"
	FieldSeason        = "season"
	FieldTempAvgF      = "temp_7day_avg_f"
	FieldPrecipTotalIn = "precip_7day_total_in"
)

var (
	// categoricalFields is the encoder's input order.
	categoricalFields = []string{FieldSoilType, FieldCropType, FieldTillageType, FieldSeason}

	// numericalFields precede the one-hot columns in the model's input.
	numericalFields = []string{FieldTempAvgF, FieldPrecipTotalIn}

	requiredFields = []string{
		FieldSoilType, FieldCropType, FieldTillageType, FieldSeason,
		FieldTempAvgF, FieldPrecipTotalIn,
	}
)

// CategoricalFields returns the categorical input columns in encoder order.
func CategoricalFields() []string { return append([]string(nil), categoricalFields...) }

// NumericalFields returns the numerical input columns in model order.
func NumericalFields() []string { return append([]string(nil), numericalFields...) }

// RequiredFields returns every field an observation must carry.
func RequiredFields() []string { return append([]string(nil), requiredFields...) }

// InputRecord is a loosely typed observation as decoded from JSON. Values may
// be strings, numbers (float64, json.Number, ints) or anything else the
// caller decoded.
type InputRecord map[string]any

// Assessment is the result of scoring one observation.
type Assessment struct {
	RiskPercentage  int     `json:"risk_percentage"`
	RawAnomalyScore float64 `json:"raw_anomaly_score"`
}
