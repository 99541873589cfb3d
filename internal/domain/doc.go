// Package domain turns a single field observation into an anomaly risk
// assessment.
//
// # Pipeline
//
// Each observation passes through five stages, each failing fast:
//
//	Validate → EncodeCategoricals → AssembleFeatures → ScoreAnomaly → Normalize
//
// The stages are pure functions of their inputs and of the read-only
// [Artifacts] (fitted encoder, fitted model, column order) built once at
// startup. A [Scorer] composes them and is safe for concurrent use.
//
// # Observation fields
//
//	soil_type, crop_type, tillage_type, season   categorical strings
//	temp_7day_avg_f                              7-day mean air temperature, °F
//	precip_7day_total_in                         7-day precipitation total, inches
//
// Values are not range-checked.
//
// # Column order
//
// The model was fitted on a fixed column order: the two numerical columns
// followed by the encoder's one-hot columns named "<feature>_<category>",
// e.g. "soil_type_loam". [AssembleFeatures] reindexes every request against
// that order and fills any column the request did not produce with 0.
//
// Known limitation: a category the encoder never saw contributes all zeros,
// which is indistinguishable from "no signal" for that feature.
//
// # Risk scale
//
// The model's decision score is lower for more anomalous input. [Calibration]
// maps it linearly onto 0–100, anchored at -0.2 (risk 100) and 0.2 (risk 0),
// clamped outside that range. The anchors are an untuned heuristic carried
// over unchanged; do not retune them without new calibration data.
package domain
