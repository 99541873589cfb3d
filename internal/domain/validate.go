package domain

// Validate checks that every required field is present and non-null. The
// record is returned unchanged on success.
func Validate(rec InputRecord) (InputRecord, error) {
	var missing []string
	for _, f := range requiredFields {
		if v, ok := rec[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Required: RequiredFields(), Missing: missing}
	}
	return rec, nil
}
