package to

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}

// NilString returns nil for an empty string, so optional FHIR fields stay
// absent instead of serializing as "".
func NilString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
