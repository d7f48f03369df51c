package store

// ValidateVector checks a candidate vector's length against the
// collection's fixed dimension. Pure; called before any write or query
// reaches the engine.
func ValidateVector(vector []float32, expected int) error {
	if len(vector) != expected {
		return &DimensionMismatchError{Expected: expected, Actual: len(vector)}
	}
	return nil
}
