package slices

// Deduplicate removes elements the comparer considers duplicates, keeping the
// first occurrence. It complements the standard slices package, which only
// compacts comparable elements.
func Deduplicate[T any](slice []T, comparer func(a, b T) bool) []T {
	var result []T
	for _, value := range slice {
		found := false
		for _, existing := range result {
			if comparer(value, existing) {
				found = true
				break
			}
		}
		if !found {
			result = append(result, value)
		}
	}
	return result
}
