package cache

// IsValid reports whether a cached collection of cachedCount items matches the expected count.
func IsValid(expectedCount, cachedCount int) bool {
	return expectedCount == cachedCount
}
