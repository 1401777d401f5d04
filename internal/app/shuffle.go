package app

// Shuffle returns a permuted copy of items using Fisher-Yates. intn must
// return a uniform value in [0, n).
func Shuffle[T any](items []T, intn func(n int) int) []T {
	shuffled := make([]T, len(items))
	copy(shuffled, items)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
