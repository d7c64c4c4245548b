package estimator

// TimeSplit splits rows chronologically: the first ratio share trains, the rest tests.
func TimeSplit[T any](rows []T, ratio float64) (train, test []T) {
	i := int(float64(len(rows)) * ratio)
	if i < 0 {
		i = 0
	}
	if i > len(rows) {
		i = len(rows)
	}
	return rows[:i], rows[i:]
}
