package utils

import (
	"math"
)

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClipVector clamps every coordinate of x into [lower[i], upper[i]] in place.
func ClipVector(x, lower, upper []float64) []float64 {
	for i := range x {
		x[i] = ClampFloat64(x[i], lower[i], upper[i])
	}
	return x
}

// Mean calculates the mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Sum calculates the sum of a slice of float64 values
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// Gini returns the Gini coefficient of non-negative values, in [0, 1).
// An empty or all-zero slice is perfectly equal.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	total := Sum(values)
	if total <= 0 {
		return 0
	}
	diffs := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			diffs += math.Abs(values[i] - values[j])
		}
	}
	return diffs / (2 * float64(n) * total)
}

// CloneFloat64s returns a copy of values
func CloneFloat64s(values []float64) []float64 {
	if values == nil {
		return nil
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}
