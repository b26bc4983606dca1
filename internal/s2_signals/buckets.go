package s2_signals

import "math"

// bucket maps values up to (or from) bound to score
type bucket struct {
	bound float64
	score float64
}

// stepAtMost returns the score of the first bucket with v <= bound (lower is better)
func stepAtMost(v float64, buckets []bucket, otherwise float64) float64 {
	for _, b := range buckets {
		if v <= b.bound {
			return b.score
		}
	}
	return otherwise
}

// stepAbove returns the score of the first bucket with v > bound (higher is better).
// A value on a bound falls into the lower bucket.
func stepAbove(v float64, buckets []bucket, otherwise float64) float64 {
	for _, b := range buckets {
		if v > b.bound {
			return b.score
		}
	}
	return otherwise
}

// clamp bounds v to [-1, 1]
func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// meanPresent averages the non-nil values; nil when none present
func meanPresent(values ...*float64) *float64 {
	sum := 0.0
	n := 0
	for _, v := range values {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
