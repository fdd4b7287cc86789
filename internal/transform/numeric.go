package transform

import "golang.org/x/exp/constraints"

// clamp caps v to the inclusive range [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
