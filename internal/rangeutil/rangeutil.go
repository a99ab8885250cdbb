package rangeutil

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func InRange[T constraints.Ordered](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// MapRange linearly rescales v from [inMin, inMax] to [outMin, outMax] using integer
// arithmetic that truncates toward zero. The result is not clamped, so inputs outside
// the source range extrapolate.
func MapRange[T constraints.Integer](v, inMin, inMax, outMin, outMax T) int64 {
	if inMax == inMin {
		return int64(outMin)
	}
	return (int64(v)-int64(inMin))*(int64(outMax)-int64(outMin))/(int64(inMax)-int64(inMin)) + int64(outMin)
}
