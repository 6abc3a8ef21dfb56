// Package bounds computes axis-aligned extents of flat coordinate arrays.
package bounds

import "math"

// Of returns the per-axis extents of a flat coordinate array laid out with
// stride dim. The result has length 2*dim: all minimums first, then all
// maximums, e.g. [minX, minY, maxX, maxY] for dim == 2.
//
// NaN coordinates never compare below or above anything and are therefore
// ignored. An empty array (or an axis holding only NaNs) yields the
// degenerate extent min = +Inf, max = -Inf for that axis. A dim below 1 is
// treated as 1.
func Of(data []float64, dim int) []float64 {
	if dim < 1 {
		dim = 1
	}
	b := make([]float64, 2*dim)
	for axis := 0; axis < dim; axis++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := axis; i < len(data); i += dim {
			v := data[i]
			if v > hi {
				hi = v
			}
			if v < lo {
				lo = v
			}
		}
		b[axis] = lo
		b[dim+axis] = hi
	}
	return b
}

// Empty reports whether the extent of any axis is degenerate (min > max),
// which happens for empty input.
func Empty(b []float64) bool {
	dim := len(b) / 2
	for axis := 0; axis < dim; axis++ {
		if b[axis] > b[dim+axis] {
			return true
		}
	}
	return false
}
