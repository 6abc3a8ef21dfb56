// Package normalize rescales flat coordinate arrays into the unit box.
package normalize

import (
	"math"

	"github.com/gogpu/line2d/internal/bounds"
)

// InPlace maps every coordinate of data (stride dim) into [0, 1] using the
// given extents, laid out as returned by bounds.Of. When b is nil the extents
// are computed from data. The array is modified in place and returned.
//
// Per axis:
//   - both bounds infinite: -Inf maps to 0, +Inf to 1, finite values to 0.5
//   - only max infinite: +Inf maps to 1, everything else to 0
//   - only min infinite: -Inf maps to 0, everything else to 1
//   - otherwise (v-min)/(max-min), or 0.5 when max == min
//
// NaN coordinates are left untouched in every case.
func InPlace(data []float64, dim int, b []float64) []float64 {
	if dim < 1 {
		dim = 1
	}
	if b == nil {
		b = bounds.Of(data, dim)
	}
	for axis := 0; axis < dim; axis++ {
		lo, hi := b[axis], b[dim+axis]
		switch {
		case math.IsInf(hi, 1) && math.IsInf(lo, -1):
			for i := axis; i < len(data); i += dim {
				v := data[i]
				switch {
				case math.IsNaN(v):
				case v == hi:
					data[i] = 1
				case v == lo:
					data[i] = 0
				default:
					data[i] = 0.5
				}
			}
		case math.IsInf(hi, 1):
			for i := axis; i < len(data); i += dim {
				if v := data[i]; !math.IsNaN(v) {
					data[i] = step(v == hi)
				}
			}
		case math.IsInf(lo, -1):
			for i := axis; i < len(data); i += dim {
				if v := data[i]; !math.IsNaN(v) {
					data[i] = step(v != lo)
				}
			}
		default:
			span := hi - lo
			for i := axis; i < len(data); i += dim {
				v := data[i]
				if math.IsNaN(v) {
					continue
				}
				if span == 0 {
					data[i] = 0.5
				} else {
					data[i] = (v - lo) / span
				}
			}
		}
	}
	return data
}

// Copy is like InPlace but leaves data unmodified and returns a new array.
func Copy(data []float64, dim int, b []float64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	return InPlace(out, dim, b)
}

func step(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
