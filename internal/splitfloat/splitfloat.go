// Package splitfloat encodes float64 values as a pair of float32 values
// (high part plus residual) so that GPU stages working in 32-bit floats can
// recover precision lost by a plain narrowing cast.
//
// For a value x the encoding is
//
//	hi = float32(x)
//	lo = float32(x - float64(hi))
//
// and hi + lo approximates x to within float32 epsilon of the residual,
// i.e. roughly 2^-48 relative to x instead of 2^-24.
package splitfloat

// Float32 narrows every element of v to float32.
func Float32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Fract32 returns the float32 residuals of v: v[i] - float64(hi[i]),
// computed in double precision and then narrowed. When hi is nil (or of a
// different length) the high parts are computed with Float32.
func Fract32(v []float64, hi []float32) []float32 {
	if len(hi) != len(v) {
		hi = Float32(v)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x - float64(hi[i]))
	}
	return out
}

// Split returns both halves of the encoding of v.
func Split(v []float64) (hi, lo []float32) {
	hi = Float32(v)
	return hi, Fract32(v, hi)
}

// Scalar splits a single value.
func Scalar(x float64) (hi, lo float32) {
	hi = float32(x)
	return hi, float32(x - float64(hi))
}

// Pair splits a two-component value such as a scale or translate vector.
func Pair(v [2]float64) (hi, lo [2]float32) {
	hi[0], lo[0] = Scalar(v[0])
	hi[1], lo[1] = Scalar(v[1])
	return hi, lo
}

// Project applies a split scale and translate to a split coordinate in
// float32 arithmetic, summing the terms in the same order the vertex
// shaders do:
//
//	p*s + t + pf*s + tf + p*sf + pf*sf
//
// The order matters: large terms are combined first so the small residual
// terms are added to an already-rounded sum instead of being absorbed.
func Project(p, pf, s, sf, t, tf float32) float32 {
	r := p*s + t
	r += pf * s
	r += tf
	r += p * sf
	r += pf * sf
	return r
}
