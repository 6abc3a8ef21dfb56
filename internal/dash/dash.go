// Package dash converts dash run lengths into the 1D intensity bitmap that
// the line shaders sample per fragment.
package dash

import "math"

// Multiplier is the default number of texels per unit of run length.
const Multiplier = 2

// Pattern is a list of alternating on/off run lengths.
// For example, [5, 3] is 5 units on, 3 units off.
type Pattern struct {
	Runs []float64
}

// New creates a pattern from run lengths. Negative lengths are taken by
// absolute value. Returns nil if fewer than two runs are given or every
// run is zero, meaning a solid line.
func New(runs ...float64) *Pattern {
	if len(runs) < 2 {
		return nil
	}

	normalized := make([]float64, len(runs))
	positive := false
	for i, r := range runs {
		normalized[i] = math.Abs(r)
		if normalized[i] > 0 {
			positive = true
		}
	}
	if !positive {
		return nil
	}
	return &Pattern{Runs: normalized}
}

// Length returns the sum of the runs, the period of the pattern in
// pixels. A nil pattern has length 1.
func (p *Pattern) Length() float64 {
	if !p.IsDashed() {
		return 1
	}
	var total float64
	for _, r := range p.Runs {
		total += r
	}
	return total
}

// IsDashed reports whether p describes a dashed (non-solid) line.
func (p *Pattern) IsDashed() bool {
	return p != nil && len(p.Runs) >= 2
}

// Bitmap is a synthesized dash texture row.
type Bitmap struct {
	// Data holds one intensity per texel, 255 for on and 0 for off.
	Data []byte

	// Length is the pattern period in pixels, used by the shader to map
	// fragment distance to a texture coordinate.
	Length float64
}

// Synthesize builds the dash bitmap for runs.
//
// With fewer than two runs the line is solid: a single 255 texel with
// Length 1. Otherwise each run occupies run*mult texels, starting with
// 255 and toggling at every run boundary, and the whole pattern is written
// twice so that sampling at a quarter offset wraps without a seam.
// mult values below 1 use Multiplier.
func Synthesize(runs []float64, mult int) Bitmap {
	if mult < 1 {
		mult = Multiplier
	}
	p := New(runs...)
	if p == nil {
		return Bitmap{Data: []byte{255}, Length: 1}
	}

	widths := make([]int, len(p.Runs))
	period := 0
	for i, r := range p.Runs {
		widths[i] = int(math.Ceil(r * float64(mult)))
		period += widths[i]
	}

	data := make([]byte, 0, period*2)
	fill := byte(255)
	for k := 0; k < 2; k++ {
		for _, w := range widths {
			for j := 0; j < w; j++ {
				data = append(data, fill)
			}
			fill ^= 255
		}
	}

	return Bitmap{Data: data, Length: p.Length()}
}

// Bitmap synthesizes the dash bitmap for p with the given multiplier.
func (p *Pattern) Bitmap(mult int) Bitmap {
	if p == nil {
		return Synthesize(nil, mult)
	}
	return Synthesize(p.Runs, mult)
}
