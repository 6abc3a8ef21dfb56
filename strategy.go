package line2d

import "fmt"

// Strategy is the program a stroke is drawn with.
type Strategy int

// Strategies.
const (
	// StrategyRect draws each segment as an independent rectangle. It keeps
	// full precision through split floats but has no joins.
	StrategyRect Strategy = iota

	// StrategyMiter draws mitered, beveled or rounded joins.
	StrategyMiter
)

func (s Strategy) String() string {
	switch s {
	case StrategyRect:
		return "rect"
	case StrategyMiter:
		return "miter"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Classify picks the stroke program for a pass.
//
// A scaled viewport wider or taller than PrecisionThreshold always uses the
// rect program, whatever the join. Otherwise JoinRect uses it, as does an
// automatic join when the line is at most 2 pixels thick or has MaxPoints
// points or more. Everything else is mitered.
func Classify(scale [2]float64, viewport Rect, join Join, thickness float64, count int) Strategy {
	if scale[0]*float64(viewport.Width) > PrecisionThreshold ||
		scale[1]*float64(viewport.Height) > PrecisionThreshold {
		return StrategyRect
	}
	if join == JoinRect || join.auto() && (thickness <= 2 || count >= MaxPoints) {
		return StrategyRect
	}
	return StrategyMiter
}

// plan is what one pass draws in a frame.
type plan struct {
	fill     bool
	stroke   bool
	strategy Strategy
}

// planFor decides the draws of s into viewport vp. A pass with fewer than
// two segments or zero opacity draws nothing.
func planFor(s *PassState, vp Rect) plan {
	if s.Count < 2 || s.Opacity == 0 {
		return plan{}
	}
	p := plan{
		fill:   s.Fill != nil && len(s.Triangles) > 2,
		stroke: s.Thickness != 0,
	}
	if p.stroke {
		p.strategy = Classify(s.Scale, vp, s.Join, s.Thickness, s.Count)
	}
	return p
}
