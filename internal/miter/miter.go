// Package miter evaluates the line programs' vertex and fragment math on
// the CPU in float32.
//
// Coordinates follow the GPU conventions: data space in, normalized
// viewport space (0..1, y up) for quad corners, and drawing-buffer pixels
// (y up, viewport offset applied) for cutoff lines and fragment queries.
package miter

import "github.com/chewxy/math32"

const (
	reverseThreshold float32 = -0.875
	minDiff          float32 = 1e-6
)

// Mode is the join cutoff applied in the fragment stage. The values match
// the miterMode uniform.
type Mode int

const (
	Bevel Mode = 1
	Round Mode = 2
)

// Params are the per-pass uniforms that influence geometry.
type Params struct {
	Scale      Vec2
	Translate  Vec2
	Viewport   [4]float32 // x, y, width, height in pixels
	Thickness  float32
	MiterLimit float32
	Mode       Mode
}

func (p *Params) size() Vec2   { return Vec2{p.Viewport[2], p.Viewport[3]} }
func (p *Params) origin() Vec2 { return Vec2{p.Viewport[0], p.Viewport[1]} }

// Pixel maps a normalized viewport position to drawing-buffer pixels.
func (p *Params) Pixel(pos Vec2) Vec2 {
	return pos.Mul(p.size()).Add(p.origin())
}

// Quad holds the four strip corners of one segment instance in normalized
// viewport space, in corner-buffer order.
type Quad struct {
	ATop, ABot, BTop, BBot Vec2
}

// Triangles returns the two strip triangles with strip winding applied,
// so a counter-clockwise triangle is front facing.
func (q Quad) Triangles() [2][3]Vec2 {
	return [2][3]Vec2{
		{q.ATop, q.ABot, q.BTop},
		{q.BTop, q.ABot, q.BBot},
	}
}

// Segment is the evaluated geometry of one segment instance.
type Segment struct {
	Quad    Quad
	Tangent Vec2

	// Join cutoffs in pixels, valid only when the matching Enable flag is
	// set.
	StartCutoff, EndCutoff [2]Vec2
	StartCoord, EndCoord   Vec2
	EnableStart, EnableEnd bool
}

// Rect evaluates the rectangular program for the segment a→b.
func Rect(p Params, a, b Vec2) Segment {
	size := p.size()
	tangent := b.Sub(a).Mul(p.Scale).Mul(size).Normalize()
	half := tangent.Perp().Scale(p.Thickness * 0.5).Div(size)

	pa := a.Mul(p.Scale).Add(p.Translate)
	pb := b.Mul(p.Scale).Add(p.Translate)
	return Segment{
		Quad: Quad{
			ATop: pa.Add(half),
			ABot: pa.Sub(half),
			BTop: pb.Add(half),
			BBot: pb.Sub(half),
		},
		Tangent: tangent,
	}
}

// Join evaluates the mitered program for the segment a→b with neighbors
// prev and next. It returns false when a or b is NaN; such segments are
// not drawn.
func Join(p Params, prev, a, b, next Vec2) (Segment, bool) {
	if a.IsNaN() || b.IsNaN() {
		return Segment{}, false
	}

	adjusted := p.Scale
	if math32.Abs(adjusted.X) < minDiff {
		adjusted.X = minDiff
	}
	if math32.Abs(adjusted.Y) < minDiff {
		adjusted.Y = minDiff
	}
	scaleRatio := adjusted.Mul(p.size())
	normalWidth := Vec2{p.Thickness / scaleRatio.X, p.Thickness / scaleRatio.Y}

	if a == prev {
		prev = a.Add(b.Sub(a).Normalize())
	}
	if b == next {
		next = b.Sub(b.Sub(a).Normalize())
	}

	prevDiff := a.Sub(prev)
	currDiff := b.Sub(a)
	nextDiff := next.Sub(b)

	prevTangent := prevDiff.Mul(scaleRatio).Normalize()
	currTangent := currDiff.Mul(scaleRatio).Normalize()
	nextTangent := nextDiff.Mul(scaleRatio).Normalize()

	prevNormal := prevTangent.Perp()
	currNormal := currTangent.Perp()
	nextNormal := nextTangent.Perp()

	startDir := prevTangent.Sub(currTangent).Normalize()
	endDir := currTangent.Sub(nextTangent).Normalize()

	if prevTangent.Sub(currTangent).Abs().MaxComponent() < minDiff {
		startDir = currNormal
	}
	if nextTangent.Sub(currTangent).Abs().MaxComponent() < minDiff {
		endDir = currNormal
	}
	if a == b {
		endDir = startDir
		currNormal = prevNormal
		currTangent = prevTangent
	}

	startShift := currNormal.Dot(startDir)
	endShift := currNormal.Dot(endDir)
	startRatio := math32.Abs(1 / startShift)
	endRatio := math32.Abs(1 / endShift)

	startTop := startDir.Scale(startRatio * sign(startShift) * 0.5)
	startBot := startTop.Neg()
	endTop := endDir.Scale(endRatio * sign(endShift) * 0.5)
	endBot := endTop.Neg()

	aTop := a.Add(normalWidth.Mul(startTop))
	bTop := b.Add(normalWidth.Mul(endTop))
	aBot := a.Add(normalWidth.Mul(startBot))
	bBot := b.Add(normalWidth.Mul(endBot))

	baClipping := distToLine(b, a, aBot) /
		normalWidth.Mul(endBot).Normalize().Dot(normalWidth.Swap().Mul(startBot.Perp()).Normalize())
	abClipping := distToLine(a, b, bTop) /
		normalWidth.Mul(startBot).Normalize().Dot(normalWidth.Swap().Mul(endBot.Perp()).Normalize())

	widthLen := normalWidth.Mul(currNormal).Len()
	prevReverse := currTangent.Dot(prevTangent) <= reverseThreshold &&
		math32.Abs(currTangent.Dot(prevNormal))*math32.Min(prevDiff.Len(), currDiff.Len()) < widthLen
	nextReverse := currTangent.Dot(nextTangent) <= reverseThreshold &&
		math32.Abs(currTangent.Dot(nextNormal))*math32.Min(nextDiff.Len(), currDiff.Len()) < widthLen

	if prevReverse {
		shift := normalWidth.Mul(startDir).Scale(p.MiterLimit * 0.5)
		adjust := normalWidth.Mul(currNormal).Scale((1 - math32.Min(p.MiterLimit/startRatio, 1)) * 0.5)
		aBot = a.Add(shift).Sub(adjust)
		aTop = a.Add(shift).Add(adjust)
	} else if !nextReverse && baClipping > 0 && baClipping < normalWidth.Mul(endBot).Len() {
		bTop = bTop.Sub(normalWidth.Mul(endTop))
		bTop = bTop.Add(endTop.Mul(normalWidth).Normalize().Scale(baClipping))
	}

	if nextReverse {
		shift := normalWidth.Mul(endDir).Scale(p.MiterLimit * 0.5)
		adjust := normalWidth.Mul(currNormal).Scale((1 - math32.Min(p.MiterLimit/endRatio, 1)) * 0.5)
		bBot = b.Add(shift).Sub(adjust)
		bTop = b.Add(shift).Add(adjust)
	} else if !prevReverse && abClipping > 0 && abClipping < normalWidth.Mul(startBot).Len() {
		aBot = aBot.Sub(normalWidth.Mul(startBot))
		aBot = aBot.Add(startBot.Mul(normalWidth).Normalize().Scale(abClipping))
	}

	place := func(c Vec2) Vec2 { return c.Mul(adjusted).Add(p.Translate) }
	pixelShift := p.Translate.Mul(p.size()).Add(p.origin())

	s := Segment{
		Quad: Quad{
			ATop: place(aTop),
			ABot: place(aBot),
			BTop: place(bTop),
			BBot: place(bBot),
		},
		Tangent:     currTangent,
		StartCoord:  a.Mul(scaleRatio).Add(pixelShift),
		EndCoord:    b.Mul(scaleRatio).Add(pixelShift),
		EnableStart: step(currTangent.Dot(prevTangent), 0.5) == 1,
		EnableEnd:   step(currTangent.Dot(nextTangent), 0.5) == 1,
	}

	var startWidth, endWidth Vec2
	switch p.Mode {
	case Bevel:
		startWidth = startDir.Scale(p.Thickness * p.MiterLimit * 0.5)
		endWidth = endDir.Scale(p.Thickness * p.MiterLimit * 0.5)
	case Round:
		startWidth = startDir.Scale(p.Thickness * math32.Abs(startDir.Dot(currNormal)) * 0.5)
		endWidth = endDir.Scale(p.Thickness * math32.Abs(endDir.Dot(currNormal)) * 0.5)
	}
	cutoff := func(coord, dir, width Vec2) [2]Vec2 {
		c0 := coord
		c1 := coord.Add(dir.Perp().Div(scaleRatio))
		shift := pixelShift.Add(width)
		return [2]Vec2{c0.Mul(scaleRatio).Add(shift), c1.Mul(scaleRatio).Add(shift)}
	}
	if s.EnableStart {
		s.StartCutoff = cutoff(a, startDir, startWidth)
	}
	if s.EnableEnd {
		s.EndCutoff = cutoff(b, endDir, endWidth)
	}
	return s, true
}

// Coverage returns the join cutoff factor for the fragment at px, in
// pixels. Zero means the fragment is discarded.
func (s *Segment) Coverage(p Params, px Vec2) float32 {
	alpha := float32(1)
	radius := p.Thickness * 0.5

	ends := [2]struct {
		on     bool
		cutoff [2]Vec2
		coord  Vec2
	}{
		{s.EnableStart, s.StartCutoff, s.StartCoord},
		{s.EnableEnd, s.EndCutoff, s.EndCoord},
	}
	for _, e := range ends {
		if !e.on {
			continue
		}
		d := distToLine(px, e.cutoff[0], e.cutoff[1])
		switch p.Mode {
		case Bevel:
			if d < -1 {
				return 0
			}
			alpha *= clamp(d+1, 0, 1)
		case Round:
			if d < 0 {
				r := px.Sub(e.coord).Len()
				if r > radius+0.5 {
					return 0
				}
				alpha -= smoothstep(radius-0.5, radius+0.5, r)
			}
		}
	}
	return clamp(alpha, 0, 1)
}

// DashCoord returns the dash texture coordinate for the fragment at px.
// Only the middle half of the doubled pattern is ever sampled.
func DashCoord(tangent, px Vec2, dashLength float32) float32 {
	return fract(tangent.Dot(px)/dashLength)*0.5 + 0.25
}
