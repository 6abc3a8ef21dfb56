package miter

import "github.com/chewxy/math32"

// Vec2 is a float32 2D vector with shader-style component-wise operations.
type Vec2 struct {
	X, Y float32
}

// V is shorthand for Vec2{x, y}.
func V(x, y float32) Vec2 { return Vec2{x, y} }

func (v Vec2) Add(w Vec2) Vec2       { return Vec2{v.X + w.X, v.Y + w.Y} }
func (v Vec2) Sub(w Vec2) Vec2       { return Vec2{v.X - w.X, v.Y - w.Y} }
func (v Vec2) Mul(w Vec2) Vec2       { return Vec2{v.X * w.X, v.Y * w.Y} }
func (v Vec2) Div(w Vec2) Vec2       { return Vec2{v.X / w.X, v.Y / w.Y} }
func (v Vec2) Scale(s float32) Vec2  { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(w Vec2) float32    { return v.X*w.X + v.Y*w.Y }
func (v Vec2) Len() float32          { return math32.Hypot(v.X, v.Y) }
func (v Vec2) Perp() Vec2            { return Vec2{-v.Y, v.X} }
func (v Vec2) Swap() Vec2            { return Vec2{v.Y, v.X} }
func (v Vec2) Neg() Vec2             { return Vec2{-v.X, -v.Y} }
func (v Vec2) Abs() Vec2             { return Vec2{math32.Abs(v.X), math32.Abs(v.Y)} }
func (v Vec2) MaxComponent() float32 { return math32.Max(v.X, v.Y) }

// Normalize divides by the length. A zero vector yields NaN components,
// the same as on the GPU.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	return Vec2{v.X / l, v.Y / l}
}

// IsNaN reports whether either component is NaN.
func (v Vec2) IsNaN() bool {
	return math32.IsNaN(v.X) || math32.IsNaN(v.Y)
}

func sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func clamp(x, lo, hi float32) float32 {
	return math32.Min(math32.Max(x, lo), hi)
}

func smoothstep(e0, e1, x float32) float32 {
	t := clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func step(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

func fract(x float32) float32 {
	return x - math32.Floor(x)
}

func distToLine(p, a, b Vec2) float32 {
	perp := b.Sub(a).Perp().Normalize()
	return p.Sub(a).Dot(perp)
}
