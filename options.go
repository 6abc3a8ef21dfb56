package line2d

import (
	"fmt"
	"image/color"
	"math"
	"slices"

	"github.com/gogpu/line2d/gpucore"
)

// Tunables shared by every line.
const (
	// DashMultiplier is the number of dash texels per pixel of run length.
	DashMultiplier = 2

	// MaxPatternLength is the longest dash period, in pixels.
	MaxPatternLength = 256

	// PrecisionThreshold is the scaled viewport extent above which float32
	// join geometry breaks down and strokes fall back to the rect program.
	PrecisionThreshold = 3e6

	// MaxPoints is the point count from which auto-joined strokes use the
	// rect program.
	MaxPoints = 10000

	// MaxLines is the number of distinct overlay depth slots.
	MaxLines = 2048
)

// Join selects how consecutive segments meet.
type Join string

// Joins. The zero value leaves the join unspecified in an update.
const (
	// JoinAuto picks rect for thin or dense lines and miter otherwise.
	JoinAuto Join = "auto"

	// JoinMiter extends outer edges up to the miter limit, then bevels.
	JoinMiter Join = "miter"

	// JoinBevel bevels beyond the miter limit. It draws like JoinMiter.
	JoinBevel Join = "bevel"

	// JoinRound rounds joins cut by the miter limit.
	JoinRound Join = "round"

	// JoinRect draws every segment as an independent rectangle.
	JoinRect Join = "rect"
)

func (j Join) valid() bool {
	switch j {
	case "", JoinAuto, JoinMiter, JoinBevel, JoinRound, JoinRect:
		return true
	}
	return false
}

// auto reports whether the join leaves the program choice to the line
// thickness and point count.
func (j Join) auto() bool {
	return j == "" || j == JoinAuto
}

// miterMode is the value of the miterMode uniform.
func (j Join) miterMode() float32 {
	if j == JoinRound {
		return 2
	}
	return 1
}

// Rect is a pixel rectangle with a bottom-left origin.
type Rect = gpucore.Rect

// XY holds positions as separate coordinate arrays.
type XY struct {
	X, Y []float64
}

// flatten interleaves the arrays. The shorter one is padded with NaN.
func (xy *XY) flatten() []float64 {
	n := max(len(xy.X), len(xy.Y))
	out := make([]float64, n*2)
	for i := 0; i < n; i++ {
		out[i*2], out[i*2+1] = math.NaN(), math.NaN()
		if i < len(xy.X) {
			out[i*2] = xy.X[i]
		}
		if i < len(xy.Y) {
			out[i*2+1] = xy.Y[i]
		}
	}
	return out
}

// Options configures one pass. Nil pointers and nil slices leave the
// corresponding setting as it was; for a new pass they take the default.
type Options struct {
	// Positions is a flat x, y array. NaN coordinates break the line.
	// A non-nil empty slice clears the pass.
	Positions []float64

	// PositionsXY supplies positions as separate arrays. It is an error
	// to set it together with Positions.
	PositionsXY *XY

	// Thickness is the stroke width in pixels. Zero disables the stroke.
	Thickness *float64

	Join       Join
	MiterLimit *float64

	// Dashes lists alternating on and off run lengths in pixels. A non-nil
	// slice with fewer than two runs makes the line solid.
	Dashes []float64

	// Color strokes every point with one color.
	Color *color.NRGBA

	// Colors gives one color per point. It replaces Color and must hold at
	// least as many entries as the line has segments.
	Colors []color.NRGBA

	// Fill fills the polygon described by the positions. A fully
	// transparent color disables filling.
	Fill *color.NRGBA

	Opacity *float64

	// Overlay disables the depth test so the pass draws over earlier ones.
	Overlay *bool

	// Close connects the last point back to the first.
	Close *bool

	// Range is the data box [x0, y0, x1, y1] mapped onto the viewport.
	// It follows the bounds of the positions until set.
	Range *[4]float64

	// Viewport is the target rectangle in pixels. An empty rectangle
	// follows the drawing buffer.
	Viewport *Rect

	// Hole lists the point indices at which hole rings of the fill start.
	Hole []int

	// SplitNull triangulates NaN-separated runs as separate polygons.
	SplitNull *bool
}

// Ptr returns a pointer to v, for filling optional Options fields.
func Ptr[T any](v T) *T {
	return &v
}

// DefaultOptions returns the settings a new pass starts from.
func DefaultOptions() Options {
	return Options{
		Thickness:  Ptr(10.0),
		Join:       JoinMiter,
		MiterLimit: Ptr(1.0),
		Color:      &color.NRGBA{A: 0xff},
		Opacity:    Ptr(1.0),
		Overlay:    Ptr(false),
		Close:      Ptr(false),
	}
}

// merge returns o with every field that over specifies replaced. Slices
// are copied so callers may reuse theirs.
func (o Options) merge(over *Options) Options {
	if over == nil {
		return o
	}
	switch {
	case over.Positions != nil:
		o.Positions = slices.Clone(over.Positions)
	case over.PositionsXY != nil:
		o.Positions = over.PositionsXY.flatten()
	}
	o.PositionsXY = nil
	if over.Thickness != nil {
		o.Thickness = Ptr(*over.Thickness)
	}
	if over.Join != "" {
		o.Join = over.Join
	}
	if over.MiterLimit != nil {
		o.MiterLimit = Ptr(*over.MiterLimit)
	}
	if over.Dashes != nil {
		o.Dashes = slices.Clone(over.Dashes)
	}
	switch {
	case over.Colors != nil:
		o.Colors = slices.Clone(over.Colors)
		o.Color = nil
	case over.Color != nil:
		o.Color = Ptr(*over.Color)
		o.Colors = nil
	}
	if over.Fill != nil {
		o.Fill = Ptr(*over.Fill)
	}
	if over.Opacity != nil {
		o.Opacity = Ptr(*over.Opacity)
	}
	if over.Overlay != nil {
		o.Overlay = Ptr(*over.Overlay)
	}
	if over.Close != nil {
		o.Close = Ptr(*over.Close)
	}
	if over.Range != nil {
		o.Range = Ptr(*over.Range)
	}
	if over.Viewport != nil {
		o.Viewport = Ptr(*over.Viewport)
	}
	if over.Hole != nil {
		o.Hole = slices.Clone(over.Hole)
	}
	if over.SplitNull != nil {
		o.SplitNull = Ptr(*over.SplitNull)
	}
	return o
}

// validate checks the values o specifies without looking at pass state.
func (o *Options) validate() error {
	if o.Positions != nil && o.PositionsXY != nil {
		return fmt.Errorf("%w: both Positions and PositionsXY set", ErrInvalidOption)
	}
	if o.Color != nil && o.Colors != nil {
		return fmt.Errorf("%w: both Color and Colors set", ErrInvalidOption)
	}
	if !o.Join.valid() {
		return fmt.Errorf("%w: join %q", ErrInvalidOption, o.Join)
	}
	if o.Thickness != nil && !(*o.Thickness >= 0) {
		return fmt.Errorf("%w: thickness %v", ErrInvalidOption, *o.Thickness)
	}
	if o.MiterLimit != nil && !(*o.MiterLimit >= 0) {
		return fmt.Errorf("%w: miter limit %v", ErrInvalidOption, *o.MiterLimit)
	}
	if o.Opacity != nil && math.IsNaN(*o.Opacity) {
		return fmt.Errorf("%w: opacity NaN", ErrInvalidOption)
	}
	for _, d := range o.Dashes {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("%w: dash run %v", ErrInvalidOption, d)
		}
	}
	if o.Viewport != nil && (o.Viewport.Width < 0 || o.Viewport.Height < 0) {
		return fmt.Errorf("%w: viewport %+v", ErrInvalidOption, *o.Viewport)
	}
	for _, h := range o.Hole {
		if h < 0 {
			return fmt.Errorf("%w: hole index %d", ErrInvalidOption, h)
		}
	}
	return nil
}

// Option configures a Line during creation.
type Option func(*lineOptions)

type lineOptions struct {
	registry *gpucore.Registry
	defaults Options
}

func defaultLineOptions() lineOptions {
	return lineOptions{defaults: DefaultOptions()}
}

// WithRegistry shares compiled programs with other lines drawing on the
// same device. The caller owns r and closes it after the last line is
// destroyed. Without it each line compiles its own programs.
func WithRegistry(r *gpucore.Registry) Option {
	return func(o *lineOptions) {
		o.registry = r
	}
}

// WithDefaults overrides the package defaults for passes this line
// creates. Fields left unset keep the package default.
//
// Example:
//
//	l, err := line2d.New(dev, line2d.WithDefaults(line2d.Options{
//	    Thickness: line2d.Ptr(2.0),
//	    Join:      line2d.JoinRound,
//	}))
func WithDefaults(d Options) Option {
	return func(o *lineOptions) {
		o.defaults = DefaultOptions().merge(&d)
	}
}
