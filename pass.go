package line2d

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"slices"

	"github.com/gogpu/line2d/gpucore"
	"github.com/gogpu/line2d/internal/bounds"
	"github.com/gogpu/line2d/internal/dash"
	"github.com/gogpu/line2d/internal/normalize"
	"github.com/gogpu/line2d/internal/segment"
	"github.com/gogpu/line2d/internal/splitfloat"
)

// PassUpdate is one entry of a batch update. The zero value keeps the pass
// at its index untouched.
type PassUpdate struct {
	opts   *Options
	remove bool
}

// Set updates the pass at this index with o, creating it if needed.
func Set(o *Options) PassUpdate {
	return PassUpdate{opts: o}
}

// Keep leaves the pass at this index as it is.
func Keep() PassUpdate {
	return PassUpdate{}
}

// Remove destroys the pass at this index. Later passes move down.
func Remove() PassUpdate {
	return PassUpdate{remove: true}
}

// PassBuffers are the device resources of a pass.
type PassBuffers struct {
	Position      gpucore.BufferID
	PositionFract gpucore.BufferID
	Color         gpucore.BufferID

	// Elements holds fill triangle indices. It is created with the first
	// fill.
	Elements gpucore.BufferID

	Dash gpucore.TextureID
}

// PassState is the resolved state of one pass.
type PassState struct {
	// ID is the batch index the pass was created at. It does not change
	// when earlier passes are removed.
	ID int

	// Points is the number of input points.
	Points int

	// Count is the number of segment instances drawn.
	Count int

	Thickness  float64
	Join       Join
	MiterLimit float64
	Opacity    float64
	Overlay    bool
	Close      bool
	SplitNull  bool

	// Depth is the overlay depth in [-1, 1).
	Depth float64

	// Color is nil when per-point colors are in use.
	Color  *color.NRGBA
	Colors []color.NRGBA

	// Fill is nil when the pass is not filled.
	Fill      *color.NRGBA
	Hole      []int
	Triangles []int

	Dashes     []float64
	DashLength float64

	Bounds [4]float64
	Range  [4]float64

	// Viewport is empty when the pass follows the drawing buffer.
	Viewport Rect

	Scale     [2]float64
	Translate [2]float64

	Buffers PassBuffers
}

func (s *PassState) clone() *PassState {
	c := *s
	c.Colors = slices.Clone(s.Colors)
	c.Hole = slices.Clone(s.Hole)
	c.Triangles = slices.Clone(s.Triangles)
	c.Dashes = slices.Clone(s.Dashes)
	if s.Color != nil {
		c.Color = Ptr(*s.Color)
	}
	if s.Fill != nil {
		c.Fill = Ptr(*s.Fill)
	}
	return &c
}

// pass is one polyline with its device buffers.
type pass struct {
	state PassState

	// opts is every option applied so far, merged over the defaults.
	opts Options

	dashWidth int
}

// newPass allocates the buffers and the solid dash texture of a pass.
func newPass(dev gpucore.Device, id int, defaults Options) (*pass, error) {
	p := &pass{opts: defaults, dashWidth: 1}
	p.state.ID = id
	p.state.DashLength = 1

	var err error
	b := &p.state.Buffers
	for _, slot := range []struct {
		id    *gpucore.BufferID
		label string
	}{
		{&b.Position, "position"},
		{&b.PositionFract, "positionFract"},
		{&b.Color, "color"},
	} {
		*slot.id, err = dev.CreateBuffer(&gpucore.BufferDesc{
			Label: fmt.Sprintf("line2d.pass%d.%s", id, slot.label),
			Kind:  gpucore.BufferKindVertex,
			Usage: gpucore.BufferUsageDynamic,
		})
		if err != nil {
			p.destroy(dev)
			return nil, fmt.Errorf("line2d: create %s buffer: %w", slot.label, err)
		}
	}

	solid := dash.Synthesize(nil, DashMultiplier)
	b.Dash, err = dev.CreateTexture(dashTextureDesc(id, solid.Data))
	if err != nil {
		p.destroy(dev)
		return nil, fmt.Errorf("line2d: create dash texture: %w", err)
	}
	return p, nil
}

func dashTextureDesc(id int, data []byte) *gpucore.TextureDesc {
	return &gpucore.TextureDesc{
		Label:  fmt.Sprintf("line2d.pass%d.dash", id),
		Width:  len(data),
		Height: 1,
		Filter: gpucore.FilterLinear,
		Wrap:   gpucore.WrapRepeat,
		Data:   data,
	}
}

func (p *pass) destroy(dev gpucore.Device) {
	b := &p.state.Buffers
	for _, id := range []*gpucore.BufferID{&b.Position, &b.PositionFract, &b.Color, &b.Elements} {
		if *id != gpucore.InvalidID {
			dev.DestroyBuffer(*id)
			*id = gpucore.InvalidID
		}
	}
	if b.Dash != gpucore.InvalidID {
		dev.DestroyTexture(b.Dash)
		b.Dash = gpucore.InvalidID
	}
}

// staged holds everything an update computes before it touches the pass.
type staged struct {
	opts  Options
	state PassState

	positions     []float32
	positionFract []float32
	colors        []byte
	triangles     []uint32
	dash          *dash.Bitmap
}

// stage resolves o against the pass and computes the new buffer contents.
// It fails without side effects on configuration errors.
func (p *pass) stage(o *Options, slot int, caps gpucore.Capabilities, logger *slog.Logger) (*staged, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	st := &staged{opts: p.opts.merge(o), state: p.state}
	next, s := &st.opts, &st.state

	s.Thickness = *next.Thickness
	s.Join = next.Join
	s.MiterLimit = *next.MiterLimit
	s.Opacity = *next.Opacity
	s.Overlay = *next.Overlay
	s.Close = *next.Close
	s.SplitNull = next.SplitNull != nil && *next.SplitNull
	s.Hole = next.Hole
	if next.Viewport != nil {
		s.Viewport = *next.Viewport
	}
	if o.Overlay != nil && slot < MaxLines {
		s.Depth = 2*float64(MaxLines-1-slot%MaxLines)/MaxLines - 1
	}

	positionsChanged := o.Positions != nil || o.PositionsXY != nil || o.Close != nil
	if positionsChanged {
		raw := next.Positions
		s.Points = len(raw) / 2
		raw = raw[:s.Points*2]
		b := bounds.Of(raw, 2)
		copy(s.Bounds[:], b)

		norm := normalize.Copy(raw, 2, b)
		data, count := segment.Positions(raw, norm, s.Close)
		s.Count = count
		st.positions, st.positionFract = splitfloat.Split(data)
	}

	if o.Color != nil || o.Colors != nil || positionsChanged {
		if next.Colors != nil {
			data, err := segment.Colors(s.Count, next.Colors)
			if err != nil {
				return nil, fmt.Errorf("%w: %d colors for %d points", ErrNotEnoughColors, len(next.Colors), s.Count)
			}
			st.colors = data
			s.Color, s.Colors = nil, next.Colors
		} else {
			st.colors = segment.SolidColors(s.Count, *next.Color)
			s.Color, s.Colors = next.Color, nil
		}
	}

	if o.Dashes != nil {
		pattern := dash.New(next.Dashes...)
		if pattern.Length() > MaxPatternLength {
			return nil, fmt.Errorf("%w: period %v exceeds %d", ErrPatternTooLong, pattern.Length(), MaxPatternLength)
		}
		bm := pattern.Bitmap(DashMultiplier)
		if caps.MaxTextureSize > 0 && len(bm.Data) > caps.MaxTextureSize {
			return nil, fmt.Errorf("%w: %d texels exceed device limit %d", ErrPatternTooLong, len(bm.Data), caps.MaxTextureSize)
		}
		st.dash = &bm
		s.DashLength = bm.Length
		s.Dashes = nil
		if pattern.IsDashed() {
			s.Dashes = pattern.Runs
		}
	}

	filled := next.Fill != nil && next.Fill.A != 0
	switch {
	case !filled:
		s.Fill, s.Triangles = nil, nil
	case positionsChanged || o.Fill != nil || o.Hole != nil || o.SplitNull != nil || p.state.Fill == nil:
		s.Fill = next.Fill
		s.Triangles = segment.FillTriangles(next.Positions, s.Points, s.Hole, s.SplitNull)
		st.triangles = make([]uint32, len(s.Triangles))
		for i, e := range s.Triangles {
			st.triangles[i] = uint32(e)
		}
	default:
		s.Fill = next.Fill
	}

	if next.Range != nil {
		s.Range = *next.Range
	} else {
		s.Range = s.Bounds
	}
	if (o.Range != nil || positionsChanged) && s.Count > 0 {
		if bounds.Empty(s.Bounds[:]) {
			logger.Debug("line2d: no finite points, transform cleared", "pass", s.ID)
			s.Scale, s.Translate = [2]float64{}, [2]float64{}
		} else {
			s.Scale, s.Translate = fitRange(s.Bounds, s.Range, s.ID, logger)
		}
	}

	return st, nil
}

// fitRange maps normalized positions into the range box. An axis without
// a usable mapping collapses onto the middle of the viewport: scale 0 and
// translate 0.5. That covers flat data, where normalized coordinates are
// already 0.5, as well as zero-width or non-finite range boxes.
func fitRange(b, r [4]float64, id int, logger *slog.Logger) (scale, translate [2]float64) {
	for axis := 0; axis < 2; axis++ {
		bw := b[axis+2] - b[axis]
		rw := r[axis+2] - r[axis]
		s := bw / rw
		t := (b[axis] - r[axis]) / rw
		if rw == 0 || math.IsNaN(s) || math.IsInf(s, 0) || math.IsNaN(t) || math.IsInf(t, 0) {
			level := slog.LevelWarn
			if bw == 0 {
				level = slog.LevelDebug
			}
			logger.Log(context.Background(), level, "line2d: degenerate range, axis centered",
				"pass", id, "axis", axis, "range", r, "bounds", b)
			translate[axis] = 0.5
			continue
		}
		scale[axis], translate[axis] = s, t
	}
	return scale, translate
}

// commit uploads st and makes it the pass state. Device errors leave the
// CPU state updated so the next update retries the uploads.
func (p *pass) commit(dev gpucore.Device, st *staged) error {
	b := &st.state.Buffers
	var errs []error

	if st.positions != nil {
		errs = append(errs,
			dev.WriteBuffer(b.Position, gpucore.Float32Bytes(st.positions)),
			dev.WriteBuffer(b.PositionFract, gpucore.Float32Bytes(st.positionFract)),
		)
	}
	if st.colors != nil {
		errs = append(errs, dev.WriteBuffer(b.Color, st.colors))
	}
	if st.triangles != nil {
		data := gpucore.Uint32Bytes(st.triangles)
		if b.Elements == gpucore.InvalidID {
			id, err := dev.CreateBuffer(&gpucore.BufferDesc{
				Label: fmt.Sprintf("line2d.pass%d.elements", st.state.ID),
				Kind:  gpucore.BufferKindIndex,
				Usage: gpucore.BufferUsageDynamic,
				Data:  data,
			})
			b.Elements = id
			errs = append(errs, err)
		} else {
			errs = append(errs, dev.WriteBuffer(b.Elements, data))
		}
	}
	if st.dash != nil {
		errs = append(errs, p.writeDash(dev, b, st.dash.Data))
	}

	p.opts = st.opts
	p.state = st.state
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("line2d: upload pass %d: %w", p.state.ID, err)
	}
	return nil
}

// writeDash writes data at the start of the dash texture, replacing the
// texture when the width changes.
func (p *pass) writeDash(dev gpucore.Device, b *PassBuffers, data []byte) error {
	if b.Dash != gpucore.InvalidID && len(data) == p.dashWidth {
		return dev.WriteTexture(b.Dash, 0, 0, len(data), 1, data)
	}
	id, err := dev.CreateTexture(dashTextureDesc(p.state.ID, data))
	if err != nil {
		return err
	}
	if b.Dash != gpucore.InvalidID {
		dev.DestroyTexture(b.Dash)
	}
	b.Dash = id
	p.dashWidth = len(data)
	return nil
}
