package line2d

import (
	"errors"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/line2d/gpucore"
	"github.com/gogpu/line2d/internal/shaders"
	"github.com/gogpu/line2d/recording"
)

func TestClassify(t *testing.T) {
	vp := Rect{Width: 800, Height: 600}
	tests := []struct {
		name      string
		scale     [2]float64
		viewport  Rect
		join      Join
		thickness float64
		count     int
		want      Strategy
	}{
		{"miter", [2]float64{1, 1}, vp, JoinMiter, 10, 100, StrategyMiter},
		{"round", [2]float64{1, 1}, vp, JoinRound, 10, 100, StrategyMiter},
		{"thin miter stays miter", [2]float64{1, 1}, vp, JoinMiter, 1, 100, StrategyMiter},
		{"rect join", [2]float64{1, 1}, vp, JoinRect, 10, 100, StrategyRect},
		{"auto thin", [2]float64{1, 1}, vp, JoinAuto, 2, 100, StrategyRect},
		{"auto thick", [2]float64{1, 1}, vp, JoinAuto, 2.5, 100, StrategyMiter},
		{"auto dense", [2]float64{1, 1}, vp, JoinAuto, 10, MaxPoints, StrategyRect},
		{"unset join dense", [2]float64{1, 1}, vp, "", 10, MaxPoints + 1, StrategyRect},
		{"wide viewport", [2]float64{1, 1}, Rect{Width: 4e6, Height: 1}, JoinMiter, 10, 100, StrategyRect},
		{"tall zoom", [2]float64{1, 1e4}, Rect{Width: 1, Height: 400}, JoinRound, 10, 100, StrategyRect},
		{"at threshold", [2]float64{1, 1}, Rect{Width: 3e6, Height: 1}, JoinMiter, 10, 100, StrategyMiter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.scale, tt.viewport, tt.join, tt.thickness, tt.count)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrategyString(t *testing.T) {
	if StrategyRect.String() != "rect" || StrategyMiter.String() != "miter" {
		t.Errorf("String() = %q, %q", StrategyRect, StrategyMiter)
	}
	if got := Strategy(7).String(); got != "Strategy(7)" {
		t.Errorf("Strategy(7).String() = %q", got)
	}
}

// drawnPrograms renders l and returns the program names drawn.
func drawnPrograms(t *testing.T, dev *recording.Device, l *Line, indices ...int) []string {
	t.Helper()
	dev.Reset()
	if err := l.Draw(indices...); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	var names []string
	for _, d := range dev.Draws() {
		names = append(names, d.Program.Name)
	}
	return names
}

func TestDrawPrograms(t *testing.T) {
	square := []float64{0, 0, 10, 0, 10, 10, 0, 10}
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"default miter", Options{Positions: square}, []string{"miter"}},
		{"rect join", Options{Positions: square, Join: JoinRect}, []string{"rect"}},
		{"auto thin", Options{Positions: square, Join: JoinAuto, Thickness: Ptr(1.0)}, []string{"rect"}},
		{"extreme zoom", Options{Positions: square, Range: &[4]float64{0, 0, 1e-4, 10}}, []string{"rect"}},
		{"fill under stroke", Options{Positions: square, Fill: &color.NRGBA{G: 255, A: 255}}, []string{"fill", "miter"}},
		{"fill only", Options{Positions: square, Fill: &color.NRGBA{G: 255, A: 255}, Thickness: Ptr(0.0)}, []string{"fill"}},
		{"single point", Options{Positions: []float64{1, 1}}, nil},
		{"transparent", Options{Positions: square, Opacity: Ptr(0.0)}, nil},
		{"empty", Options{Positions: []float64{}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := recording.New(64, 64)
			l := newTestLine(t, dev)
			if err := l.Update(&tt.opts); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, drawnPrograms(t, dev, l)); diff != "" {
				t.Errorf("programs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDrawStrokeCall(t *testing.T) {
	dev := recording.New(64, 48, recording.WithPixelRatio(2))
	l := newTestLine(t, dev)
	err := l.Update(&Options{
		Positions: []float64{0, 0, 1, 1, 2, 0},
		Join:      JoinRound,
		Dashes:    []float64{4, 2},
		Overlay:   Ptr(true),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	draws := dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("len(Draws()) = %d, want 1", len(draws))
	}
	d := draws[0]
	s := mustPass(t, l, 0)

	if d.Call.Count != gpucore.CornerVertCount || d.Call.Instances != 3 {
		t.Errorf("Count, Instances = %d, %d, want %d, 3", d.Call.Count, d.Call.Instances, gpucore.CornerVertCount)
	}
	if d.Call.DepthTest {
		t.Error("overlay pass drawn with depth test")
	}
	full := Rect{Width: 64, Height: 48}
	if d.Call.Viewport != full || d.Call.Scissor != full {
		t.Errorf("Viewport, Scissor = %+v, %+v, want %+v", d.Call.Viewport, d.Call.Scissor, full)
	}
	if got := d.Call.Textures[shaders.TDash]; got != s.Buffers.Dash {
		t.Errorf("dash texture = %d, want %d", got, s.Buffers.Dash)
	}

	uniforms := map[string][]float32{
		shaders.UMiterMode:  {2},
		shaders.UPixelRatio: {2},
		shaders.UThickness:  {10},
		shaders.UDashLength: {6},
		shaders.UViewport:   {0, 0, 64, 48},
		shaders.UScale:      {1, 1},
		shaders.UDepth:      {float32(s.Depth)},
	}
	for name, want := range uniforms {
		if diff := cmp.Diff(want, d.Uniform(name)); diff != "" {
			t.Errorf("uniform %s mismatch (-want +got):\n%s", name, diff)
		}
	}

	attrs := []struct {
		name   string
		buffer gpucore.BufferID
		offset uint32
	}{
		{shaders.APrevCoord, s.Buffers.Position, 0},
		{shaders.AACoord, s.Buffers.Position, 8},
		{shaders.ABCoord, s.Buffers.Position, 16},
		{shaders.ANextCoord, s.Buffers.Position, 24},
		{shaders.AAColor, s.Buffers.Color, 0},
		{shaders.ABColor, s.Buffers.Color, 4},
	}
	for _, a := range attrs {
		b, ok := d.Call.Attribute(a.name)
		if !ok {
			t.Errorf("attribute %s not bound", a.name)
			continue
		}
		if b.Buffer != a.buffer || b.Offset != a.offset || b.Divisor != 1 {
			t.Errorf("attribute %s = %+v, want buffer %d offset %d per instance", a.name, b, a.buffer, a.offset)
		}
	}
}

func TestDrawRectAttributes(t *testing.T) {
	dev := recording.New(64, 64)
	l := newTestLine(t, dev)
	if err := l.Update(&Options{Positions: []float64{0, 0, 1, 1}, Join: JoinRect}); err != nil {
		t.Fatal(err)
	}
	if err := l.Draw(); err != nil {
		t.Fatal(err)
	}
	d := dev.Draws()[0]
	s := mustPass(t, l, 0)
	if !d.Call.DepthTest {
		t.Error("non-overlay stroke drawn without depth test")
	}
	for name, want := range map[string]gpucore.BufferID{
		shaders.AACoord:      s.Buffers.Position,
		shaders.AACoordFract: s.Buffers.PositionFract,
		shaders.ABCoordFract: s.Buffers.PositionFract,
		shaders.AColor:       s.Buffers.Color,
	} {
		if b, ok := d.Call.Attribute(name); !ok || b.Buffer != want {
			t.Errorf("attribute %s = %+v, want buffer %d", name, b, want)
		}
	}
}

func TestDrawFillCall(t *testing.T) {
	dev := recording.New(64, 64)
	l := newTestLine(t, dev)
	vp := Rect{X: 8, Y: 4, Width: 32, Height: 16}
	err := l.Update(&Options{
		Positions: []float64{0, 0, 10, 0, 10, 10, 0, 10},
		Fill:      &color.NRGBA{R: 255, A: 128},
		Thickness: Ptr(0.0),
		Viewport:  &vp,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Draw(); err != nil {
		t.Fatal(err)
	}
	d := dev.Draws()[0]
	s := mustPass(t, l, 0)

	if d.Call.Elements != s.Buffers.Elements || d.Call.Count != 6 || d.Call.Instances != 0 {
		t.Errorf("fill call = elements %d count %d instances %d", d.Call.Elements, d.Call.Count, d.Call.Instances)
	}
	if d.Call.Viewport != vp || d.Call.DepthTest {
		t.Errorf("fill viewport %+v depth %v", d.Call.Viewport, d.Call.DepthTest)
	}
	if diff := cmp.Diff([]float32{1, 0, 0, 128.0 / 255}, d.Uniform(shaders.UColor)); diff != "" {
		t.Errorf("fill color mismatch (-want +got):\n%s", diff)
	}
	if b, _ := d.Call.Attribute(shaders.APosition); b.Offset != 8 || b.Divisor != 0 {
		t.Errorf("position binding = %+v, want offset 8 per vertex", b)
	}
}

func TestDrawIndices(t *testing.T) {
	dev := recording.New(64, 64)
	l := newTestLine(t, dev)
	pts := []float64{0, 0, 1, 1}
	err := l.UpdateBatch([]PassUpdate{
		Set(&Options{Positions: pts}),
		Set(&Options{Positions: pts, Join: JoinRect}),
	})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"rect"}, drawnPrograms(t, dev, l, 1, 7, -1)); diff != "" {
		t.Errorf("Draw(1, 7, -1) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"miter", "rect"}, drawnPrograms(t, dev, l)); diff != "" {
		t.Errorf("Draw() mismatch (-want +got):\n%s", diff)
	}
}

func TestDrawContinuesPastDeviceErrors(t *testing.T) {
	dev := recording.New(64, 64)
	l := newTestLine(t, dev)
	pts := []float64{0, 0, 1, 1}
	_ = l.UpdateBatch([]PassUpdate{Set(&Options{Positions: pts}), Set(&Options{Positions: pts})})

	boom := errors.New("boom")
	dev.Reset()
	dev.FailNext(recording.CmdDraw, boom)
	if err := l.Draw(); !errors.Is(err, boom) {
		t.Errorf("Draw() error = %v, want %v", err, boom)
	}
	if n := len(dev.Draws()); n != 1 {
		t.Errorf("recorded draws = %d, want the second pass drawn", n)
	}
}

func TestRender(t *testing.T) {
	dev := recording.New(64, 64)
	l := newTestLine(t, dev)
	if err := l.Render(Set(&Options{Positions: []float64{0, 0, 1, 1}})); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(dev.Draws()) != 1 {
		t.Errorf("len(Draws()) = %d, want 1", len(dev.Draws()))
	}
	if err := l.Render(Set(&Options{Thickness: Ptr(-3.0)})); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("Render(invalid) error = %v, want ErrInvalidOption", err)
	}
}

func TestRasterizeHorizontalLine(t *testing.T) {
	dev := recording.New(64, 64)
	l := newTestLine(t, dev)
	err := l.Render(Set(&Options{
		Positions: []float64{0.1, 0.5, 0.9, 0.5},
		Range:     &[4]float64{0, 0, 1, 1},
		Thickness: Ptr(8.0),
		Color:     &color.NRGBA{B: 255, A: 255},
	}))
	if err != nil {
		t.Fatal(err)
	}

	img := dev.Rasterize()
	if c := img.RGBAAt(32, 32); c.A == 0 || c.B == 0 {
		t.Errorf("center pixel = %v, want blue", c)
	}
	if c := img.RGBAAt(32, 8); c.A != 0 {
		t.Errorf("pixel away from the line = %v, want transparent", c)
	}
	if c := img.RGBAAt(1, 32); c.A != 0 {
		t.Errorf("pixel left of the line start = %v, want transparent", c)
	}
}

func TestRasterizeFlatLineCentered(t *testing.T) {
	dev := recording.New(64, 64)
	l := newTestLine(t, dev)
	err := l.Render(Set(&Options{
		Positions: []float64{0, 3, 1, 3, 2, 3},
		Thickness: Ptr(6.0),
		Join:      JoinRect,
	}))
	if err != nil {
		t.Fatal(err)
	}

	img := dev.Rasterize()
	if c := img.RGBAAt(32, 32); c.A == 0 {
		t.Errorf("center pixel = %v, want the line drawn through the middle", c)
	}
	if c := img.RGBAAt(32, 62); c.A != 0 {
		t.Errorf("pixel at the bottom edge = %v, want transparent", c)
	}
}
