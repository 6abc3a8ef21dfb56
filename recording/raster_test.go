package recording

import (
	"image"
	"maps"
	"testing"

	"github.com/gogpu/line2d/gpucore"
	"github.com/gogpu/line2d/internal/shaders"
)

// strokeDraw records one horizontal segment from x0 to x1 (normalized) at
// y = 0.5 on a 100×100 device. edits adjust the call before it is drawn.
func strokeDraw(t *testing.T, kind shaders.Kind, dash []byte, vp gpucore.Rect, edits ...func(*gpucore.DrawCall)) *Device {
	t.Helper()
	d := New(100, 100)
	prog, err := d.CreateProgram(gpucore.ProgramDescFor(shaders.Get(kind)))
	if err != nil {
		t.Fatal(err)
	}
	corners, _ := d.CreateBuffer(&gpucore.BufferDesc{Data: gpucore.Float32Bytes(gpucore.Corners)})
	pos, _ := d.CreateBuffer(&gpucore.BufferDesc{Data: gpucore.Float32Bytes([]float32{
		0.1, 0.5, 0.1, 0.5, 0.9, 0.5, 0.9, 0.5,
	})})
	fract, _ := d.CreateBuffer(&gpucore.BufferDesc{Data: make([]byte, 32)})
	colors, _ := d.CreateBuffer(&gpucore.BufferDesc{Data: []byte{255, 0, 0, 255, 255, 0, 0, 255}})
	tex, _ := d.CreateTexture(&gpucore.TextureDesc{Width: len(dash), Height: 1, Data: dash})

	attrs := []gpucore.AttributeBinding{
		{Name: shaders.ALineEnd, Buffer: corners, Offset: gpucore.LineEndOffset, Stride: gpucore.CornerStride},
		{Name: shaders.ALineTop, Buffer: corners, Offset: gpucore.LineTopOffset, Stride: gpucore.CornerStride},
	}
	if kind == shaders.Miter {
		attrs = append(attrs,
			gpucore.AttributeBinding{Name: shaders.APrevCoord, Buffer: pos, Offset: 0, Stride: 8, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.AACoord, Buffer: pos, Offset: 8, Stride: 8, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.ABCoord, Buffer: pos, Offset: 16, Stride: 8, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.ANextCoord, Buffer: pos, Offset: 24, Stride: 8, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.AAColor, Buffer: colors, Offset: 0, Stride: 4, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.ABColor, Buffer: colors, Offset: 4, Stride: 4, Divisor: 1},
		)
	} else {
		attrs = append(attrs,
			gpucore.AttributeBinding{Name: shaders.AACoord, Buffer: pos, Offset: 8, Stride: 8, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.ABCoord, Buffer: pos, Offset: 16, Stride: 8, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.AACoordFract, Buffer: fract, Offset: 8, Stride: 8, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.ABCoordFract, Buffer: fract, Offset: 16, Stride: 8, Divisor: 1},
			gpucore.AttributeBinding{Name: shaders.AColor, Buffer: colors, Offset: 0, Stride: 4, Divisor: 1},
		)
	}

	call := &gpucore.DrawCall{
		Program:    prog,
		Count:      gpucore.CornerVertCount,
		Instances:  1,
		Attributes: attrs,
		Uniforms: map[string][]float32{
			shaders.UScale:      {1, 1},
			shaders.UTranslate:  {0, 0},
			shaders.UViewport:   {0, 0, 100, 100},
			shaders.UThickness:  {10},
			shaders.UOpacity:    {1},
			shaders.UDashLength: {float32(len(dash)) / 2},
			shaders.UMiterMode:  {1},
			shaders.UMiterLimit: {1},
		},
		Textures: map[string]gpucore.TextureID{shaders.TDash: tex},
		Viewport: vp,
		Scissor:  vp,
	}
	for _, edit := range edits {
		edit(call)
	}
	if err := d.Draw(call); err != nil {
		t.Fatalf("Draw() error: %v", err)
	}
	return d
}

var fullViewport = gpucore.Rect{Width: 100, Height: 100}

func alphaAt(img *image.RGBA, x, y int) uint8 {
	return img.Pix[img.PixOffset(x, y)+3]
}

func TestRasterizeRect(t *testing.T) {
	img := strokeDraw(t, shaders.Rect, []byte{255}, fullViewport).Rasterize()

	tests := []struct {
		name string
		x, y int
		want uint8
	}{
		{"center", 50, 50, 255},
		{"inside edge", 50, 46, 255},
		{"above", 50, 40, 0},
		{"below", 50, 60, 0},
		{"before start", 7, 50, 0},
	}
	for _, tt := range tests {
		if got := alphaAt(img, tt.x, tt.y); got != tt.want {
			t.Errorf("%s: alpha(%d,%d) = %d, want %d", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
	if r := img.Pix[img.PixOffset(50, 50)]; r != 255 {
		t.Errorf("red at center = %d, want 255", r)
	}
}

func TestRasterizeDepthTest(t *testing.T) {
	tests := []struct {
		name      string
		depthTest bool
		second    float32
		twice     bool
	}{
		{"disabled", false, 0, true},
		{"equal depth rejected", true, 0, false},
		{"nearer drawn", true, -0.5, true},
		{"farther rejected", true, 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := strokeDraw(t, shaders.Rect, []byte{255}, fullViewport, func(c *gpucore.DrawCall) {
				c.Uniforms[shaders.UOpacity] = []float32{0.5}
				c.DepthTest = tt.depthTest
			})
			again := d.Draws()[0].Call
			again.Uniforms = maps.Clone(again.Uniforms)
			again.Uniforms[shaders.UDepth] = []float32{tt.second}
			if err := d.Draw(&again); err != nil {
				t.Fatal(err)
			}

			// one blend at opacity 0.5 gives 128, two give more
			img := d.Rasterize()
			if got := alphaAt(img, 50, 50); (got > 128) != tt.twice {
				t.Errorf("alpha at center = %d, blended twice = %v, want %v", got, got > 128, tt.twice)
			}

			// Replay has no depth buffer.
			single := image.NewRGBA(img.Bounds())
			for _, rec := range d.Draws() {
				Replay(single, &rec)
			}
			if got := alphaAt(single, 50, 50); got <= 128 {
				t.Errorf("Replay alpha at center = %d, want both draws blended", got)
			}
		})
	}
}

func TestRasterizeMiterCaps(t *testing.T) {
	img := strokeDraw(t, shaders.Miter, []byte{255}, fullViewport).Rasterize()
	if got := alphaAt(img, 50, 50); got != 255 {
		t.Errorf("alpha at center = %d, want 255", got)
	}
	// square cap extends thickness/2 past the endpoint
	if got := alphaAt(img, 7, 50); got != 255 {
		t.Errorf("alpha in start cap = %d, want 255", got)
	}
	if got := alphaAt(img, 3, 50); got != 0 {
		t.Errorf("alpha beyond start cap = %d, want 0", got)
	}
}

func TestRasterizeDashed(t *testing.T) {
	// 8px period: 4 on, 4 off, stored twice
	dash := []byte{255, 255, 255, 255, 0, 0, 0, 0, 255, 255, 255, 255, 0, 0, 0, 0}
	img := strokeDraw(t, shaders.Rect, dash, fullViewport).Rasterize()

	on, off := 0, 0
	for x := 12; x < 88; x++ {
		switch a := alphaAt(img, x, 50); {
		case a > 200:
			on++
		case a < 55:
			off++
		}
	}
	if on == 0 || off == 0 {
		t.Errorf("dashed stroke has %d on and %d off pixels, want both", on, off)
	}
}

func TestRasterizeRespectsViewport(t *testing.T) {
	img := strokeDraw(t, shaders.Rect, []byte{255}, gpucore.Rect{Width: 50, Height: 100}).Rasterize()
	if got := alphaAt(img, 75, 50); got != 0 {
		t.Errorf("alpha outside viewport = %d, want 0", got)
	}
}

func TestRasterizeFill(t *testing.T) {
	d := New(100, 100)
	prog, _ := d.CreateProgram(gpucore.ProgramDescFor(shaders.Get(shaders.Fill)))
	pos, _ := d.CreateBuffer(&gpucore.BufferDesc{Data: gpucore.Float32Bytes([]float32{
		0.1, 0.1, 0.9, 0.1, 0.9, 0.9, 0.1, 0.9,
	})})
	fract, _ := d.CreateBuffer(&gpucore.BufferDesc{Data: make([]byte, 32)})
	elems, _ := d.CreateBuffer(&gpucore.BufferDesc{Kind: gpucore.BufferKindIndex, Data: gpucore.Uint32Bytes([]uint32{0, 1, 2, 0, 2, 3})})

	err := d.Draw(&gpucore.DrawCall{
		Program:  prog,
		Count:    6,
		Elements: elems,
		Attributes: []gpucore.AttributeBinding{
			{Name: shaders.APosition, Buffer: pos, Stride: 8},
			{Name: shaders.APosFract, Buffer: fract, Stride: 8},
		},
		Uniforms: map[string][]float32{
			shaders.UScale:    {1, 1},
			shaders.UViewport: {0, 0, 100, 100},
			shaders.UColor:    {0, 0, 1, 1},
			shaders.UOpacity:  {0.5},
		},
		Viewport: fullViewport,
	})
	if err != nil {
		t.Fatalf("Draw() error: %v", err)
	}
	img := d.Rasterize()

	if got := alphaAt(img, 50, 50); got < 126 || got > 129 {
		t.Errorf("fill alpha = %d, want ~128", got)
	}
	// shared diagonal must not leave a seam
	if got := alphaAt(img, 30, 69); got < 126 || got > 129 {
		t.Errorf("fill alpha on diagonal = %d, want ~128", got)
	}
	if got := alphaAt(img, 5, 5); got != 0 {
		t.Errorf("alpha outside fill = %d, want 0", got)
	}
}

func TestDashSampler(t *testing.T) {
	s := dashSampler{texels: []byte{255, 0}}
	tests := []struct {
		u    float32
		want float32
	}{
		{0.25, 1},
		{0.75, 0},
		{0.5, 0.5},
		{1.25, 1}, // repeat
	}
	for _, tt := range tests {
		if got := s.sample(tt.u); got < tt.want-1e-4 || got > tt.want+1e-4 {
			t.Errorf("sample(%v) = %v, want %v", tt.u, got, tt.want)
		}
	}
	if got := (dashSampler{}).sample(0.3); got != 1 {
		t.Errorf("empty sampler = %v, want 1", got)
	}
}
