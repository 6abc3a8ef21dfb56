package recording

import (
	"encoding/binary"
	"image"
	"math"

	"github.com/chewxy/math32"
	"golang.org/x/image/vector"

	"github.com/gogpu/line2d/gpucore"
	"github.com/gogpu/line2d/internal/miter"
	"github.com/gogpu/line2d/internal/shaders"
	"github.com/gogpu/line2d/internal/splitfloat"
)

// Rasterize renders the recorded draws into a new image the size of the
// drawing buffer. Pixels are premultiplied, as in image.RGBA.
//
// Draws with DepthTest set are tested against a depth buffer cleared to 1
// with a less-than compare; every fragment they blend writes its depth.
func (d *Device) Rasterize() *image.RGBA {
	w, h := d.DrawingBufferSize()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	depth := make([]float32, w*h)
	for i := range depth {
		depth[i] = 1
	}
	draws := d.Draws()
	for i := range draws {
		replay(img, depth, &draws[i])
	}
	return img
}

// Replay renders one recorded draw onto img, treating img as the whole
// drawing buffer. There is no depth buffer, so DepthTest is ignored.
func Replay(img *image.RGBA, rec *DrawRecord) {
	replay(img, nil, rec)
}

func replay(img *image.RGBA, depth []float32, rec *DrawRecord) {
	c := canvas{img: img, h: img.Bounds().Dy()}
	if depth != nil && rec.Call.DepthTest {
		c.depth = depth
		c.z = uniform1(rec, shaders.UDepth, 0)*0.5 + 0.5
	}
	c.clip = c.toImage(rec.Call.Viewport)
	if !rec.Call.Scissor.Empty() {
		c.clip = c.clip.Intersect(c.toImage(rec.Call.Scissor))
	}
	if c.clip.Empty() {
		return
	}

	switch rec.Program.Name {
	case shaders.Rect.String(), shaders.Miter.String():
		c.strokes(rec)
	case shaders.Fill.String():
		c.fill(rec)
	}
}

type canvas struct {
	img  *image.RGBA
	h    int
	clip image.Rectangle

	// depth is nil unless the draw is depth tested.
	depth []float32
	z     float32
}

// toImage converts a bottom-left origin rectangle to image coordinates.
func (c *canvas) toImage(r gpucore.Rect) image.Rectangle {
	return image.Rect(r.X, c.h-r.Y-r.Height, r.X+r.Width, c.h-r.Y).Intersect(c.img.Bounds())
}

type rgba [4]float32

// shader returns the straight-alpha color of the fragment at px (pixels,
// y up).
type shader func(px miter.Vec2) rgba

// fillTriangles scan-converts triangles given in pixels (y up) and shades
// every covered pixel.
func (c *canvas) fillTriangles(tris [][3]miter.Vec2, shade shader) {
	if len(tris) == 0 {
		return
	}
	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := float32(-math.MaxFloat32), float32(-math.MaxFloat32)
	for _, t := range tris {
		for _, v := range t {
			x, y := v.X, float32(c.h)-v.Y
			minX, maxX = math32.Min(minX, x), math32.Max(maxX, x)
			minY, maxY = math32.Min(minY, y), math32.Max(maxY, y)
		}
	}
	if math32.IsNaN(minX) || math32.IsNaN(minY) || math32.IsInf(maxX, 0) || math32.IsInf(maxY, 0) {
		return
	}
	box := image.Rect(int(math32.Floor(minX)), int(math32.Floor(minY)), int(math32.Ceil(maxX)), int(math32.Ceil(maxY))).Intersect(c.clip)
	if box.Empty() {
		return
	}

	z := vector.NewRasterizer(box.Dx(), box.Dy())
	ox, oy := float32(box.Min.X), float32(box.Min.Y)
	for _, t := range tris {
		if t[0].IsNaN() || t[1].IsNaN() || t[2].IsNaN() {
			continue
		}
		// one winding for all triangles so shared edges sum to full coverage
		if cross(t[0], t[1], t[2]) < 0 {
			t[1], t[2] = t[2], t[1]
		}
		z.MoveTo(t[0].X-ox, float32(c.h)-t[0].Y-oy)
		z.LineTo(t[1].X-ox, float32(c.h)-t[1].Y-oy)
		z.LineTo(t[2].X-ox, float32(c.h)-t[2].Y-oy)
		z.ClosePath()
	}
	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	for y := 0; y < box.Dy(); y++ {
		for x := 0; x < box.Dx(); x++ {
			m := mask.Pix[y*mask.Stride+x]
			if m == 0 {
				continue
			}
			ix, iy := box.Min.X+x, box.Min.Y+y
			col := shade(miter.V(float32(ix)+0.5, float32(c.h-iy)-0.5))
			if !c.depthPass(ix, iy, col[3]*float32(m)) {
				continue
			}
			c.blend(ix, iy, col, float32(m)/255)
		}
	}
}

// depthPass runs the depth test for a fragment of the given alpha at
// (x, y). Fragments that pass and draw something write their depth.
func (c *canvas) depthPass(x, y int, alpha float32) bool {
	if c.depth == nil {
		return true
	}
	b := c.img.Bounds()
	i := (y-b.Min.Y)*b.Dx() + (x - b.Min.X)
	if !(c.z < c.depth[i]) {
		return false
	}
	if alpha > 0 {
		c.depth[i] = c.z
	}
	return true
}

// blend composites a straight-alpha color over the pixel with source-over.
func (c *canvas) blend(x, y int, col rgba, coverage float32) {
	a := clamp01(col[3] * coverage)
	if a <= 0 {
		return
	}
	i := c.img.PixOffset(x, y)
	p := c.img.Pix[i : i+4 : i+4]
	inv := 1 - a
	for k := 0; k < 3; k++ {
		p[k] = toByte(clamp01(col[k])*a + float32(p[k])/255*inv)
	}
	p[3] = toByte(a + float32(p[3])/255*inv)
}

func (c *canvas) strokes(rec *DrawRecord) {
	params := strokeParams(rec)
	opacity := uniform1(rec, shaders.UOpacity, 1)
	dashLength := uniform1(rec, shaders.UDashLength, 1)
	dash := dashTexture(rec)
	isMiter := rec.Program.Name == shaders.Miter.String()

	for i := 0; i < int(rec.Call.Instances); i++ {
		var (
			seg        miter.Segment
			colA, colB rgba
		)
		if isMiter {
			prev, _ := attrVec2(rec, shaders.APrevCoord, i)
			a, _ := attrVec2(rec, shaders.AACoord, i)
			b, _ := attrVec2(rec, shaders.ABCoord, i)
			next, _ := attrVec2(rec, shaders.ANextCoord, i)
			var ok bool
			if seg, ok = miter.Join(params, prev, a, b, next); !ok {
				continue
			}
			colA, _ = attrColor(rec, shaders.AAColor, i)
			colB, _ = attrColor(rec, shaders.ABColor, i)
		} else {
			a, _ := attrVec2(rec, shaders.AACoord, i)
			af, _ := attrVec2(rec, shaders.AACoordFract, i)
			b, _ := attrVec2(rec, shaders.ABCoord, i)
			bf, _ := attrVec2(rec, shaders.ABCoordFract, i)
			if a.IsNaN() || b.IsNaN() {
				continue
			}
			seg = miter.Rect(params, a.Add(af), b.Add(bf))
			colA, _ = attrColor(rec, shaders.AColor, i)
			colB = colA
		}

		var tris [][3]miter.Vec2
		for _, t := range seg.Quad.Triangles() {
			if rec.Program.CullBack && cross(t[0], t[1], t[2]) <= 0 {
				continue
			}
			tris = append(tris, [3]miter.Vec2{params.Pixel(t[0]), params.Pixel(t[1]), params.Pixel(t[2])})
		}

		startPx := params.Pixel(seg.Quad.ATop.Add(seg.Quad.ABot).Scale(0.5))
		endPx := params.Pixel(seg.Quad.BTop.Add(seg.Quad.BBot).Scale(0.5))
		axis := endPx.Sub(startPx)
		axisLen2 := axis.Dot(axis)

		c.fillTriangles(tris, func(px miter.Vec2) rgba {
			t := float32(0)
			if axisLen2 > 0 {
				t = clamp01(px.Sub(startPx).Dot(axis) / axisLen2)
			}
			var col rgba
			for k := range col {
				col[k] = colA[k]*(1-t) + colB[k]*t
			}
			cov := seg.Coverage(params, px)
			col[3] *= cov * opacity * dash.sample(miter.DashCoord(seg.Tangent, px, dashLength))
			return col
		})
	}
}

func (c *canvas) fill(rec *DrawRecord) {
	idx := rec.Buffers[rec.Call.Elements]
	if rec.Call.Elements == gpucore.InvalidID || len(idx) == 0 {
		return
	}
	scale := uniform2(rec, shaders.UScale)
	scaleFract := uniform2(rec, shaders.UScaleFract)
	translate := uniform2(rec, shaders.UTranslate)
	translateFract := uniform2(rec, shaders.UTranslateFract)
	vp := viewport(rec)

	project := func(i int) miter.Vec2 {
		p, _ := attrVec2(rec, shaders.APosition, i)
		pf, _ := attrVec2(rec, shaders.APosFract, i)
		x := splitfloat.Project(p.X, pf.X, scale.X, scaleFract.X, translate.X, translateFract.X)
		y := splitfloat.Project(p.Y, pf.Y, scale.Y, scaleFract.Y, translate.Y, translateFract.Y)
		return miter.V(x*vp[2]+vp[0], y*vp[3]+vp[1])
	}

	indices := gpucore.BytesUint32(idx)
	count := min(int(rec.Call.Count), len(indices))
	tris := make([][3]miter.Vec2, 0, count/3)
	for i := 0; i+2 < count; i += 3 {
		tris = append(tris, [3]miter.Vec2{
			project(int(indices[i])),
			project(int(indices[i+1])),
			project(int(indices[i+2])),
		})
	}

	col := rgba{0, 0, 0, 1}
	copy(col[:], rec.Uniform(shaders.UColor))
	col[3] *= uniform1(rec, shaders.UOpacity, 1)
	c.fillTriangles(tris, func(miter.Vec2) rgba { return col })
}

func strokeParams(rec *DrawRecord) miter.Params {
	vp := viewport(rec)
	return miter.Params{
		Scale:      uniform2(rec, shaders.UScale).Add(uniform2(rec, shaders.UScaleFract)),
		Translate:  uniform2(rec, shaders.UTranslate).Add(uniform2(rec, shaders.UTranslateFract)),
		Viewport:   vp,
		Thickness:  uniform1(rec, shaders.UThickness, 1),
		MiterLimit: uniform1(rec, shaders.UMiterLimit, 1),
		Mode:       miter.Mode(int(uniform1(rec, shaders.UMiterMode, 1))),
	}
}

func viewport(rec *DrawRecord) [4]float32 {
	var vp [4]float32
	copy(vp[:], rec.Uniform(shaders.UViewport))
	return vp
}

func uniform1(rec *DrawRecord, name string, def float32) float32 {
	if v := rec.Uniform(name); len(v) > 0 {
		return v[0]
	}
	return def
}

func uniform2(rec *DrawRecord, name string) miter.Vec2 {
	v := rec.Uniform(name)
	if len(v) < 2 {
		return miter.Vec2{}
	}
	return miter.V(v[0], v[1])
}

// attrVec2 reads element i of the attribute name; i is the instance
// index for instanced attributes and the vertex index otherwise.
func attrVec2(rec *DrawRecord, name string, i int) (miter.Vec2, bool) {
	data, b, ok := rec.Attribute(name)
	if !ok {
		return miter.Vec2{}, false
	}
	return readVec2(data, int(b.Offset)+int(b.Stride)*i)
}

func readVec2(data []byte, off int) (miter.Vec2, bool) {
	if off < 0 || off+8 > len(data) {
		return miter.Vec2{}, false
	}
	x := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
	return miter.V(x, y), true
}

func attrColor(rec *DrawRecord, name string, i int) (rgba, bool) {
	data, b, ok := rec.Attribute(name)
	off := int(b.Offset) + int(b.Stride)*i
	if !ok || off < 0 || off+4 > len(data) {
		return rgba{0, 0, 0, 1}, false
	}
	return rgba{
		float32(data[off]) / 255,
		float32(data[off+1]) / 255,
		float32(data[off+2]) / 255,
		float32(data[off+3]) / 255,
	}, true
}

type dashSampler struct {
	texels []byte
}

func dashTexture(rec *DrawRecord) dashSampler {
	id, ok := rec.Call.Textures[shaders.TDash]
	if !ok {
		return dashSampler{}
	}
	t, ok := rec.Textures[id]
	if !ok || t.Desc.Width <= 0 {
		return dashSampler{}
	}
	return dashSampler{texels: t.Data[:t.Desc.Width]}
}

// sample filters the first texture row linearly with repeat addressing.
// A missing texture samples as solid.
func (s dashSampler) sample(u float32) float32 {
	n := len(s.texels)
	if n == 0 {
		return 1
	}
	x := u*float32(n) - 0.5
	x0 := math32.Floor(x)
	f := x - x0
	i0 := wrap(int(x0), n)
	i1 := wrap(int(x0)+1, n)
	return (float32(s.texels[i0])*(1-f) + float32(s.texels[i1])*f) / 255
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func cross(a, b, c miter.Vec2) float32 {
	ab, ac := b.Sub(a), c.Sub(a)
	return ab.X*ac.Y - ab.Y*ac.X
}

func clamp01(x float32) float32 {
	return math32.Min(math32.Max(x, 0), 1)
}

func toByte(x float32) uint8 {
	return uint8(clamp01(x)*255 + 0.5)
}
