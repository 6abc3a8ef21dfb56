package line2d

import (
	"github.com/gogpu/line2d/gpucore"
	"github.com/gogpu/line2d/internal/segment"
	"github.com/gogpu/line2d/internal/shaders"
	"github.com/gogpu/line2d/internal/splitfloat"
)

// drawPass issues the fill and stroke draws of p.
func (l *Line) drawPass(progs *gpucore.Programs, p *pass) error {
	s := &p.state
	vp := s.Viewport
	if vp.Empty() {
		w, h := l.dev.DrawingBufferSize()
		vp = Rect{Width: w, Height: h}
	}

	pl := planFor(s, vp)
	if pl.fill {
		if err := l.dev.Draw(fillCall(progs, s, vp)); err != nil {
			return err
		}
	}
	if !pl.stroke {
		return nil
	}

	l.logger.Debug("line2d: stroke", "pass", s.ID, "strategy", pl.strategy, "count", s.Count)
	call := strokeCall(progs, s, vp, l.dev.PixelRatio())
	if pl.strategy == StrategyRect {
		call.Program = progs.Rect
		call.Attributes = append(call.Attributes, rectAttributes(&s.Buffers)...)
	} else {
		call.Program = progs.Miter
		call.Attributes = append(call.Attributes, miterAttributes(&s.Buffers)...)
	}
	return l.dev.Draw(call)
}

// transformUniforms returns the split scale and translate plus the
// viewport, shared by every program.
func transformUniforms(s *PassState, vp Rect) map[string][]float32 {
	scale, scaleFract := splitfloat.Pair(s.Scale)
	translate, translateFract := splitfloat.Pair(s.Translate)
	return map[string][]float32{
		shaders.UScale:          scale[:],
		shaders.UScaleFract:     scaleFract[:],
		shaders.UTranslate:      translate[:],
		shaders.UTranslateFract: translateFract[:],
		shaders.UViewport: {
			float32(vp.X), float32(vp.Y), float32(vp.Width), float32(vp.Height),
		},
		shaders.UOpacity: {float32(s.Opacity)},
		shaders.UDepth:   {float32(s.Depth)},
	}
}

func fillCall(progs *gpucore.Programs, s *PassState, vp Rect) *gpucore.DrawCall {
	u := transformUniforms(s, vp)
	c := s.Fill
	u[shaders.UColor] = []float32{
		float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255,
	}

	b := &s.Buffers
	return &gpucore.DrawCall{
		Program:  progs.Fill,
		Count:    uint32(len(s.Triangles)),
		Elements: b.Elements,
		Attributes: []gpucore.AttributeBinding{
			{Name: shaders.APosition, Buffer: b.Position, Offset: segment.AOffset, Stride: segment.PositionStride},
			{Name: shaders.APosFract, Buffer: b.PositionFract, Offset: segment.AOffset, Stride: segment.PositionStride},
		},
		Uniforms: u,
		Viewport: vp,
		Scissor:  vp,
	}
}

// strokeCall returns the parts of a stroke draw common to both programs:
// one corner strip per segment instance.
func strokeCall(progs *gpucore.Programs, s *PassState, vp Rect, pixelRatio float64) *gpucore.DrawCall {
	u := transformUniforms(s, vp)
	u[shaders.UThickness] = []float32{float32(s.Thickness)}
	u[shaders.UPixelRatio] = []float32{float32(pixelRatio)}
	u[shaders.UMiterLimit] = []float32{float32(s.MiterLimit)}
	u[shaders.UMiterMode] = []float32{s.Join.miterMode()}
	u[shaders.UDashLength] = []float32{float32(s.DashLength)}

	return &gpucore.DrawCall{
		Count:     gpucore.CornerVertCount,
		Instances: uint32(s.Count),
		Attributes: []gpucore.AttributeBinding{
			{Name: shaders.ALineEnd, Buffer: progs.Corners, Offset: gpucore.LineEndOffset, Stride: gpucore.CornerStride},
			{Name: shaders.ALineTop, Buffer: progs.Corners, Offset: gpucore.LineTopOffset, Stride: gpucore.CornerStride},
		},
		Uniforms:  u,
		Textures:  map[string]gpucore.TextureID{shaders.TDash: s.Buffers.Dash},
		Viewport:  vp,
		Scissor:   vp,
		DepthTest: !s.Overlay,
	}
}

func instanced(name string, buf gpucore.BufferID, offset, stride uint32) gpucore.AttributeBinding {
	return gpucore.AttributeBinding{Name: name, Buffer: buf, Offset: offset, Stride: stride, Divisor: 1}
}

func rectAttributes(b *PassBuffers) []gpucore.AttributeBinding {
	return []gpucore.AttributeBinding{
		instanced(shaders.AACoord, b.Position, segment.AOffset, segment.PositionStride),
		instanced(shaders.ABCoord, b.Position, segment.BOffset, segment.PositionStride),
		instanced(shaders.AACoordFract, b.PositionFract, segment.AOffset, segment.PositionStride),
		instanced(shaders.ABCoordFract, b.PositionFract, segment.BOffset, segment.PositionStride),
		instanced(shaders.AColor, b.Color, segment.AColorOffset, segment.ColorStride),
	}
}

func miterAttributes(b *PassBuffers) []gpucore.AttributeBinding {
	return []gpucore.AttributeBinding{
		instanced(shaders.AAColor, b.Color, segment.AColorOffset, segment.ColorStride),
		instanced(shaders.ABColor, b.Color, segment.BColorOffset, segment.ColorStride),
		instanced(shaders.APrevCoord, b.Position, segment.PrevOffset, segment.PositionStride),
		instanced(shaders.AACoord, b.Position, segment.AOffset, segment.PositionStride),
		instanced(shaders.ABCoord, b.Position, segment.BOffset, segment.PositionStride),
		instanced(shaders.ANextCoord, b.Position, segment.NextOffset, segment.PositionStride),
	}
}
