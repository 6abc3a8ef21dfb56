package native

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/line2d/gpucore"
)

// vertexLayouts builds one vertex-buffer layout per program attribute, in
// attribute order, from the bindings of call. Each attribute reads offset 0
// of its own slot; the binding offset is applied when the slot is bound.
//
// The returned key identifies the stride and step-mode signature and is
// used to cache pipelines.
func vertexLayouts(desc *gpucore.ProgramDesc, call *gpucore.DrawCall) ([]gputypes.VertexBufferLayout, []gpucore.AttributeBinding, string, error) {
	layouts := make([]gputypes.VertexBufferLayout, len(desc.Attributes))
	bindings := make([]gpucore.AttributeBinding, len(desc.Attributes))

	var key strings.Builder
	for i, attr := range desc.Attributes {
		b, ok := call.Attribute(attr.Name)
		if !ok {
			return nil, nil, "", fmt.Errorf("%w: %q", ErrUnboundAttribute, attr.Name)
		}
		stride := uint64(b.Stride)
		if stride == 0 {
			stride = attr.Format.Size()
		}
		step := gputypes.VertexStepModeVertex
		if b.Divisor > 0 {
			step = gputypes.VertexStepModeInstance
		}
		layouts[i] = gputypes.VertexBufferLayout{
			ArrayStride: stride,
			StepMode:    step,
			Attributes: []gputypes.VertexAttribute{{
				Format:         attr.Format,
				ShaderLocation: attr.Location,
			}},
		}
		bindings[i] = b

		if i > 0 {
			key.WriteByte(',')
		}
		key.WriteString(strconv.FormatUint(stride, 10))
		if step == gputypes.VertexStepModeInstance {
			key.WriteByte('i')
		} else {
			key.WriteByte('v')
		}
	}
	return layouts, bindings, key.String(), nil
}

// bindGroupLayoutEntries lays out the uniform block at binding 0 and one
// texture/sampler pair per program texture after it.
func bindGroupLayoutEntries(desc *gpucore.ProgramDesc) []gputypes.BindGroupLayoutEntry {
	entries := []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}}
	for i := range desc.Textures {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    textureBinding(i),
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    samplerBinding(i),
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	return entries
}

func textureBinding(i int) uint32 { return uint32(1 + 2*i) }
func samplerBinding(i int) uint32 { return uint32(2 + 2*i) }

func primitiveState(desc *gpucore.ProgramDesc) gputypes.PrimitiveState {
	state := gputypes.PrimitiveState{
		Topology:  gputypes.PrimitiveTopologyTriangleList,
		FrontFace: gputypes.FrontFaceCCW,
		CullMode:  gputypes.CullModeNone,
	}
	if desc.Primitive == gpucore.PrimitiveTriangleStrip {
		state.Topology = gputypes.PrimitiveTopologyTriangleStrip
	}
	if desc.CullBack {
		state.CullMode = gputypes.CullModeBack
	}
	return state
}

// pixelRect is a rectangle in framebuffer coordinates (top-left origin).
type pixelRect struct {
	x, y, w, h int
}

// framebufferRect converts a bottom-left origin rectangle to framebuffer
// coordinates of a target height tall.
func framebufferRect(r gpucore.Rect, height int) pixelRect {
	return pixelRect{x: r.X, y: height - r.Y - r.Height, w: r.Width, h: r.Height}
}

// clip intersects r with the target bounds.
func (r pixelRect) clip(width, height int) pixelRect {
	x0, y0 := max(r.x, 0), max(r.y, 0)
	x1, y1 := min(r.x+r.w, width), min(r.y+r.h, height)
	if x1 <= x0 || y1 <= y0 {
		return pixelRect{}
	}
	return pixelRect{x: x0, y: y0, w: x1 - x0, h: y1 - y0}
}

func (r pixelRect) empty() bool { return r.w <= 0 || r.h <= 0 }

// align4 pads data to a multiple of four bytes, as queue writes require.
func align4(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, (len(data)+3)&^3)
	copy(out, data)
	return out
}

func addressMode(w gpucore.TextureWrap) gputypes.AddressMode {
	if w == gpucore.WrapClamp {
		return gputypes.AddressModeClampToEdge
	}
	return gputypes.AddressModeRepeat
}

func filterMode(f gpucore.TextureFilter) gputypes.FilterMode {
	if f == gpucore.FilterNearest {
		return gputypes.FilterModeNearest
	}
	return gputypes.FilterModeLinear
}
