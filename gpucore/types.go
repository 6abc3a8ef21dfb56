package gpucore

import "github.com/gogpu/gputypes"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// ProgramID is an opaque handle to a compiled render program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferKind tells the device how a buffer will be bound.
type BufferKind uint8

// Buffer kinds.
const (
	// BufferKindVertex is a vertex attribute source.
	BufferKindVertex BufferKind = iota

	// BufferKindIndex holds uint32 triangle indices.
	BufferKindIndex
)

// BufferUsage is an update-frequency hint.
type BufferUsage uint8

// Buffer usage hints.
const (
	// BufferUsageStatic is written once.
	BufferUsageStatic BufferUsage = iota

	// BufferUsageDynamic is rewritten on updates.
	BufferUsageDynamic
)

// BufferDesc describes a buffer to create. Data may be nil.
type BufferDesc struct {
	Label string
	Kind  BufferKind
	Usage BufferUsage
	Data  []byte
}

// TextureFilter selects texture sampling.
type TextureFilter uint8

// Texture filters.
const (
	FilterLinear TextureFilter = iota
	FilterNearest
)

// TextureWrap selects texture addressing outside [0, 1].
type TextureWrap uint8

// Texture wrap modes.
const (
	WrapRepeat TextureWrap = iota
	WrapClamp
)

// TextureDesc describes a single-channel 8-bit texture.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Filter TextureFilter
	Wrap   TextureWrap
	Data   []byte
}

// Primitive is the assembly mode of a program.
type Primitive uint8

// Primitives.
const (
	PrimitiveTriangleStrip Primitive = iota
	PrimitiveTriangles
)

// VertexAttribute is one program input.
type VertexAttribute struct {
	Name     string
	Location uint32
	Format   gputypes.VertexFormat
}

// UniformField is one member of a program's uniform block.
type UniformField struct {
	Name       string
	Offset     uint32
	Components int
}

// ProgramDesc describes a render program.
//
// Bindings are fixed: the uniform block is binding 0 of group 0; each entry
// of Textures takes a texture binding followed by a sampler binding.
type ProgramDesc struct {
	Label string

	// Name is the program family, e.g. "rect".
	Name string

	// Source is WGSL with entry points vs_main and fs_main.
	Source string

	Attributes  []VertexAttribute
	Uniforms    []UniformField
	UniformSize uint32
	Textures    []string
	Primitive   Primitive
	CullBack    bool
}

// AttributeBinding feeds one program attribute from a buffer.
//
// Several bindings may read the same buffer at different offsets; that is
// how one position buffer supplies prev, a, b and next coordinates.
type AttributeBinding struct {
	Name    string
	Buffer  BufferID
	Offset  uint32
	Stride  uint32
	Divisor uint32 // 0 per vertex, 1 per instance
}

// Rect is a pixel rectangle with a bottom-left origin, as in viewport
// uniforms.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// DrawCall is one draw of a program.
type DrawCall struct {
	Program ProgramID

	// Count is the vertex count per instance, or the index count when
	// Elements is set.
	Count uint32

	// Instances is the instance count; 0 draws without instancing.
	Instances uint32

	// Elements is an optional uint32 index buffer.
	Elements BufferID

	Attributes []AttributeBinding
	Uniforms   map[string][]float32
	Textures   map[string]TextureID

	Viewport Rect
	Scissor  Rect

	// DepthTest compares the fragment depth against the target's depth
	// buffer with less-than and writes it on success. Without it the draw
	// ignores and keeps the depth buffer.
	DepthTest bool
}

// Attribute returns the binding called name.
func (c *DrawCall) Attribute(name string) (AttributeBinding, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeBinding{}, false
}

// Capabilities describes optional device features.
type Capabilities struct {
	// Instancing reports per-instance attribute divisors.
	Instancing bool

	// MaxTextureSize is the largest texture dimension, in texels.
	MaxTextureSize int
}
