// Package shaders holds the WGSL line programs and their binary layouts.
//
// The three programs share one uniform block layout for strokes (rect and
// miter) and a smaller one for fills. Layouts are expressed as data so a
// device can pack a uniform map without knowing which program it is running.
package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
)

//go:embed rect.wgsl
var rectSource string

//go:embed miter.wgsl
var miterSource string

//go:embed fill.wgsl
var fillSource string

// Entry points shared by every program.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// Attribute is one vertex input of a program.
type Attribute struct {
	Name     string
	Location uint32
	Format   gputypes.VertexFormat
}

// Field is one member of a uniform block. Components counts float32 words.
type Field struct {
	Name       string
	Offset     uint32
	Components int
}

// Kind identifies a line program.
type Kind int

// Programs.
const (
	Rect Kind = iota
	Miter
	Fill
)

func (k Kind) String() string {
	switch k {
	case Rect:
		return "rect"
	case Miter:
		return "miter"
	case Fill:
		return "fill"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Program is a shader source plus everything needed to build a pipeline
// for it.
type Program struct {
	Kind        Kind
	Source      string
	Attributes  []Attribute
	Uniforms    []Field
	UniformSize uint32
	// Dash is true when bindings 1 and 2 carry the dash texture and sampler.
	Dash     bool
	Strip    bool
	CullBack bool
}

// Uniform names.
const (
	UScale          = "scale"
	UScaleFract     = "scaleFract"
	UTranslate      = "translate"
	UTranslateFract = "translateFract"
	UViewport       = "viewport"
	UThickness      = "thickness"
	UPixelRatio     = "pixelRatio"
	UMiterLimit     = "miterLimit"
	UMiterMode      = "miterMode"
	UDashLength     = "dashLength"
	UOpacity        = "opacity"
	UDepth          = "depth"
	UColor          = "color"
)

// TDash names the dash texture binding.
const TDash = "dashTexture"

// Attribute names.
const (
	ALineEnd     = "lineEnd"
	ALineTop     = "lineTop"
	AACoord      = "aCoord"
	ABCoord      = "bCoord"
	AACoordFract = "aCoordFract"
	ABCoordFract = "bCoordFract"
	AColor       = "color"
	AAColor      = "aColor"
	ABColor      = "bColor"
	APrevCoord   = "prevCoord"
	ANextCoord   = "nextCoord"
	APosition    = "position"
	APosFract    = "positionFract"
)

// LineUniforms is the uniform block of the rect and miter programs.
var LineUniforms = []Field{
	{UScale, 0, 2},
	{UScaleFract, 8, 2},
	{UTranslate, 16, 2},
	{UTranslateFract, 24, 2},
	{UViewport, 32, 4},
	{UThickness, 48, 1},
	{UPixelRatio, 52, 1},
	{UMiterLimit, 56, 1},
	{UMiterMode, 60, 1},
	{UDashLength, 64, 1},
	{UOpacity, 68, 1},
	{UDepth, 72, 1},
}

// LineUniformSize is the byte size of the stroke uniform block.
const LineUniformSize = 80

// FillUniforms is the uniform block of the fill program.
var FillUniforms = []Field{
	{UScale, 0, 2},
	{UScaleFract, 8, 2},
	{UTranslate, 16, 2},
	{UTranslateFract, 24, 2},
	{UViewport, 32, 4},
	{UColor, 48, 4},
	{UOpacity, 64, 1},
	{UDepth, 68, 1},
}

// FillUniformSize is the byte size of the fill uniform block.
const FillUniformSize = 80

var programs = [...]Program{
	Rect: {
		Kind:   Rect,
		Source: rectSource,
		Attributes: []Attribute{
			{ALineEnd, 0, gputypes.VertexFormatFloat32},
			{ALineTop, 1, gputypes.VertexFormatFloat32},
			{AACoord, 2, gputypes.VertexFormatFloat32x2},
			{ABCoord, 3, gputypes.VertexFormatFloat32x2},
			{AACoordFract, 4, gputypes.VertexFormatFloat32x2},
			{ABCoordFract, 5, gputypes.VertexFormatFloat32x2},
			{AColor, 6, gputypes.VertexFormatUnorm8x4},
		},
		Uniforms:    LineUniforms,
		UniformSize: LineUniformSize,
		Dash:        true,
		Strip:       true,
	},
	Miter: {
		Kind:   Miter,
		Source: miterSource,
		Attributes: []Attribute{
			{ALineEnd, 0, gputypes.VertexFormatFloat32},
			{ALineTop, 1, gputypes.VertexFormatFloat32},
			{AAColor, 2, gputypes.VertexFormatUnorm8x4},
			{ABColor, 3, gputypes.VertexFormatUnorm8x4},
			{APrevCoord, 4, gputypes.VertexFormatFloat32x2},
			{AACoord, 5, gputypes.VertexFormatFloat32x2},
			{ABCoord, 6, gputypes.VertexFormatFloat32x2},
			{ANextCoord, 7, gputypes.VertexFormatFloat32x2},
		},
		Uniforms:    LineUniforms,
		UniformSize: LineUniformSize,
		Dash:        true,
		Strip:       true,
		CullBack:    true,
	},
	Fill: {
		Kind:   Fill,
		Source: fillSource,
		Attributes: []Attribute{
			{APosition, 0, gputypes.VertexFormatFloat32x2},
			{APosFract, 1, gputypes.VertexFormatFloat32x2},
		},
		Uniforms:    FillUniforms,
		UniformSize: FillUniformSize,
	},
}

// Get returns the program description for k.
func Get(k Kind) Program {
	return programs[k]
}

// All returns every program in Kind order.
func All() []Program {
	return programs[:]
}

// Attribute returns the attribute called name, if the program has one.
func (p *Program) Attribute(name string) (Attribute, bool) {
	for _, a := range p.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Pack writes values into a uniform block laid out as fields. Missing
// names stay zero; extra components are ignored.
func Pack(fields []Field, size uint32, values map[string][]float32) []float32 {
	out := make([]float32, size/4)
	for _, f := range fields {
		v := values[f.Name]
		base := int(f.Offset / 4)
		for i := 0; i < f.Components && i < len(v); i++ {
			out[base+i] = v[i]
		}
	}
	return out
}

// CompileSPIRV compiles WGSL source to little-endian SPIR-V words.
func CompileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shaders: compile: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shaders: compile: SPIR-V size %d is not word aligned", len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
