package gpucore

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/line2d/internal/cache"
	"github.com/gogpu/line2d/internal/shaders"
)

// Corners is the triangle-strip template shared by every stroke instance:
// (lineEnd, lineTop) pairs for a-top, a-bottom, b-top, b-bottom.
var Corners = []float32{0, 1, 0, 0, 1, 1, 1, 0}

// Corner attribute layout inside the corner buffer.
const (
	CornerStride    = 8
	LineEndOffset   = 0
	LineTopOffset   = 4
	CornerVertCount = 4
)

// Programs are the per-device objects shared by all lines on a device.
type Programs struct {
	Rect    ProgramID
	Miter   ProgramID
	Fill    ProgramID
	Corners BufferID
}

// Registry owns Programs per device.
//
// Registry is safe for concurrent use.
type Registry struct {
	store  *cache.Store[Device, *registryEntry]
	logger atomic.Pointer[slog.Logger]
}

type registryEntry struct {
	dev      Device
	programs Programs
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{store: cache.New[Device, *registryEntry]()}
	r.logger.Store(slog.New(discardHandler{}))
	return r
}

// SetLogger sets the logger for lifecycle messages. nil silences it.
func (r *Registry) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	r.logger.Store(l)
}

// Programs returns the programs for dev, compiling them on first use.
func (r *Registry) Programs(dev Device) (*Programs, error) {
	if dev == nil {
		return nil, fmt.Errorf("gpucore: registry: nil device")
	}
	e, err := r.store.GetOrCreate(dev, func() (*registryEntry, error) {
		p, err := createPrograms(dev)
		if err != nil {
			return nil, err
		}
		r.logger.Load().Info("line2d: programs created",
			"rect", p.Rect, "miter", p.Miter, "fill", p.Fill)
		return &registryEntry{dev: dev, programs: p}, nil
	})
	if err != nil {
		return nil, err
	}
	return &e.programs, nil
}

// Release destroys the programs of dev. Lines still drawing on dev will
// recreate them.
func (r *Registry) Release(dev Device) {
	if e, ok := r.store.Delete(dev); ok {
		e.release()
		r.logger.Load().Info("line2d: programs released")
	}
}

// Close releases the programs of every device.
func (r *Registry) Close() {
	for _, e := range r.store.Drain() {
		e.release()
	}
}

// Len returns the number of devices with live programs.
func (r *Registry) Len() int {
	return r.store.Len()
}

func (e *registryEntry) release() {
	e.programs.destroy(e.dev)
}

func (p *Programs) destroy(dev Device) {
	for _, id := range []ProgramID{p.Rect, p.Miter, p.Fill} {
		if id != InvalidID {
			dev.DestroyProgram(id)
		}
	}
	if p.Corners != InvalidID {
		dev.DestroyBuffer(p.Corners)
	}
}

func createPrograms(dev Device) (Programs, error) {
	var p Programs
	ids := map[shaders.Kind]*ProgramID{
		shaders.Rect:  &p.Rect,
		shaders.Miter: &p.Miter,
		shaders.Fill:  &p.Fill,
	}
	for _, prog := range shaders.All() {
		id, err := dev.CreateProgram(ProgramDescFor(prog))
		if err != nil {
			p.destroy(dev)
			return Programs{}, fmt.Errorf("gpucore: create %s program: %w", prog.Kind, err)
		}
		*ids[prog.Kind] = id
	}

	corners, err := dev.CreateBuffer(&BufferDesc{
		Label: "line2d.corners",
		Kind:  BufferKindVertex,
		Usage: BufferUsageStatic,
		Data:  Float32Bytes(Corners),
	})
	if err != nil {
		p.destroy(dev)
		return Programs{}, fmt.Errorf("gpucore: create corner buffer: %w", err)
	}
	p.Corners = corners
	return p, nil
}

// ProgramDescFor converts a built-in program into a descriptor.
func ProgramDescFor(prog shaders.Program) *ProgramDesc {
	desc := &ProgramDesc{
		Label:       "line2d." + prog.Kind.String(),
		Name:        prog.Kind.String(),
		Source:      prog.Source,
		UniformSize: prog.UniformSize,
		Primitive:   PrimitiveTriangles,
		CullBack:    prog.CullBack,
	}
	if prog.Strip {
		desc.Primitive = PrimitiveTriangleStrip
	}
	if prog.Dash {
		desc.Textures = []string{shaders.TDash}
	}
	for _, a := range prog.Attributes {
		desc.Attributes = append(desc.Attributes, VertexAttribute{
			Name:     a.Name,
			Location: a.Location,
			Format:   a.Format,
		})
	}
	for _, f := range prog.Uniforms {
		desc.Uniforms = append(desc.Uniforms, UniformField{
			Name:       f.Name,
			Offset:     f.Offset,
			Components: f.Components,
		})
	}
	return desc
}

// PackUniforms lays out values according to desc's uniform block.
func PackUniforms(desc *ProgramDesc, values map[string][]float32) []float32 {
	fields := make([]shaders.Field, len(desc.Uniforms))
	for i, f := range desc.Uniforms {
		fields[i] = shaders.Field{Name: f.Name, Offset: f.Offset, Components: f.Components}
	}
	return shaders.Pack(fields, desc.UniformSize, values)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
