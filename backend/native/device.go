package native

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/line2d/gpucore"
	"github.com/gogpu/line2d/internal/shaders"
)

// Option configures a Device.
type Option func(*Device)

// WithFormat sets the color format of the frames the device renders into.
// The default is BGRA8Unorm.
func WithFormat(f gputypes.TextureFormat) Option {
	return func(d *Device) { d.format = f }
}

// WithPixelRatio sets the device pixel ratio reported to lines.
func WithPixelRatio(r float64) Option {
	return func(d *Device) {
		if r > 0 {
			d.pixelRatio = r
		}
	}
}

// WithSize sets the drawing buffer size reported between frames.
func WithSize(width, height int) Option {
	return func(d *Device) { d.width, d.height = width, height }
}

// WithSPIRV makes the device compile programs to SPIR-V with naga instead
// of handing WGSL to the driver.
func WithSPIRV() Option {
	return func(d *Device) { d.spirv = true }
}

// WithMaxTextureSize overrides the reported texture dimension limit.
func WithMaxTextureSize(n int) Option {
	return func(d *Device) { d.maxTexture = n }
}

// Device implements gpucore.Device over a hal device and queue.
//
// Device is safe for concurrent use, but draws are only accepted between
// BeginFrame and EndFrame.
type Device struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	format     gputypes.TextureFormat
	pixelRatio float64
	spirv      bool
	maxTexture int
	width      int
	height     int

	nextID   uint64
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ProgramID]*program

	frame   *frame
	depth   *depthTarget
	pending []submission

	logger atomic.Pointer[slog.Logger]
}

type buffer struct {
	label string
	buf   hal.Buffer
	size  uint64
	usage gputypes.BufferUsage
}

type texture struct {
	tex     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	width   int
	height  int
}

type program struct {
	desc       gpucore.ProgramDesc
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	layout     hal.PipelineLayout
	pipelines  map[string]hal.RenderPipeline
}

// New wraps a hal device and queue.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	d := &Device{
		device:     device,
		queue:      queue,
		format:     gputypes.TextureFormatBGRA8Unorm,
		pixelRatio: 1,
		maxTexture: int(gputypes.DefaultLimits().MaxTextureDimension2D),
		buffers:    make(map[gpucore.BufferID]*buffer),
		textures:   make(map[gpucore.TextureID]*texture),
		programs:   make(map[gpucore.ProgramID]*program),
	}
	d.logger.Store(slog.New(nopHandler{}))
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewFromProvider shares the device of a host such as a gogpu window. The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. Frames default to the provider's surface
// format.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		opts = append([]Option{WithFormat(f)}, opts...)
	}
	return New(device, queue, opts...)
}

// SetLogger sets the logger for diagnostics. nil silences it.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	d.logger.Store(l)
}

// Capabilities implements gpucore.Device. WebGPU always supports
// instancing.
func (d *Device) Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{Instancing: true, MaxTextureSize: d.maxTexture}
}

// DrawingBufferSize returns the size of the current frame, or the
// configured size between frames.
func (d *Device) DrawingBufferSize() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// PixelRatio implements gpucore.Device.
func (d *Device) PixelRatio() float64 {
	return d.pixelRatio
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer: %w", gpucore.ErrInvalidDescriptor)
	}
	usage := gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	if desc.Kind == gpucore.BufferKindIndex {
		usage = gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	b := &buffer{label: desc.Label, usage: usage}
	if err := d.allocate(b, uint64(len(desc.Data))); err != nil {
		return gpucore.InvalidID, err
	}
	if len(desc.Data) > 0 {
		if err := d.queue.WriteBuffer(b.buf, 0, align4(desc.Data)); err != nil {
			d.device.DestroyBuffer(b.buf)
			return gpucore.InvalidID, fmt.Errorf("native: write buffer %q: %w", desc.Label, err)
		}
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = b
	return id, nil
}

// allocate (re)creates the hal buffer of b with room for size bytes.
// The caller must hold d.mu.
func (d *Device) allocate(b *buffer, size uint64) error {
	size = max((size+3)&^3, 4)
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  size,
		Usage: b.usage,
	})
	if err != nil {
		return fmt.Errorf("native: create buffer %q: %w", b.label, err)
	}
	b.buf, b.size = buf, size
	return nil
}

// WriteBuffer implements gpucore.Device. A buffer too small for data is
// replaced; the old one is released once no submission uses it.
func (d *Device) WriteBuffer(id gpucore.BufferID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("native: write buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if uint64(len(data)) > b.size {
		old := b.buf
		if err := d.allocate(b, uint64(len(data))); err != nil {
			return err
		}
		d.retire(func() { d.device.DestroyBuffer(old) })
		d.logger.Load().Debug("native: buffer grown", "label", b.label, "size", b.size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.queue.WriteBuffer(b.buf, 0, align4(data)); err != nil {
		return fmt.Errorf("native: write buffer %q: %w", b.label, err)
	}
	return nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.retire(func() { d.device.DestroyBuffer(b.buf) })
}

// CreateTexture implements gpucore.Device. Textures are single-channel
// R8Unorm with a sampler built from the descriptor's filter and wrap.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: create texture: %w", ErrInvalidDimensions)
	}
	if desc.Width > d.maxTexture || desc.Height > d.maxTexture {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %dx%d exceeds %d: %w",
			desc.Width, desc.Height, d.maxTexture, gpucore.ErrInvalidDescriptor)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           desc.Label + ".view",
		Format:          gputypes.TextureFormatR8Unorm,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("native: create texture view %q: %w", desc.Label, err)
	}
	mode := addressMode(desc.Wrap)
	filter := filterMode(desc.Filter)
	sampler, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label + ".sampler",
		AddressModeU: mode,
		AddressModeV: mode,
		AddressModeW: mode,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("native: create sampler %q: %w", desc.Label, err)
	}

	t := &texture{tex: tex, view: view, sampler: sampler, width: desc.Width, height: desc.Height}
	if len(desc.Data) > 0 {
		if err := d.writeTexture(t, 0, 0, desc.Width, desc.Height, desc.Data); err != nil {
			t.destroy(d.device)
			return gpucore.InvalidID, err
		}
	}
	id := gpucore.TextureID(d.id())
	d.textures[id] = t
	return id, nil
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, x, y, width, height int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("native: write texture %d: %w", id, gpucore.ErrUnknownResource)
	}
	return d.writeTexture(t, x, y, width, height, data)
}

func (d *Device) writeTexture(t *texture, x, y, width, height int, data []byte) error {
	if x < 0 || y < 0 || width <= 0 || height <= 0 || x+width > t.width || y+height > t.height {
		return fmt.Errorf("native: write texture region (%d,%d %dx%d) outside %dx%d: %w",
			x, y, width, height, t.width, t.height, ErrInvalidDimensions)
	}
	if len(data) < width*height {
		return fmt.Errorf("native: write texture: %d bytes for %dx%d: %w",
			len(data), width, height, gpucore.ErrInvalidDescriptor)
	}
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture: t.tex,
			Origin:  hal.Origin3D{X: uint32(x), Y: uint32(y)},
			Aspect:  gputypes.TextureAspectAll,
		},
		data[:width*height],
		&hal.ImageDataLayout{BytesPerRow: uint32(width), RowsPerImage: uint32(height)},
		&hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: write texture: %w", err)
	}
	return nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.retire(func() { t.destroy(d.device) })
}

func (t *texture) destroy(device hal.Device) {
	device.DestroySampler(t.sampler)
	device.DestroyTextureView(t.view)
	device.DestroyTexture(t.tex)
}

// CreateProgram implements gpucore.Device. Pipelines are built on first
// draw, once the vertex strides are known.
func (d *Device) CreateProgram(desc *gpucore.ProgramDesc) (gpucore.ProgramID, error) {
	if desc == nil || desc.Source == "" || desc.UniformSize == 0 {
		return gpucore.InvalidID, fmt.Errorf("native: create program: %w", gpucore.ErrInvalidDescriptor)
	}

	source := hal.ShaderSource{WGSL: desc.Source}
	if d.spirv {
		code, err := shaders.CompileSPIRV(desc.Source)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("native: program %q: %w", desc.Label, err)
		}
		source = hal.ShaderSource{SPIRV: code}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p := &program{desc: *desc, pipelines: make(map[string]hal.RenderPipeline)}
	var err error
	p.module, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: source,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create shader module %q: %w", desc.Label, err)
	}
	p.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label + ".bind_layout",
		Entries: bindGroupLayoutEntries(desc),
	})
	if err != nil {
		p.destroy(d.device)
		return gpucore.InvalidID, fmt.Errorf("native: create bind group layout %q: %w", desc.Label, err)
	}
	p.layout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + ".pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroy(d.device)
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline layout %q: %w", desc.Label, err)
	}

	id := gpucore.ProgramID(d.id())
	d.programs[id] = p
	d.logger.Load().Debug("native: program created", "label", desc.Label, "spirv", d.spirv)
	return id, nil
}

// DestroyProgram implements gpucore.Device.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[id]
	if !ok {
		return
	}
	delete(d.programs, id)
	d.retire(func() { p.destroy(d.device) })
}

// destroy releases pipelines first, then layouts, then the module.
func (p *program) destroy(device hal.Device) {
	for _, pl := range p.pipelines {
		device.DestroyRenderPipeline(pl)
	}
	p.pipelines = nil
	if p.layout != nil {
		device.DestroyPipelineLayout(p.layout)
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
	}
	if p.module != nil {
		device.DestroyShaderModule(p.module)
	}
}

// pipeline returns the pipeline of p for a vertex layout signature and
// depth mode. Depth-tested pipelines compare less and write depth; the
// others always pass and leave the depth buffer alone.
// The caller must hold d.mu.
func (d *Device) pipeline(p *program, layouts []gputypes.VertexBufferLayout, key string, depthTest bool) (hal.RenderPipeline, error) {
	compare := gputypes.CompareFunctionAlways
	if depthTest {
		compare = gputypes.CompareFunctionLess
		key += "|depth"
	}
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}
	stencil := hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways}
	blend := gputypes.BlendStatePremultiplied()
	pl, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  p.desc.Label,
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: shaders.VertexEntry,
			Buffers:    layouts,
		},
		Primitive: primitiveState(&p.desc),
		DepthStencil: &hal.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: depthTest,
			DepthCompare:      compare,
			StencilFront:      stencil,
			StencilBack:       stencil,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: shaders.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    d.format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create render pipeline %q: %w", p.desc.Label, err)
	}
	p.pipelines[key] = pl
	d.logger.Load().Debug("native: pipeline created", "label", p.desc.Label, "layout", key)
	return pl, nil
}

// Close waits for the GPU and releases every resource the device created.
// The hal device itself stays owned by the caller.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frame != nil {
		d.frame.pass.End()
		d.frame.encoder.DiscardEncoding()
		d.pending = append(d.pending, submission{release: d.frame.release})
		d.frame = nil
	}
	if err := d.device.WaitIdle(); err != nil {
		d.logger.Load().Warn("native: wait idle", "err", err)
	}
	d.reclaim(true)

	if d.depth != nil {
		d.depth.destroy(d.device)
		d.depth = nil
	}
	for id, p := range d.programs {
		p.destroy(d.device)
		delete(d.programs, id)
	}
	for id, t := range d.textures {
		t.destroy(d.device)
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
}

// nopHandler is a slog.Handler that discards all records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var _ gpucore.Device = (*Device)(nil)
