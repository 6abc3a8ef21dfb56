package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/line2d"
	"github.com/gogpu/line2d/gpucore"
	"github.com/gogpu/line2d/internal/shaders"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func newTestDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	d, err := New(device, queue, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func targetView(t *testing.T, d *Device) hal.TextureView {
	t.Helper()
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "target",
		Size:          hal.Extent3D{Width: 64, Height: 64, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("CreateTexture error = %v", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "target.view"})
	if err != nil {
		t.Fatalf("CreateTextureView error = %v", err)
	}
	return view
}

func TestNewNilDevice(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil, nil) error = %v, want ErrNilDevice", err)
	}
}

type halProvider struct {
	gpucontext.DeviceProvider
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (p halProvider) HalDevice() any                        { return p.device }
func (p halProvider) HalQueue() any                         { return p.queue }
func (p halProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }

type plainProvider struct {
	gpucontext.DeviceProvider
}

func TestNewFromProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := NewFromProvider(halProvider{device: device, queue: queue, format: gputypes.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatalf("NewFromProvider() error = %v", err)
	}
	if d.device != device || d.queue != queue {
		t.Error("provider device/queue not used")
	}
	if d.format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("format = %v, want provider surface format", d.format)
	}

	// explicit options win over the provider format
	d, err = NewFromProvider(halProvider{device: device, queue: queue, format: gputypes.TextureFormatRGBA8Unorm},
		WithFormat(gputypes.TextureFormatBGRA8Unorm))
	if err != nil {
		t.Fatalf("NewFromProvider() error = %v", err)
	}
	if d.format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("format = %v, want explicit option", d.format)
	}

	if _, err := NewFromProvider(plainProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("NewFromProvider(no hal) error = %v, want ErrNoHAL", err)
	}
	if _, err := NewFromProvider(halProvider{device: device}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("NewFromProvider(nil queue) error = %v, want ErrNoHAL", err)
	}
}

func TestCapabilities(t *testing.T) {
	d := newTestDevice(t, WithPixelRatio(2), WithSize(300, 150), WithMaxTextureSize(1024))
	caps := d.Capabilities()
	if !caps.Instancing || caps.MaxTextureSize != 1024 {
		t.Errorf("Capabilities() = %+v", caps)
	}
	if w, h := d.DrawingBufferSize(); w != 300 || h != 150 {
		t.Errorf("DrawingBufferSize() = %d, %d, want 300, 150", w, h)
	}
	if got := d.PixelRatio(); got != 2 {
		t.Errorf("PixelRatio() = %v, want 2", got)
	}
}

func TestBufferGrowth(t *testing.T) {
	d := newTestDevice(t)

	id, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "pos", Data: make([]byte, 8)})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	if got := d.buffers[id].size; got != 8 {
		t.Errorf("size = %d, want 8", got)
	}

	if err := d.WriteBuffer(id, make([]byte, 6)); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}
	if got := d.buffers[id].size; got != 8 {
		t.Errorf("size after small write = %d, want 8", got)
	}

	if err := d.WriteBuffer(id, make([]byte, 101)); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}
	if got := d.buffers[id].size; got != 104 {
		t.Errorf("size after grow = %d, want 104", got)
	}

	empty, err := d.CreateBuffer(&gpucore.BufferDesc{Kind: gpucore.BufferKindIndex})
	if err != nil {
		t.Fatalf("CreateBuffer(empty) error = %v", err)
	}
	if b := d.buffers[empty]; b.size != 4 || b.usage&gputypes.BufferUsageIndex == 0 {
		t.Errorf("empty index buffer = size %d usage %v", b.size, b.usage)
	}

	d.DestroyBuffer(id)
	d.DestroyBuffer(id)
	if err := d.WriteBuffer(id, nil); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("WriteBuffer(destroyed) error = %v, want ErrUnknownResource", err)
	}
}

func TestTextureValidation(t *testing.T) {
	d := newTestDevice(t, WithMaxTextureSize(64))

	tests := []struct {
		name string
		desc *gpucore.TextureDesc
		want error
	}{
		{"nil", nil, ErrInvalidDimensions},
		{"zero width", &gpucore.TextureDesc{Height: 1}, ErrInvalidDimensions},
		{"too wide", &gpucore.TextureDesc{Width: 65, Height: 1}, gpucore.ErrInvalidDescriptor},
		{"short data", &gpucore.TextureDesc{Width: 8, Height: 1, Data: []byte{1}}, gpucore.ErrInvalidDescriptor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.CreateTexture(tt.desc); !errors.Is(err, tt.want) {
				t.Errorf("CreateTexture() error = %v, want %v", err, tt.want)
			}
		})
	}

	id, err := d.CreateTexture(&gpucore.TextureDesc{Label: "dash", Width: 8, Height: 1, Data: make([]byte, 8)})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if err := d.WriteTexture(id, 4, 0, 4, 1, make([]byte, 4)); err != nil {
		t.Errorf("WriteTexture(inside) error = %v", err)
	}
	if err := d.WriteTexture(id, 6, 0, 4, 1, make([]byte, 4)); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("WriteTexture(outside) error = %v, want ErrInvalidDimensions", err)
	}
	d.DestroyTexture(id)
	if err := d.WriteTexture(id, 0, 0, 1, 1, []byte{0}); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("WriteTexture(destroyed) error = %v, want ErrUnknownResource", err)
	}
}

func TestCreatePrograms(t *testing.T) {
	for _, spirv := range []bool{false, true} {
		var opts []Option
		if spirv {
			opts = append(opts, WithSPIRV())
		}
		d := newTestDevice(t, opts...)
		for _, prog := range shaders.All() {
			id, err := d.CreateProgram(gpucore.ProgramDescFor(prog))
			if err != nil {
				t.Fatalf("CreateProgram(%s, spirv=%v) error = %v", prog.Kind, spirv, err)
			}
			p := d.programs[id]
			if p.module == nil || p.bindLayout == nil || p.layout == nil {
				t.Errorf("program %s missing hal objects", prog.Kind)
			}
		}
	}

	d := newTestDevice(t)
	if _, err := d.CreateProgram(&gpucore.ProgramDesc{Label: "empty"}); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("CreateProgram(empty) error = %v, want ErrInvalidDescriptor", err)
	}
}

// rectDraw binds every rect attribute and returns a one-instance draw.
func rectDraw(t *testing.T, d *Device, programs *gpucore.Programs) *gpucore.DrawCall {
	t.Helper()
	coords, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "coords", Data: make([]byte, 32)})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	colors, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "colors", Data: make([]byte, 8)})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	dash, err := d.CreateTexture(&gpucore.TextureDesc{Label: "dash", Width: 1, Height: 1, Data: []byte{255}})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	return &gpucore.DrawCall{
		Program:   programs.Rect,
		Count:     gpucore.CornerVertCount,
		Instances: 1,
		Attributes: []gpucore.AttributeBinding{
			{Name: shaders.ALineEnd, Buffer: programs.Corners, Offset: gpucore.LineEndOffset, Stride: gpucore.CornerStride},
			{Name: shaders.ALineTop, Buffer: programs.Corners, Offset: gpucore.LineTopOffset, Stride: gpucore.CornerStride},
			{Name: shaders.AACoord, Buffer: coords, Offset: 0, Stride: 8, Divisor: 1},
			{Name: shaders.ABCoord, Buffer: coords, Offset: 8, Stride: 8, Divisor: 1},
			{Name: shaders.AACoordFract, Buffer: coords, Offset: 16, Stride: 8, Divisor: 1},
			{Name: shaders.ABCoordFract, Buffer: coords, Offset: 24, Stride: 8, Divisor: 1},
			{Name: shaders.AColor, Buffer: colors, Stride: 4, Divisor: 1},
		},
		Uniforms: map[string][]float32{shaders.UThickness: {4}, shaders.UOpacity: {1}},
		Textures: map[string]gpucore.TextureID{shaders.TDash: dash},
	}
}

func TestFrameLifecycle(t *testing.T) {
	d := newTestDevice(t)
	reg := gpucore.NewRegistry()
	defer reg.Close()
	programs, err := reg.Programs(d)
	if err != nil {
		t.Fatalf("Programs() error = %v", err)
	}
	call := rectDraw(t, d, programs)

	if err := d.Draw(call); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Draw() outside frame error = %v, want ErrNoFrame", err)
	}
	if err := d.EndFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("EndFrame() outside frame error = %v, want ErrNoFrame", err)
	}

	view := targetView(t, d)
	if err := d.BeginFrame(view, 64, 32, &gputypes.Color{A: 1}); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := d.BeginFrame(view, 64, 32, nil); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("second BeginFrame() error = %v, want ErrFrameInProgress", err)
	}
	if w, h := d.DrawingBufferSize(); w != 64 || h != 32 {
		t.Errorf("DrawingBufferSize() = %d, %d, want frame size", w, h)
	}
	for i := 0; i < 3; i++ {
		if err := d.Draw(call); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}
	if got := len(d.programs[programs.Rect].pipelines); got != 1 {
		t.Errorf("pipelines = %d, want 1 cached pipeline", got)
	}
	if got := len(d.frame.release); got != 3 {
		t.Errorf("transient releases = %d, want one per draw", got)
	}
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	// noop submissions complete immediately
	if got := d.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestDrawErrors(t *testing.T) {
	d := newTestDevice(t)
	reg := gpucore.NewRegistry()
	defer reg.Close()
	programs, err := reg.Programs(d)
	if err != nil {
		t.Fatalf("Programs() error = %v", err)
	}
	if err := d.BeginFrame(targetView(t, d), 64, 64, nil); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	defer d.EndFrame()

	unbound := rectDraw(t, d, programs)
	unbound.Attributes = unbound.Attributes[:2]
	if err := d.Draw(unbound); !errors.Is(err, ErrUnboundAttribute) {
		t.Errorf("Draw(unbound) error = %v, want ErrUnboundAttribute", err)
	}

	noTexture := rectDraw(t, d, programs)
	noTexture.Textures = nil
	if err := d.Draw(noTexture); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("Draw(no texture) error = %v, want ErrUnknownResource", err)
	}

	badProgram := rectDraw(t, d, programs)
	badProgram.Program = 999
	if err := d.Draw(badProgram); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("Draw(bad program) error = %v, want ErrUnknownResource", err)
	}

	clipped := rectDraw(t, d, programs)
	clipped.Viewport = gpucore.Rect{X: 100, Y: 100, Width: 10, Height: 10}
	if err := d.Draw(clipped); err != nil {
		t.Errorf("Draw(offscreen) error = %v", err)
	}
	if got := d.frame.draws; got != 0 {
		t.Errorf("draws = %d, want offscreen draw skipped", got)
	}
}

func TestRetireDefersUntilSubmitted(t *testing.T) {
	d := newTestDevice(t)
	id, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "pos", Data: make([]byte, 4)})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	if err := d.BeginFrame(targetView(t, d), 8, 8, nil); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	d.DestroyBuffer(id)
	if got := len(d.frame.release); got != 1 {
		t.Errorf("frame releases = %d, want destroy deferred to the frame", got)
	}
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	if got := d.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestDepthTarget(t *testing.T) {
	d := newTestDevice(t)
	reg := gpucore.NewRegistry()
	defer reg.Close()
	programs, err := reg.Programs(d)
	if err != nil {
		t.Fatalf("Programs() error = %v", err)
	}
	view := targetView(t, d)

	if err := d.BeginFrame(view, 64, 32, nil); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if d.depth == nil || d.depth.width != 64 || d.depth.height != 32 {
		t.Fatalf("depth target = %+v, want 64x32", d.depth)
	}
	first := d.depth

	for _, depthTest := range []bool{false, true, true} {
		call := rectDraw(t, d, programs)
		call.DepthTest = depthTest
		if err := d.Draw(call); err != nil {
			t.Fatalf("Draw(depthTest=%v) error = %v", depthTest, err)
		}
	}
	if got := len(d.programs[programs.Rect].pipelines); got != 2 {
		t.Errorf("pipelines = %d, want one per depth mode", got)
	}
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}

	if err := d.BeginFrame(view, 64, 32, nil); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if d.depth != first {
		t.Error("depth target recreated for an unchanged size")
	}
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}

	if err := d.BeginFrame(view, 32, 32, nil); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if d.depth == first || d.depth.width != 32 {
		t.Errorf("depth target = %+v, want replaced at 32x32", d.depth)
	}
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
}

func TestLineOnSPIRVDevice(t *testing.T) {
	d := newTestDevice(t, WithSPIRV(), WithSize(64, 64))
	l, err := line2d.New(d)
	if err != nil {
		t.Fatalf("line2d.New() error = %v", err)
	}
	defer l.Destroy()

	err = l.UpdateBatch([]line2d.PassUpdate{
		line2d.Set(&line2d.Options{
			Positions: []float64{0, 0, 1, 1, 2, 0},
			Thickness: line2d.Ptr(6.0),
			Join:      line2d.JoinMiter,
		}),
		line2d.Set(&line2d.Options{
			Positions: []float64{0, 1, 1, 0, 2, 1},
			Thickness: line2d.Ptr(1.0),
			Join:      line2d.JoinRect,
			Overlay:   line2d.Ptr(true),
		}),
	})
	if err != nil {
		t.Fatalf("UpdateBatch() error = %v", err)
	}

	if err := d.BeginFrame(targetView(t, d), 64, 64, &gputypes.Color{A: 1}); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := l.Draw(); err != nil {
		t.Errorf("Draw() error = %v", err)
	}
	if got := d.frame.draws; got != 2 {
		t.Errorf("draws = %d, want a miter and a rect stroke", got)
	}
	if err := d.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
}
