package recording

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/gogpu/line2d/gpucore"
)

// Option configures a Device.
type Option func(*Device)

// WithPixelRatio sets the reported device pixel ratio.
func WithPixelRatio(r float64) Option {
	return func(d *Device) { d.pixelRatio = r }
}

// WithoutInstancing reports a device without instanced attributes.
func WithoutInstancing() Option {
	return func(d *Device) { d.caps.Instancing = false }
}

// WithMaxTextureSize limits texture dimensions.
func WithMaxTextureSize(n int) Option {
	return func(d *Device) { d.caps.MaxTextureSize = n }
}

// Device is an in-memory gpucore.Device.
//
// Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	width, height int
	pixelRatio    float64
	caps          gpucore.Capabilities

	nextID   uint64
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*Texture
	programs map[gpucore.ProgramID]*gpucore.ProgramDesc

	commands []Command
	draws    []DrawRecord
	failures map[CommandType]error
}

type buffer struct {
	desc gpucore.BufferDesc
	data []byte
}

var _ gpucore.Device = (*Device)(nil)

// New creates a device with a width×height drawing buffer.
func New(width, height int, opts ...Option) *Device {
	d := &Device{
		width:      width,
		height:     height,
		pixelRatio: 1,
		caps: gpucore.Capabilities{
			Instancing:     true,
			MaxTextureSize: 8192,
		},
		buffers:  make(map[gpucore.BufferID]*buffer),
		textures: make(map[gpucore.TextureID]*Texture),
		programs: make(map[gpucore.ProgramID]*gpucore.ProgramDesc),
		failures: make(map[CommandType]error),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FailNext makes the next operation of type t return err.
func (d *Device) FailNext(t CommandType, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[t] = err
}

// Resize changes the drawing buffer size.
func (d *Device) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.width, d.height = width, height
}

// Capabilities implements gpucore.Device.
func (d *Device) Capabilities() gpucore.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

// DrawingBufferSize implements gpucore.Device.
func (d *Device) DrawingBufferSize() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// PixelRatio implements gpucore.Device.
func (d *Device) PixelRatio() float64 {
	return d.pixelRatio
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(CmdCreateBuffer); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.BufferID(d.allocID())
	d.buffers[id] = &buffer{desc: *desc, data: slices.Clone(desc.Data)}
	d.record(Command{Type: CmdCreateBuffer, ID: uint64(id), Size: len(desc.Data), Label: desc.Label})
	return id, nil
}

// WriteBuffer implements gpucore.Device.
func (d *Device) WriteBuffer(id gpucore.BufferID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(CmdWriteBuffer); err != nil {
		return err
	}
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("recording: write buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	b.data = slices.Clone(data)
	d.record(Command{Type: CmdWriteBuffer, ID: uint64(id), Size: len(data)})
	return nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.buffers[id]; !ok {
		return
	}
	delete(d.buffers, id)
	d.record(Command{Type: CmdDestroyBuffer, ID: uint64(id)})
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(CmdCreateTexture); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("recording: texture %dx%d: %w", desc.Width, desc.Height, gpucore.ErrInvalidDescriptor)
	}
	if desc.Width > d.caps.MaxTextureSize || desc.Height > d.caps.MaxTextureSize {
		return gpucore.InvalidID, fmt.Errorf("recording: texture %dx%d exceeds %d: %w",
			desc.Width, desc.Height, d.caps.MaxTextureSize, gpucore.ErrInvalidDescriptor)
	}

	data := make([]byte, desc.Width*desc.Height)
	copy(data, desc.Data)
	id := gpucore.TextureID(d.allocID())
	stored := *desc
	stored.Data = nil
	d.textures[id] = &Texture{Desc: stored, Data: data}
	d.record(Command{Type: CmdCreateTexture, ID: uint64(id), Size: len(data), Label: desc.Label})
	return id, nil
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, x, y, width, height int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(CmdWriteTexture); err != nil {
		return err
	}
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("recording: write texture %d: %w", id, gpucore.ErrUnknownResource)
	}
	if x < 0 || y < 0 || x+width > t.Desc.Width || y+height > t.Desc.Height || len(data) < width*height {
		return fmt.Errorf("recording: write texture %d: region %dx%d at (%d,%d) outside %dx%d: %w",
			id, width, height, x, y, t.Desc.Width, t.Desc.Height, gpucore.ErrInvalidDescriptor)
	}
	for row := 0; row < height; row++ {
		copy(t.Data[(y+row)*t.Desc.Width+x:], data[row*width:(row+1)*width])
	}
	d.record(Command{Type: CmdWriteTexture, ID: uint64(id), Size: width * height})
	return nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.textures[id]; !ok {
		return
	}
	delete(d.textures, id)
	d.record(Command{Type: CmdDestroyTexture, ID: uint64(id)})
}

// CreateProgram implements gpucore.Device.
func (d *Device) CreateProgram(desc *gpucore.ProgramDesc) (gpucore.ProgramID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(CmdCreateProgram); err != nil {
		return gpucore.InvalidID, err
	}
	stored := *desc
	id := gpucore.ProgramID(d.allocID())
	d.programs[id] = &stored
	d.record(Command{Type: CmdCreateProgram, ID: uint64(id), Label: desc.Label})
	return id, nil
}

// DestroyProgram implements gpucore.Device.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.programs[id]; !ok {
		return
	}
	delete(d.programs, id)
	d.record(Command{Type: CmdDestroyProgram, ID: uint64(id)})
}

// Draw implements gpucore.Device.
func (d *Device) Draw(call *gpucore.DrawCall) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(CmdDraw); err != nil {
		return err
	}
	prog, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("recording: draw with program %d: %w", call.Program, gpucore.ErrUnknownResource)
	}
	if call.Instances > 0 && !d.caps.Instancing {
		return fmt.Errorf("recording: instanced draw without instancing: %w", gpucore.ErrInvalidDescriptor)
	}

	rec := DrawRecord{
		Call:     *call,
		Program:  *prog,
		Buffers:  make(map[gpucore.BufferID][]byte),
		Textures: make(map[gpucore.TextureID]Texture),
	}
	rec.Call.Attributes = slices.Clone(call.Attributes)
	rec.Call.Uniforms = make(map[string][]float32, len(call.Uniforms))
	for k, v := range call.Uniforms {
		rec.Call.Uniforms[k] = slices.Clone(v)
	}
	rec.Call.Textures = maps.Clone(call.Textures)

	for _, a := range call.Attributes {
		b, ok := d.buffers[a.Buffer]
		if !ok {
			return fmt.Errorf("recording: attribute %s reads buffer %d: %w", a.Name, a.Buffer, gpucore.ErrUnknownResource)
		}
		rec.Buffers[a.Buffer] = slices.Clone(b.data)
	}
	if call.Elements != gpucore.InvalidID {
		b, ok := d.buffers[call.Elements]
		if !ok {
			return fmt.Errorf("recording: elements buffer %d: %w", call.Elements, gpucore.ErrUnknownResource)
		}
		rec.Buffers[call.Elements] = slices.Clone(b.data)
	}
	for name, id := range call.Textures {
		t, ok := d.textures[id]
		if !ok {
			return fmt.Errorf("recording: texture %s (%d): %w", name, id, gpucore.ErrUnknownResource)
		}
		rec.Textures[id] = Texture{Desc: t.Desc, Data: slices.Clone(t.Data)}
	}

	d.draws = append(d.draws, rec)
	d.record(Command{Type: CmdDraw, ID: uint64(call.Program), Size: len(d.draws) - 1, Label: prog.Name})
	return nil
}

// Commands returns a copy of the command log.
func (d *Device) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.commands)
}

// Draws returns the recorded draws.
func (d *Device) Draws() []DrawRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.draws)
}

// Reset clears the command log and recorded draws, keeping resources.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = nil
	d.draws = nil
}

// Buffer returns a copy of a live buffer's contents.
func (d *Device) Buffer(id gpucore.BufferID) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(b.data), true
}

// Texture returns a copy of a live texture.
func (d *Device) Texture(id gpucore.TextureID) (Texture, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return Texture{}, false
	}
	return Texture{Desc: t.Desc, Data: slices.Clone(t.Data)}, true
}

// Live returns the number of live buffers, textures and programs.
func (d *Device) Live() (buffers, textures, programs int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers), len(d.textures), len(d.programs)
}

func (d *Device) allocID() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) record(c Command) {
	d.commands = append(d.commands, c)
}

func (d *Device) takeFailure(t CommandType) error {
	err, ok := d.failures[t]
	if !ok {
		return nil
	}
	delete(d.failures, t)
	return err
}
