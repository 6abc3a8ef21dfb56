package gpucore

import "errors"

// Errors returned by devices.
var (
	// ErrUnknownResource is returned when an ID does not name a live
	// resource of the expected kind.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrInvalidDescriptor is returned for descriptors a device cannot
	// honor (empty textures, unsupported primitives, ...).
	ErrInvalidDescriptor = errors.New("gpucore: invalid descriptor")
)

// Device is the GPU collaborator.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying an unknown ID is a no-op
//   - IDs become invalid after destruction and are never reused
//
// Implementations must be safe for concurrent use.
type Device interface {
	// Capabilities reports optional features.
	Capabilities() Capabilities

	// DrawingBufferSize is the render target size in pixels.
	DrawingBufferSize() (width, height int)

	// PixelRatio is the device pixel ratio of the render target.
	PixelRatio() float64

	// CreateBuffer allocates a buffer, optionally with initial contents.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// WriteBuffer replaces the buffer contents, growing it if needed.
	WriteBuffer(id BufferID, data []byte) error

	// DestroyBuffer releases a buffer.
	DestroyBuffer(id BufferID)

	// CreateTexture allocates a texture.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// WriteTexture writes a sub-rectangle of texels.
	WriteTexture(id TextureID, x, y, width, height int, data []byte) error

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// CreateProgram compiles a program.
	CreateProgram(desc *ProgramDesc) (ProgramID, error)

	// DestroyProgram releases a program.
	DestroyProgram(id ProgramID)

	// Draw issues one draw call.
	Draw(call *DrawCall) error
}
