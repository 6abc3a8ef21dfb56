package recording

import (
	"fmt"

	"github.com/gogpu/line2d/gpucore"
)

// CommandType identifies a recorded device operation.
type CommandType uint8

const (
	CmdCreateBuffer CommandType = iota
	CmdWriteBuffer
	CmdDestroyBuffer
	CmdCreateTexture
	CmdWriteTexture
	CmdDestroyTexture
	CmdCreateProgram
	CmdDestroyProgram
	CmdDraw
)

var commandNames = [...]string{
	CmdCreateBuffer:   "CreateBuffer",
	CmdWriteBuffer:    "WriteBuffer",
	CmdDestroyBuffer:  "DestroyBuffer",
	CmdCreateTexture:  "CreateTexture",
	CmdWriteTexture:   "WriteTexture",
	CmdDestroyTexture: "DestroyTexture",
	CmdCreateProgram:  "CreateProgram",
	CmdDestroyProgram: "DestroyProgram",
	CmdDraw:           "Draw",
}

// String returns the operation name.
func (t CommandType) String() string {
	if int(t) < len(commandNames) {
		return commandNames[t]
	}
	return fmt.Sprintf("CommandType(%d)", t)
}

// Command is one recorded operation.
type Command struct {
	Type CommandType

	// ID is the resource the command touched; for CmdDraw it is the program.
	ID uint64

	// Size is the byte count written or allocated, or the index of the
	// draw record for CmdDraw.
	Size int

	Label string
}

func (c Command) String() string {
	if c.Label != "" {
		return fmt.Sprintf("%s(%d %q, %d)", c.Type, c.ID, c.Label, c.Size)
	}
	return fmt.Sprintf("%s(%d, %d)", c.Type, c.ID, c.Size)
}

// DrawRecord is a draw call with the data it read at submission.
type DrawRecord struct {
	Call    gpucore.DrawCall
	Program gpucore.ProgramDesc

	// Buffers holds a copy of every buffer the call referenced.
	Buffers map[gpucore.BufferID][]byte

	// Textures holds a copy of every texture the call referenced.
	Textures map[gpucore.TextureID]Texture
}

// Texture is the stored state of a texture.
type Texture struct {
	Desc gpucore.TextureDesc
	Data []byte
}

// Attribute returns the bytes feeding the named attribute along with its
// binding.
func (r *DrawRecord) Attribute(name string) ([]byte, gpucore.AttributeBinding, bool) {
	b, ok := r.Call.Attribute(name)
	if !ok {
		return nil, b, false
	}
	data, ok := r.Buffers[b.Buffer]
	return data, b, ok
}

// Uniform returns the named uniform value, or nil.
func (r *DrawRecord) Uniform(name string) []float32 {
	return r.Call.Uniforms[name]
}
