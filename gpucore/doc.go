// Package gpucore defines the GPU collaborator that line2d renders through.
//
// The [Device] interface is the whole contract: create, write and destroy
// buffers and textures, compile programs, and issue draw calls. Resources
// are addressed by opaque IDs ([BufferID], [TextureID], [ProgramID]); each
// device keeps its own mapping from IDs to backend objects.
//
//	             +------------------+
//	             |  line2d.Line     |
//	             |  (pass manager)  |
//	             +--------+---------+
//	                      |  gpucore.Device
//	         +------------+------------+
//	         |                         |
//	+--------v--------+       +--------v--------+
//	| backend/native  |       |    recording    |
//	|  (hal.Device)   |       | (in-memory, CPU |
//	|                 |       |   rasterizer)   |
//	+-----------------+       +-----------------+
//
// # Programs
//
// The three line programs (rect, miter, fill) and the shared corner buffer
// are owned by a [Registry], keyed by device. Programs are compiled on the
// first use of a device and released with [Registry.Release]. There is no
// process-wide cache; whoever creates the registry owns its lifetime.
//
// # Draw calls
//
// A [DrawCall] names a program, binds every vertex attribute to a buffer
// with its own stride, offset and divisor, and carries uniforms as a name
// to float32 map. Devices pack uniforms using the program's layout, so the
// same draw call works on any backend.
package gpucore
