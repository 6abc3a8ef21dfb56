// Package recording provides an in-memory gpucore.Device.
//
// The device keeps buffer and texture contents in memory and records every
// operation as a typed [Command]. Draw calls are captured together with a
// snapshot of the data they read, so a recording can be inspected after the
// fact or turned into pixels with [Device.Rasterize].
//
// This design follows Cairo's recording surface: typed commands for
// inspectability, playback as a separate step.
//
// # Basic Usage
//
//	dev := recording.New(800, 600)
//	line, _ := line2d.New(dev)
//	_ = line.Render(line2d.Set(&line2d.Options{Positions: pts}))
//
//	for _, d := range dev.Draws() {
//	    fmt.Println(d.Program.Name, d.Call.Instances)
//	}
//	img := dev.Rasterize()
//
// # Rasterization
//
// Rasterize evaluates the line programs on the CPU using the same float32
// math as the shaders (internal/miter) and scan-converts the resulting
// triangles with golang.org/x/image/vector. It is a preview, not a
// pixel-exact reference. Draws composite in submission order; those with
// DepthTest set are also tested against a per-pixel depth buffer with a
// less-than compare, as the native backend does.
//
// # Capabilities
//
// Optional features can be switched off to exercise fallback paths:
//
//	dev := recording.New(800, 600, recording.WithoutInstancing())
package recording
