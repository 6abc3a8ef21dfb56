// Package native implements [gpucore.Device] on top of gogpu/wgpu's hal
// layer.
//
// Rendering is bracketed by frames:
//
//	dev, _ := native.New(halDevice, halQueue, native.WithFormat(format))
//	_ = dev.BeginFrame(view, width, height, nil)
//	_ = line.Draw()
//	_ = dev.EndFrame()
//
// Every program attribute is fed from its own vertex-buffer slot, so a single
// position buffer bound at different byte offsets supplies the previous,
// start, end and next coordinates of a segment instance. Per-draw uniform
// buffers and bind groups live until the GPU reports the frame's submission
// complete.
//
// Each frame carries a Depth32Float attachment cleared to 1. Draws with
// DepthTest compare less and write depth, so among non-overlay passes the
// one with the smaller depth uniform wins where they overlap.
//
// A device already owned by a host (for example a gogpu window) is shared
// through [NewFromProvider].
package native
