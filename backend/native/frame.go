package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/line2d/gpucore"
)

// frame is one open render pass.
type frame struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	width   int
	height  int
	draws   int
	release []func()
}

// submission is work handed to the queue whose transient resources are
// released once the queue reports it complete.
type submission struct {
	index   uint64
	cmd     hal.CommandBuffer
	release []func()
}

// depthFormat is the format of the frame depth attachment.
const depthFormat = gputypes.TextureFormatDepth32Float

// depthTarget is the depth attachment shared by frames of one size.
type depthTarget struct {
	tex    hal.Texture
	view   hal.TextureView
	width  int
	height int
}

func (t *depthTarget) destroy(device hal.Device) {
	device.DestroyTextureView(t.view)
	device.DestroyTexture(t.tex)
}

// depthView returns the depth attachment for a width x height frame,
// replacing the previous one when the size changed.
// The caller must hold d.mu.
func (d *Device) depthView(width, height int) (hal.TextureView, error) {
	if t := d.depth; t != nil && t.width == width && t.height == height {
		return t.view, nil
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "line2d.depth",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create depth texture: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "line2d.depth.view",
		Format:          depthFormat,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectDepthOnly,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("native: create depth view: %w", err)
	}
	if old := d.depth; old != nil {
		d.retire(func() { old.destroy(d.device) })
	}
	d.depth = &depthTarget{tex: tex, view: view, width: width, height: height}
	d.logger.Load().Debug("native: depth target created", "width", width, "height", height)
	return view, nil
}

// BeginFrame opens a render pass into view, a width x height color target
// in the device format. A nil background keeps the target contents. The
// depth attachment is cleared to 1 on every frame.
func (d *Device) BeginFrame(view hal.TextureView, width, height int, background *gputypes.Color) error {
	if view == nil || width <= 0 || height <= 0 {
		return fmt.Errorf("native: begin frame %dx%d: %w", width, height, ErrInvalidDimensions)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frame != nil {
		return ErrFrameInProgress
	}
	d.reclaim(false)

	depth, err := d.depthView(width, height)
	if err != nil {
		return err
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "line2d.frame"})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("line2d.frame"); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	attachment := hal.RenderPassColorAttachment{
		View:    view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if background != nil {
		attachment.LoadOp = gputypes.LoadOpClear
		attachment.ClearValue = *background
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "line2d.pass",
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1,
		},
	})

	d.frame = &frame{encoder: encoder, pass: pass, width: width, height: height}
	d.width, d.height = width, height
	return nil
}

// Draw implements gpucore.Device. It records into the open frame.
func (d *Device) Draw(call *gpucore.DrawCall) error {
	if call == nil {
		return fmt.Errorf("native: draw: %w", gpucore.ErrInvalidDescriptor)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f := d.frame
	if f == nil {
		return ErrNoFrame
	}
	p, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("native: draw program %d: %w", call.Program, gpucore.ErrUnknownResource)
	}

	layouts, bindings, key, err := vertexLayouts(&p.desc, call)
	if err != nil {
		return fmt.Errorf("native: draw %q: %w", p.desc.Label, err)
	}
	slots := make([]*buffer, len(bindings))
	for i, b := range bindings {
		if slots[i], ok = d.buffers[b.Buffer]; !ok {
			return fmt.Errorf("native: draw %q attribute %q buffer %d: %w",
				p.desc.Label, b.Name, b.Buffer, gpucore.ErrUnknownResource)
		}
	}
	var elements *buffer
	if call.Elements != gpucore.InvalidID {
		if elements, ok = d.buffers[call.Elements]; !ok {
			return fmt.Errorf("native: draw %q elements %d: %w",
				p.desc.Label, call.Elements, gpucore.ErrUnknownResource)
		}
	}

	viewport := framebufferRect(call.Viewport, f.height)
	if call.Viewport.Empty() {
		viewport = pixelRect{w: f.width, h: f.height}
	}
	scissor := viewport
	if !call.Scissor.Empty() {
		scissor = framebufferRect(call.Scissor, f.height)
	}
	scissor = scissor.clip(f.width, f.height)
	if scissor.empty() || call.Count == 0 {
		return nil
	}

	pipeline, err := d.pipeline(p, layouts, key, call.DepthTest)
	if err != nil {
		return err
	}
	group, err := d.bindGroup(p, call)
	if err != nil {
		return err
	}

	pass := f.pass
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	for i, b := range bindings {
		pass.SetVertexBuffer(uint32(i), slots[i].buf, uint64(b.Offset))
	}
	pass.SetViewport(float32(viewport.x), float32(viewport.y), float32(viewport.w), float32(viewport.h), 0, 1)
	pass.SetScissorRect(uint32(scissor.x), uint32(scissor.y), uint32(scissor.w), uint32(scissor.h))

	instances := max(call.Instances, 1)
	if elements != nil {
		pass.SetIndexBuffer(elements.buf, gputypes.IndexFormatUint32, 0)
		pass.DrawIndexed(call.Count, instances, 0, 0, 0)
	} else {
		pass.Draw(call.Count, instances, 0, 0)
	}
	f.draws++
	return nil
}

// bindGroup creates the per-draw uniform buffer and bind group. Both are
// released after the frame's submission completes.
// The caller must hold d.mu.
func (d *Device) bindGroup(p *program, call *gpucore.DrawCall) (hal.BindGroup, error) {
	size := uint64(p.desc.UniformSize)
	ubuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: p.desc.Label + ".uniforms",
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create uniform buffer: %w", err)
	}
	data := gpucore.Float32Bytes(gpucore.PackUniforms(&p.desc, call.Uniforms))
	if err := d.queue.WriteBuffer(ubuf, 0, data); err != nil {
		d.device.DestroyBuffer(ubuf)
		return nil, fmt.Errorf("native: write uniforms: %w", err)
	}

	entries := []gputypes.BindGroupEntry{{
		Binding:  0,
		Resource: gputypes.BufferBinding{Buffer: ubuf.NativeHandle(), Size: size},
	}}
	for i, name := range p.desc.Textures {
		t, ok := d.textures[call.Textures[name]]
		if !ok {
			d.device.DestroyBuffer(ubuf)
			return nil, fmt.Errorf("native: draw %q texture %q: %w", p.desc.Label, name, gpucore.ErrUnknownResource)
		}
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding:  textureBinding(i),
				Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
			},
			gputypes.BindGroupEntry{
				Binding:  samplerBinding(i),
				Resource: gputypes.SamplerBinding{Sampler: t.sampler.NativeHandle()},
			},
		)
	}

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.desc.Label + ".bind_group",
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		d.device.DestroyBuffer(ubuf)
		return nil, fmt.Errorf("native: create bind group: %w", err)
	}
	d.frame.release = append(d.frame.release, func() {
		d.device.DestroyBindGroup(group)
		d.device.DestroyBuffer(ubuf)
	})
	return group, nil
}

// EndFrame ends the render pass and submits it. Transient resources are
// released on a later frame once the GPU is done with them.
func (d *Device) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := d.frame
	if f == nil {
		return ErrNoFrame
	}
	d.frame = nil

	f.pass.End()
	cmd, err := f.encoder.EndEncoding()
	if err != nil {
		d.pending = append(d.pending, submission{release: f.release})
		return fmt.Errorf("native: end encoding: %w", err)
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		d.pending = append(d.pending, submission{release: f.release})
		return fmt.Errorf("native: submit: %w", err)
	}
	d.pending = append(d.pending, submission{index: index, cmd: cmd, release: f.release})
	d.logger.Load().Debug("native: frame submitted", "index", index, "draws", f.draws)
	d.reclaim(false)
	return nil
}

// retire runs release once every submission that may use the resource has
// completed. The caller must hold d.mu.
func (d *Device) retire(release func()) {
	switch {
	case d.frame != nil:
		d.frame.release = append(d.frame.release, release)
	case len(d.pending) > 0:
		last := &d.pending[len(d.pending)-1]
		last.release = append(last.release, release)
	default:
		release()
	}
}

// reclaim frees completed submissions, or all of them when force is set.
// The caller must hold d.mu.
func (d *Device) reclaim(force bool) {
	done := d.queue.PollCompleted()
	kept := d.pending[:0]
	for _, s := range d.pending {
		if !force && s.index > done {
			kept = append(kept, s)
			continue
		}
		if s.cmd != nil {
			d.device.FreeCommandBuffer(s.cmd)
		}
		for _, release := range s.release {
			release()
		}
	}
	clear(d.pending[len(kept):])
	d.pending = kept
}

// Pending reports how many submissions still hold transient resources.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
