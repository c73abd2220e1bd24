package gles

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// TextureResolver maps a sampler's target and texture unit to the texture
// bound there. The binding core does not own the unit bindings; the context
// state layer supplies them through this hook.
type TextureResolver func(target TextureTarget, unit int32) *Texture

// bindingState holds the host binding objects of a linked program: the
// bind group layout derived from the reflected interface, the pipeline
// layout wrapping it, and the current bind group. Layout and pipeline
// layout live as long as the link; the bind group is recreated whenever a
// referenced resource changes identity.
type bindingState struct {
	layout         hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	group          hal.BindGroup
}

// halStages converts a reflected stage set to host visibility flags.
func halStages(s ShaderStage) gputypes.ShaderStage {
	var out gputypes.ShaderStage
	if s&StageVertex != 0 {
		out |= gputypes.ShaderStageVertex
	}
	if s&StageFragment != 0 {
		out |= gputypes.ShaderStageFragment
	}
	return out
}

// allocateBindingObjects derives the bind group layout and pipeline layout
// from the linked interface. Programs with no bound resources get an empty
// pipeline layout and no bind group layout. Host failures here are fatal
// for the context.
func (p *ShaderProgram) allocateBindingObjects() error {
	p.releaseBindingObjects()

	var entries []gputypes.BindGroupLayoutEntry
	for i := range p.refl.Blocks {
		blk := &p.refl.Blocks[i]
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    blk.Binding,
			Visibility: halStages(blk.Stage),
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	for i := range p.refl.Samplers {
		s := &p.refl.Samplers[i]
		dim := gputypes.TextureViewDimension2D
		if s.Type == TypeSamplerCube {
			dim = gputypes.TextureViewDimensionCube
		}
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    s.TextureBinding,
				Visibility: halStages(s.Stage),
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: dim,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    s.SamplerBinding,
				Visibility: halStages(s.Stage),
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}

	var groupLayouts []hal.BindGroupLayout
	if len(entries) > 0 {
		layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   "program_bind_layout",
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("gles: bind group layout creation failed: %w", err)
		}
		p.binding.layout = layout
		groupLayouts = []hal.BindGroupLayout{layout}
	}

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "program_pipe_layout",
		BindGroupLayouts: groupLayouts,
	})
	if err != nil {
		p.releaseBindingObjects()
		return fmt.Errorf("gles: pipeline layout creation failed: %w", err)
	}
	p.binding.pipelineLayout = pipeLayout
	return nil
}

// NeedsDescriptorUpdate reports whether a sync pass would do work.
func (p *ShaderProgram) NeedsDescriptorUpdate() bool {
	return p.updateSets || p.updateData
}

// BindGroup exposes the current bind group; nil until the first sync of a
// program with bound resources.
func (p *ShaderProgram) BindGroup() hal.BindGroup { return p.binding.group }

// PipelineLayout exposes the program's pipeline layout.
func (p *ShaderProgram) PipelineLayout() hal.PipelineLayout {
	return p.binding.pipelineLayout
}

// UpdateDescriptorSet brings the program's bind group in sync before a
// draw. Uniform data is flushed first; a flush that reallocated a buffer
// invalidates the group. Sampled textures are resolved through the hook:
// incomplete textures are replaced by the fallback texture, and a texture
// that is also the color attachment of some framebuffer is replaced by a
// flipped scratch copy so the attachment stays writable while its previous
// contents are sampled. The group is rebuilt only when a referenced
// resource changed identity; pure data updates reuse it.
func (p *ShaderProgram) UpdateDescriptorSet(resolve TextureResolver) error {
	if !p.IsLinked() {
		return ErrNotLinked
	}

	if p.updateData {
		grew, err := p.uniforms.flush()
		if err != nil {
			return err
		}
		if grew {
			p.updateSets = true
		}
		p.updateData = false
	}

	// Resolve sampled textures up front: a substitution changes resource
	// identity and forces a rebuild even when nothing else did. Flip
	// copies are fresh objects every time, so a program sampling one of
	// its own render targets rebuilds on every sync.
	views := make([]*Texture, len(p.refl.Samplers))
	for i := range p.refl.Samplers {
		s := &p.refl.Samplers[i]
		target := TargetTexture2D
		if s.Type == TypeSamplerCube {
			target = TargetTextureCubeMap
		}

		var tex *Texture
		if resolve != nil {
			tex = resolve(target, p.uniforms.SamplerUnit(s.Location))
		}
		if tex == nil || !tex.IsComplete() {
			if tex != nil {
				Logger().Warn("sampling an incomplete texture, substituting fallback",
					"unit", p.uniforms.SamplerUnit(s.Location))
			}
			tex = p.rm.DefaultTexture(target)
		} else {
			if tex.ContentDirty() {
				if err := tex.Upload(); err != nil {
					return err
				}
			}
			if p.rm.IsTextureAttachedToFBO(tex) {
				dup, err := tex.FlippedCopy()
				if err != nil {
					return err
				}
				p.rm.RecycleTexture(dup)
				tex = dup
			}
		}
		views[i] = tex
	}
	if !texturesEqual(views, p.lastViews) {
		p.updateSets = true
	}

	if !p.updateSets {
		return nil
	}
	if p.binding.layout == nil {
		// Nothing is bound; there is no group to rebuild.
		p.updateSets = false
		return nil
	}

	var entries []gputypes.BindGroupEntry
	for i := range p.refl.Blocks {
		handle := p.uniforms.blockHandle(i)
		if handle == nil {
			return fmt.Errorf("gles: uniform block %q has no device buffer", p.refl.Blocks[i].Name)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: p.refl.Blocks[i].Binding,
			Resource: gputypes.BufferBinding{
				Buffer: handle.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		})
	}
	for i := range p.refl.Samplers {
		tex := views[i]
		if !tex.IsAllocated() {
			if err := tex.Upload(); err != nil {
				return err
			}
		}
		if err := tex.EnsureSampler(); err != nil {
			return err
		}
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding:  p.refl.Samplers[i].TextureBinding,
				Resource: gputypes.TextureViewBinding{TextureView: tex.View().NativeHandle()},
			},
			gputypes.BindGroupEntry{
				Binding:  p.refl.Samplers[i].SamplerBinding,
				Resource: gputypes.SamplerBinding{Sampler: tex.Sampler().NativeHandle()},
			},
		)
	}

	group, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "program_bind_group",
		Layout:  p.binding.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gles: bind group creation failed: %w", err)
	}
	if p.binding.group != nil {
		p.device.DestroyBindGroup(p.binding.group)
	}
	p.binding.group = group
	p.lastViews = views
	p.updateSets = false
	return nil
}

// texturesEqual compares two resolved texture sets by object identity.
func texturesEqual(a, b []*Texture) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// releaseBindingObjects destroys the layout, pipeline layout and group.
func (p *ShaderProgram) releaseBindingObjects() {
	if p.binding.group != nil {
		p.device.DestroyBindGroup(p.binding.group)
		p.binding.group = nil
	}
	if p.binding.pipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.binding.pipelineLayout)
		p.binding.pipelineLayout = nil
	}
	if p.binding.layout != nil {
		p.device.DestroyBindGroupLayout(p.binding.layout)
		p.binding.layout = nil
	}
}
