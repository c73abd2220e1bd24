package gles

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// purgedShader is a deferred-destruction entry: the shader keeps its
// namespace ID visible until the purge pass actually destroys it.
type purgedShader struct {
	obj *Shader
	id  uint32
}

// purgedProgram is the program counterpart of purgedShader.
type purgedProgram struct {
	obj *ShaderProgram
	id  uint32
}

// ResourceManager owns every API-visible object of one context: the per-kind
// name pools, the unified shader/program namespace, the deferred-destruction
// purge lists, the two always-present fallback textures and the vertex
// attribute slots.
//
// The device and queue are received from the host; the manager never creates
// or destroys them.
type ResourceManager struct {
	device hal.Device
	queue  hal.Queue
	limits Limits

	buffers       pool[Buffer]
	textures      pool[Texture]
	renderbuffers pool[Renderbuffer]
	framebuffers  pool[Framebuffer]
	shaders       pool[Shader]
	programs      pool[ShaderProgram]

	namespace shadingNamespace

	purgeBuffers       []*Buffer
	purgeTextures      []*Texture
	purgeRenderbuffers []*Renderbuffer
	purgePrograms      []purgedProgram
	purgeShaders       []purgedShader

	defaultTexture2D   *Texture
	defaultTextureCube *Texture

	attribs []*VertexAttrib
}

// NewResourceManager creates the manager for one context and allocates the
// fallback textures.
func NewResourceManager(device hal.Device, queue hal.Queue, limits Limits) (*ResourceManager, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}

	rm := &ResourceManager{
		device:        device,
		queue:         queue,
		limits:        limits,
		buffers:       newPool[Buffer](),
		textures:      newPool[Texture](),
		renderbuffers: newPool[Renderbuffer](),
		framebuffers:  newPool[Framebuffer](),
		shaders:       newPool[Shader](),
		programs:      newPool[ShaderProgram](),
		namespace:     newShadingNamespace(),
		attribs:       make([]*VertexAttrib, limits.MaxVertexAttribs),
	}
	for i := range rm.attribs {
		rm.attribs[i] = &VertexAttrib{}
	}
	if err := rm.createDefaultTextures(); err != nil {
		return nil, err
	}
	return rm, nil
}

// createDefaultTextures builds the two fallback textures sampled in place of
// incomplete client textures: one 2D, one cube map, both 1x1 opaque black.
func (rm *ResourceManager) createDefaultTextures() error {
	for _, target := range []TextureTarget{TargetTexture2D, TargetTextureCubeMap} {
		tex := NewTexture(rm.device, rm.queue, target)
		if target == TargetTextureCubeMap {
			tex.SetLabel("default_texture_cube")
		} else {
			tex.SetLabel("default_texture_2d")
		}
		if err := tex.FillFallback(); err != nil {
			return err
		}
		if err := tex.Upload(); err != nil {
			return fmt.Errorf("gles: default texture allocation failed: %w", err)
		}
		if target == TargetTextureCubeMap {
			rm.defaultTextureCube = tex
		} else {
			rm.defaultTexture2D = tex
		}
	}
	return nil
}

// Device returns the host device the manager creates objects on.
func (rm *ResourceManager) Device() hal.Device { return rm.device }

// Queue returns the host queue used for data uploads.
func (rm *ResourceManager) Queue() hal.Queue { return rm.queue }

// Limits returns the capability budgets of the context.
func (rm *ResourceManager) Limits() Limits { return rm.limits }

// DefaultTexture returns the always-present fallback texture for a target.
func (rm *ResourceManager) DefaultTexture(target TextureTarget) *Texture {
	if target == TargetTextureCubeMap {
		return rm.defaultTextureCube
	}
	return rm.defaultTexture2D
}

// Attrib returns the vertex attribute slot at index i, nil out of range.
func (rm *ResourceManager) Attrib(i int) *VertexAttrib {
	if i < 0 || i >= len(rm.attribs) {
		return nil
	}
	return rm.attribs[i]
}

// VertexAttribs returns all attribute slots; the slice is owned by the
// manager.
func (rm *ResourceManager) VertexAttribs() []*VertexAttrib { return rm.attribs }

// CreateBuffer allocates a fresh buffer name and object.
func (rm *ResourceManager) CreateBuffer() (Name, *Buffer) {
	buf := NewBuffer(rm.device, rm.queue)
	name := rm.buffers.insert(buf)
	buf.SetLabel(fmt.Sprintf("buffer_%d", name))
	return name, buf
}

// FindBuffer looks up a live buffer by name, nil for zero and deleted names.
func (rm *ResourceManager) FindBuffer(name Name) *Buffer {
	return rm.buffers.get(name)
}

// DeleteBuffer removes the name and defers destruction to the purge pass.
// Deleting an unknown name is a no-op.
func (rm *ResourceManager) DeleteBuffer(name Name) {
	if buf := rm.buffers.remove(name); buf != nil {
		rm.purgeBuffers = append(rm.purgeBuffers, buf)
	}
}

// RecycleBuffer hands a scratch buffer (never pooled) to the purge lists so
// it is destroyed once unreferenced.
func (rm *ResourceManager) RecycleBuffer(buf *Buffer) {
	rm.purgeBuffers = append(rm.purgeBuffers, buf)
}

// CreateTexture allocates a fresh texture name and object.
func (rm *ResourceManager) CreateTexture(target TextureTarget) (Name, *Texture) {
	tex := NewTexture(rm.device, rm.queue, target)
	name := rm.textures.insert(tex)
	tex.SetLabel(fmt.Sprintf("texture_%d", name))
	return name, tex
}

// FindTexture looks up a live texture by name.
func (rm *ResourceManager) FindTexture(name Name) *Texture {
	return rm.textures.get(name)
}

// DeleteTexture removes the name and defers destruction to the purge pass.
func (rm *ResourceManager) DeleteTexture(name Name) {
	if tex := rm.textures.remove(name); tex != nil {
		rm.purgeTextures = append(rm.purgeTextures, tex)
	}
}

// RecycleTexture hands a scratch texture (flip copies) to the purge lists.
func (rm *ResourceManager) RecycleTexture(tex *Texture) {
	rm.purgeTextures = append(rm.purgeTextures, tex)
}

// CreateRenderbuffer allocates a fresh renderbuffer name and object.
func (rm *ResourceManager) CreateRenderbuffer() (Name, *Renderbuffer) {
	rb := NewRenderbuffer(rm.device)
	name := rm.renderbuffers.insert(rb)
	rb.SetLabel(fmt.Sprintf("renderbuffer_%d", name))
	return name, rb
}

// FindRenderbuffer looks up a live renderbuffer by name.
func (rm *ResourceManager) FindRenderbuffer(name Name) *Renderbuffer {
	return rm.renderbuffers.get(name)
}

// DeleteRenderbuffer removes the name and defers destruction.
func (rm *ResourceManager) DeleteRenderbuffer(name Name) {
	if rb := rm.renderbuffers.remove(name); rb != nil {
		rm.purgeRenderbuffers = append(rm.purgeRenderbuffers, rb)
	}
}

// CreateFramebuffer allocates a fresh framebuffer name and object.
// Framebuffers are containers, not images: deletion is immediate, only the
// attachment back-references are released.
func (rm *ResourceManager) CreateFramebuffer() (Name, *Framebuffer) {
	fb := NewFramebuffer()
	return rm.framebuffers.insert(fb), fb
}

// FindFramebuffer looks up a live framebuffer by name.
func (rm *ResourceManager) FindFramebuffer(name Name) *Framebuffer {
	return rm.framebuffers.get(name)
}

// DeleteFramebuffer removes the name, detaching all attachments so their
// images can reach reference count zero.
func (rm *ResourceManager) DeleteFramebuffer(name Name) {
	if fb := rm.framebuffers.remove(name); fb != nil {
		fb.Release()
	}
}

// CreateShader allocates a shader object and hands out its never-reused
// namespace ID.
func (rm *ResourceManager) CreateShader(stage ShaderStage) (uint32, *Shader) {
	sh := NewShader(stage)
	index := rm.shaders.insert(sh)
	return rm.namespace.push(KindShader, index), sh
}

// FindShader looks up a live shader by namespace ID; nil for IDs of the
// wrong kind, erased IDs and IDs never handed out.
func (rm *ResourceManager) FindShader(id uint32) *Shader {
	ref, ok := rm.namespace.lookup(id)
	if !ok || ref.kind != KindShader {
		return nil
	}
	return rm.shaders.get(ref.index)
}

// IsShader reports whether id names a live shader.
func (rm *ResourceManager) IsShader(id uint32) bool {
	return rm.namespace.is(id, KindShader)
}

// FindShaderID recovers the namespace ID of a shader object, zero when the
// object is not pooled.
func (rm *ResourceManager) FindShaderID(sh *Shader) uint32 {
	var index Name
	rm.shaders.each(func(name Name, obj *Shader) {
		if obj == sh {
			index = name
		}
	})
	if index == 0 {
		return 0
	}
	return rm.namespace.find(KindShader, index)
}

// DeleteShader marks the shader deleted and moves it to the purge lists.
// The namespace ID stays visible until the purge pass actually destroys the
// object, which waits for the last program to detach it.
func (rm *ResourceManager) DeleteShader(id uint32) {
	ref, ok := rm.namespace.lookup(id)
	if !ok || ref.kind != KindShader {
		return
	}
	sh := rm.shaders.remove(ref.index)
	if sh == nil {
		return
	}
	sh.MarkForDeletion()
	rm.purgeShaders = append(rm.purgeShaders, purgedShader{obj: sh, id: id})
}

// CreateProgram allocates a program object and hands out its never-reused
// namespace ID, shared with the shader namespace.
func (rm *ResourceManager) CreateProgram() (uint32, *ShaderProgram) {
	p := NewShaderProgram(rm)
	index := rm.programs.insert(p)
	return rm.namespace.push(KindProgram, index), p
}

// FindProgram looks up a live program by namespace ID.
func (rm *ResourceManager) FindProgram(id uint32) *ShaderProgram {
	ref, ok := rm.namespace.lookup(id)
	if !ok || ref.kind != KindProgram {
		return nil
	}
	return rm.programs.get(ref.index)
}

// IsProgram reports whether id names a live program.
func (rm *ResourceManager) IsProgram(id uint32) bool {
	return rm.namespace.is(id, KindProgram)
}

// FindProgramID recovers the namespace ID of a program object, zero when
// the object is not pooled.
func (rm *ResourceManager) FindProgramID(p *ShaderProgram) uint32 {
	var index Name
	rm.programs.each(func(name Name, obj *ShaderProgram) {
		if obj == p {
			index = name
		}
	})
	if index == 0 {
		return 0
	}
	return rm.namespace.find(KindProgram, index)
}

// DeleteProgram marks the program deleted and moves it to the purge lists.
// Destruction waits until the program stops being current.
func (rm *ResourceManager) DeleteProgram(id uint32) {
	ref, ok := rm.namespace.lookup(id)
	if !ok || ref.kind != KindProgram {
		return
	}
	p := rm.programs.remove(ref.index)
	if p == nil {
		return
	}
	p.MarkForDeletion()
	rm.purgePrograms = append(rm.purgePrograms, purgedProgram{obj: p, id: id})
}

// EraseShadingID drops a namespace mapping. The underlying object must
// already be off its pool.
func (rm *ResourceManager) EraseShadingID(id uint32) {
	rm.namespace.erase(id)
}

// UpdateFramebufferObjects scans every framebuffer for attachments holding
// the named object of the given kind and marks the matches dirty, so the
// next validation pass re-derives the attachment state.
func (rm *ResourceManager) UpdateFramebufferObjects(name Name, typ AttachmentType) {
	rm.framebuffers.each(func(_ Name, fb *Framebuffer) {
		fb.markDirtyByName(typ, name)
	})
}

// IsTextureAttachedToFBO reports whether the texture object is the color
// attachment of any framebuffer. Identity is pointer equality: a texture
// rebound under the same name is a different attachment.
func (rm *ResourceManager) IsTextureAttachedToFBO(tex *Texture) bool {
	attached := false
	rm.framebuffers.each(func(_ Name, fb *Framebuffer) {
		if fb.AttachmentTexture(AttachColor) == tex {
			attached = true
		}
	})
	return attached
}

// FramebufferCacheTextureAttachment propagates a texture rebound under name
// into every framebuffer's attachment cache.
func (rm *ResourceManager) FramebufferCacheTextureAttachment(tex *Texture, name Name) {
	rm.framebuffers.each(func(_ Name, fb *Framebuffer) {
		fb.CacheTextureAttachment(tex, name)
	})
}

// FramebufferCacheRenderbufferAttachment is the renderbuffer counterpart of
// FramebufferCacheTextureAttachment.
func (rm *ResourceManager) FramebufferCacheRenderbufferAttachment(rb *Renderbuffer, name Name) {
	rm.framebuffers.each(func(_ Name, fb *Framebuffer) {
		fb.CacheRenderbufferAttachment(rb, name)
	})
}

// CleanPurgeList destroys every deferred object that has become free:
// buffers and textures once unreferenced, programs once no longer current,
// shaders once the last program detached them. Shading namespace IDs are
// erased here, at actual destruction, never earlier. Order matters:
// programs detach their shaders before the shader pass runs.
func (rm *ResourceManager) CleanPurgeList() {
	rm.purgeBuffers = purge(rm.purgeBuffers, func(b *Buffer) bool {
		if b.RefCount() != 0 {
			return false
		}
		b.Release()
		return true
	})

	rm.purgeTextures = purge(rm.purgeTextures, func(t *Texture) bool {
		if t.RefCount() != 0 {
			return false
		}
		t.Release()
		return true
	})

	rm.purgePrograms = purge(rm.purgePrograms, func(e purgedProgram) bool {
		if !e.obj.FreeForDeletion() {
			return false
		}
		e.obj.DetachShaders()
		rm.namespace.erase(e.id)
		e.obj.ReleaseResources()
		return true
	})

	rm.purgeShaders = purge(rm.purgeShaders, func(e purgedShader) bool {
		if !e.obj.FreeForDeletion() {
			return false
		}
		rm.namespace.erase(e.id)
		return true
	})

	rm.purgeRenderbuffers = purge(rm.purgeRenderbuffers, func(r *Renderbuffer) bool {
		if r.RefCount() != 0 {
			return false
		}
		r.Release()
		return true
	})
}

// purge filters a deferred-destruction list in place, keeping entries whose
// destroy predicate declined.
func purge[E any](list []E, destroy func(E) bool) []E {
	kept := list[:0]
	for _, e := range list {
		if !destroy(e) {
			kept = append(kept, e)
		}
	}
	// Zero the tail so freed objects are not pinned by the backing array.
	var zero E
	for i := len(kept); i < len(list); i++ {
		list[i] = zero
	}
	return kept
}

// Release destroys everything the manager still owns: attribute slots,
// pooled objects, purge list remnants and the fallback textures. Deferred-
// destruction guarantees no longer apply; the context is going away.
func (rm *ResourceManager) Release() {
	for _, a := range rm.attribs {
		a.Release(rm)
	}

	rm.framebuffers.each(func(_ Name, fb *Framebuffer) { fb.Release() })
	rm.framebuffers = newPool[Framebuffer]()

	rm.programs.each(func(_ Name, p *ShaderProgram) {
		p.DetachShaders()
		p.ReleaseResources()
	})
	rm.programs = newPool[ShaderProgram]()

	rm.buffers.each(func(_ Name, b *Buffer) { b.Release() })
	rm.buffers = newPool[Buffer]()
	rm.textures.each(func(_ Name, t *Texture) { t.Release() })
	rm.textures = newPool[Texture]()
	rm.renderbuffers.each(func(_ Name, r *Renderbuffer) { r.Release() })
	rm.renderbuffers = newPool[Renderbuffer]()
	rm.shaders = newPool[Shader]()

	for _, b := range rm.purgeBuffers {
		b.Release()
	}
	rm.purgeBuffers = nil
	for _, t := range rm.purgeTextures {
		t.Release()
	}
	rm.purgeTextures = nil
	for _, r := range rm.purgeRenderbuffers {
		r.Release()
	}
	rm.purgeRenderbuffers = nil
	for _, e := range rm.purgePrograms {
		e.obj.DetachShaders()
		e.obj.ReleaseResources()
	}
	rm.purgePrograms = nil
	rm.purgeShaders = nil

	rm.namespace = newShadingNamespace()

	if rm.defaultTexture2D != nil {
		rm.defaultTexture2D.Release()
		rm.defaultTexture2D = nil
	}
	if rm.defaultTextureCube != nil {
		rm.defaultTextureCube.Release()
		rm.defaultTextureCube = nil
	}
}
