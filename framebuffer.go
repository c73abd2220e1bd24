package gles

// AttachmentPoint selects one of a framebuffer's attachment slots.
type AttachmentPoint uint8

const (
	// AttachColor is the color attachment point.
	AttachColor AttachmentPoint = iota
	// AttachDepth is the depth attachment point.
	AttachDepth
	// AttachStencil is the stencil attachment point.
	AttachStencil
	attachmentPoints // count
)

// AttachmentType tags what kind of image occupies an attachment point.
type AttachmentType uint8

const (
	// AttachmentNone marks an empty attachment point.
	AttachmentNone AttachmentType = iota
	// AttachmentTexture marks a texture attachment.
	AttachmentTexture
	// AttachmentRenderbuffer marks a renderbuffer attachment.
	AttachmentRenderbuffer
)

// attachment caches, per attachment point, the attached image and a dirty
// flag. The cache keeps lookups O(1) per draw; it is refreshed whenever an
// object is rebound to the attachment's name and invalidated whenever the
// attached image's content changes.
type attachment struct {
	typ   AttachmentType
	name  Name
	tex   *Texture
	rb    *Renderbuffer
	dirty bool
}

// Framebuffer is a render-target composition object. It holds back-
// references to its attachments: attaching increments the image's reference
// count, keeping it alive on the purge lists until detached.
type Framebuffer struct {
	attachments [attachmentPoints]attachment

	// updated is set whenever attachment-relevant state changed, so the
	// next validation pass re-derives completeness and backing memory.
	updated bool
}

// NewFramebuffer creates a framebuffer with all attachment points empty.
func NewFramebuffer() *Framebuffer {
	return &Framebuffer{updated: true}
}

// AttachTexture binds a texture to the attachment point, releasing whatever
// occupied it. A nil texture detaches.
func (f *Framebuffer) AttachTexture(point AttachmentPoint, name Name, tex *Texture) {
	f.detach(point)
	if tex != nil {
		tex.Ref()
		f.attachments[point] = attachment{typ: AttachmentTexture, name: name, tex: tex, dirty: true}
	}
	f.updated = true
}

// AttachRenderbuffer binds a renderbuffer to the attachment point,
// releasing whatever occupied it. A nil renderbuffer detaches.
func (f *Framebuffer) AttachRenderbuffer(point AttachmentPoint, name Name, rb *Renderbuffer) {
	f.detach(point)
	if rb != nil {
		rb.Ref()
		f.attachments[point] = attachment{typ: AttachmentRenderbuffer, name: name, rb: rb, dirty: true}
	}
	f.updated = true
}

func (f *Framebuffer) detach(point AttachmentPoint) {
	a := &f.attachments[point]
	switch a.typ {
	case AttachmentTexture:
		a.tex.Unref()
	case AttachmentRenderbuffer:
		a.rb.Unref()
	}
	*a = attachment{}
}

// Detach empties the attachment point and releases the back-reference.
func (f *Framebuffer) Detach(point AttachmentPoint) {
	f.detach(point)
	f.updated = true
}

// Release detaches everything. Call before destroying the framebuffer so
// attached images can reach reference count zero.
func (f *Framebuffer) Release() {
	for p := AttachmentPoint(0); p < attachmentPoints; p++ {
		f.detach(p)
	}
	f.updated = true
}

// AttachmentType reports what occupies the attachment point.
func (f *Framebuffer) AttachmentType(point AttachmentPoint) AttachmentType {
	return f.attachments[point].typ
}

// AttachmentName reports the fixed-API name bound at the attachment point,
// zero when empty.
func (f *Framebuffer) AttachmentName(point AttachmentPoint) Name {
	return f.attachments[point].name
}

// AttachmentTexture returns the cached texture at the attachment point, nil
// when the point holds no texture.
func (f *Framebuffer) AttachmentTexture(point AttachmentPoint) *Texture {
	return f.attachments[point].tex
}

// AttachmentRenderbuffer returns the cached renderbuffer at the attachment
// point, nil when the point holds no renderbuffer.
func (f *Framebuffer) AttachmentRenderbuffer(point AttachmentPoint) *Renderbuffer {
	return f.attachments[point].rb
}

// CacheTextureAttachment propagates a newly bound texture into the
// attachment cache: every point holding a texture under the same name picks
// up the new object and goes dirty.
func (f *Framebuffer) CacheTextureAttachment(tex *Texture, name Name) {
	for p := range f.attachments {
		a := &f.attachments[p]
		if a.typ == AttachmentTexture && a.name == name && a.tex != tex {
			a.tex.Unref()
			tex.Ref()
			a.tex = tex
			a.dirty = true
			f.updated = true
		}
	}
}

// CacheRenderbufferAttachment is the renderbuffer counterpart of
// CacheTextureAttachment.
func (f *Framebuffer) CacheRenderbufferAttachment(rb *Renderbuffer, name Name) {
	for p := range f.attachments {
		a := &f.attachments[p]
		if a.typ == AttachmentRenderbuffer && a.name == name && a.rb != rb {
			a.rb.Unref()
			rb.Ref()
			a.rb = rb
			a.dirty = true
			f.updated = true
		}
	}
}

// markDirtyByName flags every attachment point holding the named object of
// the given kind and reports whether any matched.
func (f *Framebuffer) markDirtyByName(typ AttachmentType, name Name) bool {
	hit := false
	for p := range f.attachments {
		a := &f.attachments[p]
		if a.typ == typ && a.name == name {
			a.dirty = true
			hit = true
		}
	}
	if hit {
		f.updated = true
	}
	return hit
}

// SetUpdated marks the framebuffer for re-validation on the next pass.
func (f *Framebuffer) SetUpdated() { f.updated = true }

// IsUpdated reports whether attachment-relevant state changed since the
// last ClearUpdated.
func (f *Framebuffer) IsUpdated() bool { return f.updated }

// ClearUpdated acknowledges a completed validation pass.
func (f *Framebuffer) ClearUpdated() {
	f.updated = false
	for p := range f.attachments {
		f.attachments[p].dirty = false
	}
}

// IsComplete reports whether the framebuffer can be rendered to: a color
// attachment is present and its backing image is allocated with a non-zero
// extent.
func (f *Framebuffer) IsComplete() bool {
	c := f.attachments[AttachColor]
	switch c.typ {
	case AttachmentTexture:
		return c.tex.IsComplete()
	case AttachmentRenderbuffer:
		return c.rb.IsAllocated()
	default:
		return false
	}
}
