//go:build !nogpu

package gles

import "testing"

func TestManagerDefaultTextures(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	for _, target := range []TextureTarget{TargetTexture2D, TargetTextureCubeMap} {
		tex := rm.DefaultTexture(target)
		if tex == nil {
			t.Fatalf("no default texture for target %d", target)
		}
		if !tex.IsComplete() || !tex.IsAllocated() {
			t.Errorf("default texture for target %d not complete and allocated", target)
		}
		if tex.Width() != 1 || tex.Height() != 1 {
			t.Errorf("default texture extent = %dx%d, want 1x1", tex.Width(), tex.Height())
		}
	}
}

func TestManagerRequiresDeviceAndQueue(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if _, err := NewResourceManager(nil, queue, DefaultLimits()); err != ErrNilDevice {
		t.Errorf("nil device: err = %v, want ErrNilDevice", err)
	}
	if _, err := NewResourceManager(device, nil, DefaultLimits()); err != ErrNilQueue {
		t.Errorf("nil queue: err = %v, want ErrNilQueue", err)
	}
}

func TestManagerBufferLifecycle(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	name, buf := rm.CreateBuffer()
	if name == 0 || buf == nil {
		t.Fatal("CreateBuffer returned a zero name or nil object")
	}
	if rm.FindBuffer(name) != buf {
		t.Fatal("FindBuffer did not resolve the created name")
	}

	rm.DeleteBuffer(name)
	if rm.FindBuffer(name) != nil {
		t.Error("deleted name still resolves")
	}
	rm.CleanPurgeList()
}

func TestManagerDeferredBufferDestruction(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	name, buf := rm.CreateBuffer()
	if err := buf.Allocate([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	// An attribute slot still references the buffer when it is deleted.
	buf.Ref()
	rm.DeleteBuffer(name)
	rm.CleanPurgeList()
	if buf.Handle() == nil {
		t.Fatal("referenced buffer destroyed by the purge pass")
	}

	buf.Unref()
	rm.CleanPurgeList()
	if buf.Handle() != nil {
		t.Fatal("unreferenced buffer survived the purge pass")
	}
}

func TestManagerTextureSurvivesWhileAttached(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	texName, tex := rm.CreateTexture(TargetTexture2D)
	if err := tex.SetPixels(0, 0, 2, 2, make([]byte, 16)); err != nil {
		t.Fatalf("SetPixels failed: %v", err)
	}
	if err := tex.Upload(); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	fbName, fb := rm.CreateFramebuffer()
	fb.AttachTexture(AttachColor, texName, tex)

	rm.DeleteTexture(texName)
	rm.CleanPurgeList()
	if !tex.IsAllocated() {
		t.Fatal("attached texture destroyed while its framebuffer lives")
	}

	rm.DeleteFramebuffer(fbName)
	rm.CleanPurgeList()
	if tex.IsAllocated() {
		t.Fatal("texture survived after the last reference dropped")
	}
}

func TestManagerShaderNamespace(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	shaderID, sh := rm.CreateShader(StageVertex)
	programID, p := rm.CreateProgram()

	if shaderID == programID {
		t.Fatal("shader and program share an ID")
	}
	if rm.FindShader(shaderID) != sh {
		t.Error("FindShader did not resolve")
	}
	if rm.FindProgram(programID) != p {
		t.Error("FindProgram did not resolve")
	}
	if rm.FindShader(programID) != nil {
		t.Error("program ID resolved as a shader")
	}
	if !rm.IsShader(shaderID) || rm.IsShader(programID) {
		t.Error("IsShader kind check wrong")
	}
	if rm.FindShaderID(sh) != shaderID {
		t.Error("FindShaderID did not recover the ID")
	}
	if rm.FindProgramID(p) != programID {
		t.Error("FindProgramID did not recover the ID")
	}
}

func TestManagerShaderIDsNeverReused(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	id1, _ := rm.CreateShader(StageVertex)
	rm.DeleteShader(id1)
	rm.CleanPurgeList()

	id2, _ := rm.CreateShader(StageFragment)
	if id2 == id1 {
		t.Fatalf("shader ID %d reused after deletion", id1)
	}
}

func TestManagerAttachedShaderDeletionDeferred(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	shaderID, sh := rm.CreateShader(StageVertex)
	_, p := rm.CreateProgram()
	if err := p.AttachShader(sh); err != nil {
		t.Fatalf("AttachShader failed: %v", err)
	}

	rm.DeleteShader(shaderID)
	rm.CleanPurgeList()

	// Still attached: the namespace entry must survive the purge pass.
	if _, ok := rm.namespace.lookup(shaderID); !ok {
		t.Fatal("namespace entry erased while the shader is attached")
	}

	if err := p.DetachShader(sh); err != nil {
		t.Fatalf("DetachShader failed: %v", err)
	}
	rm.CleanPurgeList()
	if _, ok := rm.namespace.lookup(shaderID); ok {
		t.Fatal("namespace entry survived after the last detach")
	}
}

func TestManagerCurrentProgramDeletionDeferred(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	programID, p := rm.CreateProgram()
	p.SetCurrent(true)

	rm.DeleteProgram(programID)
	rm.CleanPurgeList()
	if _, ok := rm.namespace.lookup(programID); !ok {
		t.Fatal("current program purged")
	}

	p.SetCurrent(false)
	rm.CleanPurgeList()
	if _, ok := rm.namespace.lookup(programID); ok {
		t.Fatal("program survived after losing currency")
	}
}

func TestManagerUpdateFramebufferObjects(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	texName, tex := rm.CreateTexture(TargetTexture2D)
	_, fb := rm.CreateFramebuffer()
	fb.AttachTexture(AttachColor, texName, tex)
	fb.ClearUpdated()

	rm.UpdateFramebufferObjects(texName, AttachmentTexture)
	if !fb.IsUpdated() {
		t.Error("framebuffer holding the named texture not marked updated")
	}

	fb.ClearUpdated()
	rm.UpdateFramebufferObjects(texName, AttachmentRenderbuffer)
	if fb.IsUpdated() {
		t.Error("kind mismatch marked the framebuffer updated")
	}
}

func TestManagerIsTextureAttachedToFBO(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	texName, tex := rm.CreateTexture(TargetTexture2D)
	if rm.IsTextureAttachedToFBO(tex) {
		t.Error("unattached texture reported attached")
	}

	_, fb := rm.CreateFramebuffer()
	fb.AttachTexture(AttachColor, texName, tex)
	if !rm.IsTextureAttachedToFBO(tex) {
		t.Error("color attachment not detected")
	}

	// Depth attachments do not count: the hazard is color sampling.
	other := NewTexture(rm.Device(), rm.Queue(), TargetTexture2D)
	fb.AttachTexture(AttachDepth, 99, other)
	if rm.IsTextureAttachedToFBO(other) {
		t.Error("depth attachment reported as color attachment")
	}
}

func TestManagerAttribSlots(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	if len(rm.VertexAttribs()) != DefaultLimits().MaxVertexAttribs {
		t.Fatalf("attrib slots = %d, want %d", len(rm.VertexAttribs()), DefaultLimits().MaxVertexAttribs)
	}
	if rm.Attrib(0) == nil {
		t.Error("slot 0 missing")
	}
	if rm.Attrib(-1) != nil || rm.Attrib(DefaultLimits().MaxVertexAttribs) != nil {
		t.Error("out-of-range slot lookup did not return nil")
	}
}
