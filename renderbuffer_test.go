//go:build !nogpu

package gles

import "testing"

func TestRenderbufferStorage(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	_, rb := rm.CreateRenderbuffer()
	if rb.IsAllocated() {
		t.Fatal("fresh renderbuffer already allocated")
	}

	if err := rb.Storage(64, 32, FormatRGBA8); err != nil {
		t.Fatalf("Storage failed: %v", err)
	}
	if !rb.IsAllocated() || rb.View() == nil {
		t.Fatal("no device image after Storage")
	}
	if rb.Width() != 64 || rb.Height() != 32 {
		t.Errorf("size = %dx%d, want 64x32", rb.Width(), rb.Height())
	}
	if rb.Format() != FormatRGBA8 {
		t.Errorf("format = %v, want FormatRGBA8", rb.Format())
	}

	// Reallocation replaces the image in place.
	if err := rb.Storage(16, 16, FormatDepth24Stencil8); err != nil {
		t.Fatalf("reallocation failed: %v", err)
	}
	if rb.Width() != 16 || rb.Format() != FormatDepth24Stencil8 {
		t.Error("reallocation kept the previous storage")
	}
}

func TestRenderbufferStorageRejectsEmpty(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	_, rb := rm.CreateRenderbuffer()
	if err := rb.Storage(0, 16, FormatRGBA8); err == nil {
		t.Error("zero-width storage accepted")
	}
	if err := rb.Storage(16, 0, FormatDepth16); err == nil {
		t.Error("zero-height storage accepted")
	}
	if rb.IsAllocated() {
		t.Error("failed storage left an allocation behind")
	}
}
