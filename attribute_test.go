//go:build !nogpu

package gles

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestVertexAttribPointerRefSwap(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	_, a := rm.CreateBuffer()
	_, b := rm.CreateBuffer()
	slot := rm.Attrib(0)

	slot.SetPointer(gputypes.VertexFormatFloat32x2, 0, 0, a, nil)
	if a.RefCount() != 1 {
		t.Errorf("a.RefCount = %d after bind, want 1", a.RefCount())
	}

	slot.SetPointer(gputypes.VertexFormatFloat32x2, 0, 0, b, nil)
	if a.RefCount() != 0 {
		t.Errorf("a.RefCount = %d after rebind, want 0", a.RefCount())
	}
	if b.RefCount() != 1 {
		t.Errorf("b.RefCount = %d after bind, want 1", b.RefCount())
	}

	slot.SetPointer(gputypes.VertexFormatFloat32x2, 0, 0, nil, make([]byte, 16))
	if b.RefCount() != 0 {
		t.Errorf("b.RefCount = %d after switch to client data, want 0", b.RefCount())
	}
}

func TestVertexAttribClientStagingCaches(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	slot := rm.Attrib(0)
	slot.SetEnabled(true)
	slot.SetPointer(gputypes.VertexFormatFloat32x2, 0, 0, nil, make([]byte, 4*8))

	buf, updated, err := slot.update(rm, 0, 4)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated || buf == nil {
		t.Fatal("first update did not stage the client array")
	}

	again, updated, err := slot.update(rm, 0, 4)
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if updated || again != buf {
		t.Error("clean slot restaged its client array")
	}

	// A new pointer invalidates the staged copy.
	slot.SetPointer(gputypes.VertexFormatFloat32x2, 0, 0, nil, make([]byte, 4*8))
	_, updated, err = slot.update(rm, 0, 4)
	if err != nil {
		t.Fatalf("third update failed: %v", err)
	}
	if !updated {
		t.Error("new client pointer reused the stale staged copy")
	}
}

func TestEffectiveStride(t *testing.T) {
	var a VertexAttrib
	a.format = gputypes.VertexFormatFloat32x3
	if got := a.effectiveStride(); got != 12 {
		t.Errorf("tight stride = %d, want 12", got)
	}
	a.stride = 32
	if got := a.effectiveStride(); got != 32 {
		t.Errorf("explicit stride = %d, want 32", got)
	}
}

func TestVertexAttribClientStagingGrows(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	slot := rm.Attrib(0)
	slot.SetEnabled(true)
	slot.SetPointer(gputypes.VertexFormatFloat32x3, 0, 0, nil, make([]byte, 5*12))

	small, updated, err := slot.update(rm, 0, 2)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated || small.DataSize() != 2*12 {
		t.Fatalf("staged %d bytes for 2 vertices, want %d", small.DataSize(), 2*12)
	}

	// A wider draw over the same data must restage; the first staging only
	// covers the vertices it saw.
	big, updated, err := slot.update(rm, 0, 5)
	if err != nil {
		t.Fatalf("wider update failed: %v", err)
	}
	if !updated || big == small {
		t.Fatal("wider draw reused the undersized staged copy")
	}
	if big.DataSize() != 5*12 {
		t.Errorf("restaged %d bytes, want %d", big.DataSize(), 5*12)
	}

	again, updated, err := slot.update(rm, 0, 3)
	if err != nil {
		t.Fatalf("narrow update failed: %v", err)
	}
	if updated || again != big {
		t.Error("narrow draw restaged despite a covering staged copy")
	}
}
