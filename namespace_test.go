package gles

import "testing"

func TestNamespaceIDsStartAtOne(t *testing.T) {
	ns := newShadingNamespace()
	if id := ns.push(KindShader, 1); id != 1 {
		t.Fatalf("first ID = %d, want 1", id)
	}
}

func TestNamespaceIDsNeverReused(t *testing.T) {
	ns := newShadingNamespace()

	id1 := ns.push(KindShader, 1)
	id2 := ns.push(KindProgram, 1)
	ns.erase(id1)
	ns.erase(id2)

	id3 := ns.push(KindShader, 2)
	if id3 == id1 || id3 == id2 {
		t.Fatalf("erased ID reused: got %d after erasing %d and %d", id3, id1, id2)
	}
	if id3 != 3 {
		t.Fatalf("id3 = %d, want 3", id3)
	}
}

func TestNamespaceErasedIDNeverValidAgain(t *testing.T) {
	ns := newShadingNamespace()
	id := ns.push(KindShader, 7)
	ns.erase(id)

	if _, ok := ns.lookup(id); ok {
		t.Error("erased ID still resolves")
	}
	if ns.is(id, KindShader) {
		t.Error("erased ID still passes the kind check")
	}
}

func TestNamespaceRejectsZeroAndUnassigned(t *testing.T) {
	ns := newShadingNamespace()
	ns.push(KindProgram, 1)

	if _, ok := ns.lookup(0); ok {
		t.Error("ID 0 must never resolve")
	}
	if _, ok := ns.lookup(99); ok {
		t.Error("ID never handed out must not resolve")
	}
}

func TestNamespaceKindCheck(t *testing.T) {
	ns := newShadingNamespace()
	shaderID := ns.push(KindShader, 1)
	programID := ns.push(KindProgram, 1)

	if !ns.is(shaderID, KindShader) {
		t.Error("shader ID failed its own kind check")
	}
	if ns.is(shaderID, KindProgram) {
		t.Error("shader ID passed the program kind check")
	}
	if !ns.is(programID, KindProgram) {
		t.Error("program ID failed its own kind check")
	}
}

func TestNamespaceFind(t *testing.T) {
	ns := newShadingNamespace()
	ns.push(KindShader, 4)
	id := ns.push(KindProgram, 4)

	if got := ns.find(KindProgram, 4); got != id {
		t.Fatalf("find(KindProgram, 4) = %d, want %d", got, id)
	}
	if got := ns.find(KindProgram, 5); got != 0 {
		t.Fatalf("find of unknown index = %d, want 0", got)
	}
}
