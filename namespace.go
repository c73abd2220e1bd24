package gles

// ShadingKind tags an entry in the unified shader/program namespace.
type ShadingKind uint8

const (
	// KindShader marks a compiled shader stage object.
	KindShader ShadingKind = iota + 1
	// KindProgram marks a linked shader program object.
	KindProgram
)

// shadingRef is a tagged reference into one of the two shading pools.
type shadingRef struct {
	kind  ShadingKind
	index Name
}

// shadingNamespace is a single monotonically growing mapping from an opaque
// integer ID to a tagged pool reference, shared across the shader and
// program pools so IDs are unique across both kinds. IDs start at 1 and are
// never reused: removal is explicit, not counter reuse.
type shadingNamespace struct {
	refs map[uint32]shadingRef
	next uint32
}

func newShadingNamespace() shadingNamespace {
	return shadingNamespace{
		refs: make(map[uint32]shadingRef),
		next: 1,
	}
}

// push assigns a fresh, never-reused ID to the given reference.
func (n *shadingNamespace) push(kind ShadingKind, index Name) uint32 {
	id := n.next
	n.next++
	n.refs[id] = shadingRef{kind: kind, index: index}
	return id
}

// erase removes the mapping. The underlying object is untouched.
func (n *shadingNamespace) erase(id uint32) {
	delete(n.refs, id)
}

// lookup returns the tagged reference for id, or a zero ref for IDs that
// were never assigned or have been erased.
func (n *shadingNamespace) lookup(id uint32) (shadingRef, bool) {
	if id == 0 || id >= n.next {
		return shadingRef{}, false
	}
	ref, ok := n.refs[id]
	return ref, ok
}

// is reports whether id is a live namespace entry of the given kind.
// ID 0 and IDs of the other kind are rejected.
func (n *shadingNamespace) is(id uint32, kind ShadingKind) bool {
	ref, ok := n.lookup(id)
	return ok && ref.index != 0 && ref.kind == kind
}

// find scans the namespace for the ID mapping to (kind, index). Used when
// the client deletes by object and downstream bookkeeping needs the integer
// ID back. O(n) in outstanding shading objects; shading-object churn is low
// relative to draw volume.
func (n *shadingNamespace) find(kind ShadingKind, index Name) uint32 {
	for id, ref := range n.refs {
		if ref.kind == kind && ref.index == index {
			return id
		}
	}
	return 0
}
