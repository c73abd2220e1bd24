package gles

// refCounted tracks how many driver subsystems currently retain a usable
// pointer to an object: a framebuffer attachment, a bound attribute slot,
// an attached-shader relation. It is not an ownership count; pools and
// purge lists own objects, subsystems merely reference them.
//
// The core is driven by a single logical thread (one context, one command
// stream), so a plain int suffices.
type refCounted struct {
	refs int
}

// Ref records that another subsystem retains the object.
func (r *refCounted) Ref() { r.refs++ }

// Unref releases one retained reference. Extra Unref calls are clamped so a
// bookkeeping slip cannot make the count go negative and resurrect a purge
// candidate.
func (r *refCounted) Unref() {
	if r.refs > 0 {
		r.refs--
	}
}

// RefCount reports how many subsystems still reference the object.
func (r *refCounted) RefCount() int { return r.refs }
