package gles

// Name is an opaque non-zero 32-bit object name, unique within its kind
// pool. Zero is reserved as "no object".
type Name = uint32

// pool is a named collection of one object kind, mapping an opaque integer
// name to the owned object. Ownership is exclusive to the pool until the
// object transitions to a purge list.
//
// Polymorphism over kind is expressed by the type parameter rather than an
// interface hierarchy: every kind shares create/lookup/erase mechanics and
// nothing else.
type pool[T any] struct {
	objects map[Name]*T
	next    Name
}

func newPool[T any]() pool[T] {
	return pool[T]{
		objects: make(map[Name]*T),
		next:    1,
	}
}

// insert stores obj under a fresh name and returns it. A name still present
// in the pool is never handed out again; the counter skips live entries so
// wraparound after 2^32 allocations stays safe.
func (p *pool[T]) insert(obj *T) Name {
	for {
		name := p.next
		p.next++
		if p.next == 0 { // skip the reserved zero name on wrap
			p.next = 1
		}
		if _, live := p.objects[name]; !live && name != 0 {
			p.objects[name] = obj
			return name
		}
	}
}

// get returns the object stored under name, or nil for zero and unknown
// names. Callers must check.
func (p *pool[T]) get(name Name) *T {
	if name == 0 {
		return nil
	}
	return p.objects[name]
}

// remove unlinks name from the pool without destroying the object; the
// caller takes ownership (usually to hand it to a purge list).
func (p *pool[T]) remove(name Name) *T {
	obj := p.get(name)
	if obj != nil {
		delete(p.objects, name)
	}
	return obj
}

// len reports the number of live objects in the pool.
func (p *pool[T]) len() int { return len(p.objects) }

// each calls fn for every live (name, object) pair. Iteration order is
// unspecified; callers that care about determinism must not.
func (p *pool[T]) each(fn func(name Name, obj *T)) {
	for name, obj := range p.objects {
		fn(name, obj)
	}
}
