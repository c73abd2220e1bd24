package gles

import (
	"encoding/binary"
	"hash/fnv"
)

// PipelineCache is the serializable pipeline registry carried inside a
// program binary. It records the FNV-1a hashes of pipeline configurations
// already built for the program so a reloaded binary can tell warm
// configurations from cold ones.
type PipelineCache struct {
	hashes map[uint64]struct{}

	// hits counts lookups that found a cached configuration.
	hits uint64

	// misses counts lookups that registered a new configuration.
	misses uint64
}

const cacheBlobMagic = 0x43504c47 // "GLPC"

// NewPipelineCache creates an empty cache.
func NewPipelineCache() *PipelineCache {
	return &PipelineCache{hashes: make(map[uint64]struct{})}
}

// LoadPipelineCache restores a cache from a blob previously produced by
// Data. An empty blob yields an empty cache.
func LoadPipelineCache(blob []byte) (*PipelineCache, error) {
	c := NewPipelineCache()
	if len(blob) == 0 {
		return c, nil
	}
	r := binaryReader{data: blob}
	if r.u32() != cacheBlobMagic {
		return nil, ErrBadBinary
	}
	n := int(r.u32())
	for ; n > 0 && r.err == nil; n-- {
		raw := r.bytes(8)
		if r.err != nil {
			break
		}
		c.hashes[binary.LittleEndian.Uint64(raw)] = struct{}{}
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

// Register records a pipeline configuration hash and reports whether it was
// already present.
func (c *PipelineCache) Register(h uint64) bool {
	if _, ok := c.hashes[h]; ok {
		c.hits++
		return true
	}
	c.hashes[h] = struct{}{}
	c.misses++
	return false
}

// Contains reports whether a configuration hash is registered.
func (c *PipelineCache) Contains(h uint64) bool {
	_, ok := c.hashes[h]
	return ok
}

// Size returns the number of registered configurations.
func (c *PipelineCache) Size() int { return len(c.hashes) }

// Stats returns the lookup hit and miss counts since creation or load.
func (c *PipelineCache) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}

// Data serializes the registry for embedding in a program binary.
func (c *PipelineCache) Data() []byte {
	buf := appendU32(nil, cacheBlobMagic)
	buf = appendU32(buf, uint32(len(c.hashes)))
	for h := range c.hashes {
		buf = binary.LittleEndian.AppendUint64(buf, h)
	}
	return buf
}

// HashPipelineConfig hashes the state that distinguishes one pipeline built
// from a program: the stage word streams and the derived vertex layouts.
func HashPipelineConfig(vsWords, fsWords []uint32, layouts []vertexBinding) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	writeU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:4], v)
		_, _ = h.Write(buf[:4])
	}
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	writeU32(uint32(len(vsWords)))
	for _, w := range vsWords {
		writeU32(w)
	}
	writeU32(uint32(len(fsWords)))
	for _, w := range fsWords {
		writeU32(w)
	}

	writeU32(uint32(len(layouts)))
	for i := range layouts {
		b := &layouts[i]
		writeU64(uint64(b.stride))
		writeU32(uint32(len(b.attributes)))
		for j := range b.attributes {
			a := &b.attributes[j]
			writeU32(a.ShaderLocation)
			writeU32(uint32(a.Format))
			writeU64(a.Offset)
		}
	}
	return h.Sum64()
}
