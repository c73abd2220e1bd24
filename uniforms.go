package gles

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// uniformBlock is the client-side backing store of one uniform buffer plus
// the host buffer it flushes into. The host buffer is created lazily on the
// first flush and grown when the block outgrows it.
type uniformBlock struct {
	data   []byte
	handle hal.Buffer
	cap    uint64
}

// uniformStore holds the default-block uniform state of a linked program:
// one staging area per uniform block and the texture unit assigned to each
// sampler location.
type uniformStore struct {
	device hal.Device
	queue  hal.Queue
	refl   *ShaderReflection

	blocks []uniformBlock
	units  map[int32]int32 // sampler location -> texture unit
	dirty  bool
}

func newUniformStore(device hal.Device, queue hal.Queue, refl *ShaderReflection) *uniformStore {
	s := &uniformStore{
		device: device,
		queue:  queue,
		refl:   refl,
		blocks: make([]uniformBlock, len(refl.Blocks)),
		units:  make(map[int32]int32, len(refl.Samplers)),
	}
	for i := range refl.Blocks {
		size := refl.Blocks[i].Size
		if size < uniformAlignment {
			size = uniformAlignment
		}
		s.blocks[i].data = make([]byte, alignUp(uint64(size), uniformAlignment))
	}
	for i := range refl.Samplers {
		s.units[refl.Samplers[i].Location] = 0
	}
	// The zero-valued blocks still need device buffers before the first
	// bind group can be built.
	s.dirty = len(s.blocks) > 0
	return s
}

const uniformAlignment = 16

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

// Set writes raw client data at a uniform location. The caller supplies
// exactly the bytes of the uniform (or its array slice starting at the
// location's element).
func (s *uniformStore) Set(loc int32, data []byte) error {
	u := s.refl.UniformByLocation(loc)
	if u == nil {
		return fmt.Errorf("gles: no uniform at location %d", loc)
	}
	blk := &s.blocks[u.Block]
	end := int(u.Offset) + len(data)
	if end > len(blk.data) {
		return fmt.Errorf("gles: uniform write at location %d overflows block %q", loc, s.refl.Blocks[u.Block].Name)
	}
	copy(blk.data[u.Offset:end], data)
	s.dirty = true
	return nil
}

// Get reads size bytes of a uniform's current client-side value.
func (s *uniformStore) Get(loc int32, size uint32) ([]byte, error) {
	u := s.refl.UniformByLocation(loc)
	if u == nil {
		return nil, fmt.Errorf("gles: no uniform at location %d", loc)
	}
	blk := &s.blocks[u.Block]
	end := int(u.Offset) + int(size)
	if end > len(blk.data) {
		return nil, fmt.Errorf("gles: uniform read at location %d overflows block %q", loc, s.refl.Blocks[u.Block].Name)
	}
	out := make([]byte, size)
	copy(out, blk.data[u.Offset:end])
	return out, nil
}

// SetSamplerUnit assigns a texture unit to a sampler location.
func (s *uniformStore) SetSamplerUnit(loc, unit int32) error {
	if s.refl.SamplerByLocation(loc) == nil {
		return fmt.Errorf("gles: no sampler at location %d", loc)
	}
	s.units[loc] = unit
	return nil
}

// SamplerUnit returns the texture unit bound to a sampler location.
func (s *uniformStore) SamplerUnit(loc int32) int32 {
	return s.units[loc]
}

// flush uploads dirty block data to the host buffers. It reports whether
// any buffer was created or reallocated, which invalidates bind groups
// referencing the old buffers.
func (s *uniformStore) flush() (grew bool, err error) {
	if !s.dirty {
		return false, nil
	}
	for i := range s.blocks {
		blk := &s.blocks[i]
		need := uint64(len(blk.data))
		if blk.handle == nil || blk.cap < need {
			if blk.handle != nil {
				s.device.DestroyBuffer(blk.handle)
			}
			blk.handle, err = s.device.CreateBuffer(&hal.BufferDescriptor{
				Label: "uniform block " + s.refl.Blocks[i].Name,
				Size:  need,
				Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
			})
			if err != nil {
				blk.handle = nil
				return grew, err
			}
			blk.cap = need
			grew = true
		}
		s.queue.WriteBuffer(blk.handle, 0, blk.data)
	}
	s.dirty = false
	return grew, nil
}

// blockHandle returns the host buffer behind block i, nil before the first
// flush.
func (s *uniformStore) blockHandle(i int) hal.Buffer {
	return s.blocks[i].handle
}

func (s *uniformStore) release() {
	for i := range s.blocks {
		if s.blocks[i].handle != nil {
			s.device.DestroyBuffer(s.blocks[i].handle)
			s.blocks[i].handle = nil
			s.blocks[i].cap = 0
		}
	}
}
