package gles

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// vertexBinding is one derived host vertex buffer slot: every attribute
// sourced from the same (buffer, stride) pair shares a binding.
type vertexBinding struct {
	buffer     *Buffer
	handle     hal.Buffer
	stride     uint32
	attributes []gputypes.VertexAttribute
}

// vertexInputState is the derived vertex fetch configuration of a program,
// rebuilt before a draw whenever any referenced attribute changed.
type vertexInputState struct {
	bindings []vertexBinding

	// lineLoop records whether the current bindings point at closed-loop
	// scratch copies. Those copies are recycled after the draw, so any
	// toggle of the mode invalidates the state.
	lineLoop bool
	valid    bool
}

func (v *vertexInputState) reset() {
	v.bindings = nil
	v.lineLoop = false
	v.valid = false
}

// Layouts exports the bindings as host vertex buffer layouts, in binding
// order.
func (v *vertexInputState) Layouts() []gputypes.VertexBufferLayout {
	layouts := make([]gputypes.VertexBufferLayout, len(v.bindings))
	for i := range v.bindings {
		layouts[i] = gputypes.VertexBufferLayout{
			ArrayStride: uint64(v.bindings[i].stride),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  v.bindings[i].attributes,
		}
	}
	return layouts
}

// Buffers exports the device buffer bound at each binding slot, parallel to
// Layouts.
func (v *vertexInputState) Buffers() []hal.Buffer {
	bufs := make([]hal.Buffer, len(v.bindings))
	for i := range v.bindings {
		bufs[i] = v.bindings[i].handle
	}
	return bufs
}

// bindingKey identifies a (buffer, stride) pair during derivation.
type bindingKey struct {
	handle hal.Buffer
	stride uint32
}

// prepareVertexInput resolves the source buffer of every attribute the
// program consumes and regroups them into bindings. Binding numbers are
// assigned first-seen in ascending attribute location order, so the result
// is deterministic for a given attribute configuration.
//
// Wide attribute types occupy consecutive locations, one column each; every
// occupied location reads the same slot with a per-column offset.
//
// Line-loop draws get a closed copy of each sourced vertex buffer: the
// bytes of the first drawn vertex are appended so the host can fetch the
// closing vertex past the original count. Copies are scratch objects handed
// to the purge lists.
//
// The previous state is kept only when no attribute produced a new device
// buffer and line-loop mode stays off: a line-loop draw always derives
// fresh copies, and the draw after one must rebind the real buffers since
// the copies it used are already on the purge lists.
func prepareVertexInput(
	rm *ResourceManager,
	refl *ShaderReflection,
	state *vertexInputState,
	firstVertex, vertCount uint32,
	lineLoop bool,
) error {
	type resolved struct {
		location uint32
		format   gputypes.VertexFormat
		buffer   *Buffer
		stride   uint32
		offset   uint64
	}

	var slots []resolved
	anyUpdated := false

	for i := range refl.Attributes {
		attr := &refl.Attributes[i]
		cols := attr.Type.Locations()
		colSize := uint64(formatSize(attr.Type.VertexFormat()))

		for col := uint32(0); col < cols; col++ {
			loc := attr.Location + col
			slot := rm.Attrib(int(loc))
			if slot == nil || !slot.Enabled() {
				return ErrNoAttributeData
			}

			buf, updated, err := slot.update(rm, firstVertex, vertCount)
			if err != nil {
				return err
			}
			anyUpdated = anyUpdated || updated

			slots = append(slots, resolved{
				location: loc,
				format:   slot.Format(),
				buffer:   buf,
				stride:   slot.effectiveStride(),
				offset:   slot.Offset() + uint64(col)*colSize,
			})
		}
	}

	if state.valid && !anyUpdated && !lineLoop && !state.lineLoop {
		return nil
	}

	if lineLoop {
		closed := make(map[*Buffer]*Buffer)
		for i := range slots {
			src := slots[i].buffer
			dup, ok := closed[src]
			if !ok {
				var err error
				dup, err = closeVertexLoop(rm, src, slots[i].stride, firstVertex)
				if err != nil {
					return err
				}
				closed[src] = dup
			}
			slots[i].buffer = dup
		}
	}

	state.bindings = nil
	order := make(map[bindingKey]int)
	for _, s := range slots {
		key := bindingKey{handle: s.buffer.Handle(), stride: s.stride}
		idx, ok := order[key]
		if !ok {
			idx = len(state.bindings)
			order[key] = idx
			state.bindings = append(state.bindings, vertexBinding{
				buffer: s.buffer,
				handle: s.buffer.Handle(),
				stride: s.stride,
			})
		}
		b := &state.bindings[idx]
		b.attributes = append(b.attributes, gputypes.VertexAttribute{
			Format:         s.format,
			Offset:         s.offset,
			ShaderLocation: s.location,
		})
	}
	state.lineLoop = lineLoop
	state.valid = true
	return nil
}

// closeVertexLoop builds a scratch copy of a vertex buffer with the first
// drawn vertex's bytes appended after the last one.
func closeVertexLoop(rm *ResourceManager, src *Buffer, stride uint32, firstVertex uint32) (*Buffer, error) {
	data := src.Data(0, src.DataSize())
	if data == nil {
		return nil, ErrNoAttributeData
	}
	first := uint64(firstVertex) * uint64(stride)
	if first+uint64(stride) > uint64(len(data)) {
		return nil, ErrNoAttributeData
	}
	closedData := append(data, data[first:first+uint64(stride)]...)

	dup := NewBuffer(rm.device, rm.queue)
	dup.SetTarget(TargetArrayBuffer)
	dup.SetLabel("line_loop_vertices")
	if err := dup.Allocate(closedData); err != nil {
		dup.Release()
		return nil, err
	}
	rm.RecycleBuffer(dup)
	return dup, nil
}
