package gles

import (
	"github.com/gogpu/gputypes"
)

// VertexAttrib is one generic vertex attribute slot. Each slot sources its
// data either from a bound vertex buffer or from a client array that is
// staged into a device buffer on demand.
type VertexAttrib struct {
	enabled bool

	format gputypes.VertexFormat
	stride uint32
	offset uint64

	// buffer is the bound vertex buffer, nil when the slot reads client
	// data.
	buffer *Buffer

	// clientData holds the application's array until a draw stages it.
	clientData []byte

	// cached is the transient device buffer built from clientData, and
	// cachedLen the byte length staged into it. A draw covering more bytes
	// than cachedLen restages even when the data itself is unchanged.
	cached    *Buffer
	cachedLen uint64

	// dirty marks client data that has changed since the last staging.
	dirty bool
}

// SetEnabled toggles the attribute array.
func (a *VertexAttrib) SetEnabled(on bool) { a.enabled = on }

// Enabled reports whether the attribute array is on.
func (a *VertexAttrib) Enabled() bool { return a.enabled }

// Format returns the slot's vertex fetch format.
func (a *VertexAttrib) Format() gputypes.VertexFormat { return a.format }

// Stride returns the byte stride between consecutive elements.
func (a *VertexAttrib) Stride() uint32 { return a.stride }

// Offset returns the byte offset of the first element.
func (a *VertexAttrib) Offset() uint64 { return a.offset }

// Buffer returns the bound vertex buffer, nil for client arrays.
func (a *VertexAttrib) Buffer() *Buffer { return a.buffer }

// SetPointer configures the slot. When buf is nil the slot reads
// clientData; otherwise clientData is ignored and offset addresses into the
// bound buffer. The previously bound buffer, if any, is released.
func (a *VertexAttrib) SetPointer(format gputypes.VertexFormat, stride uint32, offset uint64, buf *Buffer, clientData []byte) {
	if a.buffer != buf {
		if buf != nil {
			buf.Ref()
		}
		if a.buffer != nil {
			a.buffer.Unref()
		}
		a.buffer = buf
	}
	a.format = format
	a.stride = stride
	a.offset = offset
	if buf == nil {
		a.clientData = clientData
		a.dirty = true
	} else {
		a.clientData = nil
		a.dirty = false
	}
}

// formatSize returns the byte size of one element of a vertex format.
func formatSize(f gputypes.VertexFormat) uint32 {
	switch f {
	case gputypes.VertexFormatFloat32, gputypes.VertexFormatSint32, gputypes.VertexFormatUint32:
		return 4
	case gputypes.VertexFormatFloat32x2, gputypes.VertexFormatSint32x2, gputypes.VertexFormatUint32x2:
		return 8
	case gputypes.VertexFormatFloat32x3, gputypes.VertexFormatSint32x3, gputypes.VertexFormatUint32x3:
		return 12
	case gputypes.VertexFormatFloat32x4, gputypes.VertexFormatSint32x4, gputypes.VertexFormatUint32x4:
		return 16
	default:
		return 4
	}
}

// effectiveStride is the stride actually used for fetching: a zero stride
// means tightly packed elements.
func (a *VertexAttrib) effectiveStride() uint32 {
	if a.stride != 0 {
		return a.stride
	}
	return formatSize(a.format)
}

// update resolves the slot's source buffer for a draw covering vertCount
// vertices starting at firstVertex. Client arrays are staged into a device
// buffer when the data changed or the requested range outgrows the staged
// bytes; bound buffers are returned as-is. The second result reports
// whether a new device buffer was produced.
func (a *VertexAttrib) update(rm *ResourceManager, firstVertex, vertCount uint32) (*Buffer, bool, error) {
	if a.buffer != nil {
		return a.buffer, false, nil
	}
	if a.clientData == nil {
		return nil, false, ErrNoAttributeData
	}

	stride := a.effectiveStride()
	need := uint64(firstVertex+vertCount) * uint64(stride)
	if need > uint64(len(a.clientData)) {
		need = uint64(len(a.clientData))
	}

	if !a.dirty && a.cached != nil && need <= a.cachedLen {
		return a.cached, false, nil
	}

	if a.cached != nil {
		rm.RecycleBuffer(a.cached)
		a.cached = nil
	}
	buf := NewBuffer(rm.device, rm.queue)
	buf.SetTarget(TargetArrayBuffer)
	buf.SetLabel("client_vertex_data")
	if err := buf.Allocate(a.clientData[:need]); err != nil {
		buf.Release()
		return nil, false, err
	}
	a.cached = buf
	a.cachedLen = need
	a.dirty = false
	return buf, true, nil
}

// Release drops the slot's buffer references and resets it to the disabled
// default state.
func (a *VertexAttrib) Release(rm *ResourceManager) {
	if a.buffer != nil {
		a.buffer.Unref()
		a.buffer = nil
	}
	if a.cached != nil {
		rm.RecycleBuffer(a.cached)
		a.cached = nil
		a.cachedLen = 0
	}
	a.enabled = false
	a.clientData = nil
	a.dirty = false
}
