package gles

import (
	"encoding/binary"
)

// IndexType is the element type of an indexed draw.
type IndexType uint8

const (
	// IndexUint8 is an 8-bit index stream, widened before upload since the
	// host API has no 8-bit index format.
	IndexUint8 IndexType = iota
	// IndexUint16 is a 16-bit index stream.
	IndexUint16
	// IndexUint32 is a 32-bit index stream.
	IndexUint32
)

// byteSize returns the source stream element size.
func (t IndexType) byteSize() uint64 {
	switch t {
	case IndexUint8:
		return 1
	case IndexUint16:
		return 2
	default:
		return 4
	}
}

// indexDraw is the resolved index state of one indexed draw.
type indexDraw struct {
	// buffer is the device buffer the draw fetches indices from: the bound
	// element-array buffer, or an explicit scratch allocation when the
	// stream needed rewriting.
	buffer *Buffer

	// firstIndex is the element offset the draw starts at within buffer.
	firstIndex uint32

	// indexType is the fetch type after preparation; never IndexUint8.
	indexType IndexType

	// maxIndex is the largest index value in the drawn range, needed to
	// size the closed vertex copies of line loops.
	maxIndex uint32
}

// prepareIndexBuffer resolves the index source of an indexed draw.
//
// When bound is non-nil, offset addresses into the bound buffer's data and
// clientData is ignored; otherwise clientData holds the stream. 8-bit
// streams are widened to 16 bits and line loops get a closing copy whose
// extra trailing element repeats the first; both paths leave the original
// buffer untouched and allocate an explicit scratch buffer instead, handed
// to the purge lists.
//
// Index values are not assumed sorted; maxIndex is found by a linear scan
// of the drawn range.
func prepareIndexBuffer(
	rm *ResourceManager,
	count uint32,
	typ IndexType,
	offset uint64,
	clientData []byte,
	bound *Buffer,
	lineLoop bool,
) (indexDraw, error) {
	if count == 0 {
		return indexDraw{}, ErrEmptyIndexRange
	}

	drawCount := count
	if lineLoop {
		// The caller's count includes the closing element slot.
		drawCount = count - 1
		if drawCount == 0 {
			return indexDraw{}, ErrEmptyIndexRange
		}
	}

	byteLen := uint64(drawCount) * typ.byteSize()

	var src []byte
	if bound != nil {
		src = bound.Data(offset, byteLen)
		if src == nil {
			return indexDraw{}, ErrIndexOutOfRange
		}
	} else {
		if uint64(len(clientData)) < byteLen {
			return indexDraw{}, ErrIndexOutOfRange
		}
		src = clientData[:byteLen]
	}

	rewrite := typ == IndexUint8 || lineLoop || bound == nil
	fetchType := typ
	data := src

	if typ == IndexUint8 {
		data = widenIndicesToUint16(data)
		fetchType = IndexUint16
	}
	if lineLoop {
		data = closeIndexLoop(data, fetchType)
	}

	draw := indexDraw{indexType: fetchType}

	if rewrite {
		buf := NewBuffer(rm.device, rm.queue)
		buf.SetTarget(TargetElementArrayBuffer)
		buf.SetLabel("draw_indices")
		if err := buf.Allocate(data); err != nil {
			buf.Release()
			return indexDraw{}, err
		}
		rm.RecycleBuffer(buf)
		draw.buffer = buf
		draw.firstIndex = 0
	} else {
		draw.buffer = bound
		draw.firstIndex = uint32(offset / typ.byteSize())
	}

	draw.maxIndex = maxIndexOf(data, fetchType)
	return draw, nil
}

// widenIndicesToUint16 converts an 8-bit index stream to 16 bits.
func widenIndicesToUint16(src []byte) []byte {
	out := make([]byte, len(src)*2)
	for i, v := range src {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// closeIndexLoop appends a copy of the first element so a line loop draws
// its closing segment.
func closeIndexLoop(data []byte, typ IndexType) []byte {
	n := int(typ.byteSize())
	out := make([]byte, 0, len(data)+n)
	out = append(out, data...)
	return append(out, data[:n]...)
}

// maxIndexOf scans an index stream for its largest value.
func maxIndexOf(data []byte, typ IndexType) uint32 {
	var max uint32
	switch typ {
	case IndexUint16:
		for i := 0; i+2 <= len(data); i += 2 {
			if v := uint32(binary.LittleEndian.Uint16(data[i:])); v > max {
				max = v
			}
		}
	case IndexUint32:
		for i := 0; i+4 <= len(data); i += 4 {
			if v := binary.LittleEndian.Uint32(data[i:]); v > max {
				max = v
			}
		}
	default:
		for _, b := range data {
			if v := uint32(b); v > max {
				max = v
			}
		}
	}
	return max
}
