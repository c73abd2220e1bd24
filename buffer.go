package gles

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BufferTarget selects the fixed-API binding point a buffer serves.
type BufferTarget uint8

const (
	// TargetArrayBuffer holds vertex attribute data.
	TargetArrayBuffer BufferTarget = iota
	// TargetElementArrayBuffer holds index data.
	TargetElementArrayBuffer
)

// copyBufferAlignment pads device buffer sizes for copy operations.
const copyBufferAlignment uint64 = 4

// Buffer is a reference-counted buffer object. It owns a device buffer plus
// a CPU shadow copy of its contents: the fixed API allows the driver to
// read client data back (index widening, line-loop closing), which the
// explicit host API has no cheap path for.
type Buffer struct {
	refCounted

	device hal.Device
	queue  hal.Queue

	target BufferTarget
	label  string

	shadow []byte
	handle hal.Buffer
	size   uint64
}

// NewBuffer creates an empty, unallocated buffer object.
func NewBuffer(device hal.Device, queue hal.Queue) *Buffer {
	return &Buffer{device: device, queue: queue}
}

// SetTarget records the binding point the buffer serves. The target decides
// the host usage flags at allocation time.
func (b *Buffer) SetTarget(t BufferTarget) { b.target = t }

// Target returns the recorded binding point.
func (b *Buffer) Target() BufferTarget { return b.target }

// SetLabel attaches a debug label used for the device object.
func (b *Buffer) SetLabel(label string) { b.label = label }

func (b *Buffer) usageFlags() gputypes.BufferUsage {
	switch b.target {
	case TargetElementArrayBuffer:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	}
}

// Allocate sizes the device buffer to len(data), uploads data, and retains
// a shadow copy. Any previous device buffer is destroyed first. The device
// size is aligned up for copy operations; Size reports the aligned value.
func (b *Buffer) Allocate(data []byte) error {
	if b.device == nil {
		return ErrNilDevice
	}
	if b.queue == nil {
		return ErrNilQueue
	}
	if len(data) == 0 {
		return fmt.Errorf("gles: buffer allocation size is 0")
	}

	b.Release()

	aligned := (uint64(len(data)) + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
	handle, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  aligned,
		Usage: b.usageFlags(),
	})
	if err != nil {
		return fmt.Errorf("gles: buffer creation failed: %w", err)
	}

	b.handle = handle
	b.size = aligned
	b.shadow = make([]byte, len(data))
	copy(b.shadow, data)
	b.queue.WriteBuffer(b.handle, 0, b.shadow)
	return nil
}

// SubData overwrites a range of an allocated buffer, keeping the shadow and
// the device copy in sync.
func (b *Buffer) SubData(offset uint64, data []byte) error {
	if b.handle == nil {
		return fmt.Errorf("gles: buffer is not allocated")
	}
	if offset+uint64(len(data)) > uint64(len(b.shadow)) {
		return fmt.Errorf("gles: buffer update of %d bytes at %d exceeds size %d",
			len(data), offset, len(b.shadow))
	}
	copy(b.shadow[offset:], data)
	b.queue.WriteBuffer(b.handle, offset, data)
	return nil
}

// Data copies size bytes starting at offset out of the shadow copy. Returns
// nil when the range does not fit.
func (b *Buffer) Data(offset, size uint64) []byte {
	if offset+size > uint64(len(b.shadow)) {
		return nil
	}
	out := make([]byte, size)
	copy(out, b.shadow[offset:offset+size])
	return out
}

// Size reports the aligned device buffer size, zero when unallocated.
func (b *Buffer) Size() uint64 { return b.size }

// DataSize reports the client-visible (unaligned) data length.
func (b *Buffer) DataSize() uint64 { return uint64(len(b.shadow)) }

// Handle exposes the device buffer for binding commands; nil when
// unallocated.
func (b *Buffer) Handle() hal.Buffer { return b.handle }

// Release destroys the device buffer. The shadow copy is dropped too; the
// object itself stays reusable.
func (b *Buffer) Release() {
	if b.handle != nil {
		b.device.DestroyBuffer(b.handle)
		b.handle = nil
	}
	b.shadow = nil
	b.size = 0
}
