package gles

import "errors"

// Errors reported by the resource and binding core.
//
// Host-API object creation failures (bind group layouts, pipeline layouts,
// shader modules) indicate device or driver-level problems this core cannot
// retry meaningfully; callers should treat them as fatal for the context.
// Scratch allocation failures during index or vertex preparation abort the
// current draw only.
var (
	// ErrNilDevice is returned when constructing an object without a HAL device.
	ErrNilDevice = errors.New("gles: HAL device is nil")

	// ErrNilQueue is returned when constructing an object without a HAL queue.
	ErrNilQueue = errors.New("gles: HAL queue is nil")

	// ErrNotLinked is returned when an operation requires a linked program.
	ErrNotLinked = errors.New("gles: program is not linked")

	// ErrStageOccupied is returned when attaching a shader to a stage slot
	// that already holds one.
	ErrStageOccupied = errors.New("gles: shader stage already attached")

	// ErrNotAttached is returned when detaching a shader that is not
	// attached to the program.
	ErrNotAttached = errors.New("gles: shader is not attached")

	// ErrEmptyIndexRange is returned when index preparation is asked to
	// resolve zero indices.
	ErrEmptyIndexRange = errors.New("gles: empty index range")

	// ErrIndexOutOfRange is returned when the requested index range does
	// not fit inside the bound index buffer.
	ErrIndexOutOfRange = errors.New("gles: index range exceeds bound buffer")

	// ErrBadBinary is returned when a precompiled program binary fails to
	// decode.
	ErrBadBinary = errors.New("gles: malformed program binary")

	// ErrNoAttributeData is returned when a draw references an enabled
	// attribute slot that has neither client data nor a bound buffer.
	ErrNoAttributeData = errors.New("gles: attribute slot has no source data")

	// ErrTextureIncomplete is returned when a texture operation requires an
	// allocated, complete texture.
	ErrTextureIncomplete = errors.New("gles: texture is incomplete")
)
