package gles

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RenderbufferFormat selects the backing format of a renderbuffer.
type RenderbufferFormat uint8

const (
	// FormatRGBA8 is a color renderbuffer.
	FormatRGBA8 RenderbufferFormat = iota
	// FormatDepth24Stencil8 is a combined depth/stencil renderbuffer.
	FormatDepth24Stencil8
	// FormatDepth16 is a depth-only renderbuffer.
	FormatDepth16
)

func (f RenderbufferFormat) halFormat() gputypes.TextureFormat {
	switch f {
	case FormatDepth24Stencil8:
		return gputypes.TextureFormatDepth24PlusStencil8
	case FormatDepth16:
		return gputypes.TextureFormatDepth16Unorm
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// Renderbuffer is a reference-counted render target without sampling state.
// Unlike textures it has no CPU pixel staging; Storage allocates the device
// image directly.
type Renderbuffer struct {
	refCounted

	device hal.Device
	label  string

	format RenderbufferFormat
	width  uint32
	height uint32

	handle hal.Texture
	view   hal.TextureView
}

// NewRenderbuffer creates an empty renderbuffer object.
func NewRenderbuffer(device hal.Device) *Renderbuffer {
	return &Renderbuffer{device: device}
}

// SetLabel attaches a debug label used for device objects.
func (r *Renderbuffer) SetLabel(label string) { r.label = label }

// Format returns the storage format, valid after Storage.
func (r *Renderbuffer) Format() RenderbufferFormat { return r.format }

// Width reports the allocated width, zero before Storage.
func (r *Renderbuffer) Width() uint32 { return r.width }

// Height reports the allocated height, zero before Storage.
func (r *Renderbuffer) Height() uint32 { return r.height }

// Storage allocates (or reallocates) the device image.
func (r *Renderbuffer) Storage(width, height uint32, format RenderbufferFormat) error {
	if r.device == nil {
		return ErrNilDevice
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("gles: renderbuffer storage %dx%d is empty", width, height)
	}

	r.Release()

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         r.label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format.halFormat(),
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("gles: renderbuffer creation failed: %w", err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         r.label,
		Format:        format.halFormat(),
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return fmt.Errorf("gles: renderbuffer view creation failed: %w", err)
	}

	r.handle = tex
	r.view = view
	r.width = width
	r.height = height
	r.format = format
	return nil
}

// IsAllocated reports whether a device image backs the renderbuffer.
func (r *Renderbuffer) IsAllocated() bool { return r.handle != nil }

// View exposes the device view used as a framebuffer attachment.
func (r *Renderbuffer) View() hal.TextureView { return r.view }

// Release destroys the device image.
func (r *Renderbuffer) Release() {
	if r.view != nil {
		r.device.DestroyTextureView(r.view)
		r.view = nil
	}
	if r.handle != nil {
		r.device.DestroyTexture(r.handle)
		r.handle = nil
	}
	r.width, r.height = 0, 0
}
