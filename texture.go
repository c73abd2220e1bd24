package gles

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"
)

// TextureTarget selects the fixed-API texture target.
type TextureTarget uint8

const (
	// TargetTexture2D is a single-layer 2D texture.
	TargetTexture2D TextureTarget = iota
	// TargetTextureCubeMap is a six-face cube map.
	TargetTextureCubeMap
)

// layerCount returns the number of array layers the target occupies.
func (t TextureTarget) layerCount() int {
	if t == TargetTextureCubeMap {
		return 6
	}
	return 1
}

// texLevel is the CPU-side state of one mip level of one layer. Pixels are
// tightly packed RGBA8.
type texLevel struct {
	width  uint32
	height uint32
	pixels []byte
}

// Texture is a reference-counted texture object. Pixel state is staged on
// the CPU per layer and level; Allocate creates the device image sized to
// level zero and Upload transfers staged levels. The driver-defined pixel
// format is RGBA8, matching the fixed API's required fallback behavior.
type Texture struct {
	refCounted

	device hal.Device
	queue  hal.Queue

	target TextureTarget
	label  string

	levels [][]texLevel // [layer][level]

	handle  hal.Texture
	view    hal.TextureView
	sampler hal.Sampler

	// contentDirty records a pixel-state change since the last Upload, so
	// framebuffers sampling this image re-derive their attachment state.
	contentDirty bool
}

// NewTexture creates an empty texture object for the given target.
func NewTexture(device hal.Device, queue hal.Queue, target TextureTarget) *Texture {
	return &Texture{
		device: device,
		queue:  queue,
		target: target,
		levels: make([][]texLevel, target.layerCount()),
	}
}

// Target returns the fixed-API target the texture was created for.
func (t *Texture) Target() TextureTarget { return t.target }

// SetLabel attaches a debug label used for device objects.
func (t *Texture) SetLabel(label string) { t.label = label }

// SetPixels stages tightly packed RGBA8 pixels for one layer and level.
// Staging invalidates any previously allocated device image when the level
// zero extent changes.
func (t *Texture) SetPixels(layer, level int, width, height uint32, pixels []byte) error {
	if layer < 0 || layer >= len(t.levels) {
		return fmt.Errorf("gles: texture layer %d out of range", layer)
	}
	if level < 0 {
		return fmt.Errorf("gles: texture level %d out of range", level)
	}
	if want := int(width) * int(height) * 4; pixels != nil && len(pixels) < want {
		return fmt.Errorf("gles: texture upload of %dx%d needs %d bytes, got %d",
			width, height, want, len(pixels))
	}

	for len(t.levels[layer]) <= level {
		t.levels[layer] = append(t.levels[layer], texLevel{})
	}

	lv := &t.levels[layer][level]
	resized := lv.width != width || lv.height != height
	lv.width = width
	lv.height = height
	lv.pixels = make([]byte, int(width)*int(height)*4)
	if pixels != nil {
		copy(lv.pixels, pixels)
	}

	if level == 0 && resized && t.handle != nil {
		t.releaseImage()
	}
	t.contentDirty = true
	return nil
}

// SetImage stages an arbitrary image as one layer and level, converting to
// RGBA8 through x/image/draw. This is the Go-native TexImage analogue.
func (t *Texture) SetImage(layer, level int, img image.Image) error {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(rgba, image.Point{}, img, b, xdraw.Src, nil)
	return t.SetPixels(layer, level, uint32(b.Dx()), uint32(b.Dy()), rgba.Pix)
}

// Width reports the level zero width of layer zero.
func (t *Texture) Width() uint32 {
	if len(t.levels[0]) == 0 {
		return 0
	}
	return t.levels[0][0].width
}

// Height reports the level zero height of layer zero.
func (t *Texture) Height() uint32 {
	if len(t.levels[0]) == 0 {
		return 0
	}
	return t.levels[0][0].height
}

// Pixels returns the staged RGBA8 pixels of one layer and level, or nil.
func (t *Texture) Pixels(layer, level int) []byte {
	if layer < 0 || layer >= len(t.levels) || level < 0 || level >= len(t.levels[layer]) {
		return nil
	}
	return t.levels[layer][level].pixels
}

// IsComplete reports whether level zero of every layer is staged with a
// consistent non-zero extent. Sampling an incomplete texture must produce
// opaque black; callers substitute a fallback texture in that case.
func (t *Texture) IsComplete() bool {
	w, h := t.Width(), t.Height()
	if w == 0 || h == 0 {
		return false
	}
	for layer := range t.levels {
		if len(t.levels[layer]) == 0 {
			return false
		}
		lv := t.levels[layer][0]
		if lv.width != w || lv.height != h || lv.pixels == nil {
			return false
		}
	}
	return true
}

// IsAllocated reports whether a device image currently backs the texture.
func (t *Texture) IsAllocated() bool { return t.handle != nil }

// ContentDirty reports whether pixel state changed since the last Upload.
func (t *Texture) ContentDirty() bool { return t.contentDirty }

// Allocate creates the device image, view and sampler sized to level zero.
// The texture must be complete.
func (t *Texture) Allocate() error {
	if t.device == nil {
		return ErrNilDevice
	}
	if !t.IsComplete() {
		return ErrTextureIncomplete
	}
	if t.handle != nil {
		return nil
	}

	mips := uint32(len(t.levels[0]))
	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label: t.label,
		Size: hal.Extent3D{
			Width:              t.Width(),
			Height:             t.Height(),
			DepthOrArrayLayers: uint32(t.target.layerCount()),
		},
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gles: texture creation failed: %w", err)
	}
	t.handle = tex

	dim := gputypes.TextureViewDimension2D
	if t.target == TargetTextureCubeMap {
		dim = gputypes.TextureViewDimensionCube
	}
	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         t.label,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     dim,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: mips,
	})
	if err != nil {
		t.device.DestroyTexture(tex)
		t.handle = nil
		return fmt.Errorf("gles: texture view creation failed: %w", err)
	}
	t.view = view
	return nil
}

// Upload transfers every staged level to the device image, allocating it
// first if needed, and clears the dirty mark.
func (t *Texture) Upload() error {
	if err := t.Allocate(); err != nil {
		return err
	}
	for layer := range t.levels {
		for level, lv := range t.levels[layer] {
			if lv.pixels == nil || lv.width == 0 || lv.height == 0 {
				continue
			}
			t.queue.WriteTexture(
				&hal.ImageCopyTexture{
					Texture:  t.handle,
					MipLevel: uint32(level),
					Origin:   hal.Origin3D{Z: uint32(layer)},
					Aspect:   gputypes.TextureAspectAll,
				},
				lv.pixels,
				&hal.ImageDataLayout{
					Offset:       0,
					BytesPerRow:  lv.width * 4,
					RowsPerImage: lv.height,
				},
				&hal.Extent3D{Width: lv.width, Height: lv.height, DepthOrArrayLayers: 1},
			)
		}
	}
	t.contentDirty = false
	return nil
}

// EnsureSampler lazily creates the sampler used when the texture is bound
// to a sampled binding.
func (t *Texture) EnsureSampler() error {
	if t.sampler != nil {
		return nil
	}
	s, err := t.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        t.label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("gles: sampler creation failed: %w", err)
	}
	t.sampler = s
	return nil
}

// View exposes the device texture view; nil until allocated.
func (t *Texture) View() hal.TextureView { return t.view }

// Sampler exposes the device sampler; nil until EnsureSampler ran.
func (t *Texture) Sampler() hal.Sampler { return t.sampler }

// FillFallback stages the defined fallback content: one opaque black pixel
// on level zero of every layer. Used for the always-present default
// textures and for repairing incomplete sampled textures.
func (t *Texture) FillFallback() error {
	black := []byte{0, 0, 0, 255}
	for layer := range t.levels {
		if err := t.SetPixels(layer, 0, 1, 1, black); err != nil {
			return err
		}
	}
	return nil
}

// FlippedCopy produces a new, uploaded 2D texture whose level zero holds
// this texture's level zero content mirrored vertically. It breaks the
// read-after-write hazard when a render-target attachment is sampled in the
// same pass: the duplicate is sampled, the attachment stays writable. The
// caller owns the copy and normally hands it to the purge lists.
//
// The copy is built from the staged client pixels, so it reflects the last
// upload to the texture rather than anything rendered into it since.
func (t *Texture) FlippedCopy() (*Texture, error) {
	src := t.Pixels(0, 0)
	if src == nil {
		return nil, ErrTextureIncomplete
	}
	w, h := t.Width(), t.Height()

	flipped := make([]byte, len(src))
	rowBytes := int(w) * 4
	for row := 0; row < int(h); row++ {
		srcOff := row * rowBytes
		dstOff := (int(h) - 1 - row) * rowBytes
		copy(flipped[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}

	dup := NewTexture(t.device, t.queue, TargetTexture2D)
	dup.SetLabel(t.label + "_flipped")
	if err := dup.SetPixels(0, 0, w, h, flipped); err != nil {
		return nil, err
	}
	if err := dup.Upload(); err != nil {
		return nil, err
	}
	return dup, nil
}

func (t *Texture) releaseImage() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.handle != nil {
		t.device.DestroyTexture(t.handle)
		t.handle = nil
	}
}

// Release destroys all device objects. Staged pixel state survives so the
// texture can be reallocated.
func (t *Texture) Release() {
	t.releaseImage()
	if t.sampler != nil {
		t.device.DestroySampler(t.sampler)
		t.sampler = nil
	}
}
