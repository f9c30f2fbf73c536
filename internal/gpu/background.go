package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// Background is the uploaded background image and its sampler.
type Background struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	Width   uint32
	Height  uint32
}

// UploadBackground copies img into an sRGB texture sampled with linear
// filtering and repeat addressing. An empty image uploads one black pixel.
func (d *Device) UploadBackground(img *image.RGBA) (*Background, error) {
	pix, stride, w, h := backgroundPixels(img)

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "background",
		Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8UnormSrgb,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create background texture: %w", err)
	}

	err = d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		pix,
		&wgpu.ImageDataLayout{BytesPerRow: stride, RowsPerImage: h},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("upload background: %w", err)
	}

	view, err := d.device.CreateTextureView(tex, nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create background view: %w", err)
	}

	sampler, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        "background-sampler",
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("create background sampler: %w", err)
	}

	d.log.Debug("background uploaded", "width", w, "height", h)
	return &Background{texture: tex, view: view, sampler: sampler, Width: w, Height: h}, nil
}

// backgroundPixels returns the upload source for img, substituting one
// opaque black pixel for an empty image.
func backgroundPixels(img *image.RGBA) (pix []byte, stride, w, h uint32) {
	if img == nil || img.Rect.Empty() {
		return []byte{0, 0, 0, 0xff}, 4, 1, 1
	}
	b := img.Rect
	w, h = uint32(b.Dx()), uint32(b.Dy())
	off := img.PixOffset(b.Min.X, b.Min.Y)
	return img.Pix[off:], uint32(img.Stride), w, h
}

// Release frees the texture, view and sampler.
func (b *Background) Release() {
	if b == nil {
		return
	}
	b.sampler.Release()
	b.view.Release()
	b.texture.Release()
}
