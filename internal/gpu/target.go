package gpu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/tuxx/shaderlock/internal/render"
)

// mapTimeout bounds how long a frame waits for the readback mapping.
const mapTimeout = 2 * time.Second

var errNotSized = errors.New("render target has no size")

// TargetOptions configures one output's render target.
type TargetOptions struct {
	Vertex     string
	Fragment   string
	Background *image.RGBA
}

// Target renders one output offscreen and reads the pixels back. It
// implements render.Target.
type Target struct {
	dev        *Device
	pipeline   *Pipeline
	background *Background
	uniforms   *wgpu.Buffer
	bindGroup  *wgpu.BindGroup

	width    uint32
	height   uint32
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	readback *wgpu.Buffer
	scratch  []byte
}

var _ render.Target = (*Target)(nil)

// NewTarget compiles the pipeline and uploads the background. The
// size-dependent resources are created by the first Resize.
func (d *Device) NewTarget(opts TargetOptions) (*Target, error) {
	pipeline, err := d.BuildPipeline(opts.Vertex, opts.Fragment)
	if err != nil {
		return nil, err
	}
	bg, err := d.UploadBackground(opts.Background)
	if err != nil {
		pipeline.Release()
		return nil, err
	}
	uniforms, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "frame-uniforms",
		Size:  render.UniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		bg.Release()
		pipeline.Release()
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}
	bindGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "lock-bind-group",
		Layout: pipeline.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: bindingBackground, TextureView: bg.view},
			{Binding: bindingSampler, Sampler: bg.sampler},
			{Binding: bindingFrame, Buffer: uniforms, Size: render.UniformSize},
		},
	})
	if err != nil {
		uniforms.Release()
		bg.Release()
		pipeline.Release()
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	return &Target{
		dev:        d,
		pipeline:   pipeline,
		background: bg,
		uniforms:   uniforms,
		bindGroup:  bindGroup,
	}, nil
}

// Fallback reports whether the error shader is in use.
func (t *Target) Fallback() bool { return t.pipeline.Fallback }

// Resize recreates the render texture and the readback buffer.
func (t *Target) Resize(width, height uint32) error {
	t.releaseSized()

	tex, err := t.dev.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "lock-target",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        TargetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create target texture: %w", err)
	}
	view, err := t.dev.device.CreateTextureView(tex, nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create target view: %w", err)
	}
	readback, err := t.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "lock-readback",
		Size:  ReadbackSize(width, height),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return fmt.Errorf("create readback buffer: %w", err)
	}

	t.texture, t.view, t.readback = tex, view, readback
	t.width, t.height = width, height
	return nil
}

// Draw renders one frame with u and copies it into dst.
func (t *Target) Draw(u render.FrameUniforms, dst *render.Frame) error {
	if t.texture == nil {
		return errNotSized
	}
	if dst.Width != int(t.width) || dst.Height != int(t.height) {
		return fmt.Errorf("frame is %dx%d, target is %dx%d", dst.Width, dst.Height, t.width, t.height)
	}

	t.scratch = u.AppendBytes(t.scratch[:0])
	if err := t.dev.queue.WriteBuffer(t.uniforms, 0, t.scratch); err != nil {
		return fmt.Errorf("write uniforms: %w", err)
	}

	if err := t.encode(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), mapTimeout)
	defer cancel()
	size := ReadbackSize(t.width, t.height)
	if err := t.readback.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("map readback: %w", err)
	}
	rng, err := t.readback.MappedRange(0, size)
	if err != nil {
		_ = t.readback.Unmap()
		return fmt.Errorf("mapped range: %w", err)
	}
	err = CopyRows(dst, rng.Bytes(), int(PaddedBytesPerRow(t.width)))
	rng.Release()
	if uerr := t.readback.Unmap(); uerr != nil && err == nil {
		err = fmt.Errorf("unmap readback: %w", uerr)
	}
	return err
}

func (t *Target) encode() error {
	encoder, err := t.dev.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "lock-frame"})
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}

	pass, err := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       t.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin render pass: %w", err)
	}
	pass.SetPipeline(t.pipeline.pipeline)
	pass.SetBindGroup(0, t.bindGroup, nil)
	pass.Draw(quadVertices, 1, 0, 0)
	if err := pass.End(); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end render pass: %w", err)
	}

	encoder.CopyTextureToBuffer(t.texture, t.readback, []wgpu.BufferTextureCopy{
		{
			BufferLayout: wgpu.ImageDataLayout{
				BytesPerRow:  PaddedBytesPerRow(t.width),
				RowsPerImage: t.height,
			},
			TextureBase: wgpu.ImageCopyTexture{
				Texture: t.texture,
				Aspect:  gputypes.TextureAspectAll,
			},
			Size: wgpu.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		},
	})

	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	if _, err := t.dev.queue.Submit(cmd); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

func (t *Target) releaseSized() {
	if t.readback != nil {
		t.readback.Release()
		t.readback = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// Release frees every resource the target owns. The device stays open.
func (t *Target) Release() {
	t.releaseSized()
	t.bindGroup.Release()
	t.uniforms.Release()
	t.background.Release()
	t.pipeline.Release()
}
