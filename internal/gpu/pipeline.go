package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/tuxx/shaderlock/internal/render"
	"github.com/tuxx/shaderlock/internal/shader"
)

// Binding slots of group 0.
const (
	bindingBackground = 0
	bindingSampler    = 1
	bindingFrame      = 2
)

// TargetFormat is the format of the offscreen render target. Its byte order
// matches the shm buffers.
const TargetFormat = gputypes.TextureFormatBGRA8UnormSrgb

// quadVertices is the vertex count of the full-screen quad.
const quadVertices = 6

// Pipeline is a compiled shader pair with its layouts.
type Pipeline struct {
	bindGroupLayout *wgpu.BindGroupLayout
	layout          *wgpu.PipelineLayout
	pipeline        *wgpu.RenderPipeline
	// Fallback is set when the bundled error shader replaced the fragment.
	Fallback bool
}

// BuildPipeline checks both sources and creates the render pipeline. A
// fragment shader that fails to compile is replaced by the error shader; a
// vertex shader failure is returned as *shader.Error.
func (d *Device) BuildPipeline(vertex, fragment string) (*Pipeline, error) {
	src, err := shader.Prepare(vertex, fragment, d.log)
	if err != nil {
		return nil, err
	}

	vs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{Label: "lock-vertex", WGSL: src.Vertex})
	if err != nil {
		return nil, &shader.Error{Stage: shader.StageVertex, Err: err}
	}
	defer vs.Release()

	fs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{Label: "lock-fragment", WGSL: src.Fragment})
	if err != nil && !src.Fallback {
		d.log.Error("fragment shader rejected by device, using fallback", "err", err)
		src.Fallback = true
		fs, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{Label: "lock-fragment-fallback", WGSL: shader.ErrorFragment()})
	}
	if err != nil {
		return nil, &shader.Error{Stage: shader.StageFragment, Err: err}
	}
	defer fs.Release()

	bgl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "lock-bind-group-layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    bindingBackground,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    bindingSampler,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    bindingFrame,
				Visibility: gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: render.UniformSize,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "lock-pipeline-layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	blend := gputypes.BlendStateReplace()
	pipeline, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "lock-pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: shader.VertexEntry,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeBack,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  ^uint64(0),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: shader.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    TargetFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
	})
	if err != nil {
		layout.Release()
		bgl.Release()
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}

	if src.Fallback {
		d.log.Warn("rendering with the fallback fragment shader")
	}
	return &Pipeline{
		bindGroupLayout: bgl,
		layout:          layout,
		pipeline:        pipeline,
		Fallback:        src.Fallback,
	}, nil
}

// Release frees the pipeline and its layouts.
func (p *Pipeline) Release() {
	if p == nil {
		return
	}
	p.pipeline.Release()
	p.layout.Release()
	p.bindGroupLayout.Release()
}
