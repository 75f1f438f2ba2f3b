package present

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/blit.wgsl
var blitSource string

type surfaceSink struct {
	mu *sync.Mutex

	gpu     renderer.GPUContext
	sampler common.SamplerStagingData

	pipeline        *wgpu.RenderPipeline
	pipelineLayout  *wgpu.PipelineLayout
	bindGroupLayout *wgpu.BindGroupLayout
	vsModule        *wgpu.ShaderModule
	fsModule        *wgpu.ShaderModule
	gpuSampler      *wgpu.Sampler

	texture     *wgpu.Texture
	textureView *wgpu.TextureView
	bindGroup   *wgpu.BindGroup
	resolution  common.Resolution
}

var _ Sink = &surfaceSink{}

// NewSurfaceSink creates a sink that draws each converged frame to the window surface of gpu.
// The image is uploaded as an sRGB texture and stretched over a fullscreen triangle.
//
// Parameters:
//   - gpu: a GPU context with a configured surface
//   - options: functional options
//
// Returns:
//   - Sink: the surface sink
//   - error: wraps common.ErrInvalidParameter without a surface, or common.ErrResourceAllocation
func NewSurfaceSink(gpu renderer.GPUContext, options ...SurfaceSinkBuilderOption) (Sink, error) {
	if gpu == nil || gpu.Surface() == nil {
		return nil, fmt.Errorf("surface sink needs a window surface: %w", common.ErrInvalidParameter)
	}
	s := &surfaceSink{
		mu:  &sync.Mutex{},
		gpu: gpu,
		sampler: common.SamplerStagingData{
			AddressModeU: wgpu.AddressModeClampToEdge,
			AddressModeV: wgpu.AddressModeClampToEdge,
			AddressModeW: wgpu.AddressModeClampToEdge,
		},
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.registerPipeline(); err != nil {
		s.Release()
		return nil, fmt.Errorf("blit pipeline: %v: %w", err, common.ErrResourceAllocation)
	}
	return s, nil
}

func (s *surfaceSink) registerPipeline() error {
	vertexShader, err := shader.NewShader("blit", shader.ShaderTypeVertex, blitSource)
	if err != nil {
		return err
	}
	fragmentShader, err := shader.NewShader("blit", shader.ShaderTypeFragment, blitSource)
	if err != nil {
		return err
	}

	device := s.gpu.Device()
	if s.vsModule, err = device.CreateShaderModule(vertexShader.Module()); err != nil {
		return err
	}
	if s.fsModule, err = device.CreateShaderModule(fragmentShader.Module()); err != nil {
		return err
	}

	// only the fragment stage reads the texture and sampler
	desc := fragmentShader.BindGroupLayoutDescriptor(0)
	if s.bindGroupLayout, err = device.CreateBindGroupLayout(&desc); err != nil {
		return fmt.Errorf("failed to create bind group layout for group 0: %w", err)
	}

	s.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "blit",
		BindGroupLayouts: []*wgpu.BindGroupLayout{s.bindGroupLayout},
	})
	if err != nil {
		return err
	}

	s.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "blit Render Pipeline",
		Layout: s.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     s.vsModule,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     s.fsModule,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    s.gpu.SurfaceFormat(),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	s.gpuSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "blit Sampler",
		AddressModeU:  common.Coalesce(s.sampler.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(s.sampler.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(s.sampler.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(s.sampler.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(s.sampler.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(s.sampler.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(s.sampler.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(s.sampler.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.sampler.MaxAnisotropy, 1),
	})
	return err
}

func (s *surfaceSink) Present(frame accumulator.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame.Image == nil {
		return fmt.Errorf("present: frame has no image: %w", common.ErrInvalidParameter)
	}
	rgba := frame.Image.ToRGBA()
	staging := common.TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(frame.Image.Width),
		Height: uint32(frame.Image.Height),
	}
	if err := s.ensureTexture(frame.Image.Resolution()); err != nil {
		return err
	}
	s.writeTexture(staging)

	surface := s.gpu.Surface()
	surfaceTexture, err := surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface view: %w", err)
	}
	defer view.Release()

	encoder, err := s.gpu.Device().CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
	})
	pass.SetPipeline(s.pipeline)
	pass.SetBindGroup(0, s.bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer commandBuffer.Release()

	s.gpu.Queue().Submit(commandBuffer)
	surface.Present()
	return nil
}

// ensureTexture recreates the blit texture and bind group when the image size changes. Caller holds mu.
func (s *surfaceSink) ensureTexture(res common.Resolution) error {
	if s.texture != nil && s.resolution == res {
		return nil
	}
	device := s.gpu.Device()
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "blit Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(res.Width),
			Height:             uint32(res.Height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("blit texture %s: %v: %w", res, err, common.ErrResourceAllocation)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("blit texture view: %v: %w", err, common.ErrResourceAllocation)
	}
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "blit Bind Group",
		Layout: s.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: s.gpuSampler},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return fmt.Errorf("blit bind group: %v: %w", err, common.ErrResourceAllocation)
	}

	s.releaseTexture()
	s.texture = tex
	s.textureView = view
	s.bindGroup = bindGroup
	s.resolution = res
	return nil
}

func (s *surfaceSink) writeTexture(staging common.TextureStagingData) {
	s.gpu.Queue().WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  s.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * 4,
			RowsPerImage: staging.Height,
		},
		&wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
	)
}

func (s *surfaceSink) releaseTexture() {
	if s.bindGroup != nil {
		s.bindGroup.Release()
		s.bindGroup = nil
	}
	if s.textureView != nil {
		s.textureView.Release()
		s.textureView = nil
	}
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

func (s *surfaceSink) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseTexture()
	if s.gpuSampler != nil {
		s.gpuSampler.Release()
		s.gpuSampler = nil
	}
	if s.pipeline != nil {
		s.pipeline.Release()
		s.pipeline = nil
	}
	if s.pipelineLayout != nil {
		s.pipelineLayout.Release()
		s.pipelineLayout = nil
	}
	if s.bindGroupLayout != nil {
		s.bindGroupLayout.Release()
		s.bindGroupLayout = nil
	}
	if s.vsModule != nil {
		s.vsModule.Release()
		s.vsModule = nil
	}
	if s.fsModule != nil {
		s.fsModule.Release()
		s.fsModule = nil
	}
}
