package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// bytes per output pixel: one vec4<f32>
const outputPixelSize = 16

type wgpuComputeBackendImpl struct {
	mu *sync.Mutex

	ctx     GPUContext
	options computeBackendOptions

	shader          shader.Shader
	module          *wgpu.ShaderModule
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout
	pipeline        *wgpu.ComputePipeline

	paramsBinding  uint32
	spheresBinding uint32
	outputBinding  uint32

	uniformBuffer  *wgpu.Buffer
	sphereBuffer   *wgpu.Buffer
	outputBuffer   *wgpu.Buffer
	readbackBuffer *wgpu.Buffer
	bindGroup      *wgpu.BindGroup

	resolution  common.Resolution
	sphereCount uint32
}

var _ ComputeBackend = &wgpuComputeBackendImpl{}

// NewWGPUComputeBackend builds the path tracing compute pipeline on a GPU context.
// Bind group layouts are derived from the annotated kernel source.
//
// Parameters:
//   - ctx: the GPU context providing the device and queue
//   - options: functional options; only the bounce limit and logger apply
//
// Returns:
//   - ComputeBackend: the backend, unallocated
//   - error: wraps common.ErrResourceAllocation if the pipeline could not be created
func NewWGPUComputeBackend(ctx GPUContext, options ...ComputeBackendBuilderOption) (ComputeBackend, error) {
	if ctx == nil || ctx.Device() == nil {
		return nil, fmt.Errorf("nil gpu context: %w", common.ErrInvalidParameter)
	}
	b := &wgpuComputeBackendImpl{
		mu:      &sync.Mutex{},
		ctx:     ctx,
		options: newComputeBackendOptions(options...),
	}
	if err := b.registerPipeline(); err != nil {
		b.destroy()
		return nil, fmt.Errorf("path tracer pipeline: %v: %w", err, common.ErrResourceAllocation)
	}
	return b, nil
}

func (b *wgpuComputeBackendImpl) registerPipeline() error {
	s, err := shader.NewShader("path_tracer", shader.ShaderTypeCompute, pathTracerSource, shader.StructSource{
		Key:    "tracer_uniforms",
		Source: GPUTracerUniformsSource,
		Type:   "TracerUniforms",
	})
	if err != nil {
		return err
	}
	b.shader = s

	bindings := map[string]*uint32{"params": &b.paramsBinding, "spheres": &b.spheresBinding, "output": &b.outputBinding}
	for name, dst := range bindings {
		binding, found := s.BindGroupFromVarName(0, name)
		if !found {
			return fmt.Errorf("kernel has no binding %q in group 0", name)
		}
		*dst = uint32(binding)
	}

	device := b.ctx.Device()
	b.module, err = device.CreateShaderModule(s.Module())
	if err != nil {
		return err
	}

	desc := s.BindGroupLayoutDescriptor(0)
	b.bindGroupLayout, err = device.CreateBindGroupLayout(&desc)
	if err != nil {
		return fmt.Errorf("failed to create bind group layout for group 0: %w", err)
	}

	b.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            s.Key(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.bindGroupLayout},
	})
	if err != nil {
		return err
	}

	b.pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  s.Key() + " Compute Pipeline",
		Layout: b.pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     b.module,
			EntryPoint: s.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	b.uniformBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: s.Key() + " Uniform Buffer",
		Size:  GPUTracerUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	return err
}

func (b *wgpuComputeBackendImpl) Allocate(res common.Resolution) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := res.Validate(); err != nil {
		return fmt.Errorf("allocate %s: %v: %w", res, err, common.ErrResourceAllocation)
	}
	if b.outputBuffer != nil && b.resolution == res {
		return nil
	}

	device := b.ctx.Device()
	size := uint64(res.Width) * uint64(res.Height) * outputPixelSize
	output, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.shader.Key() + " Output Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("output buffer %s: %v: %w", res, err, common.ErrResourceAllocation)
	}
	readback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.shader.Key() + " Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		output.Release()
		return fmt.Errorf("readback buffer %s: %v: %w", res, err, common.ErrResourceAllocation)
	}

	spheres := b.sphereBuffer
	if spheres == nil {
		spheres, err = b.createSphereBuffer(nil)
		if err != nil {
			output.Release()
			readback.Release()
			return fmt.Errorf("sphere buffer: %v: %w", err, common.ErrResourceAllocation)
		}
	}
	bindGroup, err := b.createBindGroup(spheres, output)
	if err != nil {
		output.Release()
		readback.Release()
		if spheres != b.sphereBuffer {
			spheres.Release()
		}
		return fmt.Errorf("bind group %s: %v: %w", res, err, common.ErrResourceAllocation)
	}

	b.releaseAllocation()
	b.outputBuffer = output
	b.readbackBuffer = readback
	b.sphereBuffer = spheres
	b.bindGroup = bindGroup
	b.resolution = res
	b.options.logger.Printf("[WGPUComputeBackend] allocated %s (%d bytes per buffer)", res, size)
	return nil
}

func (b *wgpuComputeBackendImpl) UploadScene(spheres []scene.Sphere) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.createSphereBuffer(spheres)
	if err != nil {
		return fmt.Errorf("sphere buffer: %v: %w", err, common.ErrResourceAllocation)
	}

	var bindGroup *wgpu.BindGroup
	if b.outputBuffer != nil {
		bindGroup, err = b.createBindGroup(buf, b.outputBuffer)
		if err != nil {
			buf.Release()
			return fmt.Errorf("bind group: %v: %w", err, common.ErrResourceAllocation)
		}
	}

	// the previous buffer may still be referenced by queued work
	b.ctx.Device().Poll(true, nil)
	if b.bindGroup != nil {
		b.bindGroup.Release()
	}
	if b.sphereBuffer != nil {
		b.sphereBuffer.Release()
	}
	b.sphereBuffer = buf
	b.bindGroup = bindGroup
	b.sphereCount = uint32(len(spheres))
	return nil
}

func (b *wgpuComputeBackendImpl) Dispatch(params DispatchParams, target *common.ImageBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.outputBuffer == nil || b.bindGroup == nil {
		return fmt.Errorf("dispatch before allocate: %w", common.ErrBackendDispatch)
	}
	if target == nil || target.Resolution() != b.resolution {
		return fmt.Errorf("target does not match allocated resolution %s: %w", b.resolution, common.ErrBackendDispatch)
	}

	device := b.ctx.Device()
	queue := b.ctx.Queue()

	uniforms := NewGPUTracerUniforms(params, b.resolution, b.sphereCount, b.options.maxBounces)
	queue.WriteBuffer(b.uniformBuffer, 0, uniforms.Marshal())

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %v: %w", err, common.ErrBackendDispatch)
	}
	defer encoder.Release()

	x, y := WorkgroupCounts(b.resolution)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.bindGroup, nil)
	pass.DispatchWorkgroups(x, y, 1)
	pass.End()

	size := uint64(b.resolution.Width) * uint64(b.resolution.Height) * outputPixelSize
	encoder.CopyBufferToBuffer(b.outputBuffer, 0, b.readbackBuffer, 0, size)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %v: %w", err, common.ErrBackendDispatch)
	}
	defer cmd.Release()
	queue.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	mapped := false
	b.readbackBuffer.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped = true
	})
	device.Poll(true, nil)
	if !mapped || status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("map readback buffer: status %v: %w", status, common.ErrBackendDispatch)
	}
	copy(common.SliceToBytes(target.Pix), b.readbackBuffer.GetMappedRange(0, uint(size)))
	b.readbackBuffer.Unmap()
	return nil
}

func (b *wgpuComputeBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseAllocation()
	if b.sphereBuffer != nil {
		b.sphereBuffer.Release()
		b.sphereBuffer = nil
	}
	b.sphereCount = 0
	b.resolution = common.Resolution{}
}

// destroy releases the pipeline objects in addition to the allocation. The backend is unusable afterward.
func (b *wgpuComputeBackendImpl) destroy() {
	b.Release()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.pipelineLayout != nil {
		b.pipelineLayout.Release()
		b.pipelineLayout = nil
	}
	if b.bindGroupLayout != nil {
		b.bindGroupLayout.Release()
		b.bindGroupLayout = nil
	}
	if b.module != nil {
		b.module.Release()
		b.module = nil
	}
}

// releaseAllocation frees the per-resolution buffers and the bind group. Caller holds mu.
func (b *wgpuComputeBackendImpl) releaseAllocation() {
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	if b.outputBuffer != nil {
		b.outputBuffer.Release()
		b.outputBuffer = nil
	}
	if b.readbackBuffer != nil {
		b.readbackBuffer.Release()
		b.readbackBuffer = nil
	}
}

// createSphereBuffer uploads the packed spheres. An empty scene still gets one zeroed record
// since storage bindings cannot be empty; the kernel only reads sphere_count entries.
func (b *wgpuComputeBackendImpl) createSphereBuffer(spheres []scene.Sphere) (*wgpu.Buffer, error) {
	data := scene.MarshalSpheres(spheres)
	if len(data) == 0 {
		data = make([]byte, scene.GPUSphereStride)
	}
	buf, err := b.ctx.Device().CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.shader.Key() + " Sphere Buffer",
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.ctx.Queue().WriteBuffer(buf, 0, data)
	return buf, nil
}

func (b *wgpuComputeBackendImpl) createBindGroup(spheres, output *wgpu.Buffer) (*wgpu.BindGroup, error) {
	return b.ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.shader.Key() + " Bind Group",
		Layout: b.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: b.paramsBinding, Buffer: b.uniformBuffer, Offset: 0, Size: wgpu.WholeSize},
			{Binding: b.spheresBinding, Buffer: spheres, Offset: 0, Size: wgpu.WholeSize},
			{Binding: b.outputBinding, Buffer: output, Offset: 0, Size: wgpu.WholeSize},
		},
	})
}
