package renderer

import (
	_ "embed"
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUTracerUniformsSource is the canonical WGSL definition of the TracerUniforms struct.
// Matches GPUTracerUniforms layout exactly (192 bytes).
//
//go:embed assets/tracer_uniforms.wgsl
var GPUTracerUniformsSource string

// pathTracerSource is the annotated path tracing kernel.
//
//go:embed assets/path_tracer.wgsl
var pathTracerSource string

// GPUTracerUniformsSize is the byte size of the TracerUniforms block.
const GPUTracerUniformsSize = 192

// DefaultMaxBounces is the number of path segments traced per sample.
const DefaultMaxBounces uint32 = 8

// GPUTracerUniforms is the per-dispatch uniform block of the path tracing kernel.
// Matches the WGSL TracerUniforms struct layout exactly (see GPUTracerUniformsSource).
type GPUTracerUniforms struct {
	CameraToWorld     mgl32.Mat4                // offset   0
	InverseProjection mgl32.Mat4                // offset  64
	Light             light.GPUDirectionalLight // offset 128: 32 bytes
	PixelJitter       mgl32.Vec2                // offset 160
	NoiseSeed         float32                   // offset 168
	SphereCount       uint32                    // offset 172
	Resolution        [2]uint32                 // offset 176
	SampleIndex       uint32                    // offset 184
	MaxBounces        uint32                    // offset 188
}

// NewGPUTracerUniforms packs dispatch parameters for a scene and resolution.
//
// Parameters:
//   - params: the per-sample parameters
//   - res: the output resolution
//   - sphereCount: number of live spheres in the storage buffer
//   - maxBounces: path length limit
//
// Returns:
//   - GPUTracerUniforms: the uniform block
func NewGPUTracerUniforms(params DispatchParams, res common.Resolution, sphereCount, maxBounces uint32) GPUTracerUniforms {
	return GPUTracerUniforms{
		CameraToWorld:     params.CameraToWorld,
		InverseProjection: params.InverseProjection,
		Light:             params.Light,
		PixelJitter:       params.PixelJitter,
		NoiseSeed:         params.NoiseSeed,
		SphereCount:       sphereCount,
		Resolution:        [2]uint32{uint32(res.Width), uint32(res.Height)},
		SampleIndex:       params.SampleIndex,
		MaxBounces:        maxBounces,
	}
}

// Size returns the size of the uniform block in bytes.
//
// Returns:
//   - int: GPUTracerUniformsSize
func (g *GPUTracerUniforms) Size() int {
	return GPUTracerUniformsSize
}

// Marshal serializes the uniform block little-endian for Queue.WriteBuffer.
//
// Returns:
//   - []byte: 192-byte buffer ready for GPU upload
func (g *GPUTracerUniforms) Marshal() []byte {
	buf := make([]byte, GPUTracerUniformsSize)
	off := common.PutMat4(buf, 0, g.CameraToWorld)
	off = common.PutMat4(buf, off, g.InverseProjection)
	off = g.Light.MarshalInto(buf, off)
	off = common.PutFloat32s(buf, off, g.PixelJitter[0], g.PixelJitter[1], g.NoiseSeed)
	for _, v := range []uint32{g.SphereCount, g.Resolution[0], g.Resolution[1], g.SampleIndex, g.MaxBounces} {
		binary.LittleEndian.PutUint32(buf[off:], v)
		off += 4
	}
	return buf
}
