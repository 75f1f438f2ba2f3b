package light

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUDirectionalLightSource is the canonical WGSL definition of the DirectionalLight struct.
// Matches GPUDirectionalLight layout exactly (32 bytes).
//
//go:embed assets/directional_light.wgsl
var GPUDirectionalLightSource string

// GPUDirectionalLight is the GPU-aligned representation of the directional light.
// Matches the `light` member of the kernel's uniform block (32 bytes).
type GPUDirectionalLight struct {
	Direction mgl32.Vec3 // offset  0: normalized travel direction
	Intensity float32    // offset 12: scalar multiplier
	Color     mgl32.Vec3 // offset 16: RGB color
	_pad      float32    // offset 28: padding to 32 bytes
}

// Size returns the size of the GPUDirectionalLight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUDirectionalLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto writes the light into buf at offset.
//
// Parameters:
//   - buf: destination buffer
//   - offset: byte offset of the light
//
// Returns:
//   - int: the offset just past the light
func (g *GPUDirectionalLight) MarshalInto(buf []byte, offset int) int {
	return common.PutFloat32s(buf, offset,
		g.Direction[0], g.Direction[1], g.Direction[2], g.Intensity,
		g.Color[0], g.Color[1], g.Color[2], 0,
	)
}

// Marshal serializes the light into a new 32-byte buffer.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUDirectionalLight) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalInto(buf, 0)
	return buf
}
