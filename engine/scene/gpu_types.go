package scene

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
)

// GPUSphereSource is the WGSL Sphere struct together with load_sphere, which unpacks one sphere
// from a storage array<f32> named `spheres` using the stride below.
//
//go:embed assets/sphere.wgsl
var GPUSphereSource string

// GPUSphereStride is the byte size of one sphere in the GPU storage buffer: 14 tightly packed float32s
// in the order position(3) radius(1) albedo(3) specular(3) smoothness(1) emission(3).
// The WGSL kernel reads the buffer as array<f32> and indexes with this stride.
const GPUSphereStride = 14 * 4

// MarshalSpheres serializes spheres into the GPU storage buffer layout (see GPUSphereStride).
//
// Parameters:
//   - spheres: the spheres to serialize, in placement order
//
// Returns:
//   - []byte: len(spheres)*GPUSphereStride bytes, little-endian
func MarshalSpheres(spheres []Sphere) []byte {
	buf := make([]byte, len(spheres)*GPUSphereStride)
	off := 0
	for _, s := range spheres {
		off = common.PutFloat32s(buf, off,
			s.Position[0], s.Position[1], s.Position[2],
			s.Radius,
			s.Albedo[0], s.Albedo[1], s.Albedo[2],
			s.Specular[0], s.Specular[1], s.Specular[2],
			s.Smoothness,
			s.Emission[0], s.Emission[1], s.Emission[2],
		)
	}
	return buf
}
