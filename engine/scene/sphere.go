package scene

import "github.com/go-gl/mathgl/mgl32"

// MaterialKind identifies which material branch a sphere was classified into.
type MaterialKind int

const (
	// MaterialMetal reflects with a tinted specular color and no diffuse albedo.
	MaterialMetal MaterialKind = iota

	// MaterialDielectric has a diffuse albedo and a fixed low specular reflectance.
	MaterialDielectric

	// MaterialEmissive emits light and has neither albedo nor specular.
	MaterialEmissive
)

func (k MaterialKind) String() string {
	switch k {
	case MaterialMetal:
		return "metal"
	case MaterialDielectric:
		return "dielectric"
	case MaterialEmissive:
		return "emissive"
	default:
		return "unknown"
	}
}

// DielectricSpecular is the per-channel specular reflectance given to every dielectric sphere.
const DielectricSpecular float32 = 0.04

// Sphere is a single procedurally placed sphere. Spheres are created in one generation pass
// and never mutated afterward.
type Sphere struct {
	// Position is the world-space center. Spheres rest on the ground plane, so Position.Y() == Radius.
	Position mgl32.Vec3
	// Radius is drawn from the generator's radius range.
	Radius float32
	// Albedo is the diffuse color. Zero for metal and emissive spheres.
	Albedo mgl32.Vec3
	// Specular is the specular color. Zero for emissive spheres.
	Specular mgl32.Vec3
	// Smoothness is in [0,1) for metal and dielectric spheres and zero for emissive ones.
	Smoothness float32
	// Emission is the emitted radiance. Non-zero only for emissive spheres.
	Emission mgl32.Vec3
	// Material records the classification branch.
	Material MaterialKind
}

// Overlaps reports whether two spheres interpenetrate, comparing squared center distance
// against the squared sum of radii. Touching spheres do not overlap.
//
// Parameters:
//   - other: the sphere to test against
//
// Returns:
//   - bool: true if the spheres overlap
func (s Sphere) Overlaps(other Sphere) bool {
	minDist := s.Radius + other.Radius
	return s.Position.Sub(other.Position).LenSqr() < minDist*minDist
}
