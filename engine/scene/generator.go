package scene

import (
	"math"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Material classification thresholds on a uniform draw in [0,1).
const (
	metalThreshold    = 0.4
	emissiveThreshold = 0.9
)

// pcgStream is the fixed PCG stream selector. Only the seed varies between scenes.
const pcgStream uint64 = 0x9e3779b97f4a7c15

// NewRand returns the pseudo-random stream generation uses for a given seed.
//
// Parameters:
//   - seed: the scene seed
//
// Returns:
//   - *rand.Rand: a PCG-backed generator local to the caller
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), pcgStream))
}

// Generate builds a scene from a seed and placement parameters using the default emission
// brightness. It is a pure function of its arguments.
//
// Parameters:
//   - seed: the scene seed
//   - count: candidate draw budget; the scene holds at most count spheres
//   - radius: closed interval radii are drawn from
//   - placementRadius: radius of the placement disk on the ground plane
//
// Returns:
//   - Scene: the generated scene
func Generate(seed int64, count uint32, radius common.Range, placementRadius float32) Scene {
	return GenerateParams(seed, Params{
		Count:           count,
		Radius:          radius,
		PlacementRadius: placementRadius,
		Brightness:      DefaultBrightness,
	})
}

// GenerateParams builds a scene from a seed and a full parameter set.
// Parameters are assumed valid; see Params.Validate.
//
// Parameters:
//   - seed: the scene seed
//   - params: generation parameters
//
// Returns:
//   - Scene: the generated scene
func GenerateParams(seed int64, params Params) Scene {
	return Scene{
		Seed:    seed,
		Params:  params,
		Spheres: GenerateWithRand(NewRand(seed), params),
	}
}

// GenerateWithRand runs one generation pass against an explicit random stream.
// For each of params.Count candidates it draws a radius, then an area-uniform point in the
// placement disk, and discards the candidate if it overlaps any sphere accepted so far.
// Accepted candidates are then classified into a material branch.
//
// Parameters:
//   - rng: the random stream; it is advanced by the pass
//   - params: generation parameters
//
// Returns:
//   - []Sphere: accepted spheres in acceptance order
func GenerateWithRand(rng *rand.Rand, params Params) []Sphere {
	spheres := make([]Sphere, 0, params.Count)

candidates:
	for i := uint32(0); i < params.Count; i++ {
		r := params.Radius.Lerp(rng.Float32())
		x, z := sampleDisk(rng, params.PlacementRadius)
		candidate := Sphere{
			Position: mgl32.Vec3{x, r, z},
			Radius:   r,
		}

		for _, other := range spheres {
			if candidate.Overlaps(other) {
				continue candidates
			}
		}

		classify(rng, &candidate, params.Brightness)
		spheres = append(spheres, candidate)
	}

	return spheres
}

// sampleDisk draws an area-uniform point inside a disk centered at the origin.
func sampleDisk(rng *rand.Rand, radius float32) (float32, float32) {
	r := float64(radius) * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	return float32(r * math.Cos(theta)), float32(r * math.Sin(theta))
}

// classify assigns a material branch to an accepted candidate.
// A surface color is always drawn before the branch so the stream advances identically for every candidate.
func classify(rng *rand.Rand, s *Sphere, brightness common.Range) {
	color := sampleHSV(rng, common.Range{Min: 0, Max: 1})
	chance := rng.Float32()

	switch {
	case chance < metalThreshold:
		s.Material = MaterialMetal
		s.Specular = color
		s.Smoothness = rng.Float32()
	case chance < emissiveThreshold:
		s.Material = MaterialDielectric
		s.Albedo = color
		s.Specular = mgl32.Vec3{DielectricSpecular, DielectricSpecular, DielectricSpecular}
		s.Smoothness = rng.Float32()
	default:
		s.Material = MaterialEmissive
		s.Emission = sampleHSV(rng, brightness)
	}
}

// sampleHSV draws a color with uniform hue and saturation and a value drawn from the given interval.
// Values above 1 scale the RGB result linearly, which is how emissive colors reach high intensity.
func sampleHSV(rng *rand.Rand, value common.Range) mgl32.Vec3 {
	h := rng.Float64() * 360
	s := rng.Float64()
	v := float64(value.Lerp(rng.Float32()))
	c := colorful.Hsv(h, s, v)
	return mgl32.Vec3{float32(c.R), float32(c.G), float32(c.B)}
}
