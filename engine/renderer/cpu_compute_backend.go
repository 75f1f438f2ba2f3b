package renderer

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	traceEpsilon float32 = 0.001
	traceFar     float32 = 1.0e30
)

var (
	groundAlbedo     = mgl32.Vec3{0.8, 0.8, 0.8}
	groundSpecular   = mgl32.Vec3{0.03, 0.03, 0.03}
	groundSmoothness = float32(0.2)
)

type cpuComputeBackendImpl struct {
	mu *sync.Mutex

	options    computeBackendOptions
	spheres    []scene.Sphere
	resolution common.Resolution
	allocated  bool
}

var _ ComputeBackend = &cpuComputeBackendImpl{}

// NewCPUComputeBackend creates a backend that runs the path tracing kernel in Go. It mirrors the
// WGSL kernel's scene model and material response, with its own per-pixel random stream, and
// produces identical output for identical parameters regardless of how rows are split across workers.
//
// Parameters:
//   - options: functional options for bounce limit, worker pool and logger
//
// Returns:
//   - ComputeBackend: the backend, unallocated
func NewCPUComputeBackend(options ...ComputeBackendBuilderOption) ComputeBackend {
	return &cpuComputeBackendImpl{
		mu:      &sync.Mutex{},
		options: newComputeBackendOptions(options...),
	}
}

func (b *cpuComputeBackendImpl) Allocate(res common.Resolution) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := res.Validate(); err != nil {
		return fmt.Errorf("allocate %s: %v: %w", res, err, common.ErrResourceAllocation)
	}
	if b.allocated && b.resolution == res {
		return nil
	}
	b.resolution = res
	b.allocated = true
	b.options.logger.Printf("[CPUComputeBackend] allocated %s", res)
	return nil
}

func (b *cpuComputeBackendImpl) UploadScene(spheres []scene.Sphere) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.spheres = append([]scene.Sphere(nil), spheres...)
	return nil
}

func (b *cpuComputeBackendImpl) Dispatch(params DispatchParams, target *common.ImageBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.allocated {
		return fmt.Errorf("dispatch before allocate: %w", common.ErrBackendDispatch)
	}
	if target == nil || target.Resolution() != b.resolution {
		return fmt.Errorf("target does not match allocated resolution %s: %w", b.resolution, common.ErrBackendDispatch)
	}

	uniforms := NewGPUTracerUniforms(params, b.resolution, uint32(len(b.spheres)), b.options.maxBounces)
	spheres := b.spheres
	common.ParallelFor(b.options.pool, b.resolution.Height, func(start, end int) {
		t := &cpuTracer{uniforms: uniforms, spheres: spheres}
		for y := start; y < end; y++ {
			for x := 0; x < b.resolution.Width; x++ {
				c := t.renderPixel(x, y)
				target.Set(x, y, [4]float32{c[0], c[1], c[2], 1})
			}
		}
	})
	return nil
}

func (b *cpuComputeBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.spheres = nil
	b.resolution = common.Resolution{}
	b.allocated = false
}

type traceRay struct {
	origin    mgl32.Vec3
	direction mgl32.Vec3
	energy    mgl32.Vec3
}

type traceHit struct {
	position   mgl32.Vec3
	distance   float32
	normal     mgl32.Vec3
	albedo     mgl32.Vec3
	specular   mgl32.Vec3
	smoothness float32
	emission   mgl32.Vec3
}

// cpuTracer is the per-goroutine tracing state. Not safe for concurrent use.
type cpuTracer struct {
	uniforms GPUTracerUniforms
	spheres  []scene.Sphere
	rng      rand.PCG
}

func (t *cpuTracer) renderPixel(x, y int) mgl32.Vec3 {
	u := t.uniforms
	width, height := float32(u.Resolution[0]), float32(u.Resolution[1])
	t.rng.Seed(
		uint64(math.Float32bits(u.NoiseSeed))<<32|uint64(u.SampleIndex),
		uint64(y)*uint64(u.Resolution[0])+uint64(x),
	)

	// row 0 is the top of the image while clip space y points up
	uvX := (float32(x)+u.PixelJitter[0])/width*2 - 1
	uvY := -((float32(y)+u.PixelJitter[1])/height*2 - 1)

	r := t.cameraRay(uvX, uvY)
	var result mgl32.Vec3
	for bounce := uint32(0); bounce < u.MaxBounces; bounce++ {
		h := t.trace(r)
		energy := r.energy
		result = result.Add(mulVec3(energy, t.shade(&r, h)))
		if r.energy == (mgl32.Vec3{}) {
			break
		}
	}
	return result
}

func (t *cpuTracer) rand() float32 {
	return float32(t.rng.Uint64()>>40) / (1 << 24)
}

func (t *cpuTracer) cameraRay(u, v float32) traceRay {
	c2w := t.uniforms.CameraToWorld
	origin := c2w.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	direction := t.uniforms.InverseProjection.Mul4x1(mgl32.Vec4{u, v, 0, 1}).Vec3()
	direction = c2w.Mul4x1(direction.Vec4(0)).Vec3().Normalize()
	return traceRay{origin: origin, direction: direction, energy: mgl32.Vec3{1, 1, 1}}
}

func (t *cpuTracer) trace(r traceRay) traceHit {
	best := traceHit{distance: traceFar}
	intersectGround(r, &best)
	for i := range t.spheres {
		intersectSphere(r, &best, &t.spheres[i])
	}
	return best
}

func intersectGround(r traceRay, best *traceHit) {
	dist := -r.origin.Y() / r.direction.Y()
	if dist > 0 && dist < best.distance {
		best.distance = dist
		best.position = r.origin.Add(r.direction.Mul(dist))
		best.normal = mgl32.Vec3{0, 1, 0}
		best.albedo = groundAlbedo
		best.specular = groundSpecular
		best.smoothness = groundSmoothness
		best.emission = mgl32.Vec3{}
	}
}

func intersectSphere(r traceRay, best *traceHit, s *scene.Sphere) {
	d := r.origin.Sub(s.Position)
	p1 := -r.direction.Dot(d)
	p2sqr := p1*p1 - d.Dot(d) + s.Radius*s.Radius
	if p2sqr < 0 {
		return
	}
	p2 := float32(math.Sqrt(float64(p2sqr)))
	dist := p1 - p2
	if dist <= 0 {
		dist = p1 + p2
	}
	if dist > 0 && dist < best.distance {
		best.distance = dist
		best.position = r.origin.Add(r.direction.Mul(dist))
		best.normal = best.position.Sub(s.Position).Normalize()
		best.albedo = s.Albedo
		best.specular = s.Specular
		best.smoothness = s.Smoothness
		best.emission = s.Emission
	}
}

func (t *cpuTracer) directLight(h traceHit) mgl32.Vec3 {
	l := t.uniforms.Light
	toLight := l.Direction.Mul(-1)
	nDotL := h.normal.Dot(toLight)
	if nDotL <= 0 {
		return mgl32.Vec3{}
	}
	shadow := t.trace(traceRay{origin: h.position.Add(h.normal.Mul(traceEpsilon)), direction: toLight, energy: mgl32.Vec3{1, 1, 1}})
	if shadow.distance < traceFar {
		return mgl32.Vec3{}
	}
	return mulVec3(h.albedo.Mul(nDotL*l.Intensity), l.Color)
}

func (t *cpuTracer) shade(r *traceRay, h traceHit) mgl32.Vec3 {
	if h.distance >= traceFar {
		r.energy = mgl32.Vec3{}
		return skyColor(r.direction)
	}

	one := mgl32.Vec3{1, 1, 1}
	h.albedo = minVec3(one.Sub(h.specular), h.albedo)
	radiance := h.emission.Add(t.directLight(h))

	specChance := energyOf(h.specular)
	diffChance := energyOf(h.albedo)
	roulette := t.rand()
	switch {
	case specChance > 0 && roulette < specChance:
		alpha := smoothnessToPhongAlpha(h.smoothness)
		r.origin = h.position.Add(h.normal.Mul(traceEpsilon))
		r.direction = t.sampleHemisphere(reflect(r.direction, h.normal), alpha)
		f := (alpha + 2) / (alpha + 1)
		r.energy = mulVec3(r.energy.Mul(1/specChance), h.specular).Mul(sdot(h.normal, r.direction, f))
	case diffChance > 0 && roulette < specChance+diffChance:
		r.origin = h.position.Add(h.normal.Mul(traceEpsilon))
		r.direction = t.sampleHemisphere(h.normal, 1)
		r.energy = mulVec3(r.energy.Mul(1/diffChance), h.albedo)
	default:
		r.energy = mgl32.Vec3{}
	}
	return radiance
}

// sampleHemisphere draws a Phong-weighted direction around normal; alpha 0 is uniform, 1 is cosine weighted.
func (t *cpuTracer) sampleHemisphere(normal mgl32.Vec3, alpha float32) mgl32.Vec3 {
	cosTheta := float32(math.Pow(float64(t.rand()), 1/float64(alpha+1)))
	sinTheta := float32(math.Sqrt(float64(max(0, 1-cosTheta*cosTheta))))
	phi := 2 * math.Pi * float64(t.rand())

	helper := mgl32.Vec3{1, 0, 0}
	if float32(math.Abs(float64(normal.X()))) > 0.99 {
		helper = mgl32.Vec3{0, 0, 1}
	}
	tangent := normal.Cross(helper).Normalize()
	binormal := normal.Cross(tangent).Normalize()

	return tangent.Mul(float32(math.Cos(phi)) * sinTheta).
		Add(binormal.Mul(float32(math.Sin(phi)) * sinTheta)).
		Add(normal.Mul(cosTheta))
}

func skyColor(direction mgl32.Vec3) mgl32.Vec3 {
	t := 0.5 * (direction.Y() + 1)
	return mgl32.Vec3{1, 1, 1}.Mul(1 - t).Add(mgl32.Vec3{0.5, 0.7, 1}.Mul(t))
}

func reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

func energyOf(c mgl32.Vec3) float32 {
	return (c[0] + c[1] + c[2]) / 3
}

func sdot(x, y mgl32.Vec3, f float32) float32 {
	return mgl32.Clamp(x.Dot(y)*f, 0, 1)
}

func smoothnessToPhongAlpha(s float32) float32 {
	return float32(math.Pow(1000, float64(s*s)))
}

func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func minVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}
