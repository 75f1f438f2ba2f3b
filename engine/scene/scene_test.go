package scene

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/go-gl/mathgl/mgl32"
)

func assertNoOverlap(t *testing.T, spheres []Sphere) {
	t.Helper()
	for i := range spheres {
		for j := i + 1; j < len(spheres); j++ {
			a, b := spheres[i], spheres[j]
			d := a.Position.Sub(b.Position).Len()
			if d < a.Radius+b.Radius-1e-4 {
				t.Fatalf("spheres %d and %d overlap: distance %g < %g", i, j, d, a.Radius+b.Radius)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	for _, seed := range []int64{0, 1, 42, -7, math.MaxInt64} {
		a := Generate(seed, 100, DefaultRadius, DefaultPlacementRadius)
		b := Generate(seed, 100, DefaultRadius, DefaultPlacementRadius)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("seed %d: two generations differ", seed)
		}
		if a.Seed != seed {
			t.Fatalf("seed %d: scene reports seed %d", seed, a.Seed)
		}
	}
}

func TestGenerateSeedOneScenario(t *testing.T) {
	first := Generate(1, 3, common.Range{Min: 3, Max: 8}, 100)
	for run := 0; run < 5; run++ {
		again := Generate(1, 3, common.Range{Min: 3, Max: 8}, 100)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from the first run", run)
		}
	}
	if first.Len() > 3 {
		t.Fatalf("expected at most 3 spheres, got %d", first.Len())
	}
	assertNoOverlap(t, first.Spheres)
}

func TestGenerateDifferentSeedsDiffer(t *testing.T) {
	a := Generate(1, 100, DefaultRadius, DefaultPlacementRadius)
	b := Generate(2, 100, DefaultRadius, DefaultPlacementRadius)
	if reflect.DeepEqual(a.Spheres, b.Spheres) {
		t.Fatal("seeds 1 and 2 produced identical spheres")
	}
}

func TestGenerateInvariants(t *testing.T) {
	tests := []struct {
		name      string
		count     uint32
		radius    common.Range
		placement float32
	}{
		{name: "defaults", count: 100, radius: DefaultRadius, placement: DefaultPlacementRadius},
		{name: "dense", count: 500, radius: common.Range{Min: 1, Max: 4}, placement: 20},
		{name: "fixed radius", count: 50, radius: common.Range{Min: 2, Max: 2}, placement: 50},
		{name: "placement smaller than radius", count: 20, radius: DefaultRadius, placement: 1},
		{name: "zero placement", count: 10, radius: DefaultRadius, placement: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(0); seed < 20; seed++ {
				s := Generate(seed, tt.count, tt.radius, tt.placement)
				if s.Len() > int(tt.count) {
					t.Fatalf("seed %d: %d spheres exceeds budget %d", seed, s.Len(), tt.count)
				}
				assertNoOverlap(t, s.Spheres)

				for i, sp := range s.Spheres {
					if sp.Radius < tt.radius.Min || sp.Radius > tt.radius.Max {
						t.Fatalf("seed %d sphere %d: radius %g outside [%g, %g]", seed, i, sp.Radius, tt.radius.Min, tt.radius.Max)
					}
					if sp.Position.Y() != sp.Radius {
						t.Fatalf("seed %d sphere %d: not resting on ground (y=%g r=%g)", seed, i, sp.Position.Y(), sp.Radius)
					}
					planar := mgl32.Vec2{sp.Position.X(), sp.Position.Z()}.Len()
					if planar > tt.placement+1e-3 {
						t.Fatalf("seed %d sphere %d: planar distance %g outside placement disk %g", seed, i, planar, tt.placement)
					}
				}
			}
		})
	}
}

func TestGenerateZeroPlacementKeepsOneSphere(t *testing.T) {
	s := Generate(3, 10, DefaultRadius, 0)
	if s.Len() != 1 {
		t.Fatalf("all candidates share the origin, expected exactly 1 sphere, got %d", s.Len())
	}
}

func TestGenerateZeroCount(t *testing.T) {
	s := Generate(1, 0, DefaultRadius, DefaultPlacementRadius)
	if !s.Empty() || s.Len() != 0 {
		t.Fatalf("expected an empty scene, got %d spheres", s.Len())
	}
	if s.Spheres == nil {
		t.Fatal("expected a non-nil empty slice")
	}
	if got := MarshalSpheres(s.Spheres); len(got) != 0 {
		t.Fatalf("expected no bytes for an empty scene, got %d", len(got))
	}
}

func TestGenerateMaterials(t *testing.T) {
	var zero mgl32.Vec3
	dielectric := mgl32.Vec3{DielectricSpecular, DielectricSpecular, DielectricSpecular}
	seen := map[MaterialKind]int{}

	for seed := int64(0); seed < 30; seed++ {
		s := Generate(seed, 100, DefaultRadius, DefaultPlacementRadius)
		for k, n := range s.CountByMaterial() {
			seen[k] += n
		}
		for i, sp := range s.Spheres {
			switch sp.Material {
			case MaterialMetal:
				if sp.Albedo != zero || sp.Emission != zero {
					t.Fatalf("seed %d sphere %d: metal with albedo %v emission %v", seed, i, sp.Albedo, sp.Emission)
				}
				if sp.Smoothness < 0 || sp.Smoothness >= 1 {
					t.Fatalf("seed %d sphere %d: smoothness %g outside [0,1)", seed, i, sp.Smoothness)
				}
			case MaterialDielectric:
				if sp.Specular != dielectric || sp.Emission != zero {
					t.Fatalf("seed %d sphere %d: dielectric with specular %v emission %v", seed, i, sp.Specular, sp.Emission)
				}
				if sp.Smoothness < 0 || sp.Smoothness >= 1 {
					t.Fatalf("seed %d sphere %d: smoothness %g outside [0,1)", seed, i, sp.Smoothness)
				}
			case MaterialEmissive:
				if sp.Albedo != zero || sp.Specular != zero || sp.Smoothness != 0 {
					t.Fatalf("seed %d sphere %d: emissive with surface terms", seed, i)
				}
				max := float32(math.Max(float64(sp.Emission.X()), math.Max(float64(sp.Emission.Y()), float64(sp.Emission.Z()))))
				if max < DefaultBrightness.Min-1e-4 || max > DefaultBrightness.Max+1e-4 {
					t.Fatalf("seed %d sphere %d: emission peak %g outside brightness range", seed, i, max)
				}
			default:
				t.Fatalf("seed %d sphere %d: unknown material %v", seed, i, sp.Material)
			}
		}
	}

	for _, k := range []MaterialKind{MaterialMetal, MaterialDielectric, MaterialEmissive} {
		if seen[k] == 0 {
			t.Errorf("no %s spheres across 30 seeds", k)
		}
	}
}

func TestGenerateWithRandAdvancesStream(t *testing.T) {
	params, err := NewParams(WithCount(10))
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	rng := NewRand(9)
	first := GenerateWithRand(rng, params)
	second := GenerateWithRand(rng, params)
	if reflect.DeepEqual(first, second) {
		t.Fatal("a shared stream produced the same pass twice")
	}
	if !reflect.DeepEqual(first, GenerateParams(9, params).Spheres) {
		t.Fatal("GenerateParams does not match a fresh stream for the same seed")
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		options []ParamsBuilderOption
		wantErr bool
	}{
		{name: "defaults"},
		{name: "zero count", options: []ParamsBuilderOption{WithCount(0)}},
		{name: "placement below radius", options: []ParamsBuilderOption{WithPlacementRadius(1)}},
		{name: "negative radius", options: []ParamsBuilderOption{WithRadius(-1, 3)}, wantErr: true},
		{name: "zero minimum radius", options: []ParamsBuilderOption{WithRadius(0, 3)}, wantErr: true},
		{name: "inverted radius", options: []ParamsBuilderOption{WithRadius(8, 3)}, wantErr: true},
		{name: "negative placement", options: []ParamsBuilderOption{WithPlacementRadius(-5)}, wantErr: true},
		{name: "inverted brightness", options: []ParamsBuilderOption{WithBrightness(8, 3)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParams(tt.options...)
			if tt.wantErr {
				if !errors.Is(err, common.ErrInvalidParameter) {
					t.Fatalf("expected ErrInvalidParameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMarshalSpheres(t *testing.T) {
	s := Generate(5, 20, DefaultRadius, DefaultPlacementRadius)
	buf := MarshalSpheres(s.Spheres)
	if len(buf) != s.Len()*GPUSphereStride {
		t.Fatalf("expected %d bytes, got %d", s.Len()*GPUSphereStride, len(buf))
	}
	if GPUSphereStride != 56 {
		t.Fatalf("stride drifted to %d", GPUSphereStride)
	}
	if s.Len() == 0 {
		t.Skip("seed produced no spheres")
	}
	radius := math.Float32frombits(uint32(buf[12]) | uint32(buf[13])<<8 | uint32(buf[14])<<16 | uint32(buf[15])<<24)
	if radius != s.Spheres[0].Radius {
		t.Fatalf("radius at offset 12 = %g, want %g", radius, s.Spheres[0].Radius)
	}
}

func TestSphereOverlaps(t *testing.T) {
	a := Sphere{Position: mgl32.Vec3{0, 1, 0}, Radius: 1}
	touching := Sphere{Position: mgl32.Vec3{2, 1, 0}, Radius: 1}
	inside := Sphere{Position: mgl32.Vec3{1, 1, 0}, Radius: 1}
	if a.Overlaps(touching) {
		t.Error("touching spheres reported as overlapping")
	}
	if !a.Overlaps(inside) {
		t.Error("interpenetrating spheres not reported")
	}
}
