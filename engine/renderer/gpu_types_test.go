package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/light"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

func parsePathTracer(t *testing.T) shader.Shader {
	t.Helper()
	s, err := shader.NewShader("path_tracer", shader.ShaderTypeCompute, pathTracerSource, shader.StructSource{
		Key:    "tracer_uniforms",
		Source: GPUTracerUniformsSource,
		Type:   "TracerUniforms",
	})
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	return s
}

func TestTracerUniformsMatchKernelLayout(t *testing.T) {
	layout, ok := parsePathTracer(t).StructLayout("TracerUniforms")
	if !ok {
		t.Fatal("TracerUniforms layout not resolved")
	}
	if layout.Size != GPUTracerUniformsSize {
		t.Fatalf("TracerUniforms size = %d, want %d", layout.Size, GPUTracerUniformsSize)
	}

	want := map[string]uint64{
		"camera_to_world":    0,
		"inverse_projection": 64,
		"light":              128,
		"pixel_jitter":       160,
		"noise_seed":         168,
		"sphere_count":       172,
		"resolution":         176,
		"sample_index":       184,
		"max_bounces":        188,
	}
	for field, off := range want {
		if got := layout.Offsets[field]; got != off {
			t.Errorf("offset of %s = %d, want %d", field, got, off)
		}
	}
}

func TestTracerUniformsMarshal(t *testing.T) {
	params := DispatchParams{
		CameraToWorld:     mgl32.Translate3D(1, 2, 3),
		InverseProjection: mgl32.Ident4(),
		PixelJitter:       mgl32.Vec2{0.25, 0.75},
		NoiseSeed:         0.5,
		Light: light.GPUDirectionalLight{
			Direction: mgl32.Vec3{0, -1, 0},
			Intensity: 2,
			Color:     mgl32.Vec3{1, 0.5, 0.25},
		},
		SampleIndex: 41,
	}
	u := NewGPUTracerUniforms(params, common.Resolution{Width: 640, Height: 480}, 12, DefaultMaxBounces)
	buf := u.Marshal()
	if len(buf) != u.Size() {
		t.Fatalf("marshalled %d bytes, want %d", len(buf), u.Size())
	}

	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	// column-major translation lives in elements 12..14
	if f32(48) != 1 || f32(52) != 2 || f32(56) != 3 {
		t.Errorf("camera_to_world translation = (%v, %v, %v)", f32(48), f32(52), f32(56))
	}
	if f32(64) != 1 || f32(64+5*4) != 1 {
		t.Errorf("inverse_projection is not identity")
	}
	if f32(128+4) != -1 || f32(128+12) != 2 || f32(128+20) != 0.5 {
		t.Errorf("light packed incorrectly")
	}
	if f32(160) != 0.25 || f32(164) != 0.75 || f32(168) != 0.5 {
		t.Errorf("jitter/seed = (%v, %v, %v)", f32(160), f32(164), f32(168))
	}
	if u32(172) != 12 || u32(176) != 640 || u32(180) != 480 || u32(184) != 41 || u32(188) != DefaultMaxBounces {
		t.Errorf("trailing uints = %d %d %d %d %d", u32(172), u32(176), u32(180), u32(184), u32(188))
	}
}

func TestPathTracerBindings(t *testing.T) {
	s := parsePathTracer(t)
	if s.EntryPoint() != "main" {
		t.Fatalf("entry point = %q, want main", s.EntryPoint())
	}
	if s.WorkgroupSize() != [3]uint32{WorkgroupSize, WorkgroupSize, 1} {
		t.Fatalf("workgroup size = %v", s.WorkgroupSize())
	}
	for binding, name := range []string{"params", "spheres", "output"} {
		got, ok := s.BindGroupFromVarName(0, name)
		if !ok || got != binding {
			t.Errorf("binding of %s = %d (%v), want %d", name, got, ok, binding)
		}
	}
	if n := len(s.BindGroupLayoutDescriptor(0).Entries); n != 3 {
		t.Fatalf("group 0 has %d entries, want 3", n)
	}
}
