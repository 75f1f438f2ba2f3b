package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/cogentcore/webgpu/wgpu"
)

const testUniforms = `struct Params {
    light: DirectionalLight,
    jitter: vec2<f32>,
    count: u32,
};
`

const testCompute = `//@oxy:include directional_light
//@oxy:include params
//@oxy:include sphere
//@oxy:include sphere

//@oxy:group 0 0 storage_uniform params params
@group(0) @binding(1) var<storage, read> spheres: array<f32>;
@group(0) @binding(2) var<storage, read_write> output: array<vec4<f32>>;

@compute @workgroup_size(8, 4)
fn render(@builtin(global_invocation_id) id: vec3<u32>) {
    let s = load_sphere(id.x);
    output[id.x] = vec4<f32>(s.albedo, params.light.intensity);
}
`

var testParamsStruct = StructSource{Key: "params", Source: testUniforms, Type: "Params"}

func TestNewShaderParsesCompute(t *testing.T) {
	s, err := NewShader("test", ShaderTypeCompute, testCompute, testParamsStruct)
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}

	if s.EntryPoint() != "render" {
		t.Errorf("entry point = %q, want render", s.EntryPoint())
	}
	if s.WorkgroupSize() != [3]uint32{8, 4, 1} {
		t.Errorf("workgroup size = %v, want [8 4 1]", s.WorkgroupSize())
	}
	if got := s.BindGroupVarName(0, 0); got != "params" {
		t.Errorf("binding 0 = %q, want params", got)
	}
	if b, ok := s.BindGroupFromVarName(0, "output"); !ok || b != 2 {
		t.Errorf("output binding = %d (%v), want 2", b, ok)
	}
	if _, ok := s.BindGroupFromVarName(0, "missing"); ok {
		t.Error("unexpected binding for missing var")
	}

	entries := s.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 3 {
		t.Fatalf("group 0 has %d entries, want 3", len(entries))
	}
	wantTypes := []wgpu.BufferBindingType{
		wgpu.BufferBindingTypeUniform,
		wgpu.BufferBindingTypeReadOnlyStorage,
		wgpu.BufferBindingTypeStorage,
	}
	for i, e := range entries {
		if e.Binding != uint32(i) {
			t.Errorf("entry %d has binding %d", i, e.Binding)
		}
		if e.Buffer.Type != wantTypes[i] {
			t.Errorf("entry %d buffer type = %v, want %v", i, e.Buffer.Type, wantTypes[i])
		}
		if e.Visibility != wgpu.ShaderStageCompute {
			t.Errorf("entry %d visibility = %v", i, e.Visibility)
		}
	}
	if entries[0].Buffer.MinBindingSize != 48 {
		t.Errorf("params MinBindingSize = %d, want 48", entries[0].Buffer.MinBindingSize)
	}
	if entries[2].Buffer.MinBindingSize != 16 {
		t.Errorf("output MinBindingSize = %d, want 16", entries[2].Buffer.MinBindingSize)
	}
}

func TestStructLayouts(t *testing.T) {
	s, err := NewShader("test", ShaderTypeCompute, testCompute, testParamsStruct)
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}

	light, ok := s.StructLayout("DirectionalLight")
	if !ok {
		t.Fatal("DirectionalLight layout missing")
	}
	if light.Size != 32 || light.Offsets["color"] != 16 || light.Offsets["intensity"] != 12 {
		t.Errorf("DirectionalLight layout = %+v", light)
	}

	params, ok := s.StructLayout("Params")
	if !ok {
		t.Fatal("Params layout missing")
	}
	if params.Offsets["jitter"] != 32 || params.Offsets["count"] != 40 || params.Size != 48 {
		t.Errorf("Params layout = %+v", params)
	}
}

func TestPreProcessorDeduplicatesIncludes(t *testing.T) {
	pp := NewPreProcessor(testParamsStruct)
	out, err := pp.Process(testCompute)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n := strings.Count(out, "struct Sphere"); n != 1 {
		t.Errorf("Sphere declared %d times, want 1", n)
	}
	if !strings.Contains(out, "@group(0) @binding(0) var<uniform> params: Params;") {
		t.Error("generated uniform declaration missing")
	}
	decls := pp.Declarations()
	if len(decls) != 1 || decls[0].Type != AnnotationTypeBindingGroup || *decls[0].Binding != 0 {
		t.Errorf("declarations = %+v", decls)
	}
}

func TestPreProcessorErrors(t *testing.T) {
	cases := map[string]string{
		"unknown include":       "//@oxy:include mesh",
		"unknown group type":    "//@oxy:group 0 0 storage_read data mesh",
		"unknown address space": "//@oxy:group 0 0 storage_write data sphere",
		"bad group number":      "//@oxy:group x 0 storage_read data sphere",
		"missing arguments":     "//@oxy:group 0 0 storage_read",
		"empty annotation":      "//@oxy:",
		"unknown annotation":    "//@oxy:provider camera",
	}
	for name, src := range cases {
		if _, err := NewPreProcessor().Process(src); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPreProcessorIgnoresNonCommentLines(t *testing.T) {
	src := `let marker = "@oxy:include sphere";`
	out, err := NewPreProcessor().Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != src {
		t.Errorf("non-comment line rewritten to %q", out)
	}
}

func TestNewShaderRejectsMissingEntryPoint(t *testing.T) {
	_, err := NewShader("test", ShaderTypeFragment, testCompute, testParamsStruct)
	if !errors.Is(err, common.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if _, err := NewShader("empty", ShaderTypeCompute, ""); !errors.Is(err, common.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for empty source, got %v", err)
	}
}
