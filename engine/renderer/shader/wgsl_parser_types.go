package shader

import "github.com/cogentcore/webgpu/wgpu"

// StructLayout is the host-shareable memory layout of a WGSL struct. Go marshalers that feed a
// struct to the GPU must write each member at the offset reported here.
type StructLayout struct {
	// Size is the struct size in bytes, rounded up to Align.
	Size uint64
	// Align is the largest member alignment.
	Align uint64
	// Offsets maps member names to their byte offsets.
	Offsets map[string]uint64
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// parsedField is a single struct member.
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct is a struct block extracted from the source.
type parsedStruct struct {
	name   string
	fields []parsedField
}
