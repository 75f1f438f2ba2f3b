// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
// The presentation surface uses it to stage the converged image before writing it to the blit texture.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
}

// SamplerStagingData holds the sampler configuration for a texture binding. Zero fields fall back
// to the defaults chosen by the consumer (see common.Coalesce).
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// Resolution is an output size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Validate rejects non-positive dimensions.
//
// Returns:
//   - error: wraps ErrInvalidParameter if either dimension is <= 0
func (r Resolution) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("resolution %dx%d: %w", r.Width, r.Height, ErrInvalidParameter)
	}
	return nil
}

// Aspect returns width / height, or 1 for a degenerate resolution.
//
// Returns:
//   - float32: the aspect ratio
func (r Resolution) Aspect() float32 {
	if r.Height == 0 {
		return 1
	}
	return float32(r.Width) / float32(r.Height)
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Range is a closed scalar interval [Min, Max].
type Range struct {
	Min float32
	Max float32
}

// Validate rejects negative bounds and inverted intervals.
//
// Parameters:
//   - name: label used in the returned error
//
// Returns:
//   - error: wraps ErrInvalidParameter when Min < 0 or Max < Min
func (r Range) Validate(name string) error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%s [%g, %g] is negative: %w", name, r.Min, r.Max, ErrInvalidParameter)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%s [%g, %g] is inverted: %w", name, r.Min, r.Max, ErrInvalidParameter)
	}
	return nil
}

// Lerp maps t in [0,1] onto the interval.
//
// Parameters:
//   - t: interpolation factor
//
// Returns:
//   - float32: Min + t*(Max-Min)
func (r Range) Lerp(t float32) float32 {
	return r.Min + t*(r.Max-r.Min)
}
