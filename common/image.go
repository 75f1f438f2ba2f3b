package common

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// MaxImageDimension bounds either side of an ImageBuffer. Larger requests fail with ErrResourceAllocation
// instead of attempting an allocation the process cannot satisfy.
const MaxImageDimension = 16384

// ImageBuffer is a linear-light RGBA float32 image stored row-major, 4 floats per pixel.
// It backs both the working target a compute backend writes into and the converged accumulation image.
type ImageBuffer struct {
	Width  int
	Height int
	Pix    []float32
}

// NewImageBuffer allocates a zeroed buffer.
//
// Parameters:
//   - width: width in pixels (must be > 0)
//   - height: height in pixels (must be > 0)
//
// Returns:
//   - *ImageBuffer: the allocated buffer
//   - error: ErrInvalidParameter for non-positive sizes, ErrResourceAllocation for oversize requests
func NewImageBuffer(width, height int) (*ImageBuffer, error) {
	if err := (Resolution{Width: width, Height: height}).Validate(); err != nil {
		return nil, err
	}
	if width > MaxImageDimension || height > MaxImageDimension {
		return nil, fmt.Errorf("image %dx%d exceeds %d: %w", width, height, MaxImageDimension, ErrResourceAllocation)
	}
	return &ImageBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*4),
	}, nil
}

// Resolution returns the buffer size.
func (b *ImageBuffer) Resolution() Resolution {
	return Resolution{Width: b.Width, Height: b.Height}
}

// Clear zeroes every channel of every pixel.
func (b *ImageBuffer) Clear() {
	clear(b.Pix)
}

// Offset returns the index of the first channel of pixel (x, y).
func (b *ImageBuffer) Offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// At returns the RGBA value of pixel (x, y).
func (b *ImageBuffer) At(x, y int) [4]float32 {
	i := b.Offset(x, y)
	return [4]float32{b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]}
}

// Set writes the RGBA value of pixel (x, y).
func (b *ImageBuffer) Set(x, y int, c [4]float32) {
	i := b.Offset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = c[0], c[1], c[2], c[3]
}

// Clone returns a deep copy.
func (b *ImageBuffer) Clone() *ImageBuffer {
	pix := make([]float32, len(b.Pix))
	copy(pix, b.Pix)
	return &ImageBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Equal reports whether both buffers have the same size and identical channel values.
func (b *ImageBuffer) Equal(other *ImageBuffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.Width != other.Width || b.Height != other.Height {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

// ToRGBA converts the linear buffer into an 8-bit sRGB image. Channels are clamped to [0,1]
// and alpha is forced opaque.
//
// Returns:
//   - *image.RGBA: the display-ready image
func (b *ImageBuffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			i := b.Offset(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: linearToSRGB8(b.Pix[i]),
				G: linearToSRGB8(b.Pix[i+1]),
				B: linearToSRGB8(b.Pix[i+2]),
				A: 255,
			})
		}
	}
	return img
}

// linearToSRGB8 applies the sRGB transfer curve and quantizes to a byte.
func linearToSRGB8(v float32) uint8 {
	if v != v || v <= 0 { // NaN or black
		return 0
	}
	if v >= 1 {
		return 255
	}
	var s float64
	if v <= 0.0031308 {
		s = float64(v) * 12.92
	} else {
		s = 1.055*math.Pow(float64(v), 1/2.4) - 0.055
	}
	return uint8(s*255 + 0.5)
}
