package common

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Coalesce returns the first non-zero value, or the zero value if all are zero.
// Sampler and texture descriptors use it to fall back to defaults for unset fields.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads and readbacks.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PutFloat32s writes values little-endian into buf starting at offset.
//
// Parameters:
//   - buf: destination buffer (must hold offset + 4*len(values) bytes)
//   - offset: byte offset of the first value
//   - values: the floats to write
//
// Returns:
//   - int: the offset just past the last written value
func PutFloat32s(buf []byte, offset int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}
	return offset
}

// PutMat4 writes a column-major 4x4 matrix little-endian into buf starting at offset.
//
// Returns:
//   - int: the offset just past the matrix (offset + 64)
func PutMat4(buf []byte, offset int, m mgl32.Mat4) int {
	return PutFloat32s(buf, offset, m[:]...)
}
