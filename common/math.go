package common

import (
	"unsafe"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
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

// ScaleToPixels converts a logical length to device pixels, truncating toward zero the
// way native scissor and viewport coordinates expect.
//
// Parameters:
//   - v: the logical length
//   - contentScale: device pixels per logical pixel
//
// Returns:
//   - int32: the device pixel length
func ScaleToPixels(v, contentScale float64) int32 {
	return int32(v * contentScale)
}
