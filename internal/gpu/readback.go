package gpu

import (
	"fmt"

	"github.com/tuxx/shaderlock/internal/render"
)

// copyRowAlignment is the bytes-per-row alignment required for texture to
// buffer copies.
const copyRowAlignment = 256

const bytesPerPixel = 4

// PaddedBytesPerRow returns the readback row pitch for width pixels.
func PaddedBytesPerRow(width uint32) uint32 {
	n := width * bytesPerPixel
	return (n + copyRowAlignment - 1) / copyRowAlignment * copyRowAlignment
}

// ReadbackSize is the buffer size needed for a width x height readback.
func ReadbackSize(width, height uint32) uint64 {
	return uint64(PaddedBytesPerRow(width)) * uint64(height)
}

// CopyRows copies a padded readback into dst row by row, dropping the row
// padding and honouring dst.Stride.
func CopyRows(dst *render.Frame, src []byte, srcStride int) error {
	if err := dst.Validate(); err != nil {
		return err
	}
	row := dst.Width * bytesPerPixel
	if srcStride < row || len(src) < srcStride*(dst.Height-1)+row {
		return fmt.Errorf("readback of %d bytes too small for %dx%d at pitch %d",
			len(src), dst.Width, dst.Height, srcStride)
	}
	for y := 0; y < dst.Height; y++ {
		copy(dst.Row(y), src[y*srcStride:y*srcStride+row])
	}
	return nil
}
