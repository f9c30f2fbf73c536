package render

import (
	"encoding/binary"
	"errors"
	"math"
)

// UniformSize is the size of FrameUniforms in the uniform buffer.
const UniformSize = 16

// FrameUniforms is the per-frame block read by the fragment shader.
type FrameUniforms struct {
	Elapsed    float32
	Fade       float32
	Resolution [2]float32
}

// AppendBytes appends the little-endian std140 encoding of u to b.
func (u FrameUniforms) AppendBytes(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(u.Elapsed))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(u.Fade))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(u.Resolution[0]))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(u.Resolution[1]))
	return b
}

// Bytes returns the encoding of u.
func (u FrameUniforms) Bytes() []byte {
	return u.AppendBytes(make([]byte, 0, UniformSize))
}

// Frame is one presentable pixel buffer. Pixels are stored B, G, R, A per
// pixel, which is WL_SHM_FORMAT_XRGB8888 on little-endian. The compositor
// ignores the alpha byte so the lock surface is always opaque.
type Frame struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
	// Slot identifies the frame to the presenter that produced it.
	Slot int
}

// ErrFrameSize reports a frame whose buffer is too small for its size.
var ErrFrameSize = errors.New("frame buffer smaller than its dimensions")

// NewFrame allocates a tightly packed frame.
func NewFrame(w, h int) *Frame {
	return &Frame{Pix: make([]byte, w*h*4), Stride: w * 4, Width: w, Height: h}
}

// Validate checks that Pix covers Width x Height at Stride.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 || f.Stride < f.Width*4 {
		return ErrFrameSize
	}
	if len(f.Pix) < f.Stride*(f.Height-1)+f.Width*4 {
		return ErrFrameSize
	}
	return nil
}

// Row returns the bytes of row y.
func (f *Frame) Row(y int) []byte {
	off := y * f.Stride
	return f.Pix[off : off+f.Width*4]
}

// At returns the B, G, R, A bytes at x, y.
func (f *Frame) At(x, y int) (b, g, r, a uint8) {
	i := y*f.Stride + x*4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}
