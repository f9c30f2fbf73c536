package gpu

import (
	"image"
	"testing"

	"github.com/tuxx/shaderlock/internal/render"
)

func TestPaddedBytesPerRow(t *testing.T) {
	tests := []struct {
		width uint32
		want  uint32
	}{
		{1, 256},
		{64, 256},
		{65, 512},
		{1920, 7680},
		{1366, 5632},
	}
	for _, tt := range tests {
		if got := PaddedBytesPerRow(tt.width); got != tt.want {
			t.Errorf("PaddedBytesPerRow(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
	if got := ReadbackSize(1366, 768); got != 5632*768 {
		t.Errorf("ReadbackSize = %d", got)
	}
}

func TestCopyRowsDropsPadding(t *testing.T) {
	const w, h = 3, 2
	pitch := int(PaddedBytesPerRow(w))
	src := make([]byte, pitch*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w*4; x++ {
			src[y*pitch+x] = byte(y*16 + x)
		}
		for x := w * 4; x < pitch; x++ {
			src[y*pitch+x] = 0xee
		}
	}

	dst := &render.Frame{Pix: make([]byte, 16*h), Stride: 16, Width: w, Height: h}
	if err := CopyRows(dst, src, pitch); err != nil {
		t.Fatalf("CopyRows: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w*4; x++ {
			if got, want := dst.Pix[y*16+x], byte(y*16+x); got != want {
				t.Fatalf("pixel byte (%d,%d) = %#x, want %#x", x, y, got, want)
			}
		}
		if dst.Pix[y*16+w*4] == 0xee {
			t.Fatalf("row %d padding leaked into frame", y)
		}
	}
}

func TestCopyRowsShortSource(t *testing.T) {
	dst := render.NewFrame(8, 8)
	if err := CopyRows(dst, make([]byte, 100), 256); err == nil {
		t.Fatal("short readback accepted")
	}
	if err := CopyRows(dst, make([]byte, 256*8), 16); err == nil {
		t.Fatal("pitch narrower than a row accepted")
	}
}

func TestBackgroundPixels(t *testing.T) {
	pix, stride, w, h := backgroundPixels(nil)
	if w != 1 || h != 1 || stride != 4 || pix[3] != 0xff {
		t.Errorf("nil image gave %dx%d stride %d", w, h, stride)
	}

	img := image.NewRGBA(image.Rect(0, 0, 10, 4))
	sub := img.SubImage(image.Rect(2, 1, 6, 3)).(*image.RGBA)
	img.Pix[img.PixOffset(2, 1)] = 0x42
	pix, stride, w, h = backgroundPixels(sub)
	if w != 4 || h != 2 {
		t.Fatalf("sub image size = %dx%d", w, h)
	}
	if stride != uint32(img.Stride) {
		t.Errorf("stride = %d, want %d", stride, img.Stride)
	}
	if pix[0] != 0x42 {
		t.Error("upload does not start at the sub image origin")
	}
}
