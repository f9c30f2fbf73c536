package config

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"os/exec"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ScreenshotCommand captures every output as PNG on stdout.
var ScreenshotCommand = []string{"grim", "-t", "png", "-"}

// DecodeImage decodes any registered image format into RGBA.
func DecodeImage(r io.Reader) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}

// LoadImage reads and decodes an image file.
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Screenshot runs ScreenshotCommand and decodes its output.
func Screenshot(ctx context.Context) (*image.RGBA, error) {
	if len(ScreenshotCommand) == 0 {
		return nil, fmt.Errorf("screenshot: no command")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ScreenshotCommand[0], ScreenshotCommand[1:]...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("screenshot: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	img, err := DecodeImage(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return img, nil
}

// Black returns a 1x1 opaque black image.
func Black() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[3] = 0xff
	return img
}
