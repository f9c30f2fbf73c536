package config

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/tuxx/shaderlock/internal/logging"
	"github.com/tuxx/shaderlock/internal/shader"
)

// Settings is everything a session needs. It is not modified once the
// session starts.
type Settings struct {
	// LockMode is false in screensaver mode: no lock, no password prompt.
	LockMode bool
	// ShaderSource is the WGSL fragment shader body.
	ShaderSource string
	// ShaderPath is empty when the bundled demo shader is used.
	ShaderPath string
	Background *image.RGBA
	FPS        int
	FadeIn     time.Duration
	PAMService string
	FontPath   string
}

// FramePeriod is the frame timer interval.
func (s Settings) FramePeriod() time.Duration {
	return time.Second / time.Duration(s.FPS)
}

// Load reads the shader and background named by c. A missing shader falls
// back to the bundled demo and a failed screenshot to a black background;
// an explicitly configured background that cannot be read is an error.
func Load(ctx context.Context, c Config, pick Picker, log *slog.Logger) (Settings, error) {
	log = logging.Or(log).With("component", "config")
	s := Settings{
		LockMode:   c.Lock,
		FPS:        c.FPS,
		FadeIn:     c.Fade,
		PAMService: c.PAMService,
		FontPath:   c.Font,
	}

	s.ShaderSource, s.ShaderPath = loadShader(c.Shader, pick, log)

	bg, err := loadBackground(ctx, c.Background, pick, log)
	if err != nil {
		return Settings{}, err
	}
	s.Background = bg
	return s, nil
}

func loadShader(path string, pick Picker, log *slog.Logger) (src, file string) {
	if path == "" {
		return shader.DemoFragment(), ""
	}
	file, err := PickFile(path, ShaderExts, pick)
	if err == nil {
		var data []byte
		data, err = os.ReadFile(file)
		if err == nil {
			log.Info("using shader", "path", file)
			return string(data), file
		}
	}
	log.Warn("no usable shader, using the bundled demo", "path", path, "err", err)
	return shader.DemoFragment(), ""
}

func loadBackground(ctx context.Context, path string, pick Picker, log *slog.Logger) (*image.RGBA, error) {
	if path == "" {
		img, err := Screenshot(ctx)
		if err != nil {
			log.Warn("screenshot failed, using a black background", "err", err)
			return Black(), nil
		}
		return img, nil
	}
	file, err := PickFile(path, ImageExts, pick)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	img, err := LoadImage(file)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	log.Info("using background", "path", file, "size", img.Bounds().Size())
	return img, nil
}
