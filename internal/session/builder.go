package session

import (
	"log/slog"

	"github.com/tuxx/shaderlock/internal/auth"
	"github.com/tuxx/shaderlock/internal/config"
	"github.com/tuxx/shaderlock/internal/gpu"
	"github.com/tuxx/shaderlock/internal/logging"
	"github.com/tuxx/shaderlock/internal/overlay"
	"github.com/tuxx/shaderlock/internal/render"
	"github.com/tuxx/shaderlock/internal/shader"
	"github.com/tuxx/shaderlock/internal/shm"
)

// GPUBuilder creates renderers that draw with the GPU and present through
// shared memory. The device is opened by the first Build and shared by all
// outputs.
type GPUBuilder struct {
	settings config.Settings
	fonts    *overlay.Fonts
	verifier auth.Verifier
	log      *slog.Logger

	dev *gpu.Device
}

// NewGPUBuilder returns a builder for settings. fonts may be nil.
func NewGPUBuilder(settings config.Settings, fonts *overlay.Fonts, log *slog.Logger) *GPUBuilder {
	return &GPUBuilder{
		settings: settings,
		fonts:    fonts,
		verifier: auth.PAM{},
		log:      logging.Or(log),
	}
}

// Build creates the renderer for s. The overlay is attached only in lock
// mode.
func (b *GPUBuilder) Build(s LockSurface) (Renderer, error) {
	if b.dev == nil {
		dev, err := gpu.Open(b.log)
		if err != nil {
			return nil, err
		}
		b.dev = dev
	}
	log := b.log.With("surface", s.Key(), "output", s.Output())

	target, err := b.dev.NewTarget(gpu.TargetOptions{
		Vertex:     shader.Vertex,
		Fragment:   b.settings.ShaderSource,
		Background: b.settings.Background,
	})
	if err != nil {
		return nil, err
	}
	if target.Fallback() {
		log.Warn("rendering the fallback shader", "shader", b.settings.ShaderPath)
	}

	var ov render.Overlay
	if b.settings.LockMode {
		ov = overlay.New(overlay.Options{
			Service:  b.settings.PAMService,
			Verifier: b.verifier,
			Fonts:    b.fonts,
			Log:      log,
		})
	}

	return render.New(render.Options{
		Target:    target,
		Presenter: shm.New(shm.Options{Backend: s, Logger: log}),
		Overlay:   ov,
		FadeIn:    b.settings.FadeIn,
		Logger:    log,
	}), nil
}

// Release closes the GPU device. Renderers must be released first.
func (b *GPUBuilder) Release() {
	if b.dev != nil {
		b.dev.Release()
		b.dev = nil
	}
}
