// Package render drives one lock surface: it keeps the animation clock,
// feeds uniforms to the GPU target, composites the overlay and hands the
// result to the presenter.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tuxx/shaderlock/internal/input"
	"github.com/tuxx/shaderlock/internal/logging"
)

var (
	// ErrNotConfigured is returned by Render before the first Configure.
	ErrNotConfigured = errors.New("renderer not configured")
	// ErrInvalidSize rejects a zero width or height.
	ErrInvalidSize = errors.New("invalid surface size")
	// ErrAcquire wraps failures to obtain a presentable frame.
	ErrAcquire = errors.New("surface acquire failed")
)

// Target renders the shader into a frame.
type Target interface {
	// Resize recreates size-dependent GPU state.
	Resize(width, height uint32) error
	// Draw clears to black, draws the full-screen quad with u and copies
	// the result into dst.
	Draw(u FrameUniforms, dst *Frame) error
	Release()
}

// Presenter owns the buffers shown on the output.
type Presenter interface {
	Resize(width, height uint32) error
	// Acquire returns a frame that is free for drawing.
	Acquire() (*Frame, error)
	// Present attaches and commits f.
	Present(f *Frame) error
	Release()
}

// Overlay is the password UI painted over the shader in lock mode.
type Overlay interface {
	Configure(width, height uint32)
	KeyEvent(ev input.KeyEvent)
	MouseEvent(ev input.PointerEvent)
	// Tick runs time-driven behaviour such as key repeat.
	Tick(now time.Time)
	Paint(f *Frame) error
	IsAuthenticated() bool
}

// Options configures a Renderer.
type Options struct {
	Target    Target
	Presenter Presenter
	// Overlay is nil in screensaver mode.
	Overlay Overlay
	// FadeIn is how long Fade takes to reach 1. Zero pins it at 1.
	FadeIn time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

// Renderer draws one output.
type Renderer struct {
	target    Target
	presenter Presenter
	overlay   Overlay
	fadeIn    time.Duration
	now       func() time.Time
	log       *slog.Logger

	start       time.Time
	lastElapsed float32
	width       uint32
	height      uint32
	configured  bool
	frames      uint64
}

// New returns a renderer whose clock starts now.
func New(opts Options) *Renderer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Renderer{
		target:    opts.Target,
		presenter: opts.Presenter,
		overlay:   opts.Overlay,
		fadeIn:    opts.FadeIn,
		now:       now,
		log:       logging.Or(opts.Logger),
		start:     now(),
	}
}

// Configure resizes the render target and the presenter and forwards the
// new size to the overlay.
func (r *Renderer) Configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if !r.configured || width != r.width || height != r.height {
		if err := r.target.Resize(width, height); err != nil {
			return fmt.Errorf("resize target: %w", err)
		}
		if err := r.presenter.Resize(width, height); err != nil {
			return fmt.Errorf("resize presenter: %w", err)
		}
	}
	r.width, r.height = width, height
	r.configured = true
	if r.overlay != nil {
		r.overlay.Configure(width, height)
	}
	r.log.Debug("renderer configured", "width", width, "height", height)
	return nil
}

// Uniforms computes the uniforms for a frame drawn now.
func (r *Renderer) Uniforms() FrameUniforms {
	elapsed := r.now().Sub(r.start)
	secs := float32(elapsed.Seconds())
	if secs < r.lastElapsed {
		secs = r.lastElapsed
	}
	r.lastElapsed = secs

	fade := float32(1)
	if r.fadeIn > 0 && elapsed < r.fadeIn {
		fade = float32(elapsed.Seconds() / r.fadeIn.Seconds())
		if fade < 0 {
			fade = 0
		}
	}
	return FrameUniforms{
		Elapsed:    secs,
		Fade:       fade,
		Resolution: [2]float32{float32(r.width), float32(r.height)},
	}
}

// Render draws and presents one frame. A frame that cannot be acquired or
// drawn is skipped and logged; the next call tries again.
func (r *Renderer) Render() error {
	if !r.configured {
		return ErrNotConfigured
	}
	// The overlay keeps its state current even when no buffer is free.
	if r.overlay != nil {
		r.overlay.Tick(r.now())
	}
	frame, err := r.presenter.Acquire()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrAcquire, err)
		r.log.Debug("skipping frame", "err", err)
		return err
	}
	u := r.Uniforms()
	if err := r.target.Draw(u, frame); err != nil {
		r.log.Warn("draw failed", "err", err)
		return fmt.Errorf("draw: %w", err)
	}
	if r.overlay != nil {
		if err := r.overlay.Paint(frame); err != nil {
			r.log.Warn("overlay paint failed", "err", err)
		}
	}
	if err := r.presenter.Present(frame); err != nil {
		r.log.Warn("present failed", "err", err)
		return fmt.Errorf("present: %w", err)
	}
	r.frames++
	return nil
}

// KeyEvent forwards ev to the overlay, if any.
func (r *Renderer) KeyEvent(ev input.KeyEvent) {
	if r.overlay != nil && r.configured {
		r.overlay.KeyEvent(ev)
	}
}

// MouseEvent forwards ev to the overlay, if any.
func (r *Renderer) MouseEvent(ev input.PointerEvent) {
	if r.overlay != nil && r.configured {
		r.overlay.MouseEvent(ev)
	}
}

// IsAuthenticated reports the overlay's authentication result. Without an
// overlay it is always false.
func (r *Renderer) IsAuthenticated() bool {
	return r.overlay != nil && r.overlay.IsAuthenticated()
}

// Configured reports whether Configure has succeeded at least once.
func (r *Renderer) Configured() bool { return r.configured }

// Size returns the last configured size.
func (r *Renderer) Size() (width, height uint32) { return r.width, r.height }

// Frames returns the number of frames presented.
func (r *Renderer) Frames() uint64 { return r.frames }

// Release frees the GPU target and the presenter buffers.
func (r *Renderer) Release() {
	if r.target != nil {
		r.target.Release()
	}
	if r.presenter != nil {
		r.presenter.Release()
	}
}
