// Package overlay is the password prompt painted over the lock shader.
//
// An Adapter owns the typed password, the key-repeat tracker and one
// authentication worker. It is driven from the event loop only; the worker
// goroutine is the sole concurrent party and is reached through auth.Worker.
package overlay

import (
	"log/slog"
	"time"
	"unicode"

	"github.com/gogpu/gg"

	"github.com/tuxx/shaderlock/internal/auth"
	"github.com/tuxx/shaderlock/internal/input"
	"github.com/tuxx/shaderlock/internal/logging"
	"github.com/tuxx/shaderlock/internal/render"
)

// Placeholder is shown in the empty password field.
const Placeholder = "Type password to unlock..."

// Options configures an Adapter.
type Options struct {
	// Username defaults to auth.CurrentUsername.
	Username string
	// Service is the PAM service name.
	Service  string
	Verifier auth.Verifier
	// Fonts defaults to the embedded Go font.
	Fonts *Fonts
	Now   func() time.Time
	Log   *slog.Logger
}

// Adapter implements render.Overlay.
type Adapter struct {
	username string
	worker   *auth.Worker
	fonts    *Fonts
	now      func() time.Time
	log      *slog.Logger

	password []rune
	hidden   bool
	focused  bool
	capsHeld bool
	capsLock bool
	// pending is set between a submission and the result being applied.
	pending bool

	repeat  input.RepeatTracker
	pointer struct{ x, y float64 }

	width, height int
	layout        layout
	pixmap        *gg.Pixmap
	dc            *gg.Context
}

var _ render.Overlay = (*Adapter)(nil)

// New returns an adapter with an idle worker. The password field starts
// focused and masked.
func New(opts Options) *Adapter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := logging.Or(opts.Log).With("component", "overlay")
	username := opts.Username
	if username == "" {
		username = auth.CurrentUsername()
	}
	fonts := opts.Fonts
	if fonts == nil {
		fonts = DefaultFonts()
	}
	return &Adapter{
		username: username,
		worker: auth.NewWorker(auth.Options{
			Service:  opts.Service,
			Verifier: opts.Verifier,
			Logger:   log,
		}),
		fonts:   fonts,
		now:     now,
		log:     log,
		hidden:  true,
		focused: true,
	}
}

// Configure lays the prompt out for a width x height surface.
func (a *Adapter) Configure(width, height uint32) {
	a.width, a.height = int(width), int(height)
	a.layout = computeLayout(a.width, a.height, a.fonts)
	if a.pixmap == nil || a.pixmap.Width() != a.layout.panel.Dx() || a.pixmap.Height() != a.layout.panel.Dy() {
		w, h := a.layout.panel.Dx(), a.layout.panel.Dy()
		if a.dc != nil {
			_ = a.dc.Close()
		}
		a.pixmap = gg.NewPixmap(w, h)
		a.dc = gg.NewContext(w, h, gg.WithPixmap(a.pixmap))
	}
}

// KeyEvent handles one key press or release.
func (a *Adapter) KeyEvent(ev input.KeyEvent) {
	a.capsLock = ev.CapsLock
	if !ev.Pressed {
		if ev.Key.Named == input.CapsLock {
			a.capsHeld = false
		}
		a.repeat.Clear()
		return
	}
	switch ev.Key.Named {
	case input.Tab:
		a.focused = true
		return
	case input.Escape:
		a.clearPassword()
		return
	case input.CapsLock:
		a.capsHeld = true
		return
	}
	if input.Repeats(ev.Key) {
		a.repeat.Start(ev, a.now())
	}
	a.apply(ev)
}

// apply performs the edit for a key-down, whether typed or repeated.
func (a *Adapter) apply(ev input.KeyEvent) {
	if ev.Key.Named == input.Enter {
		a.submit()
		return
	}
	if !a.focused || a.worker.Running() {
		return
	}
	switch {
	case ev.Key.Named == input.Backspace:
		if n := len(a.password); n > 0 {
			a.password[n-1] = 0
			a.password = a.password[:n-1]
		}
	case ev.Modifiers.Ctrl && unicode.ToLower(ev.Key.Char) == 'u':
		a.clearPassword()
	case ev.Key.IsChar() && !ev.Modifiers.Ctrl && !ev.Modifiers.Alt && !ev.Modifiers.Logo:
		if unicode.IsPrint(ev.Key.Char) {
			a.password = append(a.password, ev.Key.Char)
		}
	}
}

func (a *Adapter) submit() {
	if a.worker.IsAuthenticated() {
		return
	}
	if err := a.worker.Submit(a.username, string(a.password)); err != nil {
		return
	}
	a.pending = true
}

func (a *Adapter) clearPassword() {
	for i := range a.password {
		a.password[i] = 0
	}
	a.password = a.password[:0]
}

// MouseEvent tracks the pointer and handles clicks on the field and the
// show/hide toggle.
func (a *Adapter) MouseEvent(ev input.PointerEvent) {
	switch ev.Kind {
	case input.PointerEntered, input.PointerMoved:
		a.pointer.x, a.pointer.y = ev.X, ev.Y
	case input.PointerPressed:
		if ev.Button.Kind != input.ButtonLeft {
			return
		}
		switch {
		case a.layout.toggle.contains(a.pointer.x, a.pointer.y):
			a.hidden = !a.hidden
		case a.layout.field.contains(a.pointer.x, a.pointer.y):
			a.focused = true
		default:
			a.focused = false
		}
	}
}

// Tick re-delivers a held key and applies a finished authentication.
func (a *Adapter) Tick(now time.Time) {
	if ev, ok := a.repeat.Due(now); ok {
		a.apply(ev)
	}
	if a.pending && !a.worker.Running() {
		a.pending = false
		if !a.worker.IsAuthenticated() {
			a.clearPassword()
		}
	}
}

// IsAuthenticated reports whether the last check succeeded.
func (a *Adapter) IsAuthenticated() bool {
	return a.worker.IsAuthenticated()
}

// Password returns the typed text.
func (a *Adapter) Password() string { return string(a.password) }

// Hidden reports whether the field is masked.
func (a *Adapter) Hidden() bool { return a.hidden }

// Focused reports whether typing goes into the field.
func (a *Adapter) Focused() bool { return a.focused }

// CapsIndicator reports whether the caps lock icon is shown.
func (a *Adapter) CapsIndicator() bool { return a.capsHeld || a.capsLock }

// Worker exposes the authentication worker.
func (a *Adapter) Worker() *auth.Worker { return a.worker }
