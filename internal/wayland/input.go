package wayland

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neurlang/wayland/wl"
	xkb "github.com/neurlang/wayland/xkbcommon"
	"golang.org/x/sys/unix"

	"github.com/tuxx/shaderlock/internal/input"
	"github.com/tuxx/shaderlock/internal/session"
)

const (
	keymapFormatXKBV1 = 1
	keyStatePressed   = 1
)

var (
	errKeymapFormat = errors.New("keymap is not xkb_v1")
	errEmptyKeymap  = errors.New("keymap is empty")
)

// readKeymap maps the keymap the compositor sent and returns a
// NUL-terminated copy of its text. fd is closed in every case.
func readKeymap(format uint32, fd, size int) ([]byte, error) {
	defer unix.Close(fd)
	if format != keymapFormatXKBV1 {
		return nil, fmt.Errorf("%w: format %d", errKeymapFormat, format)
	}
	if size <= 0 {
		return nil, errEmptyKeymap
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap keymap: %w", err)
	}
	defer unix.Munmap(data)
	text := bytes.TrimRight(data, "\x00")
	if len(text) == 0 {
		return nil, errEmptyKeymap
	}
	out := make([]byte, len(text)+1)
	copy(out, text)
	return out, nil
}

// keymap resolves evdev key codes under the modifier state the compositor
// last reported.
type keymap interface {
	setModifiers(depressed, latched, locked, group uint32)
	translate(code, state uint32) input.KeyEvent
}

// usKeymap is the built-in fallback layout.
type usKeymap struct {
	km   *input.Keymap
	mods input.ModState
}

func newUSKeymap() *usKeymap { return &usKeymap{km: input.USKeymap()} }

func (u *usKeymap) setModifiers(depressed, latched, locked, group uint32) {
	u.mods = input.ModState{
		Depressed: input.ModMask(depressed),
		Latched:   input.ModMask(latched),
		Locked:    input.ModMask(locked),
		Group:     group,
	}
}

func (u *usKeymap) translate(code, state uint32) input.KeyEvent {
	return translateKey(u.km, u.mods, code, state)
}

// translateKey resolves an evdev key code in the fallback layout.
func translateKey(km *input.Keymap, mods input.ModState, code, state uint32) input.KeyEvent {
	eff := mods.Effective()
	sym := km.Keysym(code, eff)
	return input.KeyEvent{
		Key:       input.FromKeysym(sym),
		Pressed:   state == keyStatePressed,
		Modifiers: input.FromModMask(eff),
		Keysym:    sym,
		CapsLock:  eff.CapsLocked(),
	}
}

// keyboard holds the keymap and modifier state of the active keyboard. Its
// handlers run on the dispatch goroutine and only hand finished events to
// the queue.
type keyboard struct {
	wl     *wl.Keyboard
	q      *queue
	log    *slog.Logger
	xkbCtx *xkb.Context
	keymap keymap
}

func newKeyboard(kb *wl.Keyboard, q *queue, log *slog.Logger) *keyboard {
	k := &keyboard{
		wl:     kb,
		q:      q,
		log:    log,
		xkbCtx: xkb.ContextNew(xkb.ContextNoFlags),
		keymap: newUSKeymap(),
	}
	if k.xkbCtx == nil {
		log.Warn("cannot create an xkbcommon context, keys use the US layout")
	}
	kb.AddKeymapHandler(k)
	kb.AddKeyHandler(k)
	kb.AddModifiersHandler(k)
	return k
}

func (k *keyboard) HandleKeyboardKeymap(ev wl.KeyboardKeymapEvent) {
	if ev.FdError != nil {
		k.log.Warn("keymap without a file descriptor, using the US layout", "err", ev.FdError)
		k.keymap = newUSKeymap()
		return
	}
	text, err := readKeymap(ev.Format, int(ev.Fd), int(ev.Size))
	if err != nil {
		k.log.Warn("unusable keymap, using the US layout", "err", err)
		k.keymap = newUSKeymap()
		return
	}
	km, err := compileKeymap(k.xkbCtx, text)
	if err != nil {
		k.log.Warn("cannot compile keymap, using the US layout", "err", err)
		k.keymap = newUSKeymap()
		return
	}
	k.log.Debug("keymap loaded", "bytes", len(text)-1)
	k.keymap = km
}

func (k *keyboard) HandleKeyboardKey(ev wl.KeyboardKeyEvent) {
	k.q.push(session.KeyEvent{KeyEvent: k.keymap.translate(ev.Key, ev.State)})
}

func (k *keyboard) HandleKeyboardModifiers(ev wl.KeyboardModifiersEvent) {
	k.keymap.setModifiers(ev.ModsDepressed, ev.ModsLatched, ev.ModsLocked, ev.Group)
}

// pointer tracks which lock surface has pointer focus.
type pointer struct {
	wl    *wl.Pointer
	q     *queue
	focus session.SurfaceKey
}

func newPointer(p *wl.Pointer, q *queue) *pointer {
	ptr := &pointer{wl: p, q: q}
	p.AddEnterHandler(ptr)
	p.AddLeaveHandler(ptr)
	p.AddMotionHandler(ptr)
	p.AddButtonHandler(ptr)
	return ptr
}

func surfaceKey(s *wl.Surface) session.SurfaceKey {
	if s == nil {
		return 0
	}
	return session.SurfaceKey(s.Id())
}

func (p *pointer) HandlePointerEnter(ev wl.PointerEnterEvent) {
	p.focus = surfaceKey(ev.Surface)
	p.q.push(session.PointerEvent{
		Surface:      p.focus,
		PointerEvent: input.Entered(float64(ev.SurfaceX), float64(ev.SurfaceY)),
	})
}

func (p *pointer) HandlePointerLeave(wl.PointerLeaveEvent) {
	p.q.push(session.PointerEvent{Surface: p.focus, PointerEvent: input.Leave()})
	p.focus = 0
}

func (p *pointer) HandlePointerMotion(ev wl.PointerMotionEvent) {
	p.q.push(session.PointerEvent{
		Surface:      p.focus,
		PointerEvent: input.Motion(float64(ev.SurfaceX), float64(ev.SurfaceY)),
	})
}

func (p *pointer) HandlePointerButton(ev wl.PointerButtonEvent) {
	p.q.push(session.PointerEvent{Surface: p.focus, PointerEvent: input.ButtonEvent(ev.Button, ev.State)})
}
