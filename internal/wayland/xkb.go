package wayland

import (
	"errors"

	xkb "github.com/neurlang/wayland/xkbcommon"

	"github.com/tuxx/shaderlock/internal/input"
)

// evdevOffset converts wl_keyboard key codes into XKB keycodes.
const evdevOffset = 8

var (
	errNoXKBContext  = errors.New("no xkbcommon context")
	errKeymapCompile = errors.New("xkbcommon rejected the keymap")
)

// xkbKeymap is a keymap compiled by xkbcommon together with its state, so
// every group and shift level the layout defines is reachable.
type xkbKeymap struct {
	keymap *xkb.Keymap
	state  *xkb.State

	shift, caps, ctrl, alt, logo uint32
}

// compileKeymap compiles NUL-terminated XKB text.
func compileKeymap(ctx *xkb.Context, text []byte) (*xkbKeymap, error) {
	if ctx == nil {
		return nil, errNoXKBContext
	}
	km := ctx.KeymapNewFromString(text, xkb.KeymapFormatTextV1, 0)
	if km == nil {
		return nil, errKeymapCompile
	}
	st := km.StateNew()
	if st == nil {
		return nil, errKeymapCompile
	}
	return &xkbKeymap{
		keymap: km,
		state:  st,
		shift:  modMask(km, xkb.ModNameShift),
		caps:   modMask(km, xkb.ModNameCaps),
		ctrl:   modMask(km, xkb.ModNameCtrl),
		alt:    modMask(km, xkb.ModNameAlt),
		logo:   modMask(km, xkb.ModNameLogo),
	}, nil
}

func modMask(km *xkb.Keymap, name string) uint32 {
	idx := km.ModGetIndex(name)
	if idx >= 32 {
		return 0
	}
	return 1 << idx
}

func (x *xkbKeymap) setModifiers(depressed, latched, locked, group uint32) {
	x.state.UpdateMask(depressed, latched, locked, 0, 0, group)
}

func (x *xkbKeymap) translate(code, state uint32) input.KeyEvent {
	kc := code + evdevOffset
	sym := x.state.KeyGetOneSym(kc)
	mods := x.state.SerializeMods(xkb.StateModsEffective)
	return input.KeyEvent{
		Key:     input.KeyFromSym(sym, rune(x.state.KeyGetUtf32(kc))),
		Pressed: state == keyStatePressed,
		Modifiers: input.Modifiers{
			Ctrl:  mods&x.ctrl != 0,
			Shift: mods&x.shift != 0,
			Alt:   mods&x.alt != 0,
			Logo:  mods&x.logo != 0,
		},
		Keysym:   sym,
		CapsLock: mods&x.caps != 0,
	}
}
