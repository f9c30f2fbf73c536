// Package input translates Wayland keyboard and pointer data into the small
// event vocabulary the lock overlay understands.
//
// Everything here is stateless except RepeatTracker, which the overlay owns.
package input

import (
	"fmt"
	"unicode"
)

// Named identifies the non-printable keys the overlay reacts to.
type Named uint8

const (
	NamedNone Named = iota
	Tab
	Escape
	Enter
	Backspace
	Home
	End
	PageUp
	PageDown
	CapsLock
)

var namedStrings = [...]string{
	NamedNone: "",
	Tab:       "Tab",
	Escape:    "Escape",
	Enter:     "Enter",
	Backspace: "Backspace",
	Home:      "Home",
	End:       "End",
	PageUp:    "PageUp",
	PageDown:  "PageDown",
	CapsLock:  "CapsLock",
}

func (n Named) String() string {
	if int(n) < len(namedStrings) {
		return namedStrings[n]
	}
	return fmt.Sprintf("Named(%d)", uint8(n))
}

// Key is either a named key, a printable character, or unidentified when
// both are zero.
type Key struct {
	Named Named
	Char  rune
}

// Unidentified is returned for keysyms that map to nothing useful.
var Unidentified = Key{}

// IsNamed reports whether k is one of the named keys.
func (k Key) IsNamed() bool { return k.Named != NamedNone }

// IsChar reports whether k carries a printable character.
func (k Key) IsChar() bool { return k.Named == NamedNone && k.Char != 0 }

func (k Key) String() string {
	switch {
	case k.IsNamed():
		return k.Named.String()
	case k.IsChar():
		return string(k.Char)
	}
	return "Unidentified"
}

// X keysym values used by the translator.
const (
	KeysymBackSpace   uint32 = 0xff08
	KeysymTab         uint32 = 0xff09
	KeysymReturn      uint32 = 0xff0d
	KeysymEscape      uint32 = 0xff1b
	KeysymHome        uint32 = 0xff50
	KeysymPrior       uint32 = 0xff55
	KeysymNext        uint32 = 0xff56
	KeysymEnd         uint32 = 0xff57
	KeysymKPEnter     uint32 = 0xff8d
	KeysymKPMultiply  uint32 = 0xffaa
	KeysymKPAdd       uint32 = 0xffab
	KeysymKPSubtract  uint32 = 0xffad
	KeysymKPDecimal   uint32 = 0xffae
	KeysymKPDivide    uint32 = 0xffaf
	KeysymKP0         uint32 = 0xffb0
	KeysymKP9         uint32 = 0xffb9
	KeysymShiftL      uint32 = 0xffe1
	KeysymShiftR      uint32 = 0xffe2
	KeysymControlL    uint32 = 0xffe3
	KeysymControlR    uint32 = 0xffe4
	KeysymCapsLock    uint32 = 0xffe5
	KeysymAltL        uint32 = 0xffe9
	KeysymAltR        uint32 = 0xffea
	KeysymSuperL      uint32 = 0xffeb
	KeysymSuperR      uint32 = 0xffec
	KeysymDelete      uint32 = 0xffff
	KeysymISOLeftTab  uint32 = 0xfe20
	keysymUnicodeBase uint32 = 0x01000000
)

// FromKeysym maps an X keysym onto a Key. It never fails: anything without
// a meaning here becomes Unidentified.
func FromKeysym(sym uint32) Key {
	switch sym {
	case KeysymTab, KeysymISOLeftTab:
		return Key{Named: Tab}
	case KeysymEscape:
		return Key{Named: Escape}
	case KeysymReturn, KeysymKPEnter:
		return Key{Named: Enter}
	case KeysymBackSpace:
		return Key{Named: Backspace}
	case KeysymHome:
		return Key{Named: Home}
	case KeysymEnd:
		return Key{Named: End}
	case KeysymPrior:
		return Key{Named: PageUp}
	case KeysymNext:
		return Key{Named: PageDown}
	case KeysymCapsLock:
		return Key{Named: CapsLock}
	case KeysymKPMultiply:
		return Key{Char: '*'}
	case KeysymKPAdd:
		return Key{Char: '+'}
	case KeysymKPSubtract:
		return Key{Char: '-'}
	case KeysymKPDecimal:
		return Key{Char: '.'}
	case KeysymKPDivide:
		return Key{Char: '/'}
	}
	if r := KeysymRune(sym); r != 0 {
		return Key{Char: r}
	}
	return Unidentified
}

// KeyFromSym is FromKeysym for a key whose character xkbcommon already
// resolved. Named keys win, then a graphic r; the control characters Ctrl
// produces fall back to the keysym so Ctrl+U still reads as 'u'.
func KeyFromSym(sym uint32, r rune) Key {
	if k := FromKeysym(sym); k.IsNamed() {
		return k
	}
	if unicode.IsGraphic(r) {
		return Key{Char: r}
	}
	return FromKeysym(sym)
}

// KeysymRune returns the printable character for sym, or 0.
func KeysymRune(sym uint32) rune {
	switch {
	case sym >= 0x20 && sym <= 0x7e, sym >= 0xa0 && sym <= 0xff:
		return rune(sym)
	case sym >= KeysymKP0 && sym <= KeysymKP9:
		return rune('0' + sym - KeysymKP0)
	case sym&0xff000000 == keysymUnicodeBase:
		r := rune(sym &^ keysymUnicodeBase)
		if r >= 0x20 && r != 0x7f && r <= 0x10ffff {
			return r
		}
	}
	return 0
}

// IsModifierKeysym reports whether sym is a bare modifier key.
func IsModifierKeysym(sym uint32) bool {
	return sym >= KeysymShiftL && sym <= 0xffee && sym != KeysymCapsLock
}
