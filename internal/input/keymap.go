package input

import "unicode"

// Keymap is a fixed two-level table from evdev key codes to keysyms. It
// stands in for the compositor's keymap when xkbcommon cannot compile one.
type Keymap struct {
	levels map[uint32][2]uint32
}

// Keysym resolves code under mods. Shift selects level 2; Caps Lock inverts
// that choice for alphabetic keys only.
func (k *Keymap) Keysym(code uint32, mods ModMask) uint32 {
	l, ok := k.levels[code]
	if !ok {
		return 0
	}
	upper := mods&ModShift != 0
	if mods.CapsLocked() && isAlphabetic(l) {
		upper = !upper
	}
	if upper && l[1] != 0 {
		return l[1]
	}
	return l[0]
}

// Len returns the number of mapped key codes.
func (k *Keymap) Len() int { return len(k.levels) }

func isAlphabetic(l [2]uint32) bool {
	lo, hi := KeysymRune(l[0]), KeysymRune(l[1])
	return lo != 0 && hi != 0 && unicode.IsLower(lo) && unicode.IsUpper(hi)
}

// USKeymap is the evdev US layout used when the compositor sends no
// keymap or one that cannot be compiled.
func USKeymap() *Keymap {
	km := &Keymap{levels: make(map[uint32][2]uint32, 64)}
	set := func(code uint32, lo, hi uint32) { km.levels[code] = [2]uint32{lo, hi} }

	set(1, KeysymEscape, 0)
	digits := "1234567890"
	shifted := "!@#$%^&*()"
	for i := range digits {
		set(uint32(2+i), uint32(digits[i]), uint32(shifted[i]))
	}
	set(12, '-', '_')
	set(13, '=', '+')
	set(14, KeysymBackSpace, 0)
	set(15, KeysymTab, KeysymISOLeftTab)
	for i, c := range "qwertyuiop" {
		set(uint32(16+i), uint32(c), uint32(unicode.ToUpper(c)))
	}
	set(26, '[', '{')
	set(27, ']', '}')
	set(28, KeysymReturn, 0)
	set(29, KeysymControlL, 0)
	for i, c := range "asdfghjkl" {
		set(uint32(30+i), uint32(c), uint32(unicode.ToUpper(c)))
	}
	set(39, ';', ':')
	set(40, '\'', '"')
	set(41, '`', '~')
	set(42, KeysymShiftL, 0)
	set(43, '\\', '|')
	for i, c := range "zxcvbnm" {
		set(uint32(44+i), uint32(c), uint32(unicode.ToUpper(c)))
	}
	set(51, ',', '<')
	set(52, '.', '>')
	set(53, '/', '?')
	set(54, KeysymShiftR, 0)
	set(55, KeysymKPMultiply, 0)
	set(56, KeysymAltL, 0)
	set(57, ' ', 0)
	set(58, KeysymCapsLock, 0)
	set(96, KeysymKPEnter, 0)
	set(97, KeysymControlR, 0)
	set(100, KeysymAltR, 0)
	set(102, KeysymHome, 0)
	set(104, KeysymPrior, 0)
	set(107, KeysymEnd, 0)
	set(109, KeysymNext, 0)
	set(111, KeysymDelete, 0)
	set(125, KeysymSuperL, 0)
	set(126, KeysymSuperR, 0)
	return km
}
