package input

// ModMask is the wl_keyboard modifier bitset for the default XKB modifier
// map.
type ModMask uint32

const (
	ModShift   ModMask = 1 << 0
	ModLock    ModMask = 1 << 1
	ModControl ModMask = 1 << 2
	ModMod1    ModMask = 1 << 3
	ModMod4    ModMask = 1 << 6
)

// Modifiers is the abstract modifier set handed to the overlay.
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Logo  bool
}

// FromModMask derives the modifier set from the effective mask.
func FromModMask(m ModMask) Modifiers {
	return Modifiers{
		Ctrl:  m&ModControl != 0,
		Shift: m&ModShift != 0,
		Alt:   m&ModMod1 != 0,
		Logo:  m&ModMod4 != 0,
	}
}

// CapsLocked reports whether the Lock modifier is active.
func (m ModMask) CapsLocked() bool { return m&ModLock != 0 }

// ModState accumulates wl_keyboard.modifiers events.
type ModState struct {
	Depressed ModMask
	Latched   ModMask
	Locked    ModMask
	Group     uint32
}

// Effective is the union of depressed, latched and locked modifiers.
func (s ModState) Effective() ModMask {
	return s.Depressed | s.Latched | s.Locked
}

// KeyEvent is a single key press or release.
type KeyEvent struct {
	Key       Key
	Pressed   bool
	Modifiers Modifiers
	// Keysym is the X keysym the key resolved to.
	Keysym uint32
	// CapsLock is the state of the Lock modifier when the event arrived.
	CapsLock bool
}
