package input

import (
	"testing"
	"time"
)

func TestFromKeysym(t *testing.T) {
	tests := []struct {
		name string
		sym  uint32
		want Key
	}{
		{"tab", KeysymTab, Key{Named: Tab}},
		{"left tab", KeysymISOLeftTab, Key{Named: Tab}},
		{"escape", KeysymEscape, Key{Named: Escape}},
		{"return", KeysymReturn, Key{Named: Enter}},
		{"keypad enter", KeysymKPEnter, Key{Named: Enter}},
		{"backspace", KeysymBackSpace, Key{Named: Backspace}},
		{"home", KeysymHome, Key{Named: Home}},
		{"end", KeysymEnd, Key{Named: End}},
		{"page up", KeysymPrior, Key{Named: PageUp}},
		{"page down", KeysymNext, Key{Named: PageDown}},
		{"caps lock", KeysymCapsLock, Key{Named: CapsLock}},
		{"letter", 'a', Key{Char: 'a'}},
		{"space", ' ', Key{Char: ' '}},
		{"latin1", 0xe4, Key{Char: 'ä'}},
		{"unicode", 0x010020ac, Key{Char: '€'}},
		{"keypad digit", KeysymKP0 + 7, Key{Char: '7'}},
		{"shift", KeysymShiftL, Unidentified},
		{"function key", 0xffbe, Unidentified},
		{"zero", 0, Unidentified},
		{"unicode control", 0x01000007, Unidentified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromKeysym(tt.sym); got != tt.want {
				t.Errorf("FromKeysym(%#x) = %v, want %v", tt.sym, got, tt.want)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	if s := (Key{Named: PageDown}).String(); s != "PageDown" {
		t.Errorf("named key string = %q", s)
	}
	if s := (Key{Char: 'x'}).String(); s != "x" {
		t.Errorf("char key string = %q", s)
	}
	if s := Unidentified.String(); s != "Unidentified" {
		t.Errorf("unidentified string = %q", s)
	}
}

func TestFromModMask(t *testing.T) {
	tests := []struct {
		mask ModMask
		want Modifiers
	}{
		{0, Modifiers{}},
		{ModShift, Modifiers{Shift: true}},
		{ModControl | ModMod1, Modifiers{Ctrl: true, Alt: true}},
		{ModMod4 | ModLock, Modifiers{Logo: true}},
		{ModShift | ModControl | ModMod1 | ModMod4, Modifiers{Ctrl: true, Shift: true, Alt: true, Logo: true}},
	}
	for _, tt := range tests {
		if got := FromModMask(tt.mask); got != tt.want {
			t.Errorf("FromModMask(%b) = %+v, want %+v", tt.mask, got, tt.want)
		}
	}
	if !(ModLock | ModShift).CapsLocked() {
		t.Error("CapsLocked should see the lock bit")
	}
}

func TestModStateEffective(t *testing.T) {
	s := ModState{Depressed: ModShift, Latched: ModControl, Locked: ModLock}
	if got := s.Effective(); got != ModShift|ModControl|ModLock {
		t.Errorf("Effective() = %b", got)
	}
}

func TestButtonFromCode(t *testing.T) {
	tests := []struct {
		code uint32
		want ButtonKind
		str  string
	}{
		{272, ButtonLeft, "Left"},
		{273, ButtonRight, "Right"},
		{274, ButtonMiddle, "Middle"},
		{275, ButtonBack, "Back"},
		{276, ButtonForward, "Forward"},
		{277, ButtonOther, "Other(277)"},
		{0, ButtonOther, "Other(0)"},
	}
	for _, tt := range tests {
		b := ButtonFromCode(tt.code)
		if b.Kind != tt.want || b.Code != tt.code {
			t.Errorf("ButtonFromCode(%d) = %+v, want kind %d", tt.code, b, tt.want)
		}
		if b.String() != tt.str {
			t.Errorf("Button(%d).String() = %q, want %q", tt.code, b.String(), tt.str)
		}
	}
}

func TestPointerConstructors(t *testing.T) {
	if ev := Motion(10, 20); ev.Kind != PointerMoved || ev.X != 10 || ev.Y != 20 {
		t.Errorf("Motion = %+v", ev)
	}
	if ev := Entered(1, 2); ev.Kind != PointerEntered || ev.X != 1 || ev.Y != 2 {
		t.Errorf("Entered = %+v", ev)
	}
	if ev := Leave(); ev.Kind != PointerLeft {
		t.Errorf("Leave = %+v", ev)
	}
	if ev := ButtonEvent(272, 1); ev.Kind != PointerPressed || ev.Button.Kind != ButtonLeft {
		t.Errorf("ButtonEvent press = %+v", ev)
	}
	if ev := ButtonEvent(273, 0); ev.Kind != PointerReleased || ev.Button.Kind != ButtonRight {
		t.Errorf("ButtonEvent release = %+v", ev)
	}
}

func TestKeyFromSym(t *testing.T) {
	tests := []struct {
		name string
		sym  uint32
		r    rune
		want Key
	}{
		{"named wins over text", KeysymReturn, '\r', Key{Named: Enter}},
		{"greek", 0x7d9, 'Ω', Key{Char: 'Ω'}},
		{"cyrillic", 0x6c6, 'ф', Key{Char: 'ф'}},
		{"altgr symbol", '@', '@', Key{Char: '@'}},
		{"control character", 'u', 0x15, Key{Char: 'u'}},
		{"keysym without text", KeysymKP0 + 4, 0, Key{Char: '4'}},
		{"nothing", 0, 0, Unidentified},
		{"modifier", KeysymShiftL, 0, Unidentified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyFromSym(tt.sym, tt.r); got != tt.want {
				t.Errorf("KeyFromSym(%#x, %q) = %v, want %v", tt.sym, tt.r, got, tt.want)
			}
		})
	}
}

func TestUSKeymap(t *testing.T) {
	km := USKeymap()
	if km.Len() == 0 {
		t.Fatal("empty fallback keymap")
	}
	if got := km.Keysym(30, 0); got != 'a' {
		t.Errorf("KEY_A = %#x, want 'a'", got)
	}
	if got := km.Keysym(30, ModShift); got != 'A' {
		t.Errorf("shift KEY_A = %#x, want 'A'", got)
	}
	if got := km.Keysym(3, ModShift); got != '@' {
		t.Errorf("shift KEY_2 = %#x, want '@'", got)
	}
	if got := km.Keysym(14, ModShift); got != KeysymBackSpace {
		t.Errorf("shift backspace = %#x", got)
	}
	if got := km.Keysym(57, 0); got != ' ' {
		t.Errorf("KEY_SPACE = %#x", got)
	}
}

func TestRepeatTracker(t *testing.T) {
	start := time.Unix(1000, 0)
	ev := KeyEvent{Key: Key{Char: 'a'}, Pressed: true, Keysym: 'a'}

	var r RepeatTracker
	if _, ok := r.Due(start); ok {
		t.Fatal("idle tracker reported a repeat")
	}

	r.Start(ev, start)
	if !r.Active() {
		t.Fatal("tracker not active after Start")
	}
	if _, ok := r.Due(start.Add(HoldDelay - time.Millisecond)); ok {
		t.Error("repeat before hold delay")
	}
	got, ok := r.Due(start.Add(HoldDelay))
	if !ok || got != ev {
		t.Errorf("Due at hold delay = %+v, %v", got, ok)
	}
	if _, ok := r.Due(start.Add(time.Second)); !ok {
		t.Error("held key should keep repeating on every tick")
	}

	r.Clear()
	if r.Active() {
		t.Error("tracker active after Clear")
	}
	if _, ok := r.Due(start.Add(time.Second)); ok {
		t.Error("cleared tracker reported a repeat")
	}
}

func TestRepeats(t *testing.T) {
	for _, k := range []Key{{Named: Tab}, {Named: Escape}, {Named: CapsLock}, {Named: Enter}} {
		if Repeats(k) {
			t.Errorf("%v should not repeat", k)
		}
	}
	for _, k := range []Key{{Named: Backspace}, {Char: 'a'}, {Named: Home}} {
		if !Repeats(k) {
			t.Errorf("%v should repeat", k)
		}
	}
}
