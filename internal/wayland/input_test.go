package wayland

import (
	"errors"
	"testing"

	xkb "github.com/neurlang/wayland/xkbcommon"
	"golang.org/x/sys/unix"

	"github.com/tuxx/shaderlock/internal/input"
)

// testKeymap is a complete keymap with a level-three key and a Cyrillic
// key. Mod5 stands in for AltGr.
const testKeymap = `xkb_keymap {
xkb_keycodes "test" {
	minimum = 8;
	maximum = 255;
	<BKSP> = 22;
	<AD01> = 24;
	<AD07> = 30;
	<RTRN> = 36;
	<AC01> = 38;
};
xkb_types "test" {
	type "ONE_LEVEL" {
		modifiers = none;
		level_name[Level1] = "Any";
	};
	type "ALPHABETIC" {
		modifiers = Shift+Lock;
		map[Shift] = Level2;
		map[Lock] = Level2;
		level_name[Level1] = "Base";
		level_name[Level2] = "Caps";
	};
	type "FOUR_LEVEL" {
		modifiers = Shift+Mod5;
		map[Shift] = Level2;
		map[Mod5] = Level3;
		map[Shift+Mod5] = Level4;
		level_name[Level1] = "Base";
		level_name[Level2] = "Shift";
		level_name[Level3] = "AltGr";
		level_name[Level4] = "Shift AltGr";
	};
};
xkb_compat "test" {
};
xkb_symbols "test" {
	key <BKSP> { type = "ONE_LEVEL", [ BackSpace ] };
	key <AD01> { type = "FOUR_LEVEL", [ q, Q, at, Greek_OMEGA ] };
	key <AD07> { type = "ALPHABETIC", [ u, U ] };
	key <RTRN> { type = "ONE_LEVEL", [ Return ] };
	key <AC01> { type = "ALPHABETIC", [ Cyrillic_ef, Cyrillic_EF ] };
};
};
`

const (
	modShift   = 1 << 0
	modLock    = 1 << 1
	modControl = 1 << 2
	modMod5    = 1 << 7
)

func keymapFD(t *testing.T, text string) (int, int) {
	t.Helper()
	fd, err := unix.MemfdCreate("keymap-test", unix.MFD_CLOEXEC)
	if err != nil {
		t.Skipf("memfd_create: %v", err)
	}
	data := append([]byte(text), 0)
	if _, err := unix.Write(fd, data); err != nil {
		unix.Close(fd)
		t.Fatalf("write keymap: %v", err)
	}
	return fd, len(data)
}

func xkbContext(t *testing.T) *xkb.Context {
	t.Helper()
	ctx := xkb.ContextNew(xkb.ContextNoFlags)
	if ctx == nil {
		t.Skip("no xkbcommon context")
	}
	return ctx
}

func TestReadKeymap(t *testing.T) {
	fd, size := keymapFD(t, testKeymap)
	text, err := readKeymap(keymapFormatXKBV1, fd, size)
	if err != nil {
		t.Fatalf("readKeymap: %v", err)
	}
	if len(text) != len(testKeymap)+1 || text[len(text)-1] != 0 {
		t.Fatalf("readKeymap returned %d bytes, want %d ending in NUL", len(text), len(testKeymap)+1)
	}
	if string(text[:len(testKeymap)]) != testKeymap {
		t.Error("keymap text changed")
	}
}

func TestReadKeymapRejects(t *testing.T) {
	fd, size := keymapFD(t, testKeymap)
	if _, err := readKeymap(0, fd, size); !errors.Is(err, errKeymapFormat) {
		t.Errorf("no_keymap format: err = %v", err)
	}

	fd, size = keymapFD(t, "")
	if _, err := readKeymap(keymapFormatXKBV1, fd, size); !errors.Is(err, errEmptyKeymap) {
		t.Errorf("empty keymap: err = %v", err)
	}
}

func TestCompileKeymap(t *testing.T) {
	km, err := compileKeymap(xkbContext(t), append([]byte(testKeymap), 0))
	if err != nil {
		t.Fatalf("compileKeymap: %v", err)
	}
	tests := []struct {
		name            string
		code            uint32
		depressed, lock uint32
		want            input.Key
		mods            input.Modifiers
		caps            bool
	}{
		{name: "plain", code: 16, want: input.Key{Char: 'q'}},
		{name: "shift", code: 16, depressed: modShift, want: input.Key{Char: 'Q'}, mods: input.Modifiers{Shift: true}},
		{name: "altgr", code: 16, depressed: modMod5, want: input.Key{Char: '@'}},
		{name: "shift altgr", code: 16, depressed: modShift | modMod5, want: input.Key{Char: 'Ω'}, mods: input.Modifiers{Shift: true}},
		{name: "cyrillic", code: 30, want: input.Key{Char: 'ф'}},
		{name: "cyrillic caps lock", code: 30, lock: modLock, want: input.Key{Char: 'Ф'}, caps: true},
		{name: "control", code: 22, depressed: modControl, want: input.Key{Char: 'u'}, mods: input.Modifiers{Ctrl: true}},
		{name: "return", code: 28, want: input.Key{Named: input.Enter}},
		{name: "backspace", code: 14, want: input.Key{Named: input.Backspace}},
		{name: "unmapped", code: 200, want: input.Unidentified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km.setModifiers(tt.depressed, 0, tt.lock, 0)
			got := km.translate(tt.code, keyStatePressed)
			if got.Key != tt.want || got.Modifiers != tt.mods || got.CapsLock != tt.caps || !got.Pressed {
				t.Errorf("translate(%d) = %+v, want key %v mods %+v caps %v", tt.code, got, tt.want, tt.mods, tt.caps)
			}
		})
	}

	km.setModifiers(0, 0, 0, 0)
	if ev := km.translate(16, 0); ev.Pressed || ev.Keysym != 'q' {
		t.Errorf("release = %+v", ev)
	}
}

func TestCompileKeymapRejects(t *testing.T) {
	if _, err := compileKeymap(nil, append([]byte(testKeymap), 0)); !errors.Is(err, errNoXKBContext) {
		t.Errorf("nil context: err = %v", err)
	}
	if _, err := compileKeymap(xkbContext(t), []byte("garbage\x00")); !errors.Is(err, errKeymapCompile) {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestTranslateKey(t *testing.T) {
	km := input.USKeymap()
	tests := []struct {
		name  string
		mods  input.ModState
		code  uint32
		state uint32
		want  input.KeyEvent
	}{
		{
			name:  "plain press",
			code:  30,
			state: keyStatePressed,
			want:  input.KeyEvent{Key: input.Key{Char: 'a'}, Pressed: true, Keysym: 'a'},
		},
		{
			name: "release",
			code: 30,
			want: input.KeyEvent{Key: input.Key{Char: 'a'}, Keysym: 'a'},
		},
		{
			name:  "shift",
			mods:  input.ModState{Depressed: input.ModShift},
			code:  2,
			state: keyStatePressed,
			want: input.KeyEvent{
				Key:       input.Key{Char: '!'},
				Pressed:   true,
				Modifiers: input.Modifiers{Shift: true},
				Keysym:    '!',
			},
		},
		{
			name:  "caps lock",
			mods:  input.ModState{Locked: input.ModLock},
			code:  30,
			state: keyStatePressed,
			want:  input.KeyEvent{Key: input.Key{Char: 'A'}, Pressed: true, Keysym: 'A', CapsLock: true},
		},
		{
			name:  "control",
			mods:  input.ModState{Depressed: input.ModControl},
			code:  22,
			state: keyStatePressed,
			want: input.KeyEvent{
				Key:       input.Key{Char: 'u'},
				Pressed:   true,
				Modifiers: input.Modifiers{Ctrl: true},
				Keysym:    'u',
			},
		},
		{
			name:  "enter",
			code:  28,
			state: keyStatePressed,
			want:  input.KeyEvent{Key: input.Key{Named: input.Enter}, Pressed: true, Keysym: input.KeysymReturn},
		},
		{
			name:  "unmapped",
			code:  250,
			state: keyStatePressed,
			want:  input.KeyEvent{Key: input.Unidentified, Pressed: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateKey(km, tt.mods, tt.code, tt.state); got != tt.want {
				t.Errorf("translateKey = %+v, want %+v", got, tt.want)
			}
		})
	}
}
