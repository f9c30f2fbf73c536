package overlay

import (
	"context"
	"testing"
	"time"

	"github.com/tuxx/shaderlock/internal/auth"
	"github.com/tuxx/shaderlock/internal/input"
	"github.com/tuxx/shaderlock/internal/render"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAdapter(t *testing.T, v auth.Verifier) (*Adapter, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	a := New(Options{Username: "alice", Verifier: v, Now: clock.now})
	a.Configure(800, 600)
	return a, clock
}

func accept(want string) auth.VerifierFunc {
	return func(_ context.Context, _, _, password string) (bool, error) {
		return password == want, nil
	}
}

func press(k input.Key) input.KeyEvent { return input.KeyEvent{Key: k, Pressed: true} }

func release(k input.Key) input.KeyEvent { return input.KeyEvent{Key: k} }

func char(r rune) input.Key { return input.Key{Char: r} }

func named(n input.Named) input.Key { return input.Key{Named: n} }

func typeString(a *Adapter, s string) {
	for _, r := range s {
		a.KeyEvent(press(char(r)))
		a.KeyEvent(release(char(r)))
	}
}

func TestTypingAndEditing(t *testing.T) {
	a, _ := newTestAdapter(t, accept("x"))
	if !a.Focused() || !a.Hidden() {
		t.Fatal("field should start focused and masked")
	}

	typeString(a, "hunter2")
	if got := a.Password(); got != "hunter2" {
		t.Fatalf("Password() = %q, want hunter2", got)
	}

	a.KeyEvent(press(named(input.Backspace)))
	a.KeyEvent(release(named(input.Backspace)))
	if got := a.Password(); got != "hunter" {
		t.Fatalf("after Backspace Password() = %q", got)
	}

	ctrlU := input.KeyEvent{Key: char('u'), Pressed: true, Modifiers: input.Modifiers{Ctrl: true}}
	a.KeyEvent(ctrlU)
	if got := a.Password(); got != "" {
		t.Fatalf("after Ctrl+U Password() = %q", got)
	}

	typeString(a, "abc")
	a.KeyEvent(press(named(input.Escape)))
	if got := a.Password(); got != "" {
		t.Fatalf("after Escape Password() = %q", got)
	}
}

func TestModifiedCharsIgnored(t *testing.T) {
	a, _ := newTestAdapter(t, accept("x"))
	a.KeyEvent(input.KeyEvent{Key: char('c'), Pressed: true, Modifiers: input.Modifiers{Ctrl: true}})
	a.KeyEvent(input.KeyEvent{Key: char('x'), Pressed: true, Modifiers: input.Modifiers{Alt: true}})
	a.KeyEvent(input.KeyEvent{Key: char('A'), Pressed: true, Modifiers: input.Modifiers{Shift: true}})
	if got := a.Password(); got != "A" {
		t.Fatalf("Password() = %q, want A", got)
	}
}

func TestUnfocusedIgnoresTyping(t *testing.T) {
	a, _ := newTestAdapter(t, accept("x"))
	a.MouseEvent(input.Motion(1, 1))
	a.MouseEvent(input.ButtonEvent(272, 1))
	if a.Focused() {
		t.Fatal("click outside the field kept focus")
	}
	typeString(a, "abc")
	if a.Password() != "" {
		t.Fatalf("unfocused field accepted %q", a.Password())
	}
	a.KeyEvent(press(named(input.Tab)))
	if !a.Focused() {
		t.Fatal("Tab did not focus the field")
	}
	typeString(a, "abc")
	if a.Password() != "abc" {
		t.Fatalf("Password() = %q after Tab", a.Password())
	}
}

func TestCapsIndicator(t *testing.T) {
	a, _ := newTestAdapter(t, accept("x"))
	a.KeyEvent(press(named(input.CapsLock)))
	if !a.CapsIndicator() {
		t.Fatal("indicator off while Caps Lock is held")
	}
	a.KeyEvent(release(named(input.CapsLock)))
	if a.CapsIndicator() {
		t.Fatal("indicator on after release without the Lock modifier")
	}
	a.KeyEvent(input.KeyEvent{Key: char('A'), Pressed: true, CapsLock: true})
	if !a.CapsIndicator() {
		t.Fatal("indicator off while the Lock modifier is active")
	}
}

func TestKeyRepeat(t *testing.T) {
	a, clock := newTestAdapter(t, accept("x"))

	a.KeyEvent(press(char('a')))
	clock.advance(100 * time.Millisecond)
	a.Tick(clock.now())
	if got := a.Password(); got != "a" {
		t.Fatalf("repeated before the hold delay: %q", got)
	}

	clock.advance(150 * time.Millisecond)
	a.Tick(clock.now())
	clock.advance(16 * time.Millisecond)
	a.Tick(clock.now())
	if got := a.Password(); got != "aaa" {
		t.Fatalf("Password() = %q after holding, want aaa", got)
	}

	a.KeyEvent(release(char('a')))
	clock.advance(time.Second)
	a.Tick(clock.now())
	if got := a.Password(); got != "aaa" {
		t.Fatalf("repeated after release: %q", got)
	}
}

func TestShortPressDoesNotRepeat(t *testing.T) {
	a, clock := newTestAdapter(t, accept("x"))
	a.KeyEvent(press(char('b')))
	clock.advance(150 * time.Millisecond)
	a.Tick(clock.now())
	a.KeyEvent(release(char('b')))
	clock.advance(500 * time.Millisecond)
	a.Tick(clock.now())
	if got := a.Password(); got != "b" {
		t.Fatalf("Password() = %q, want b", got)
	}
}

func TestEscapeDoesNotRepeat(t *testing.T) {
	a, clock := newTestAdapter(t, accept("x"))
	a.KeyEvent(press(named(input.Escape)))
	typeString(a, "z")
	clock.advance(time.Second)
	a.Tick(clock.now())
	if got := a.Password(); got != "z" {
		t.Fatalf("Password() = %q, want z", got)
	}
}

func TestSubmitSuccess(t *testing.T) {
	a, clock := newTestAdapter(t, accept("hunter2"))
	typeString(a, "hunter2")
	a.KeyEvent(press(named(input.Enter)))
	a.KeyEvent(release(named(input.Enter)))
	a.Worker().Wait()
	a.Tick(clock.now())
	if !a.IsAuthenticated() {
		t.Fatal("correct password not accepted")
	}
}

func TestSubmitFailureClearsPassword(t *testing.T) {
	a, clock := newTestAdapter(t, accept("hunter2"))
	typeString(a, "wrong")
	a.KeyEvent(press(named(input.Enter)))
	a.KeyEvent(release(named(input.Enter)))
	a.Worker().Wait()
	a.Tick(clock.now())
	if a.IsAuthenticated() {
		t.Fatal("wrong password accepted")
	}
	if a.Password() != "" {
		t.Fatalf("password %q kept after a failed attempt", a.Password())
	}
	typeString(a, "hunter2")
	a.KeyEvent(press(named(input.Enter)))
	a.Worker().Wait()
	a.Tick(clock.now())
	if !a.IsAuthenticated() {
		t.Fatal("retry after failure not accepted")
	}
}

func TestHeldEnterKeepsSuccess(t *testing.T) {
	a, clock := newTestAdapter(t, accept("hunter2"))
	typeString(a, "hunter2")
	a.KeyEvent(press(named(input.Enter)))
	a.Worker().Wait()

	for range 5 {
		clock.advance(250 * time.Millisecond)
		a.Tick(clock.now())
		if !a.IsAuthenticated() {
			t.Fatalf("success lost while Enter is held; state=%+v", a.Worker().State())
		}
	}
}

func TestHeldEnterSubmitsOnce(t *testing.T) {
	var calls int
	v := auth.VerifierFunc(func(context.Context, string, string, string) (bool, error) {
		calls++
		return false, nil
	})
	a, clock := newTestAdapter(t, v)
	typeString(a, "wrong")
	a.KeyEvent(press(named(input.Enter)))
	a.Worker().Wait()

	for range 5 {
		clock.advance(250 * time.Millisecond)
		a.Tick(clock.now())
		a.Worker().Wait()
	}
	if calls != 1 {
		t.Fatalf("verifier called %d times while Enter was held, want 1", calls)
	}
}

func TestInputIgnoredWhileRunning(t *testing.T) {
	started := make(chan struct{}, 1)
	gate := make(chan struct{})
	var calls int
	v := auth.VerifierFunc(func(_ context.Context, _, _, password string) (bool, error) {
		calls++
		started <- struct{}{}
		<-gate
		return password == "pw", nil
	})
	a, clock := newTestAdapter(t, v)
	typeString(a, "pw")
	a.KeyEvent(press(named(input.Enter)))
	<-started

	typeString(a, "xyz")
	a.KeyEvent(press(named(input.Backspace)))
	a.KeyEvent(press(named(input.Enter)))
	if got := a.Password(); got != "pw" {
		t.Fatalf("password edited while authenticating: %q", got)
	}

	close(gate)
	a.Worker().Wait()
	a.Tick(clock.now())
	if calls != 1 {
		t.Errorf("verifier called %d times, want 1", calls)
	}
	if !a.IsAuthenticated() {
		t.Fatal("not authenticated")
	}
}

func TestPointerToggle(t *testing.T) {
	a, _ := newTestAdapter(t, accept("x"))
	tb := a.layout.toggle
	a.MouseEvent(input.Entered(tb.ox+tb.x+tb.w/2, tb.oy+tb.y+tb.h/2))
	a.MouseEvent(input.ButtonEvent(272, 1))
	a.MouseEvent(input.ButtonEvent(272, 0))
	if a.Hidden() {
		t.Fatal("toggle click did not reveal the password")
	}
	a.MouseEvent(input.ButtonEvent(273, 1))
	if a.Hidden() {
		t.Fatal("right click toggled")
	}
	a.MouseEvent(input.ButtonEvent(272, 1))
	if !a.Hidden() {
		t.Fatal("second toggle click did not mask again")
	}

	fb := a.layout.field
	a.MouseEvent(input.Motion(0, 0))
	a.MouseEvent(input.ButtonEvent(272, 1))
	a.MouseEvent(input.Motion(fb.ox+fb.x+1, fb.oy+fb.y+1))
	a.MouseEvent(input.ButtonEvent(272, 1))
	if !a.Focused() {
		t.Fatal("click in the field did not focus it")
	}
}

func TestLayoutAnchoredBottomLeft(t *testing.T) {
	a, _ := newTestAdapter(t, accept("x"))
	p := a.layout.panel
	if p.Min.X != outerPadding || p.Max.Y != 600-outerPadding {
		t.Fatalf("panel = %v", p)
	}

	a.Configure(100, 40)
	p = a.layout.panel
	if p.Min.X != 0 || p.Min.Y != 0 {
		t.Fatalf("panel on a tiny surface = %v", p)
	}
}

func TestPaintDrawsPanel(t *testing.T) {
	a, _ := newTestAdapter(t, accept("x"))
	f := render.NewFrame(800, 600)
	if err := a.Paint(f); err != nil {
		t.Fatalf("Paint: %v", err)
	}
	p := a.layout.panel
	if _, _, _, alpha := f.At(p.Min.X+p.Dx()/2, p.Min.Y+2); alpha != 0xff {
		t.Error("panel pixel not painted")
	}
	if b, g, r, alpha := f.At(p.Max.X+10, p.Min.Y-10); b|g|r|alpha != 0 {
		t.Error("pixel outside the panel modified")
	}
}

func TestPaintBeforeConfigure(t *testing.T) {
	a := New(Options{Username: "alice", Verifier: accept("x")})
	if err := a.Paint(render.NewFrame(4, 4)); err != nil {
		t.Fatalf("Paint on an unconfigured adapter: %v", err)
	}
}

func TestBlendOver(t *testing.T) {
	dst := render.NewFrame(3, 1)
	for i := range dst.Pix {
		dst.Pix[i] = 200
	}
	src := []byte{
		0, 0, 0, 0,
		10, 20, 30, 255,
		50, 0, 0, 128,
	}
	blendOver(dst, 0, 0, src, 3, 1)

	check := func(x int, wb, wg, wr uint8) {
		t.Helper()
		b, g, r, alpha := dst.At(x, 0)
		if b != wb || g != wg || r != wr {
			t.Errorf("pixel %d = %d,%d,%d,%d want %d,%d,%d", x, b, g, r, alpha, wb, wg, wr)
		}
	}
	check(0, 200, 200, 200)
	if _, _, _, alpha := dst.At(2, 0); alpha != 0xff {
		t.Errorf("blended alpha = %d, want opaque", alpha)
	}
	check(1, 30, 20, 10)
	// 200*127/255 rounds to 100.
	check(2, 100, 100, 150)
}

func TestBlendOverClips(t *testing.T) {
	dst := render.NewFrame(2, 2)
	src := make([]byte, 4*4*4)
	for i := 0; i < len(src); i += 4 {
		src[i+3] = 255
		src[i] = 9
	}
	blendOver(dst, -1, -1, src, 4, 4)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if _, _, r, _ := dst.At(x, y); r != 9 {
				t.Fatalf("pixel %d,%d not covered", x, y)
			}
		}
	}
}
