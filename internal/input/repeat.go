package input

import "time"

// HoldDelay is how long a key must be held before it repeats.
const HoldDelay = 200 * time.Millisecond

// RepeatTracker re-delivers a held key on every tick once it has been held
// for HoldDelay, whatever the compositor's own repeat settings are.
type RepeatTracker struct {
	event  KeyEvent
	since  time.Time
	active bool
}

// Start records ev as the held key.
func (r *RepeatTracker) Start(ev KeyEvent, now time.Time) {
	r.event = ev
	r.since = now
	r.active = true
}

// Clear forgets the held key.
func (r *RepeatTracker) Clear() {
	*r = RepeatTracker{}
}

// Active reports whether a key is being held.
func (r *RepeatTracker) Active() bool { return r.active }

// Due returns the held key-down event when it should be delivered again.
func (r *RepeatTracker) Due(now time.Time) (KeyEvent, bool) {
	if !r.active || now.Sub(r.since) < HoldDelay {
		return KeyEvent{}, false
	}
	return r.event, true
}

// Repeats reports whether a key-down for k should be tracked at all. Tab,
// Escape, Caps Lock and Enter act once per press.
func Repeats(k Key) bool {
	switch k.Named {
	case Tab, Escape, CapsLock, Enter:
		return false
	}
	return true
}
