// Package sessionlock implements the client side of the ext_session_lock_v1
// Wayland protocol on top of github.com/neurlang/wayland.
package sessionlock

import (
	"sync"

	"github.com/neurlang/wayland/wl"
)

// Interface names as advertised by the compositor registry.
const (
	ManagerInterface = "ext_session_lock_manager_v1"
	ManagerVersion   = 1
)

// ext_session_lock_v1 protocol errors.
const (
	LockErrorInvalidDestroy uint32 = iota
	LockErrorInvalidUnlock
	LockErrorRole
	LockErrorDuplicateOutput
	LockErrorAlreadyConstructed
)

// ext_session_lock_surface_v1 protocol errors.
const (
	SurfaceErrorCommitBeforeFirstAck uint32 = iota
	SurfaceErrorNullBuffer
	SurfaceErrorDimensionsMismatch
	SurfaceErrorInvalidSerial
)

const (
	managerRequestDestroy uint32 = iota
	managerRequestLock
)

const (
	lockRequestDestroy uint32 = iota
	lockRequestGetLockSurface
	lockRequestUnlockAndDestroy
)

const (
	lockEventLocked uint32 = iota
	lockEventFinished
)

const (
	surfaceRequestDestroy uint32 = iota
	surfaceRequestAckConfigure
)

const surfaceEventConfigure uint32 = 0

// Manager is an ext_session_lock_manager_v1 object.
type Manager struct {
	wl.BaseProxy
}

// NewManager registers a fresh manager proxy with ctx.
func NewManager(ctx *wl.Context) *Manager {
	m := new(Manager)
	ctx.Register(m)
	return m
}

// Destroy releases the manager. Existing locks are unaffected.
func (m *Manager) Destroy() error {
	return m.Context().SendRequest(m, managerRequestDestroy)
}

// Lock asks the compositor to lock the session. The result arrives as
// either a locked or a finished event on the returned Lock. The handlers,
// which may be nil, are registered before the request is sent.
func (m *Manager) Lock(locked LockedHandler, finished FinishedHandler) (*Lock, error) {
	l := NewLock(m.Context())
	l.AddLockedHandler(locked)
	l.AddFinishedHandler(finished)
	return l, m.Context().SendRequest(m, managerRequestLock, l)
}

// Dispatch implements wl.Proxy. The manager has no events.
func (m *Manager) Dispatch(*wl.Event) {}

// LockedHandler receives the locked event.
type LockedHandler interface {
	HandleSessionLockLocked()
}

// FinishedHandler receives the finished event.
type FinishedHandler interface {
	HandleSessionLockFinished()
}

// LockedHandlerFunc adapts a function to LockedHandler.
type LockedHandlerFunc func()

func (f LockedHandlerFunc) HandleSessionLockLocked() { f() }

// FinishedHandlerFunc adapts a function to FinishedHandler.
type FinishedHandlerFunc func()

func (f FinishedHandlerFunc) HandleSessionLockFinished() { f() }

// Lock is an ext_session_lock_v1 object.
type Lock struct {
	wl.BaseProxy

	mu       sync.RWMutex
	locked   bool
	finished bool
	onLocked []LockedHandler
	onFinish []FinishedHandler
}

// NewLock registers a fresh lock proxy with ctx.
func NewLock(ctx *wl.Context) *Lock {
	l := new(Lock)
	ctx.Register(l)
	return l
}

// Locked reports whether the compositor has confirmed the lock.
func (l *Lock) Locked() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.locked
}

// Finished reports whether the compositor has ended the lock.
func (l *Lock) Finished() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.finished
}

// GetLockSurface assigns the lock surface role to surface on output. h,
// which may be nil, receives configure events from the first one on.
func (l *Lock) GetLockSurface(surface *wl.Surface, output *wl.Output, h ConfigureHandler) (*Surface, error) {
	s := NewSurface(l.Context())
	s.AddConfigureHandler(h)
	return s, l.Context().SendRequest(l, lockRequestGetLockSurface, s, surface, output)
}

// Destroy destroys the lock without unlocking. Only valid when the lock
// was never confirmed or has already finished.
func (l *Lock) Destroy() error {
	return l.Context().SendRequest(l, lockRequestDestroy)
}

// UnlockAndDestroy unlocks the session and destroys the lock.
func (l *Lock) UnlockAndDestroy() error {
	return l.Context().SendRequest(l, lockRequestUnlockAndDestroy)
}

// Release ends the lock with whichever request the protocol allows in the
// current state: unlock_and_destroy after locked, destroy otherwise.
func (l *Lock) Release() error {
	l.mu.RLock()
	unlock := l.locked && !l.finished
	l.mu.RUnlock()
	if unlock {
		return l.UnlockAndDestroy()
	}
	return l.Destroy()
}

// AddLockedHandler registers h for the locked event.
func (l *Lock) AddLockedHandler(h LockedHandler) {
	if h == nil {
		return
	}
	l.mu.Lock()
	l.onLocked = append(l.onLocked, h)
	l.mu.Unlock()
}

// AddFinishedHandler registers h for the finished event.
func (l *Lock) AddFinishedHandler(h FinishedHandler) {
	if h == nil {
		return
	}
	l.mu.Lock()
	l.onFinish = append(l.onFinish, h)
	l.mu.Unlock()
}

// Dispatch implements wl.Proxy.
func (l *Lock) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case lockEventLocked:
		l.mu.Lock()
		l.locked = true
		handlers := append([]LockedHandler(nil), l.onLocked...)
		l.mu.Unlock()
		for _, h := range handlers {
			h.HandleSessionLockLocked()
		}
	case lockEventFinished:
		l.mu.Lock()
		l.finished = true
		handlers := append([]FinishedHandler(nil), l.onFinish...)
		l.mu.Unlock()
		for _, h := range handlers {
			h.HandleSessionLockFinished()
		}
	}
}

// ConfigureEvent carries the size the compositor wants for a lock surface.
type ConfigureEvent struct {
	Serial uint32
	Width  uint32
	Height uint32
}

// ConfigureHandler receives configure events.
type ConfigureHandler interface {
	HandleSessionLockSurfaceConfigure(ConfigureEvent)
}

// ConfigureHandlerFunc adapts a function to ConfigureHandler.
type ConfigureHandlerFunc func(ConfigureEvent)

func (f ConfigureHandlerFunc) HandleSessionLockSurfaceConfigure(ev ConfigureEvent) { f(ev) }

// Surface is an ext_session_lock_surface_v1 object.
type Surface struct {
	wl.BaseProxy

	mu          sync.RWMutex
	onConfigure []ConfigureHandler
}

// NewSurface registers a fresh lock surface proxy with ctx.
func NewSurface(ctx *wl.Context) *Surface {
	s := new(Surface)
	ctx.Register(s)
	return s
}

// Destroy destroys the lock surface role object.
func (s *Surface) Destroy() error {
	return s.Context().SendRequest(s, surfaceRequestDestroy)
}

// AckConfigure acknowledges the configure event with the given serial.
// A buffer must not be committed before the first ack.
func (s *Surface) AckConfigure(serial uint32) error {
	return s.Context().SendRequest(s, surfaceRequestAckConfigure, serial)
}

// AddConfigureHandler registers h for configure events.
func (s *Surface) AddConfigureHandler(h ConfigureHandler) {
	if h == nil {
		return
	}
	s.mu.Lock()
	s.onConfigure = append(s.onConfigure, h)
	s.mu.Unlock()
}

// Dispatch implements wl.Proxy.
func (s *Surface) Dispatch(event *wl.Event) {
	if event.Opcode != surfaceEventConfigure {
		return
	}
	ev := ConfigureEvent{
		Serial: event.Uint32(),
		Width:  event.Uint32(),
		Height: event.Uint32(),
	}
	s.mu.RLock()
	handlers := append([]ConfigureHandler(nil), s.onConfigure...)
	s.mu.RUnlock()
	for _, h := range handlers {
		h.HandleSessionLockSurfaceConfigure(ev)
	}
}
