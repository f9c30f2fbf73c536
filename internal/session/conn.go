// Package session drives one lock session: it requests the lock, builds a
// renderer per output once the compositor grants it, feeds configure and
// input events to those renderers, ticks them at the frame rate, and
// unlocks when one of them authenticates or the compositor gives up.
//
// All session state is owned by the goroutine running Controller.Run. The
// compositor connection delivers everything as Events on a channel.
package session

import (
	"context"
	"errors"

	"github.com/tuxx/shaderlock/internal/input"
	"github.com/tuxx/shaderlock/internal/shm"
)

var (
	// ErrProtocolUnsupported means the compositor does not offer
	// ext_session_lock_manager_v1.
	ErrProtocolUnsupported = errors.New("ext-session-lock not supported by the compositor")
	// ErrDisconnected means the compositor connection was lost.
	ErrDisconnected = errors.New("compositor connection lost")
)

// OutputID is the registry name of a wl_output global.
type OutputID uint32

// SurfaceKey is the protocol id of a lock surface's wl_surface.
type SurfaceKey uint32

// LockSurface is a wl_surface with the lock surface role on one output. It
// also presents shared-memory buffers on that surface.
type LockSurface interface {
	shm.Backend
	Key() SurfaceKey
	Output() OutputID
	AckConfigure(serial uint32) error
	Destroy()
}

// Conn is the compositor connection.
type Conn interface {
	// Lock asks for the session lock. The answer is a LockedEvent or a
	// FinishedEvent.
	Lock() error
	// Outputs lists the outputs currently known.
	Outputs() []OutputID
	NewLockSurface(out OutputID) (LockSurface, error)
	Events() <-chan Event
	// Unlock ends the lock with whichever request its state allows.
	Unlock() error
	// Roundtrip returns once the compositor has processed every request
	// sent so far.
	Roundtrip(ctx context.Context) error
	Close() error
}

// Event is something the compositor connection reports.
type Event interface{ sessionEvent() }

// LockedEvent reports that the compositor has granted the lock.
type LockedEvent struct{}

// FinishedEvent reports that the lock was refused or ended by the
// compositor.
type FinishedEvent struct{}

// ConfigureEvent asks a lock surface to take a size.
type ConfigureEvent struct {
	Surface SurfaceKey
	Serial  uint32
	Width   uint32
	Height  uint32
}

// OutputRemovedEvent reports that an output went away.
type OutputRemovedEvent struct {
	Output OutputID
}

// KeyEvent is a translated key press or release.
type KeyEvent struct {
	input.KeyEvent
}

// PointerEvent is a translated pointer event on Surface. A zero Surface
// means the focused surface is unknown.
type PointerEvent struct {
	Surface SurfaceKey
	input.PointerEvent
}

// CallEvent runs a function on the session goroutine.
type CallEvent func()

// DisconnectEvent reports a fatal connection error.
type DisconnectEvent struct {
	Err error
}

func (LockedEvent) sessionEvent()        {}
func (FinishedEvent) sessionEvent()      {}
func (ConfigureEvent) sessionEvent()     {}
func (OutputRemovedEvent) sessionEvent() {}
func (KeyEvent) sessionEvent()           {}
func (PointerEvent) sessionEvent()       {}
func (CallEvent) sessionEvent()          {}
func (DisconnectEvent) sessionEvent()    {}
