// Package wayland connects the session controller to a Wayland compositor
// through github.com/neurlang/wayland.
//
// A dispatch goroutine reads the socket and runs the protocol handlers.
// Handlers never touch session state: they translate what they receive
// into session events and push them onto an unbounded queue that feeds
// Conn.Events. Requests may come from either goroutine and are serialized
// by one mutex.
package wayland

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neurlang/wayland/wl"
	"github.com/neurlang/wayland/wlclient"

	"github.com/tuxx/shaderlock/internal/logging"
	"github.com/tuxx/shaderlock/internal/session"
	"github.com/tuxx/shaderlock/sessionlock"
)

// Protocol versions bound, capped at what the compositor advertises.
const (
	compositorVersion = 4
	shmVersion        = 1
	outputVersion     = 3
	seatVersion       = 5

	// wl_keyboard.release and wl_pointer.release exist from this version.
	seatReleaseVersion = 3
)

const (
	displaySyncOpcode = 0
	closeTimeout      = time.Second
)

var (
	// ErrMissingGlobal is returned when a core global is not advertised.
	ErrMissingGlobal = errors.New("required global not advertised")
	// ErrUnknownOutput is returned for an output that is gone.
	ErrUnknownOutput = errors.New("unknown output")
	// ErrNotLocked is returned for lock surface requests before Lock.
	ErrNotLocked = errors.New("lock not requested")
)

// Conn implements session.Conn.
type Conn struct {
	log      *slog.Logger
	display  *wl.Display
	registry *wl.Registry
	q        *queue

	// reqMu serializes requests and guards the bound globals, the lock
	// and the seat devices.
	reqMu      sync.Mutex
	compositor *wl.Compositor
	shm        *wl.Shm
	manager    *sessionlock.Manager
	lock       *sessionlock.Lock
	seats      map[session.SeatID]*seat
	owners     session.Seats
	keyboard   *keyboard
	pointer    *pointer

	outMu   sync.Mutex
	outputs map[session.OutputID]*wl.Output

	closing   atomic.Bool
	pumpDone  chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ session.Conn = (*Conn)(nil)

type seat struct {
	c       *Conn
	id      session.SeatID
	version uint32
	wl      *wl.Seat
}

func (s *seat) HandleSeatCapabilities(ev wl.SeatCapabilitiesEvent) {
	s.c.updateSeat(s, session.Capability(ev.Capabilities))
}

// Dial connects to the compositor named by $WAYLAND_DISPLAY, binds the
// globals and enumerates outputs and seats. It fails with
// session.ErrProtocolUnsupported when ext_session_lock_manager_v1 is not
// advertised.
func Dial(ctx context.Context, log *slog.Logger) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &Conn{
		log:      logging.Or(log).With("component", "wayland"),
		q:        newQueue(),
		seats:    make(map[session.SeatID]*seat),
		outputs:  make(map[session.OutputID]*wl.Output),
		pumpDone: make(chan struct{}),
	}

	display, err := wlclient.DisplayConnect(nil)
	if err != nil {
		return nil, fmt.Errorf("connect to wayland display: %w", err)
	}
	c.display = display

	if err := c.discover(); err != nil {
		_ = display.Context().Close()
		return nil, err
	}

	go c.q.run()
	go c.pump()
	c.log.Debug("connected", "outputs", len(c.outputs), "seats", len(c.seats))
	return c, nil
}

func (c *Conn) discover() error {
	registry, err := c.display.GetRegistry()
	if err != nil {
		return fmt.Errorf("get registry: %w", err)
	}
	c.registry = registry
	registry.AddGlobalHandler(c)
	registry.AddGlobalRemoveHandler(c)

	// The first round trip delivers the globals, the second the events of
	// the objects bound while handling them.
	for range 2 {
		if err := wlclient.DisplayRoundtrip(c.display); err != nil {
			return fmt.Errorf("roundtrip: %w", err)
		}
	}

	if c.manager == nil {
		return session.ErrProtocolUnsupported
	}
	if c.compositor == nil {
		return fmt.Errorf("%w: wl_compositor", ErrMissingGlobal)
	}
	if c.shm == nil {
		return fmt.Errorf("%w: wl_shm", ErrMissingGlobal)
	}
	return nil
}

// HandleRegistryGlobal binds the globals the session needs.
func (c *Conn) HandleRegistryGlobal(ev wl.RegistryGlobalEvent) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	switch ev.Interface {
	case "wl_compositor":
		c.compositor = wlclient.RegistryBindCompositorInterface(c.registry, ev.Name, min(ev.Version, compositorVersion))
	case "wl_shm":
		c.shm = wlclient.RegistryBindShmInterface(c.registry, ev.Name, shmVersion)
	case "wl_output":
		out := wlclient.RegistryBindOutputInterface(c.registry, ev.Name, min(ev.Version, outputVersion))
		c.outMu.Lock()
		c.outputs[session.OutputID(ev.Name)] = out
		c.outMu.Unlock()
		c.log.Debug("output added", "output", ev.Name)
	case "wl_seat":
		version := min(ev.Version, seatVersion)
		s := &seat{
			c:       c,
			id:      session.SeatID(ev.Name),
			version: version,
			wl:      wlclient.RegistryBindSeatInterface(c.registry, ev.Name, version),
		}
		s.wl.AddCapabilitiesHandler(s)
		c.seats[s.id] = s
		c.log.Debug("seat added", "seat", ev.Name)
	case sessionlock.ManagerInterface:
		m, err := sessionlock.Bind(c.registry, ev.Name, ev.Version)
		if err != nil {
			c.log.Error("bind session lock manager", "err", err)
			return
		}
		c.manager = m
	}
}

// HandleRegistryGlobalRemove reports removed outputs and drops removed
// seats.
func (c *Conn) HandleRegistryGlobalRemove(ev wl.RegistryGlobalRemoveEvent) {
	c.outMu.Lock()
	_, isOutput := c.outputs[session.OutputID(ev.Name)]
	delete(c.outputs, session.OutputID(ev.Name))
	c.outMu.Unlock()
	if isOutput {
		c.log.Debug("output removed", "output", ev.Name)
		c.q.push(session.OutputRemovedEvent{Output: session.OutputID(ev.Name)})
		return
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	s, ok := c.seats[session.SeatID(ev.Name)]
	if !ok {
		return
	}
	c.applySeatChange(s, c.owners.Remove(s.id))
	delete(c.seats, s.id)
	c.log.Debug("seat removed", "seat", ev.Name)
}

func (c *Conn) updateSeat(s *seat, caps session.Capability) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	c.applySeatChange(s, c.owners.Update(s.id, caps))
}

// applySeatChange creates and releases devices. reqMu must be held.
func (c *Conn) applySeatChange(s *seat, ch session.SeatChange) {
	if ch.ReleaseKeyboard && c.keyboard != nil {
		if s.version >= seatReleaseVersion {
			if err := c.keyboard.wl.Release(); err != nil {
				c.log.Debug("release keyboard", "err", err)
			}
		}
		c.keyboard = nil
		c.log.Info("keyboard released", "seat", s.id)
	}
	if ch.ReleasePointer && c.pointer != nil {
		if s.version >= seatReleaseVersion {
			if err := c.pointer.wl.Release(); err != nil {
				c.log.Debug("release pointer", "err", err)
			}
		}
		c.pointer = nil
		c.log.Info("pointer released", "seat", s.id)
	}
	if ch.GetKeyboard {
		kb, err := s.wl.GetKeyboard()
		if err != nil {
			c.log.Error("get keyboard", "seat", s.id, "err", err)
		} else {
			c.keyboard = newKeyboard(kb, c.q, c.log)
			c.log.Info("keyboard acquired", "seat", s.id)
		}
	}
	if ch.GetPointer {
		p, err := s.wl.GetPointer()
		if err != nil {
			c.log.Error("get pointer", "seat", s.id, "err", err)
		} else {
			c.pointer = newPointer(p, c.q)
			c.log.Info("pointer acquired", "seat", s.id)
		}
	}
}

func (c *Conn) pump() {
	defer close(c.pumpDone)
	for {
		if err := wlclient.DisplayDispatch(c.display); err != nil {
			if !c.closing.Load() {
				c.log.Error("dispatch failed", "err", err)
				c.q.push(session.DisconnectEvent{Err: err})
			}
			c.q.closeInput()
			return
		}
	}
}

// Lock requests the session lock.
func (c *Conn) Lock() error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	l, err := c.manager.Lock(
		sessionlock.LockedHandlerFunc(func() { c.q.push(session.LockedEvent{}) }),
		sessionlock.FinishedHandlerFunc(func() { c.q.push(session.FinishedEvent{}) }),
	)
	if err != nil {
		return err
	}
	c.lock = l
	return nil
}

// Outputs returns the known outputs in registry order.
func (c *Conn) Outputs() []session.OutputID {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	ids := make([]session.OutputID, 0, len(c.outputs))
	for id := range c.outputs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NewLockSurface creates a surface and gives it the lock surface role on
// out. Configure events for it arrive as session.ConfigureEvent.
func (c *Conn) NewLockSurface(out session.OutputID) (session.LockSurface, error) {
	c.outMu.Lock()
	output, ok := c.outputs[out]
	c.outMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOutput, out)
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	if c.lock == nil {
		return nil, ErrNotLocked
	}
	surface, err := c.compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	key := session.SurfaceKey(surface.Id())
	role, err := c.lock.GetLockSurface(surface, output, sessionlock.ConfigureHandlerFunc(func(ev sessionlock.ConfigureEvent) {
		c.q.push(session.ConfigureEvent{Surface: key, Serial: ev.Serial, Width: ev.Width, Height: ev.Height})
	}))
	if err != nil {
		_ = surface.Destroy()
		return nil, fmt.Errorf("get lock surface: %w", err)
	}
	return &lockSurface{c: c, key: key, out: out, surface: surface, role: role}, nil
}

// Events returns the event channel. It is closed after a DisconnectEvent
// or Close.
func (c *Conn) Events() <-chan session.Event { return c.q.out }

// Unlock ends the lock: unlock_and_destroy once locked, destroy otherwise.
func (c *Conn) Unlock() error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	if c.lock == nil {
		return nil
	}
	err := c.lock.Release()
	c.lock = nil
	return err
}

type syncDone chan struct{}

func (d syncDone) HandleCallbackDone(wl.CallbackDoneEvent) { close(d) }

// Roundtrip waits until the compositor has answered a wl_display.sync sent
// after every earlier request.
func (c *Conn) Roundtrip(ctx context.Context) error {
	done := make(syncDone)
	c.reqMu.Lock()
	cb := wl.NewCallback(c.display.Context())
	cb.AddDoneHandler(done)
	err := c.display.Context().SendRequest(c.display, displaySyncOpcode, cb)
	c.reqMu.Unlock()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-c.pumpDone:
		return session.ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects and stops the event goroutines. It is safe to call more
// than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.q.shutdown()
		c.closeErr = c.display.Context().Close()
		select {
		case <-c.pumpDone:
		case <-time.After(closeTimeout):
			c.log.Warn("dispatch goroutine did not stop")
		}
	})
	return c.closeErr
}
