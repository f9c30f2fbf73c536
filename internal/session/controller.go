package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tuxx/shaderlock/internal/logging"
	"github.com/tuxx/shaderlock/internal/render"
)

// DefaultFramePeriod is the frame timer interval at 60 fps.
const DefaultFramePeriod = time.Second / 60

// unlockTimeout bounds the round trip that makes sure the compositor saw
// the unlock.
const unlockTimeout = 2 * time.Second

// Options configures a Controller.
type Options struct {
	// Dial opens the compositor connection.
	Dial func(ctx context.Context) (Conn, error)
	// Build creates the renderer for a new lock surface.
	Build func(LockSurface) (Renderer, error)
	// LockMode false is screensaver mode: any key press ends the session
	// and cancelling the context is honoured.
	LockMode    bool
	FramePeriod time.Duration
	Logger      *slog.Logger
}

// Controller runs one lock session.
type Controller struct {
	dial     func(ctx context.Context) (Conn, error)
	build    func(LockSurface) (Renderer, error)
	lockMode bool
	period   time.Duration
	log      *slog.Logger

	conn      Conn
	registry  *Registry
	surfaces  map[SurfaceKey]LockSurface
	byOutput  map[OutputID]SurfaceKey
	requested bool
	locked    bool
	finished  bool
	lost      bool
	exit      bool
	err       error
}

// New returns a controller. Run starts the session.
func New(opts Options) *Controller {
	period := opts.FramePeriod
	if period <= 0 {
		period = DefaultFramePeriod
	}
	return &Controller{
		dial:     opts.Dial,
		build:    opts.Build,
		lockMode: opts.LockMode,
		period:   period,
		log:      logging.Or(opts.Logger).With("component", "session"),
		registry: NewRegistry(),
		surfaces: make(map[SurfaceKey]LockSurface),
		byOutput: make(map[OutputID]SurfaceKey),
	}
}

// Registry exposes the renderers of the running session.
func (c *Controller) Registry() *Registry { return c.registry }

// Locked reports whether the compositor granted the lock.
func (c *Controller) Locked() bool { return c.locked }

// Run connects, requests the lock and processes events until the session
// ends. It returns nil after a successful unlock or a compositor finish,
// and the error that aborted the session otherwise.
func (c *Controller) Run(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	defer c.teardown()

	if err := conn.Lock(); err != nil {
		return fmt.Errorf("request lock: %w", err)
	}
	c.requested = true
	c.log.Info("session lock requested", "outputs", len(conn.Outputs()))

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	events := conn.Events()
	done := ctx.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				c.disconnected(nil)
				break
			}
			c.handle(ev)
		case <-ticker.C:
			c.tick()
		case <-done:
			if c.lockMode && c.locked {
				c.log.Warn("ignoring cancellation while locked", "err", ctx.Err())
				done = nil
				break
			}
			c.log.Info("session cancelled", "err", ctx.Err())
			c.exit = true
		}
		if c.exit {
			return c.finish()
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch ev := ev.(type) {
	case LockedEvent:
		c.onLocked()
	case FinishedEvent:
		c.log.Info("compositor finished the lock", "was_locked", c.locked)
		c.finished = true
		c.exit = true
	case ConfigureEvent:
		c.onConfigure(ev)
	case OutputRemovedEvent:
		c.onOutputRemoved(ev.Output)
	case KeyEvent:
		if !c.lockMode && ev.Pressed {
			c.log.Info("key pressed, leaving screensaver")
			c.exit = true
		}
		c.registry.ForEach(func(_ SurfaceKey, r Renderer) { r.KeyEvent(ev.KeyEvent) })
	case PointerEvent:
		if ev.Surface == 0 {
			c.registry.ForEach(func(_ SurfaceKey, r Renderer) { r.MouseEvent(ev.PointerEvent) })
			return
		}
		c.registry.Modify(ev.Surface, func(r Renderer) { r.MouseEvent(ev.PointerEvent) })
	case CallEvent:
		ev()
	case DisconnectEvent:
		c.disconnected(ev.Err)
	default:
		c.log.Debug("unhandled event", "type", fmt.Sprintf("%T", ev))
	}
}

func (c *Controller) onLocked() {
	c.locked = true
	outputs := c.conn.Outputs()
	c.log.Info("session locked", "outputs", len(outputs))
	for _, out := range outputs {
		if err := c.addOutput(out); err != nil {
			c.fail(fmt.Errorf("output %d: %w", out, err))
			return
		}
	}
}

func (c *Controller) addOutput(out OutputID) error {
	s, err := c.conn.NewLockSurface(out)
	if err != nil {
		return fmt.Errorf("create lock surface: %w", err)
	}
	r, err := c.build(s)
	if err != nil {
		s.Destroy()
		return fmt.Errorf("create renderer: %w", err)
	}
	key := s.Key()
	c.registry.Insert(key, r)
	c.surfaces[key] = s
	c.byOutput[out] = key
	c.log.Debug("lock surface created", "output", out, "surface", key)
	return nil
}

func (c *Controller) onConfigure(ev ConfigureEvent) {
	s, ok := c.surfaces[ev.Surface]
	if !ok {
		c.log.Debug("configure for unknown surface", "surface", ev.Surface)
		return
	}
	if err := s.AckConfigure(ev.Serial); err != nil {
		c.log.Error("ack configure failed", "surface", ev.Surface, "err", err)
		return
	}
	c.registry.Modify(ev.Surface, func(r Renderer) {
		if err := r.Configure(ev.Width, ev.Height); err != nil {
			c.log.Error("configure failed", "surface", ev.Surface, "width", ev.Width, "height", ev.Height, "err", err)
			return
		}
		c.render(ev.Surface, r)
	})
}

func (c *Controller) onOutputRemoved(out OutputID) {
	key, ok := c.byOutput[out]
	if !ok {
		return
	}
	if r, ok := c.registry.Remove(key); ok {
		r.Release()
	}
	if s, ok := c.surfaces[key]; ok {
		s.Destroy()
	}
	delete(c.surfaces, key)
	delete(c.byOutput, out)
	c.log.Info("output removed", "output", out, "surface", key)
}

func (c *Controller) tick() {
	c.registry.ForEach(func(key SurfaceKey, r Renderer) {
		c.render(key, r)
		if r.IsAuthenticated() {
			c.log.Info("authenticated, unlocking", "surface", key)
			c.exit = true
		}
	})
}

func (c *Controller) render(key SurfaceKey, r Renderer) {
	err := r.Render()
	switch {
	case err == nil, errors.Is(err, render.ErrNotConfigured):
	case errors.Is(err, render.ErrAcquire):
		// Already logged by the renderer; the frame is skipped.
	default:
		c.log.Error("render failed", "surface", key, "err", err)
	}
}

func (c *Controller) fail(err error) {
	if c.err == nil {
		c.err = err
	}
	c.log.Error("session aborted", "err", err)
	c.exit = true
}

func (c *Controller) disconnected(err error) {
	c.lost = true
	if err == nil {
		c.fail(ErrDisconnected)
		return
	}
	c.fail(fmt.Errorf("%w: %w", ErrDisconnected, err))
}

// finish ends the lock and waits for the compositor to process it.
func (c *Controller) finish() error {
	if c.lost || !c.requested {
		return c.err
	}
	if err := c.conn.Unlock(); err != nil {
		c.log.Error("unlock failed", "err", err)
		if c.err == nil {
			c.err = fmt.Errorf("unlock: %w", err)
		}
		return c.err
	}
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()
	if err := c.conn.Roundtrip(ctx); err != nil {
		c.log.Warn("round trip after unlock failed", "err", err)
	}
	c.log.Info("session unlocked")
	return c.err
}

func (c *Controller) teardown() {
	c.registry.ForEach(func(_ SurfaceKey, r Renderer) { r.Release() })
	for key, s := range c.surfaces {
		if !c.lost {
			s.Destroy()
		}
		delete(c.surfaces, key)
	}
	if err := c.conn.Close(); err != nil {
		c.log.Debug("close connection", "err", err)
	}
}
