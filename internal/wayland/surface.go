package wayland

import (
	"errors"
	"fmt"

	"github.com/neurlang/wayland/wl"

	"github.com/tuxx/shaderlock/internal/session"
	"github.com/tuxx/shaderlock/internal/shm"
	"github.com/tuxx/shaderlock/sessionlock"
)

var errForeignBuffer = errors.New("buffer was not created by this connection")

// lockSurface is a wl_surface with the lock surface role.
type lockSurface struct {
	c       *Conn
	key     session.SurfaceKey
	out     session.OutputID
	surface *wl.Surface
	role    *sessionlock.Surface
}

var _ session.LockSurface = (*lockSurface)(nil)

func (s *lockSurface) Key() session.SurfaceKey  { return s.key }
func (s *lockSurface) Output() session.OutputID { return s.out }

func (s *lockSurface) AckConfigure(serial uint32) error {
	s.c.reqMu.Lock()
	defer s.c.reqMu.Unlock()
	return s.role.AckConfigure(serial)
}

func (s *lockSurface) Destroy() {
	s.c.reqMu.Lock()
	defer s.c.reqMu.Unlock()
	if err := s.role.Destroy(); err != nil {
		s.c.log.Debug("destroy lock surface", "surface", s.key, "err", err)
	}
	if err := s.surface.Destroy(); err != nil {
		s.c.log.Debug("destroy surface", "surface", s.key, "err", err)
	}
}

// CreatePool creates a wl_shm_pool over fd. The fd stays owned by the
// caller.
func (s *lockSurface) CreatePool(fd int, size int32) (shm.Pool, error) {
	s.c.reqMu.Lock()
	defer s.c.reqMu.Unlock()
	p, err := s.c.shm.CreatePool(uintptr(fd), size)
	if err != nil {
		return nil, err
	}
	return &pool{c: s.c, wl: p}, nil
}

// Commit attaches buf, damages the whole surface and commits.
func (s *lockSurface) Commit(buf shm.Buffer, width, height int32) error {
	b, ok := buf.(*buffer)
	if !ok {
		return errForeignBuffer
	}
	s.c.reqMu.Lock()
	defer s.c.reqMu.Unlock()
	if err := s.surface.Attach(b.wl, 0, 0); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if err := s.surface.Damage(0, 0, width, height); err != nil {
		return fmt.Errorf("damage: %w", err)
	}
	if err := s.surface.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pool struct {
	c  *Conn
	wl *wl.ShmPool
}

// CreateBuffer creates a buffer whose release is delivered to the session
// goroutine.
func (p *pool) CreateBuffer(offset, width, height, stride int32, format uint32, onRelease func()) (shm.Buffer, error) {
	p.c.reqMu.Lock()
	defer p.c.reqMu.Unlock()
	b, err := p.wl.CreateBuffer(offset, width, height, stride, format)
	if err != nil {
		return nil, err
	}
	buf := &buffer{c: p.c, wl: b}
	if onRelease != nil {
		b.AddReleaseHandler(releaseFunc(func() { p.c.q.push(session.CallEvent(onRelease)) }))
	}
	return buf, nil
}

func (p *pool) Destroy() {
	p.c.reqMu.Lock()
	defer p.c.reqMu.Unlock()
	if err := p.wl.Destroy(); err != nil {
		p.c.log.Debug("destroy shm pool", "err", err)
	}
}

type buffer struct {
	c  *Conn
	wl *wl.Buffer
}

func (b *buffer) Destroy() {
	b.c.reqMu.Lock()
	defer b.c.reqMu.Unlock()
	if err := b.wl.Destroy(); err != nil {
		b.c.log.Debug("destroy buffer", "err", err)
	}
}

type releaseFunc func()

func (f releaseFunc) HandleBufferRelease(wl.BufferReleaseEvent) { f() }
