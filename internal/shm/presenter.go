// Package shm presents frames through wl_shm buffers.
//
// A Presenter keeps two buffers in one shared memory pool. A buffer handed
// to the compositor is busy until its release event arrives; when both are
// busy the frame is dropped instead of waiting.
package shm

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuxx/shaderlock/internal/logging"
	"github.com/tuxx/shaderlock/internal/render"
)

// FormatXRGB8888 is WL_SHM_FORMAT_XRGB8888.
const FormatXRGB8888 uint32 = 1

// BufferCount is the number of buffers cycled per surface.
const BufferCount = 2

var (
	// ErrBusy is returned by Acquire while the compositor holds every buffer.
	ErrBusy = errors.New("all shm buffers are in use by the compositor")
	// ErrNoBuffers is returned before the first Resize.
	ErrNoBuffers = errors.New("shm buffers not allocated")

	errForeignFrame = errors.New("frame was not acquired from this presenter")
)

// Buffer is a wl_buffer.
type Buffer interface {
	Destroy()
}

// Pool is a wl_shm_pool.
type Pool interface {
	// CreateBuffer creates a buffer at offset. onRelease runs on the event
	// loop each time the compositor releases it.
	CreateBuffer(offset, width, height, stride int32, format uint32, onRelease func()) (Buffer, error)
	Destroy()
}

// Backend creates pools and commits buffers to the lock surface.
type Backend interface {
	CreatePool(fd int, size int32) (Pool, error)
	// Commit attaches buf, damages the whole surface and commits.
	Commit(buf Buffer, width, height int32) error
}

type slot struct {
	buf   Buffer
	busy  bool
	frame render.Frame
}

// Presenter implements render.Presenter on top of wl_shm.
type Presenter struct {
	backend Backend
	alloc   Allocator
	log     *slog.Logger

	mapping *Mapping
	pool    Pool
	slots   [BufferCount]slot
	gen     uint64
	width   int
	height  int
}

var _ render.Presenter = (*Presenter)(nil)

// Options configures a Presenter.
type Options struct {
	Backend Backend
	// Allocator defaults to Memfd.
	Allocator Allocator
	Logger    *slog.Logger
}

// New returns a presenter with no buffers. Resize allocates them.
func New(opts Options) *Presenter {
	alloc := opts.Allocator
	if alloc == nil {
		alloc = Memfd
	}
	return &Presenter{
		backend: opts.Backend,
		alloc:   alloc,
		log:     logging.Or(opts.Logger).With("component", "shm"),
	}
}

// Resize replaces the pool and buffers with ones of the new size.
func (p *Presenter) Resize(width, height uint32) error {
	p.Release()

	w, h := int(width), int(height)
	stride := w * 4
	size := stride * h * BufferCount
	m, err := p.alloc(size)
	if err != nil {
		return fmt.Errorf("allocate %d bytes: %w", size, err)
	}
	pool, err := p.backend.CreatePool(m.FD, int32(size))
	if err != nil {
		_ = m.Close()
		return fmt.Errorf("create shm pool: %w", err)
	}

	p.gen++
	gen := p.gen
	for i := range p.slots {
		off := i * stride * h
		idx := i
		buf, err := pool.CreateBuffer(int32(off), int32(w), int32(h), int32(stride), FormatXRGB8888, func() {
			p.released(gen, idx)
		})
		if err != nil {
			p.mapping, p.pool = m, pool
			p.Release()
			return fmt.Errorf("create shm buffer %d: %w", i, err)
		}
		p.slots[i] = slot{
			buf: buf,
			frame: render.Frame{
				Pix:    m.Data[off : off+stride*h],
				Stride: stride,
				Width:  w,
				Height: h,
				Slot:   i,
			},
		}
	}
	p.mapping, p.pool = m, pool
	p.width, p.height = w, h
	p.log.Debug("shm buffers allocated", "width", w, "height", h, "bytes", size)
	return nil
}

func (p *Presenter) released(gen uint64, idx int) {
	if gen != p.gen {
		return
	}
	p.slots[idx].busy = false
}

// Acquire returns a buffer the compositor is not reading.
func (p *Presenter) Acquire() (*render.Frame, error) {
	if p.pool == nil {
		return nil, ErrNoBuffers
	}
	for i := range p.slots {
		if !p.slots[i].busy {
			return &p.slots[i].frame, nil
		}
	}
	return nil, ErrBusy
}

// Present commits f and marks its buffer busy until released.
func (p *Presenter) Present(f *render.Frame) error {
	if p.pool == nil {
		return ErrNoBuffers
	}
	if f.Slot < 0 || f.Slot >= len(p.slots) || f != &p.slots[f.Slot].frame {
		return errForeignFrame
	}
	s := &p.slots[f.Slot]
	s.busy = true
	if err := p.backend.Commit(s.buf, int32(p.width), int32(p.height)); err != nil {
		s.busy = false
		return err
	}
	return nil
}

// Busy returns how many buffers the compositor currently holds.
func (p *Presenter) Busy() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].buf != nil && p.slots[i].busy {
			n++
		}
	}
	return n
}

// Release destroys the buffers and the pool and unmaps the memory.
func (p *Presenter) Release() {
	for i := range p.slots {
		if p.slots[i].buf != nil {
			p.slots[i].buf.Destroy()
		}
		p.slots[i] = slot{}
	}
	if p.pool != nil {
		p.pool.Destroy()
		p.pool = nil
	}
	if p.mapping != nil {
		if err := p.mapping.Close(); err != nil {
			p.log.Warn("unmap shm", "err", err)
		}
		p.mapping = nil
	}
}
