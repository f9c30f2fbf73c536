package shm

import (
	"errors"
	"testing"
)

type fakeBuffer struct {
	offset    int32
	onRelease func()
	destroyed bool
}

func (b *fakeBuffer) Destroy() { b.destroyed = true }

type fakePool struct {
	size      int32
	buffers   []*fakeBuffer
	destroyed bool
	failAt    int
}

func (p *fakePool) CreateBuffer(offset, width, height, stride int32, format uint32, onRelease func()) (Buffer, error) {
	if p.failAt > 0 && len(p.buffers)+1 == p.failAt {
		return nil, errors.New("no memory")
	}
	if format != FormatXRGB8888 || stride != width*4 {
		return nil, errors.New("bad buffer parameters")
	}
	b := &fakeBuffer{offset: offset, onRelease: onRelease}
	p.buffers = append(p.buffers, b)
	return b, nil
}

func (p *fakePool) Destroy() { p.destroyed = true }

type fakeBackend struct {
	pools   []*fakePool
	commits []Buffer
	failAt  int
}

func (b *fakeBackend) CreatePool(fd int, size int32) (Pool, error) {
	p := &fakePool{size: size, failAt: b.failAt}
	b.pools = append(b.pools, p)
	return p, nil
}

func (b *fakeBackend) Commit(buf Buffer, width, height int32) error {
	b.commits = append(b.commits, buf)
	return nil
}

func heapAlloc(size int) (*Mapping, error) {
	return &Mapping{FD: -1, Data: make([]byte, size)}, nil
}

func newTestPresenter(b *fakeBackend) *Presenter {
	return New(Options{Backend: b, Allocator: heapAlloc})
}

func TestAcquireBeforeResize(t *testing.T) {
	p := newTestPresenter(&fakeBackend{})
	if _, err := p.Acquire(); !errors.Is(err, ErrNoBuffers) {
		t.Fatalf("Acquire() = %v, want ErrNoBuffers", err)
	}
}

func TestResizeLayout(t *testing.T) {
	b := &fakeBackend{}
	p := newTestPresenter(b)
	if err := p.Resize(10, 5); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	pool := b.pools[0]
	if pool.size != 10*4*5*BufferCount {
		t.Errorf("pool size = %d", pool.size)
	}
	if len(pool.buffers) != BufferCount {
		t.Fatalf("created %d buffers", len(pool.buffers))
	}
	if pool.buffers[1].offset != 10*4*5 {
		t.Errorf("second buffer offset = %d", pool.buffers[1].offset)
	}
	f, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if f.Width != 10 || f.Height != 5 || f.Stride != 40 {
		t.Errorf("frame %dx%d stride %d", f.Width, f.Height, f.Stride)
	}
}

func TestDoubleBufferingAndRelease(t *testing.T) {
	b := &fakeBackend{}
	p := newTestPresenter(b)
	_ = p.Resize(4, 4)

	f1, _ := p.Acquire()
	if err := p.Present(f1); err != nil {
		t.Fatalf("Present: %v", err)
	}
	f2, err := p.Acquire()
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if f2.Slot == f1.Slot {
		t.Fatal("busy buffer handed out again")
	}
	_ = p.Present(f2)

	if _, err := p.Acquire(); !errors.Is(err, ErrBusy) {
		t.Fatalf("Acquire with both busy = %v, want ErrBusy", err)
	}
	if p.Busy() != 2 {
		t.Errorf("Busy() = %d, want 2", p.Busy())
	}

	b.pools[0].buffers[f1.Slot].onRelease()
	f3, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if f3.Slot != f1.Slot {
		t.Errorf("got slot %d, want released slot %d", f3.Slot, f1.Slot)
	}
	if len(b.commits) != 2 {
		t.Errorf("%d commits, want 2", len(b.commits))
	}
}

func TestStaleReleaseIgnored(t *testing.T) {
	b := &fakeBackend{}
	p := newTestPresenter(b)
	_ = p.Resize(4, 4)
	f, _ := p.Acquire()
	_ = p.Present(f)
	old := b.pools[0].buffers[f.Slot]

	_ = p.Resize(8, 8)
	if !old.destroyed || !b.pools[0].destroyed {
		t.Error("old buffers or pool not destroyed on resize")
	}
	g, _ := p.Acquire()
	_ = p.Present(g)
	old.onRelease()
	if p.Busy() != 1 {
		t.Errorf("release from an old buffer freed a new one: Busy() = %d", p.Busy())
	}
}

func TestPresentForeignFrame(t *testing.T) {
	p := newTestPresenter(&fakeBackend{})
	_ = p.Resize(4, 4)
	f, _ := p.Acquire()
	copied := *f
	if err := p.Present(&copied); err == nil {
		t.Fatal("frame not owned by the presenter was committed")
	}
}

func TestResizeBufferFailure(t *testing.T) {
	b := &fakeBackend{failAt: 2}
	p := newTestPresenter(b)
	if err := p.Resize(4, 4); err == nil {
		t.Fatal("Resize succeeded although buffer creation failed")
	}
	if !b.pools[0].destroyed || !b.pools[0].buffers[0].destroyed {
		t.Error("partial allocation leaked")
	}
	if _, err := p.Acquire(); !errors.Is(err, ErrNoBuffers) {
		t.Errorf("Acquire after failed resize = %v", err)
	}
}
