package wayland

import (
	"sync"

	"github.com/tuxx/shaderlock/internal/session"
)

// queue decouples the dispatch goroutine from the session loop. push never
// blocks, so protocol handlers can run while the session goroutine is busy
// sending requests or waiting for a round trip.
type queue struct {
	mu     sync.Mutex
	items  []session.Event
	closed bool

	wake chan struct{}
	stop chan struct{}
	out  chan session.Event
	once sync.Once
}

func newQueue() *queue {
	return &queue{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan session.Event),
	}
}

func (q *queue) push(ev session.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.signal()
}

// closeInput stops accepting events. Pending events are still delivered,
// then the output channel is closed.
func (q *queue) closeInput() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// shutdown abandons pending events and stops the forwarder.
func (q *queue) shutdown() {
	q.once.Do(func() { close(q.stop) })
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// run forwards events in order until the input is closed and drained or
// shutdown is called.
func (q *queue) run() {
	defer close(q.out)
	for {
		q.mu.Lock()
		items, closed := q.items, q.closed
		q.items = nil
		q.mu.Unlock()

		for _, ev := range items {
			select {
			case q.out <- ev:
			case <-q.stop:
				return
			}
		}
		if len(items) > 0 {
			continue
		}
		if closed {
			return
		}
		select {
		case <-q.wake:
		case <-q.stop:
			return
		}
	}
}
