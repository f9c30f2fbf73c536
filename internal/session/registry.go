package session

import (
	"slices"
	"sync"

	"github.com/tuxx/shaderlock/internal/input"
)

// Renderer is what the session needs from a per-output renderer.
// *render.Renderer implements it.
type Renderer interface {
	Configure(width, height uint32) error
	Render() error
	KeyEvent(input.KeyEvent)
	MouseEvent(input.PointerEvent)
	IsAuthenticated() bool
	Release()
}

// Registry maps lock surfaces to their renderers. Every method is safe for
// concurrent use; callbacks run with the registry locked and must not call
// back into it.
type Registry struct {
	mu        sync.RWMutex
	renderers map[SurfaceKey]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[SurfaceKey]Renderer)}
}

// Insert stores r under key and returns the renderer it replaced, if any.
func (g *Registry) Insert(key SurfaceKey, r Renderer) (Renderer, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	old, ok := g.renderers[key]
	g.renderers[key] = r
	return old, ok
}

// Get returns the renderer for key.
func (g *Registry) Get(key SurfaceKey) (Renderer, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.renderers[key]
	return r, ok
}

// Remove deletes key and returns its renderer.
func (g *Registry) Remove(key SurfaceKey) (Renderer, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.renderers[key]
	delete(g.renderers, key)
	return r, ok
}

// Modify runs fn on the renderer for key with exclusive access. It reports
// whether key was present.
func (g *Registry) Modify(key SurfaceKey, fn func(Renderer)) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.renderers[key]
	if ok {
		fn(r)
	}
	return ok
}

// ForEach runs fn on every renderer, in key order, with exclusive access.
func (g *Registry) ForEach(fn func(SurfaceKey, Renderer)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, k := range g.sortedKeys() {
		fn(k, g.renderers[k])
	}
}

// Len returns the number of renderers.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.renderers)
}

// Keys returns the keys in ascending order.
func (g *Registry) Keys() []SurfaceKey {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sortedKeys()
}

func (g *Registry) sortedKeys() []SurfaceKey {
	keys := make([]SurfaceKey, 0, len(g.renderers))
	for k := range g.renderers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
