package lifecycle

import (
	"sync"

	"github.com/wippyai/speech-runtime/errors"
)

// Gate counts active uses of an object and blocks Close until they drain.
type Gate struct {
	cond   *sync.Cond
	name   string
	hooks  []*closeHook
	mu     sync.Mutex
	active int
	closed bool
}

type closeHook struct {
	fn func()
}

// New creates an open gate.
func New() *Gate {
	return NewNamed("")
}

// NewNamed creates an open gate whose errors name the guarded object.
func NewNamed(name string) *Gate {
	g := &Gate{name: name}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Name returns the guarded object's name.
func (g *Gate) Name() string {
	return g.name
}

// Enter registers one active use. It fails with errors.ErrAlreadyClosed
// and leaves the count unchanged once Close has been called.
func (g *Gate) Enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errors.AlreadyClosed(errors.PhaseGate, g.name)
	}
	g.active++
	return nil
}

// Exit releases one active use.
//
// The caller must hold a use obtained from a successful Enter. An Exit
// without a matching Enter is a programming error and panics.
func (g *Gate) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == 0 {
		panic("lifecycle: Exit called without a matching Enter")
	}
	g.active--
	if g.active == 0 && g.closed {
		g.cond.Broadcast()
	}
}

// Do runs fn inside an Enter/Exit pair.
func (g *Gate) Do(fn func() error) error {
	if err := g.Enter(); err != nil {
		return err
	}
	defer g.Exit()
	return fn()
}

// Close marks the gate closed, runs close hooks and waits until every
// active use has exited. Only the first call does anything; later calls
// return immediately, even while the first is still draining.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	hooks := g.hooks
	g.hooks = nil
	g.mu.Unlock()

	for _, h := range hooks {
		if h.fn != nil {
			h.fn()
		}
	}

	g.mu.Lock()
	for g.active > 0 {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// OnClose registers fn to run during the first Close, after the gate is
// marked closed and before the drain wait. The returned function removes
// the hook. Registering on a closed gate does nothing.
func (g *Gate) OnClose(fn func()) (remove func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return func() {}
	}
	h := &closeHook{fn: fn}
	g.hooks = append(g.hooks, h)
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, other := range g.hooks {
			if other == h {
				g.hooks = append(g.hooks[:i:i], g.hooks[i+1:]...)
				return
			}
		}
	}
}

// Closed reports whether Close has been called.
func (g *Gate) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Active returns the number of uses currently inside the gate.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
