package async

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/errors"
	"github.com/wippyai/speech-runtime/lifecycle"
)

// Completion delivers an operation's terminal value. The first call wins
// and returns true; later calls are ignored and return false.
type Completion[R any] func(R, error) bool

type canceler interface {
	cancelByDisposal(object string)
}

// Bridge tracks the pending operations of one gated object.
type Bridge struct {
	gate    *lifecycle.Gate
	logger  *zap.Logger
	pending map[uint64]canceler
	mu      sync.Mutex
	nextID  uint64
	closed  bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBridge creates a bridge bound to gate. Pending operations are
// canceled when the gate closes.
func NewBridge(gate *lifecycle.Gate, opts ...Option) *Bridge {
	b := &Bridge{
		gate:    gate,
		logger:  zap.NewNop(),
		pending: make(map[uint64]canceler),
	}
	for _, opt := range opts {
		opt(b)
	}
	gate.OnClose(b.cancelPending)
	return b
}

// Pending returns the number of unresolved operations.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Start begins an operation. It enters the gate, failing with
// errors.ErrAlreadyClosed without calling op if the owner is closed.
// op receives the Completion to hand to the engine. If op itself fails the
// future is resolved with that error, wrapped as an engine error, and Start
// returns it.
//
// Two gate uses are held: one for the pending future, released when it
// resolves, and one for the duration of op, so Close cannot return while
// the engine call is still running.
func Start[R any](b *Bridge, op func(Completion[R]) error) (*Future[R], error) {
	if err := b.gate.Enter(); err != nil {
		return nil, err
	}
	defer b.gate.Exit()

	b.mu.Lock()
	if b.closed {
		// The gate closed between Enter and registration.
		b.mu.Unlock()
		return nil, errors.CanceledByDisposal(b.gate.Name())
	}
	if err := b.gate.Enter(); err != nil {
		b.mu.Unlock()
		return nil, errors.CanceledByDisposal(b.gate.Name())
	}
	b.nextID++
	id := b.nextID
	f := newFuture[R](id)
	f.release = func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		b.gate.Exit()
	}
	b.pending[id] = f
	b.mu.Unlock()

	done := func(v R, err error) bool {
		if f.resolve(v, err) {
			return true
		}
		b.logger.Debug("duplicate completion ignored", zap.Uint64("op", id))
		return false
	}

	if err := op(done); err != nil {
		err = errors.Engine("start operation", err)
		var zero R
		f.resolve(zero, err)
		return nil, err
	}
	return f, nil
}

func (f *Future[R]) cancelByDisposal(object string) {
	var zero R
	f.resolve(zero, errors.CanceledByDisposal(object))
}

func (b *Bridge) cancelPending() {
	b.mu.Lock()
	b.closed = true
	list := make([]canceler, 0, len(b.pending))
	for _, c := range b.pending {
		list = append(list, c)
	}
	b.mu.Unlock()

	if len(list) > 0 {
		b.logger.Debug("canceling pending operations on close", zap.Int("count", len(list)))
	}
	for _, c := range list {
		c.cancelByDisposal(b.gate.Name())
	}
}
