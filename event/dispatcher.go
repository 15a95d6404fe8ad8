package event

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/errors"
	"github.com/wippyai/speech-runtime/lifecycle"
)

// Handler receives one event. A returned error is treated as a handler failure.
type Handler[T any] func(T) error

// Token identifies one subscription for Unsubscribe.
type Token uint64

// Failure describes a handler that returned an error or panicked.
type Failure struct {
	Err        error
	PanicValue any
	Stream     string
	PanicStack []byte
	Token      Token
	Panicked   bool
}

// Result summarizes one Dispatch call.
type Result struct {
	Invoked int
	Failed  int
	Skipped bool
}

// Stats are cumulative counters for a dispatcher.
type Stats struct {
	Dispatched uint64
	Delivered  uint64
	Failed     uint64
	Panicked   uint64
	Skipped    uint64
}

type subscriber[T any] struct {
	handler Handler[T]
	token   Token
}

// Dispatcher fans out events of type T to its subscribers.
type Dispatcher[T any] struct {
	gate      *lifecycle.Gate
	logger    *zap.Logger
	onFailure func(Failure)
	subs      atomic.Pointer[[]subscriber[T]]
	name      string
	mu        sync.Mutex
	nextToken Token

	dispatched atomic.Uint64
	delivered  atomic.Uint64
	failed     atomic.Uint64
	panicked   atomic.Uint64
	skipped    atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	onFailure func(Failure)
}

// WithLogger sets the logger used to report handler failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFailureHook sets a function called for every handler failure.
// The hook runs on the dispatching goroutine; a panicking hook is recovered.
func WithFailureHook(fn func(Failure)) Option {
	return func(o *options) {
		o.onFailure = fn
	}
}

// New creates a dispatcher for the named stream guarded by gate.
// A nil gate gets a private gate that is never closed.
func New[T any](name string, gate *lifecycle.Gate, opts ...Option) *Dispatcher[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if gate == nil {
		gate = lifecycle.NewNamed(name)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	d := &Dispatcher[T]{
		gate:      gate,
		name:      name,
		logger:    o.logger.With(zap.String("stream", name)),
		onFailure: o.onFailure,
	}
	empty := make([]subscriber[T], 0)
	d.subs.Store(&empty)
	return d
}

// Name returns the stream name.
func (d *Dispatcher[T]) Name() string {
	return d.name
}

// Subscribe appends h and returns its token. Adding the same handler twice
// creates two independent subscriptions.
func (d *Dispatcher[T]) Subscribe(h Handler[T]) Token {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextToken++
	tok := d.nextToken

	cur := *d.subs.Load()
	next := make([]subscriber[T], len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, subscriber[T]{handler: h, token: tok})
	d.subs.Store(&next)

	return tok
}

// SubscribeFunc subscribes a handler that cannot fail.
func (d *Dispatcher[T]) SubscribeFunc(fn func(T)) Token {
	return d.Subscribe(func(ev T) error {
		fn(ev)
		return nil
	})
}

// Unsubscribe removes the subscription for tok. Unknown or already removed
// tokens are ignored and report false.
func (d *Dispatcher[T]) Unsubscribe(tok Token) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur := *d.subs.Load()
	for i, s := range cur {
		if s.token != tok {
			continue
		}
		next := make([]subscriber[T], 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		d.subs.Store(&next)
		return true
	}
	return false
}

// Len returns the current number of subscribers.
func (d *Dispatcher[T]) Len() int {
	return len(*d.subs.Load())
}

// Dispatch delivers ev to a snapshot of the current subscribers.
// It does nothing once the owning gate is closed.
func (d *Dispatcher[T]) Dispatch(ev T) Result {
	d.dispatched.Add(1)

	if err := d.gate.Enter(); err != nil {
		d.skipped.Add(1)
		return Result{Skipped: true}
	}
	defer d.gate.Exit()

	snapshot := *d.subs.Load()
	res := Result{Invoked: len(snapshot)}
	for _, s := range snapshot {
		if f, ok := d.invoke(s, ev); !ok {
			res.Failed++
			d.report(f)
		}
	}
	d.delivered.Add(uint64(res.Invoked - res.Failed))
	return res
}

// invoke runs one handler, converting returned errors and panics into a Failure.
func (d *Dispatcher[T]) invoke(s subscriber[T], ev T) (f Failure, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			f = Failure{
				Stream:     d.name,
				Token:      s.token,
				Panicked:   true,
				PanicValue: r,
				PanicStack: debug.Stack(),
				Err:        errors.HandlerFailure(d.name, fmt.Errorf("handler panicked: %v", r)),
			}
			ok = false
		}
	}()

	if err := s.handler(ev); err != nil {
		return Failure{
			Stream: d.name,
			Token:  s.token,
			Err:    errors.HandlerFailure(d.name, err),
		}, false
	}
	return Failure{}, true
}

func (d *Dispatcher[T]) report(f Failure) {
	d.failed.Add(1)
	if f.Panicked {
		d.panicked.Add(1)
		d.logger.Error("event handler panicked",
			zap.Uint64("token", uint64(f.Token)),
			zap.Any("panic", f.PanicValue),
			zap.ByteString("stack", f.PanicStack))
	} else {
		d.logger.Warn("event handler failed",
			zap.Uint64("token", uint64(f.Token)),
			zap.Error(f.Err))
	}

	if d.onFailure == nil {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("failure hook panicked", zap.Any("panic", r))
			}
		}()
		d.onFailure(f)
	}()
}

// Stats returns a snapshot of the dispatcher's counters.
func (d *Dispatcher[T]) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Delivered:  d.delivered.Load(),
		Failed:     d.failed.Load(),
		Panicked:   d.panicked.Load(),
		Skipped:    d.skipped.Load(),
	}
}
