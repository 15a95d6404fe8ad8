package speech

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/async"
	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/event"
	"github.com/wippyai/speech-runtime/lifecycle"
)

// Option configures a speech object.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	onFailure func(event.Failure)
}

// WithLogger sets the logger for the object, its dispatchers and its bridge.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFailureHook is called for every event handler that fails or panics.
func WithFailureHook(fn func(event.Failure)) Option {
	return func(o *options) {
		o.onFailure = fn
	}
}

// object is the engine-backed core shared by every speech type.
type object struct {
	eng       engine.Engine
	gate      *lifecycle.Gate
	bridge    *async.Bridge
	logger    *zap.Logger
	props     engine.Properties
	eventOpts []event.Option
	streams   []engine.Stream
	released  []func()
	done      chan struct{}
	closeErr  error
	closeOnce sync.Once
	reported  atomic.Bool
	mu        sync.Mutex
	handle    engine.Handle
	kind      engine.ObjectKind
}

func newObject(ctx context.Context, eng engine.Engine, kind engine.ObjectKind, cfg *Config, opts []Option) (*object, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	props := cfg.Properties()
	h, err := eng.Create(ctx, kind, props)
	if err != nil {
		return nil, err
	}

	logger := o.logger.Named(kind.String()).With(zap.Uint64("handle", uint64(h)))
	gate := lifecycle.NewNamed(kind.String())
	obj := &object{
		eng:    eng,
		gate:   gate,
		bridge: async.NewBridge(gate, async.WithLogger(logger)),
		logger: logger,
		props:  props,
		handle: h,
		kind:   kind,
		done:   make(chan struct{}),
	}
	obj.eventOpts = []event.Option{event.WithLogger(logger)}
	if o.onFailure != nil {
		obj.eventOpts = append(obj.eventOpts, event.WithFailureHook(o.onFailure))
	}
	logger.Debug("object created")
	return obj, nil
}

// binder attaches dispatchers to engine streams and keeps the first error.
type binder struct {
	obj *object
	err error
}

func bind[T any](b *binder, stream engine.Stream, conv func(engine.Event) T) *event.Dispatcher[T] {
	d := event.New[T](stream.String(), b.obj.gate, b.obj.eventOpts...)
	if b.err != nil {
		return d
	}
	err := b.obj.eng.SetEventCallback(b.obj.handle, stream, func(ev engine.Event) {
		d.Dispatch(conv(ev))
	})
	if err != nil {
		b.err = err
		return d
	}
	b.obj.streams = append(b.obj.streams, stream)
	return d
}

// abort releases a half-built object.
func (b *binder) abort() {
	if err := b.obj.eng.Release(b.obj.handle); err != nil {
		b.obj.logger.Debug("release after failed bind", zap.Error(err))
	}
}

// start runs one engine operation through the bridge.
func start[R any](o *object, op engine.Operation, text string, conv func(engine.Completion) R) (*async.Future[R], error) {
	return async.Start(o.bridge, func(done async.Completion[R]) error {
		req := engine.Request{Operation: op, Text: text, Properties: o.props}
		return o.eng.Start(o.handle, req, func(c engine.Completion) {
			if c.Err != nil {
				var zero R
				done(zero, c.Err)
				return
			}
			done(conv(c), nil)
		})
	})
}

// afterRelease registers fn to run once the native handle is released.
func (o *object) afterRelease(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.released = append(o.released, fn)
}

func (o *object) shutdown() {
	defer close(o.done)

	o.gate.Close()

	for _, s := range o.streams {
		if err := o.eng.SetEventCallback(o.handle, s, nil); err != nil {
			o.logger.Debug("detach callback", zap.Stringer("stream", s), zap.Error(err))
		}
	}
	o.closeErr = o.eng.Release(o.handle)
	if o.closeErr != nil {
		o.logger.Warn("release failed", zap.Error(o.closeErr))
	}

	o.mu.Lock()
	hooks := o.released
	o.released = nil
	o.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	o.logger.Debug("object closed")
}

// closeContext starts shutdown once and waits for it or ctx. The release
// error is returned to the first caller that observes completion.
func (o *object) closeContext(ctx context.Context) error {
	o.closeOnce.Do(func() {
		go o.shutdown()
	})
	select {
	case <-o.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if o.reported.CompareAndSwap(false, true) {
		return o.closeErr
	}
	return nil
}

func (o *object) closed() bool {
	return o.gate.Closed()
}
