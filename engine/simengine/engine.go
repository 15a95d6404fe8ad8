package simengine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/errors"
	"github.com/wippyai/speech-runtime/resource"
)

// Engine is a scripted, multi-threaded speech engine.
type Engine struct {
	objects *resource.Table[*object]
	logger  *zap.Logger
	opts    options
	mu      sync.Mutex
	closed  bool
}

var _ engine.Engine = (*Engine)(nil)

// New creates a simulated engine.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		objects: resource.NewTable[*object](),
		logger:  o.logger.Named("simengine"),
		opts:    o,
	}
	e.objects.Subscribe(func(ev resource.Event) {
		e.logger.Debug("native object "+ev.Type.String(), zap.Uint64("handle", uint64(ev.Handle)))
	})
	return e
}

// Create allocates a native object and starts its engine goroutine.
func (e *Engine) Create(ctx context.Context, kind engine.ObjectKind, props engine.Properties) (engine.Handle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch kind {
	case engine.KindRecognizer, engine.KindSynthesizer, engine.KindTranscriber:
	default:
		return 0, errors.InvalidInput(errors.PhaseEngine, "unknown object kind "+kind.String())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, errors.AlreadyClosed(errors.PhaseEngine, "simengine")
	}

	obj := newObject(kind, props.Clone(), &e.opts, e.logger)
	h, err := e.objects.Insert(obj)
	if err != nil {
		return 0, errors.Engine("allocate handle", err)
	}
	obj.handle = engine.Handle(h)
	obj.logger = obj.logger.With(zap.Uint64("handle", uint64(h)), zap.Stringer("kind", kind))
	go obj.run()
	return obj.handle, nil
}

func (e *Engine) lookup(h engine.Handle) (*object, error) {
	obj, ok := e.objects.Get(resource.Handle(h))
	if !ok {
		return nil, errors.NotFound(errors.PhaseEngine, "handle")
	}
	return obj, nil
}

// SetEventCallback attaches cb to stream of h.
func (e *Engine) SetEventCallback(h engine.Handle, stream engine.Stream, cb engine.EventCallback) error {
	if !stream.Valid() {
		return errors.InvalidInput(errors.PhaseEngine, "unknown stream")
	}
	obj, err := e.lookup(h)
	if err != nil {
		return err
	}
	obj.setCallback(stream, cb)
	return nil
}

// Start queues req on the object's engine goroutine.
func (e *Engine) Start(h engine.Handle, req engine.Request, done engine.CompletionCallback) error {
	if !req.Operation.Valid() {
		return errors.InvalidInput(errors.PhaseEngine, "unknown operation")
	}
	if done == nil {
		return errors.InvalidInput(errors.PhaseEngine, "nil completion callback")
	}
	if err, ok := e.opts.startErrors[req.Operation]; ok {
		return errors.Engine("start "+req.Operation.String(), err)
	}
	obj, err := e.lookup(h)
	if err != nil {
		return err
	}
	if !obj.kind.Supports(req.Operation) {
		return errors.Unsupported(errors.PhaseEngine, req.Operation.String()+" on "+obj.kind.String())
	}
	return obj.enqueue(task{req: req, done: done})
}

// Release stops the object's goroutine. No callback for h runs after it returns.
func (e *Engine) Release(h engine.Handle) error {
	if _, ok := e.objects.Remove(resource.Handle(h)); !ok {
		return errors.NotFound(errors.PhaseEngine, "handle")
	}
	return nil
}

// Close releases every remaining object.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- e.objects.Close()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Live returns the number of unreleased objects.
func (e *Engine) Live() int {
	return e.objects.Len()
}
