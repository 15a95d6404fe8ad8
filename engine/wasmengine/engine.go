package wasmengine

import (
	"context"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/errors"
	"github.com/wippyai/speech-runtime/resource"
)

// Export and import names of the guest ABI.
const (
	HostModule   = "speech"
	ExportMemory = "memory"
	ExportAlloc  = "speech_alloc"
	ExportStart  = "speech_start"
)

// Completion status codes reported by the guest.
const (
	StatusOK       = 0
	StatusNoMatch  = 1
	StatusCanceled = 2
)

// Config holds configuration for engine creation
type Config struct {
	Logger *zap.Logger

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// QueueSize bounds the number of pending guest calls.
	QueueSize int
}

// Option configures an Engine.
type Option func(*Config)

// WithMemoryLimitPages caps guest memory.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *Config) {
		c.MemoryLimitPages = pages
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithQueueSize bounds the number of pending guest calls.
func WithQueueSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueueSize = n
		}
	}
}

// Engine runs a guest speech engine on a dedicated goroutine.
type Engine struct {
	runtime wazero.Runtime
	module  api.Module
	start   api.Function
	alloc   api.Function
	objects *resource.Table[*object]
	logger  *zap.Logger
	calls   chan func(context.Context)
	quit    chan struct{}
	exited  chan struct{}
	mu      sync.Mutex
	closed  bool
}

var _ engine.Engine = (*Engine)(nil)

// NewFromFile loads the guest module at path.
func NewFromFile(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read module", err)
	}
	return New(ctx, wasm, opts...)
}

// New compiles and instantiates a guest engine module.
func New(ctx context.Context, wasm []byte, opts ...Option) (*Engine, error) {
	cfg := Config{QueueSize: 64}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = engine.Logger()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	e := &Engine{
		runtime: rt,
		objects: resource.NewTable[*object](),
		logger:  cfg.Logger.Named("wasmengine"),
		calls:   make(chan func(context.Context), cfg.QueueSize),
		quit:    make(chan struct{}),
		exited:  make(chan struct{}),
	}

	if err := e.instantiateHost(ctx); err != nil {
		rt.Close(ctx)
		return nil, errors.Load("instantiate host module", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Load("compile guest", err)
	}
	if err := validateExports(compiled); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("speech-engine"))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Load("instantiate guest", err)
	}
	e.module = mod
	e.start = mod.ExportedFunction(ExportStart)
	e.alloc = mod.ExportedFunction(ExportAlloc)

	go e.loop()
	return e, nil
}

func validateExports(compiled wazero.CompiledModule) error {
	funcs := compiled.ExportedFunctions()
	for _, name := range []string{ExportAlloc, ExportStart} {
		if _, ok := funcs[name]; !ok {
			return errors.Load("guest module", errors.NotFound(errors.PhaseLoad, "export "+name))
		}
	}
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return errors.Load("guest module", errors.NotFound(errors.PhaseLoad, "export "+ExportMemory))
	}
	return nil
}

// loop is the engine goroutine. Every guest call and every callback into
// the binding happens here.
func (e *Engine) loop() {
	defer close(e.exited)
	ctx := context.Background()
	for {
		select {
		case fn := <-e.calls:
			fn(ctx)
		case <-e.quit:
			return
		}
	}
}

// submit queues fn on the engine goroutine.
func (e *Engine) submit(fn func(context.Context)) error {
	select {
	case <-e.quit:
		return errors.AlreadyClosed(errors.PhaseEngine, "wasmengine")
	default:
	}
	select {
	case e.calls <- fn:
		return nil
	case <-e.quit:
		return errors.AlreadyClosed(errors.PhaseEngine, "wasmengine")
	}
}

// run executes fn on the engine goroutine and waits for it.
func (e *Engine) run(fn func(context.Context)) error {
	done := make(chan struct{})
	if err := e.submit(func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-e.exited:
		return errors.AlreadyClosed(errors.PhaseEngine, "wasmengine")
	}
}

// Create allocates a native object.
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
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return 0, errors.AlreadyClosed(errors.PhaseEngine, "wasmengine")
	}

	h, err := e.objects.Insert(newObject(kind, props.Clone()))
	if err != nil {
		return 0, errors.Engine("allocate handle", err)
	}
	e.logger.Debug("object created", zap.Uint64("handle", uint64(h)), zap.Stringer("kind", kind))
	return engine.Handle(h), nil
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

// Start queues req for the guest. Rejections and traps are reported
// through done.
func (e *Engine) Start(h engine.Handle, req engine.Request, done engine.CompletionCallback) error {
	if !req.Operation.Valid() {
		return errors.InvalidInput(errors.PhaseEngine, "unknown operation")
	}
	if done == nil {
		return errors.InvalidInput(errors.PhaseEngine, "nil completion callback")
	}
	obj, err := e.lookup(h)
	if err != nil {
		return err
	}
	if !obj.kind.Supports(req.Operation) {
		return errors.Unsupported(errors.PhaseEngine, req.Operation.String()+" on "+obj.kind.String())
	}

	return e.submit(func(ctx context.Context) {
		e.invoke(ctx, h, obj, req, done)
	})
}

func (e *Engine) invoke(ctx context.Context, h engine.Handle, obj *object, req engine.Request, done engine.CompletionCallback) {
	// Released while queued.
	if _, ok := e.objects.Get(resource.Handle(h)); !ok {
		done(engine.Completion{
			Operation: req.Operation,
			Reason:    engine.ReasonCanceled,
			Err:       errors.AlreadyClosed(errors.PhaseEngine, "native object"),
		})
		return
	}

	if !obj.connected {
		obj.connected = true
		obj.emit(engine.Event{Stream: engine.StreamConnected, Handle: h})
	}

	op := obj.register(req.Operation, done)

	payload := []byte(req.Text)
	ptr, err := e.write(ctx, payload)
	if err != nil {
		obj.fail(op, errors.Engine("write request", err))
		return
	}

	res, err := e.start.Call(ctx, uint64(h), api.EncodeU32(op), api.EncodeU32(uint32(req.Operation)), api.EncodeU32(ptr), api.EncodeU32(uint32(len(payload))))
	if err != nil {
		e.logger.Warn("guest trapped", zap.Uint64("handle", uint64(h)), zap.Stringer("op", req.Operation), zap.Error(err))
		obj.fail(op, errors.Engine("guest trapped", err))
		return
	}
	if status := api.DecodeI32(res[0]); status != 0 {
		obj.fail(op, errors.New(errors.PhaseEngine, errors.KindEngineFailure).
			Detail("guest rejected %s with status %d", req.Operation, status).
			Value(status).
			Build())
	}
}

// write copies data into guest memory and returns its offset.
func (e *Engine) write(ctx context.Context, data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	res, err := e.alloc.Call(ctx, api.EncodeU32(uint32(len(data))))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(res[0])
	if !e.module.Memory().Write(ptr, data) {
		return 0, errors.New(errors.PhaseEngine, errors.KindEngineFailure).
			Detail("guest buffer at %d too small for %d bytes", ptr, len(data)).
			Build()
	}
	return ptr, nil
}

// Release removes h on the engine goroutine, after any guest call for it.
func (e *Engine) Release(h engine.Handle) error {
	var found bool
	err := e.run(func(context.Context) {
		obj, ok := e.objects.Remove(resource.Handle(h))
		found = ok
		if !ok {
			return
		}
		obj.failAll(errors.AlreadyClosed(errors.PhaseEngine, "native object"))
		if obj.connected {
			obj.emit(engine.Event{Stream: engine.StreamDisconnected, Handle: h})
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return errors.NotFound(errors.PhaseEngine, "handle")
	}
	e.logger.Debug("object released", zap.Uint64("handle", uint64(h)))
	return nil
}

// Close releases every object, stops the engine goroutine and closes the
// wazero runtime.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	var handles []engine.Handle
	e.objects.Each(func(h resource.Handle, _ *object) bool {
		handles = append(handles, engine.Handle(h))
		return true
	})
	for _, h := range handles {
		if err := e.Release(h); err != nil {
			e.logger.Debug("release on close", zap.Uint64("handle", uint64(h)), zap.Error(err))
		}
	}

	close(e.quit)
	select {
	case <-e.exited:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.objects.Close()
	return e.runtime.Close(ctx)
}

// Live returns the number of unreleased objects.
func (e *Engine) Live() int {
	return e.objects.Len()
}
