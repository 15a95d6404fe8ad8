package wasmengine

import (
	"sync"

	"github.com/wippyai/speech-runtime/engine"
)

type pendingOp struct {
	done engine.CompletionCallback
	op   engine.Operation
}

// object is the host-side state of one native object. pending and
// connected are only touched on the engine goroutine.
type object struct {
	callbacks map[engine.Stream]engine.EventCallback
	pending   map[uint32]pendingOp
	props     engine.Properties
	mu        sync.Mutex
	nextOp    uint32
	kind      engine.ObjectKind
	connected bool
}

func newObject(kind engine.ObjectKind, props engine.Properties) *object {
	return &object{
		kind:      kind,
		props:     props,
		callbacks: make(map[engine.Stream]engine.EventCallback),
		pending:   make(map[uint32]pendingOp),
	}
}

func (o *object) setCallback(stream engine.Stream, cb engine.EventCallback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cb == nil {
		delete(o.callbacks, stream)
		return
	}
	o.callbacks[stream] = cb
}

func (o *object) emit(ev engine.Event) {
	o.mu.Lock()
	cb := o.callbacks[ev.Stream]
	o.mu.Unlock()
	if cb != nil {
		cb(ev)
	}
}

func (o *object) register(op engine.Operation, done engine.CompletionCallback) uint32 {
	o.nextOp++
	o.pending[o.nextOp] = pendingOp{op: op, done: done}
	return o.nextOp
}

func (o *object) take(id uint32) (pendingOp, bool) {
	p, ok := o.pending[id]
	if ok {
		delete(o.pending, id)
	}
	return p, ok
}

// fail completes a still-pending operation with err.
func (o *object) fail(id uint32, err error) {
	p, ok := o.take(id)
	if !ok {
		return
	}
	p.done(engine.Completion{Operation: p.op, Err: err})
}

// failAll completes every pending operation with err.
func (o *object) failAll(err error) {
	for id := range o.pending {
		o.fail(id, err)
	}
}
