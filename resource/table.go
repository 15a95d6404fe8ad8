package resource

import (
	"sync"
)

// Table stores values of type T behind generation-checked handles.
type Table[T any] struct {
	entries   []entry[T]
	freeList  []int
	observers []observerEntry
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	nextObs   int
	live      int
	closed    bool
}

type entry[T any] struct {
	value T
	gen   uint32
	valid bool
}

type observerEntry struct {
	fn Observer
	id int
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]entry[T], 0, 16),
		freeList: make([]int, 0, 16),
	}
}

// Insert stores value and returns its handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	var h Handle
	if n := len(t.freeList); n > 0 {
		slot := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		e := &t.entries[slot]
		e.gen++
		e.value = value
		e.valid = true
		h = makeHandle(slot, e.gen)
	} else {
		t.entries = append(t.entries, entry[T]{value: value, gen: 1, valid: true})
		h = makeHandle(len(t.entries)-1, 1)
	}
	t.live++
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h})
	return h, nil
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Remove drops the value for h and returns it. Values implementing
// Dropper have Drop called outside the table lock.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	t.mu.Lock()
	e, ok := t.lookup(h)
	if !ok {
		t.mu.Unlock()
		var zero T
		return zero, false
	}
	value := e.value
	var zero T
	e.value = zero
	e.valid = false
	t.freeList = append(t.freeList, h.slot())
	t.live--
	t.mu.Unlock()

	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: h})
	return value, true
}

// lookup must be called with mu held.
func (t *Table[T]) lookup(h Handle) (*entry[T], bool) {
	if h == 0 {
		return nil, false
	}
	slot := h.slot()
	if slot < 0 || slot >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[slot]
	if !e.valid || e.gen != h.generation() {
		return nil, false
	}
	return e, true
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Each calls fn for every live value until fn returns false.
// fn runs without the table lock held.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	type item struct {
		value  T
		handle Handle
	}
	t.mu.RLock()
	items := make([]item, 0, t.live)
	for i, e := range t.entries {
		if e.valid {
			items = append(items, item{handle: makeHandle(i, e.gen), value: e.value})
		}
	}
	t.mu.RUnlock()

	for _, it := range items {
		if !fn(it.handle, it.value) {
			return
		}
	}
}

// Subscribe adds an observer and returns a function that removes it.
func (t *Table[T]) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.nextObs++
	id := t.nextObs
	t.observers = append(t.observers, observerEntry{id: id, fn: o})
	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		for i, oe := range t.observers {
			if oe.id == id {
				t.observers = append(t.observers[:i:i], t.observers[i+1:]...)
				return
			}
		}
	}
}

// Close drops all remaining values and rejects further inserts.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	var handles []Handle
	t.Each(func(h Handle, _ T) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
	return nil
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	list := make([]Observer, len(t.observers))
	for i, oe := range t.observers {
		list[i] = oe.fn
	}
	t.obsMu.RUnlock()

	for _, o := range list {
		o(e)
	}
}
