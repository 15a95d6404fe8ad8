package resource

import "errors"

// ErrClosed is returned by Insert after Close.
var ErrClosed = errors.New("resource table closed")

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(slot int, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot+1))
}

func (h Handle) slot() int {
	return int(uint32(h)) - 1
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

// EventType identifies a table lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a table lifecycle event.
type Event struct {
	Handle Handle
	Type   EventType
}

// Observer receives table lifecycle events.
type Observer func(Event)

// Dropper is optionally implemented by values that need cleanup on removal.
type Dropper interface {
	Drop()
}
