package speech

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/event"
	"github.com/wippyai/speech-runtime/lifecycle"
)

// Connection reports the link state of a recognizer's engine session.
// It has its own lifecycle: closing it stops its events without touching
// the recognizer, and closing the recognizer closes it after the final
// Disconnected event.
type Connection struct {
	obj          *object
	ownerMu      *sync.Mutex
	gate         *lifecycle.Gate
	connected    *event.Dispatcher[ConnectionEventArgs]
	disconnected *event.Dispatcher[ConnectionEventArgs]
}

// ConnectionFromRecognizer returns the connection of r. Repeated calls
// return the same Connection until it is closed.
func ConnectionFromRecognizer(r *Recognizer) (*Connection, error) {
	return r.connection()
}

func newConnection(obj *object, ownerMu *sync.Mutex) (*Connection, error) {
	gate := lifecycle.NewNamed("connection")
	c := &Connection{
		obj:          obj,
		ownerMu:      ownerMu,
		gate:         gate,
		connected:    event.New[ConnectionEventArgs](engine.StreamConnected.String(), gate, obj.eventOpts...),
		disconnected: event.New[ConnectionEventArgs](engine.StreamDisconnected.String(), gate, obj.eventOpts...),
	}
	if err := obj.eng.SetEventCallback(obj.handle, engine.StreamConnected, func(ev engine.Event) {
		c.connected.Dispatch(connectionArgs(ev))
	}); err != nil {
		return nil, err
	}
	if err := obj.eng.SetEventCallback(obj.handle, engine.StreamDisconnected, func(ev engine.Event) {
		c.disconnected.Dispatch(connectionArgs(ev))
	}); err != nil {
		c.detach()
		return nil, err
	}
	return c, nil
}

// Connected fires when the engine establishes its session link.
func (c *Connection) Connected() *event.Dispatcher[ConnectionEventArgs] { return c.connected }

// Disconnected fires when the link goes away, including on recognizer release.
func (c *Connection) Disconnected() *event.Dispatcher[ConnectionEventArgs] { return c.disconnected }

// Close stops event delivery and detaches from the engine. It waits for
// in-flight handlers and is idempotent.
func (c *Connection) Close() error {
	// Held so a replacement connection cannot attach between close and detach.
	c.ownerMu.Lock()
	defer c.ownerMu.Unlock()
	if c.gate.Closed() {
		return nil
	}
	c.gate.Close()
	c.detach()
	return nil
}

// Closed reports whether the connection has been closed.
func (c *Connection) Closed() bool {
	return c.gate.Closed()
}

// closeDetached closes c after the handle is gone; there is nothing to detach.
func (c *Connection) closeDetached() {
	c.gate.Close()
}

func (c *Connection) detach() {
	for _, s := range []engine.Stream{engine.StreamConnected, engine.StreamDisconnected} {
		if err := c.obj.eng.SetEventCallback(c.obj.handle, s, nil); err != nil {
			c.obj.logger.Debug("detach connection callback", zap.Stringer("stream", s), zap.Error(err))
		}
	}
}
