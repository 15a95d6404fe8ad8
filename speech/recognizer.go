package speech

import (
	"context"
	"sync"

	"github.com/wippyai/speech-runtime/async"
	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/event"
)

// Recognizer turns audio into text, once or continuously.
type Recognizer struct {
	obj *object

	sessionStarted      *event.Dispatcher[SessionEventArgs]
	sessionStopped      *event.Dispatcher[SessionEventArgs]
	speechStartDetected *event.Dispatcher[SessionEventArgs]
	speechEndDetected   *event.Dispatcher[SessionEventArgs]
	recognizing         *event.Dispatcher[RecognitionEventArgs]
	recognized          *event.Dispatcher[RecognitionEventArgs]
	canceled            *event.Dispatcher[CanceledEventArgs]

	connMu sync.Mutex
	conn   *Connection
}

// NewRecognizer creates a recognizer on eng.
func NewRecognizer(ctx context.Context, eng engine.Engine, cfg *Config, opts ...Option) (*Recognizer, error) {
	obj, err := newObject(ctx, eng, engine.KindRecognizer, cfg, opts)
	if err != nil {
		return nil, err
	}

	b := &binder{obj: obj}
	r := &Recognizer{
		obj:                 obj,
		sessionStarted:      bind(b, engine.StreamSessionStarted, sessionArgs),
		sessionStopped:      bind(b, engine.StreamSessionStopped, sessionArgs),
		speechStartDetected: bind(b, engine.StreamSpeechStartDetected, sessionArgs),
		speechEndDetected:   bind(b, engine.StreamSpeechEndDetected, sessionArgs),
		recognizing:         bind(b, engine.StreamRecognizing, recognitionArgs),
		recognized:          bind(b, engine.StreamRecognized, recognitionArgs),
		canceled:            bind(b, engine.StreamCanceled, canceledArgs),
	}
	if b.err != nil {
		b.abort()
		return nil, b.err
	}
	return r, nil
}

// SessionStarted fires when the engine opens a recognition session.
func (r *Recognizer) SessionStarted() *event.Dispatcher[SessionEventArgs] { return r.sessionStarted }

// SessionStopped fires when the session ends.
func (r *Recognizer) SessionStopped() *event.Dispatcher[SessionEventArgs] { return r.sessionStopped }

// SpeechStartDetected fires at the start of an utterance.
func (r *Recognizer) SpeechStartDetected() *event.Dispatcher[SessionEventArgs] {
	return r.speechStartDetected
}

// SpeechEndDetected fires at the end of an utterance.
func (r *Recognizer) SpeechEndDetected() *event.Dispatcher[SessionEventArgs] {
	return r.speechEndDetected
}

// Recognizing carries partial hypotheses.
func (r *Recognizer) Recognizing() *event.Dispatcher[RecognitionEventArgs] { return r.recognizing }

// Recognized carries final results.
func (r *Recognizer) Recognized() *event.Dispatcher[RecognitionEventArgs] { return r.recognized }

// Canceled fires when the engine aborts recognition.
func (r *Recognizer) Canceled() *event.Dispatcher[CanceledEventArgs] { return r.canceled }

// RecognizeOnce recognizes a single utterance.
func (r *Recognizer) RecognizeOnce(input string) (*async.Future[RecognitionResult], error) {
	return start(r.obj, engine.OpRecognizeOnce, input, recognitionResult)
}

// StartContinuous begins continuous recognition of input. Results arrive on
// Recognizing and Recognized until StopContinuous.
func (r *Recognizer) StartContinuous(input string) (*async.Future[struct{}], error) {
	return start(r.obj, engine.OpStartContinuous, input, ack)
}

// StopContinuous ends continuous recognition.
func (r *Recognizer) StopContinuous() (*async.Future[struct{}], error) {
	return start(r.obj, engine.OpStopContinuous, "", ack)
}

// Close releases the recognizer. See the package documentation.
func (r *Recognizer) Close() error {
	return r.obj.closeContext(context.Background())
}

// CloseContext is Close with a bound on the drain wait. When ctx ends first
// the release continues in the background and ctx's error is returned.
func (r *Recognizer) CloseContext(ctx context.Context) error {
	return r.obj.closeContext(ctx)
}

// Closed reports whether Close has been called.
func (r *Recognizer) Closed() bool {
	return r.obj.closed()
}

// connection returns the live connection, creating one if needed.
func (r *Recognizer) connection() (*Connection, error) {
	var c *Connection
	err := r.obj.gate.Do(func() error {
		r.connMu.Lock()
		defer r.connMu.Unlock()
		if r.conn != nil && !r.conn.Closed() {
			c = r.conn
			return nil
		}
		var err error
		c, err = newConnection(r.obj, &r.connMu)
		if err != nil {
			return err
		}
		r.conn = c
		r.obj.afterRelease(c.closeDetached)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func ack(engine.Completion) struct{} { return struct{}{} }
