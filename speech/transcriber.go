package speech

import (
	"context"

	"github.com/wippyai/speech-runtime/async"
	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/event"
)

// Transcriber produces a running transcript of a conversation.
type Transcriber struct {
	obj *object

	sessionStarted *event.Dispatcher[SessionEventArgs]
	sessionStopped *event.Dispatcher[SessionEventArgs]
	transcribing   *event.Dispatcher[RecognitionEventArgs]
	transcribed    *event.Dispatcher[RecognitionEventArgs]
	canceled       *event.Dispatcher[CanceledEventArgs]
}

// NewTranscriber creates a transcriber on eng.
func NewTranscriber(ctx context.Context, eng engine.Engine, cfg *Config, opts ...Option) (*Transcriber, error) {
	obj, err := newObject(ctx, eng, engine.KindTranscriber, cfg, opts)
	if err != nil {
		return nil, err
	}

	b := &binder{obj: obj}
	t := &Transcriber{
		obj:            obj,
		sessionStarted: bind(b, engine.StreamSessionStarted, sessionArgs),
		sessionStopped: bind(b, engine.StreamSessionStopped, sessionArgs),
		transcribing:   bind(b, engine.StreamTranscribing, recognitionArgs),
		transcribed:    bind(b, engine.StreamTranscribed, recognitionArgs),
		canceled:       bind(b, engine.StreamCanceled, canceledArgs),
	}
	if b.err != nil {
		b.abort()
		return nil, b.err
	}
	return t, nil
}

func (t *Transcriber) SessionStarted() *event.Dispatcher[SessionEventArgs] { return t.sessionStarted }

func (t *Transcriber) SessionStopped() *event.Dispatcher[SessionEventArgs] { return t.sessionStopped }

// Transcribing carries partial transcript segments.
func (t *Transcriber) Transcribing() *event.Dispatcher[RecognitionEventArgs] { return t.transcribing }

// Transcribed carries final transcript segments.
func (t *Transcriber) Transcribed() *event.Dispatcher[RecognitionEventArgs] { return t.transcribed }

func (t *Transcriber) Canceled() *event.Dispatcher[CanceledEventArgs] { return t.canceled }

// StartTranscribing begins transcribing input.
func (t *Transcriber) StartTranscribing(input string) (*async.Future[struct{}], error) {
	return start(t.obj, engine.OpStartTranscribing, input, ack)
}

// StopTranscribing ends the transcription session.
func (t *Transcriber) StopTranscribing() (*async.Future[struct{}], error) {
	return start(t.obj, engine.OpStopTranscribing, "", ack)
}

// Close releases the transcriber. See the package documentation.
func (t *Transcriber) Close() error {
	return t.obj.closeContext(context.Background())
}

// CloseContext is Close with a bound on the drain wait.
func (t *Transcriber) CloseContext(ctx context.Context) error {
	return t.obj.closeContext(ctx)
}

// Closed reports whether Close has been called.
func (t *Transcriber) Closed() bool {
	return t.obj.closed()
}
