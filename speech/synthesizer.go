package speech

import (
	"context"

	"github.com/wippyai/speech-runtime/async"
	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/event"
)

// Synthesizer turns text into audio.
type Synthesizer struct {
	obj *object

	synthesisStarted   *event.Dispatcher[SynthesisEventArgs]
	synthesizing       *event.Dispatcher[SynthesisEventArgs]
	synthesisCompleted *event.Dispatcher[SynthesisEventArgs]
	synthesisCanceled  *event.Dispatcher[SynthesisEventArgs]
	wordBoundary       *event.Dispatcher[WordBoundaryEventArgs]
}

// NewSynthesizer creates a synthesizer on eng.
func NewSynthesizer(ctx context.Context, eng engine.Engine, cfg *Config, opts ...Option) (*Synthesizer, error) {
	obj, err := newObject(ctx, eng, engine.KindSynthesizer, cfg, opts)
	if err != nil {
		return nil, err
	}

	b := &binder{obj: obj}
	s := &Synthesizer{
		obj:                obj,
		synthesisStarted:   bind(b, engine.StreamSynthesisStarted, synthesisArgs),
		synthesizing:       bind(b, engine.StreamSynthesizing, synthesisArgs),
		synthesisCompleted: bind(b, engine.StreamSynthesisCompleted, synthesisArgs),
		synthesisCanceled:  bind(b, engine.StreamSynthesisCanceled, synthesisArgs),
		wordBoundary:       bind(b, engine.StreamWordBoundary, wordBoundaryArgs),
	}
	if b.err != nil {
		b.abort()
		return nil, b.err
	}
	return s, nil
}

func (s *Synthesizer) SynthesisStarted() *event.Dispatcher[SynthesisEventArgs] {
	return s.synthesisStarted
}

// Synthesizing carries audio chunks as they are produced.
func (s *Synthesizer) Synthesizing() *event.Dispatcher[SynthesisEventArgs] { return s.synthesizing }

func (s *Synthesizer) SynthesisCompleted() *event.Dispatcher[SynthesisEventArgs] {
	return s.synthesisCompleted
}

func (s *Synthesizer) SynthesisCanceled() *event.Dispatcher[SynthesisEventArgs] {
	return s.synthesisCanceled
}

// WordBoundary fires once per spoken word.
func (s *Synthesizer) WordBoundary() *event.Dispatcher[WordBoundaryEventArgs] { return s.wordBoundary }

// SpeakText synthesizes text. The result carries the complete audio.
func (s *Synthesizer) SpeakText(text string) (*async.Future[SynthesisResult], error) {
	return start(s.obj, engine.OpSpeakText, text, synthesisResult)
}

// Close releases the synthesizer. See the package documentation.
func (s *Synthesizer) Close() error {
	return s.obj.closeContext(context.Background())
}

// CloseContext is Close with a bound on the drain wait.
func (s *Synthesizer) CloseContext(ctx context.Context) error {
	return s.obj.closeContext(ctx)
}

// Closed reports whether Close has been called.
func (s *Synthesizer) Closed() bool {
	return s.obj.closed()
}
