package simengine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/errors"
)

type task struct {
	done engine.CompletionCallback
	req  engine.Request
}

// object is one native object and its engine goroutine.
type object struct {
	callbacks map[engine.Stream]engine.EventCallback
	props     engine.Properties
	opts      *options
	logger    *zap.Logger
	queue     chan task
	quit      chan struct{}
	exited    chan struct{}
	sessionID string
	senders   sync.WaitGroup
	stopOnce  sync.Once
	mu        sync.Mutex
	sendMu    sync.Mutex
	handle    engine.Handle
	results   int
	sessions  int
	kind      engine.ObjectKind
	connected bool
	running   bool
	stopping  bool
	finished  bool
}

func newObject(kind engine.ObjectKind, props engine.Properties, opts *options, logger *zap.Logger) *object {
	return &object{
		kind:      kind,
		props:     props,
		opts:      opts,
		logger:    logger,
		callbacks: make(map[engine.Stream]engine.EventCallback),
		queue:     make(chan task, opts.queueSize),
		quit:      make(chan struct{}),
		exited:    make(chan struct{}),
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

// enqueue hands t to the engine goroutine. A task accepted here always
// completes: tasks still queued at release fail with AlreadyClosed.
func (o *object) enqueue(t task) error {
	o.sendMu.Lock()
	if o.stopping {
		o.sendMu.Unlock()
		return errors.AlreadyClosed(errors.PhaseEngine, "native object")
	}
	o.senders.Add(1)
	o.sendMu.Unlock()
	defer o.senders.Done()

	select {
	case o.queue <- t:
		return nil
	case <-o.quit:
		return errors.AlreadyClosed(errors.PhaseEngine, "native object")
	}
}

// Drop stops the engine goroutine and waits for it to exit.
func (o *object) Drop() {
	o.stopOnce.Do(func() {
		o.sendMu.Lock()
		o.stopping = true
		o.sendMu.Unlock()
		close(o.quit)
	})
	<-o.exited
}

func (o *object) stopped() bool {
	select {
	case <-o.quit:
		return true
	default:
		return false
	}
}

// pause sleeps for d unless the object is released first.
func (o *object) pause(d time.Duration) bool {
	if d <= 0 {
		return !o.stopped()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-o.quit:
		return false
	}
}

func (o *object) run() {
	defer close(o.exited)
	defer func() {
		if o.connected {
			o.emitNow(engine.Event{Stream: engine.StreamDisconnected})
		}
	}()

	for {
		select {
		case <-o.quit:
			o.senders.Wait()
			for {
				select {
				case t := <-o.queue:
					o.abandon(t)
				default:
					return
				}
			}
		case t := <-o.queue:
			o.finished = false
			o.execute(t)
			if !o.finished && o.stopped() {
				o.abandon(t)
			}
		}
	}
}

// abandon completes a task the engine will never run because the object
// was released.
func (o *object) abandon(t task) {
	t.done(engine.Completion{
		Operation: t.req.Operation,
		Reason:    engine.ReasonCanceled,
		Err:       errors.AlreadyClosed(errors.PhaseEngine, "native object"),
	})
}

// emit delivers ev after the configured step delay. It reports false once
// the object has been released.
func (o *object) emit(ev engine.Event) bool {
	if !o.pause(o.opts.stepDelay) {
		return false
	}
	o.emitNow(ev)
	return true
}

func (o *object) emitNow(ev engine.Event) {
	o.mu.Lock()
	cb := o.callbacks[ev.Stream]
	o.mu.Unlock()
	if cb == nil {
		return
	}
	ev.Handle = o.handle
	if ev.SessionID == "" {
		ev.SessionID = o.sessionID
	}
	cb(ev)
}

func (o *object) complete(t task, c engine.Completion) {
	if !o.pause(o.opts.completionDelay) {
		return
	}
	c.Operation = t.req.Operation
	o.finished = true
	t.done(c)
	if o.opts.duplicateComplete {
		t.done(c)
	}
}

func (o *object) execute(t task) {
	if !o.connected {
		o.connected = true
		if !o.emit(engine.Event{Stream: engine.StreamConnected}) {
			return
		}
	}

	if err, ok := o.opts.failures[t.req.Operation]; ok {
		o.fail(t, err)
		return
	}

	o.logger.Debug("executing", zap.Stringer("op", t.req.Operation))

	switch t.req.Operation {
	case engine.OpRecognizeOnce:
		o.recognizeOnce(t)
	case engine.OpStartContinuous:
		o.startSession(t, engine.StreamRecognizing, engine.StreamRecognized)
	case engine.OpStartTranscribing:
		o.startSession(t, engine.StreamTranscribing, engine.StreamTranscribed)
	case engine.OpStopContinuous, engine.OpStopTranscribing:
		o.stopSession(t)
	case engine.OpSpeakText:
		o.speak(t)
	}
}

func (o *object) fail(t task, err error) {
	stream := engine.StreamCanceled
	if t.req.Operation == engine.OpSpeakText {
		stream = engine.StreamSynthesisCanceled
	}
	if !o.emit(engine.Event{
		Stream:       stream,
		Reason:       engine.ReasonCanceled,
		ErrorCode:    1,
		ErrorDetails: err.Error(),
	}) {
		return
	}
	o.complete(t, engine.Completion{
		Reason:       engine.ReasonCanceled,
		ErrorCode:    1,
		ErrorDetails: err.Error(),
		Err:          errors.Engine(t.req.Operation.String(), err),
	})
}

func (o *object) openSession() bool {
	o.sessions++
	o.sessionID = o.props.Get(engine.PropSessionID, "sim")
	o.sessionID = fmt.Sprintf("%s-%d", o.sessionID, o.sessions)
	return o.emit(engine.Event{Stream: engine.StreamSessionStarted})
}

func (o *object) nextResultID() string {
	o.results++
	return fmt.Sprintf("%s-r%d", o.sessionID, o.results)
}

func (o *object) recognizeOnce(t task) {
	if !o.openSession() {
		return
	}
	c, ok := o.utterance(t.req.Text, 0, engine.StreamRecognizing, engine.StreamRecognized)
	if !ok {
		return
	}
	if !o.emit(engine.Event{Stream: engine.StreamSessionStopped}) {
		return
	}
	o.complete(t, c)
}

// utterance plays one recognized phrase starting at audio offset base and
// returns the final result.
func (o *object) utterance(text string, base time.Duration, partial, final engine.Stream) (engine.Completion, bool) {
	words := strings.Fields(text)
	id := o.nextResultID()

	if len(words) == 0 {
		c := engine.Completion{ResultID: id, Offset: base, Reason: engine.ReasonNoMatch}
		ok := o.emit(engine.Event{Stream: final, ResultID: id, Offset: base, Reason: engine.ReasonNoMatch})
		return c, ok
	}

	if !o.emit(engine.Event{Stream: engine.StreamSpeechStartDetected, Offset: base}) {
		return engine.Completion{}, false
	}
	wd := o.opts.wordDuration
	for i := range words {
		if !o.emit(engine.Event{
			Stream:   partial,
			ResultID: id,
			Text:     strings.Join(words[:i+1], " "),
			Offset:   base,
			Duration: time.Duration(i+1) * wd,
			Reason:   engine.ReasonRecognizingSpeech,
		}) {
			return engine.Completion{}, false
		}
	}

	c := engine.Completion{
		ResultID: id,
		Text:     strings.Join(words, " "),
		Offset:   base,
		Duration: time.Duration(len(words)) * wd,
		Reason:   engine.ReasonRecognizedSpeech,
	}
	if !o.emit(engine.Event{
		Stream:   final,
		ResultID: id,
		Text:     c.Text,
		Offset:   c.Offset,
		Duration: c.Duration,
		Reason:   c.Reason,
	}) {
		return engine.Completion{}, false
	}
	if !o.emit(engine.Event{Stream: engine.StreamSpeechEndDetected, Offset: base + c.Duration}) {
		return engine.Completion{}, false
	}
	return c, true
}

func (o *object) startSession(t task, partial, final engine.Stream) {
	if o.running {
		o.complete(t, engine.Completion{
			Err: errors.InvalidInput(errors.PhaseEngine, "session already running"),
		})
		return
	}
	o.running = true
	if !o.openSession() {
		return
	}
	o.complete(t, engine.Completion{})

	var offset time.Duration
	for _, sentence := range splitSentences(t.req.Text) {
		c, ok := o.utterance(sentence, offset, partial, final)
		if !ok {
			return
		}
		offset += c.Duration + o.opts.wordDuration
	}
}

func (o *object) stopSession(t task) {
	if o.running {
		o.running = false
		if !o.emit(engine.Event{Stream: engine.StreamSessionStopped}) {
			return
		}
	}
	o.complete(t, engine.Completion{})
}

func (o *object) speak(t task) {
	words := strings.Fields(t.req.Text)
	id := fmt.Sprintf("synth-%d", o.results+1)
	o.results++

	if len(words) == 0 {
		details := "no text to synthesize"
		if !o.emit(engine.Event{
			Stream:       engine.StreamSynthesisCanceled,
			ResultID:     id,
			Reason:       engine.ReasonCanceled,
			ErrorCode:    2,
			ErrorDetails: details,
		}) {
			return
		}
		o.complete(t, engine.Completion{
			ResultID:     id,
			Reason:       engine.ReasonCanceled,
			ErrorCode:    2,
			ErrorDetails: details,
		})
		return
	}

	if !o.emit(engine.Event{Stream: engine.StreamSynthesisStarted, ResultID: id, Reason: engine.ReasonSynthesizingAudioStarted}) {
		return
	}

	wd := o.opts.wordDuration
	var audio []byte
	for i, w := range words {
		if !o.emit(engine.Event{
			Stream:   engine.StreamWordBoundary,
			ResultID: id,
			Text:     w,
			Offset:   time.Duration(i) * wd,
			Duration: wd,
		}) {
			return
		}
		chunk := synthesize(w, wd, o.opts.sampleRate)
		audio = append(audio, chunk...)
		if !o.emit(engine.Event{
			Stream:   engine.StreamSynthesizing,
			ResultID: id,
			Audio:    chunk,
			Reason:   engine.ReasonSynthesizingAudio,
		}) {
			return
		}
	}

	c := engine.Completion{
		ResultID: id,
		Text:     strings.Join(words, " "),
		Audio:    audio,
		Duration: time.Duration(len(words)) * wd,
		Reason:   engine.ReasonSynthesizingAudioCompleted,
	}
	if !o.emit(engine.Event{
		Stream:   engine.StreamSynthesisCompleted,
		ResultID: id,
		Audio:    audio,
		Duration: c.Duration,
		Reason:   c.Reason,
	}) {
		return
	}
	o.complete(t, c)
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
