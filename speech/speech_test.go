package speech

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/engine/simengine"
	"github.com/wippyai/speech-runtime/engine/wasmengine"
	"github.com/wippyai/speech-runtime/errors"
	"github.com/wippyai/speech-runtime/event"
)

func newSim(t *testing.T, opts ...simengine.Option) *simengine.Engine {
	t.Helper()
	eng := simengine.New(opts...)
	t.Cleanup(func() { eng.Close(context.Background()) })
	return eng
}

func newRecognizer(t *testing.T, eng engine.Engine, opts ...Option) *Recognizer {
	t.Helper()
	r, err := NewRecognizer(context.Background(), eng, NewConfig().WithLanguage("en-US").WithSessionID("t"), opts...)
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecognizer_RecognizeOnce(t *testing.T) {
	eng := newSim(t)
	r := newRecognizer(t, eng)

	var mu sync.Mutex
	var partials []string
	var order []string
	r.SessionStarted().SubscribeFunc(func(SessionEventArgs) {
		mu.Lock()
		order = append(order, "session-started")
		mu.Unlock()
	})
	r.Recognizing().SubscribeFunc(func(e RecognitionEventArgs) {
		mu.Lock()
		partials = append(partials, e.Result.Text)
		mu.Unlock()
	})
	r.Recognized().SubscribeFunc(func(e RecognitionEventArgs) {
		mu.Lock()
		order = append(order, "recognized:"+e.Result.Text)
		mu.Unlock()
	})
	r.SessionStopped().SubscribeFunc(func(e SessionEventArgs) {
		mu.Lock()
		order = append(order, "session-stopped:"+e.SessionID)
		mu.Unlock()
	})

	fut, err := r.RecognizeOnce("open the door")
	if err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	res, err := fut.GetTimeout(2 * time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Text != "open the door" || res.Reason != ReasonRecognizedSpeech || res.Cancellation != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ID != "t-1-r1" {
		t.Fatalf("ID = %q", res.ID)
	}

	// Repeated reads return the identical value.
	again, err := fut.Get(context.Background())
	if err != nil || again.Text != res.Text || again.ID != res.ID {
		t.Fatalf("second read = %+v, %v", again, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(partials) != 3 || partials[2] != "open the door" {
		t.Fatalf("partials = %q", partials)
	}
	want := []string{"session-started", "recognized:open the door", "session-stopped:t-1"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("order = %q, want %q", order, want)
	}
}

func TestRecognizer_NoMatch(t *testing.T) {
	r := newRecognizer(t, newSim(t))

	fut, err := r.RecognizeOnce("")
	if err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	res, err := fut.GetTimeout(time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Reason != ReasonNoMatch {
		t.Fatalf("Reason = %s", res.Reason)
	}
}

func TestRecognizer_EngineFailure(t *testing.T) {
	boom := fmt.Errorf("model unavailable")
	r := newRecognizer(t, newSim(t, simengine.WithFailure(engine.OpRecognizeOnce, boom)))

	canceled := make(chan CanceledEventArgs, 1)
	r.Canceled().SubscribeFunc(func(e CanceledEventArgs) { canceled <- e })

	fut, err := r.RecognizeOnce("x")
	if err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	_, err = fut.GetTimeout(time.Second)
	if !errors.Is(err, errors.ErrEngineFailure) || !errors.Is(err, boom) {
		t.Fatalf("Get error = %v", err)
	}
	select {
	case e := <-canceled:
		if e.Reason != ReasonCanceled || e.ErrorDetails != boom.Error() {
			t.Fatalf("canceled args = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no canceled event")
	}
}

func TestRecognizer_StartRejected(t *testing.T) {
	rejected := fmt.Errorf("busy")
	r := newRecognizer(t, newSim(t, simengine.WithStartError(engine.OpStartContinuous, rejected)))

	fut, err := r.StartContinuous("x")
	if fut != nil || !errors.Is(err, rejected) {
		t.Fatalf("StartContinuous = %v, %v", fut, err)
	}
	if n := r.obj.bridge.Pending(); n != 0 {
		t.Fatalf("pending after rejected start = %d", n)
	}
	if n := r.obj.gate.Active(); n != 0 {
		t.Fatalf("gate uses after rejected start = %d", n)
	}
}

func TestRecognizer_Continuous(t *testing.T) {
	r := newRecognizer(t, newSim(t))

	got := make(chan string, 8)
	r.Recognized().SubscribeFunc(func(e RecognitionEventArgs) { got <- e.Result.Text })
	stopped := make(chan struct{}, 1)
	r.SessionStopped().SubscribeFunc(func(SessionEventArgs) { stopped <- struct{}{} })

	fut, err := r.StartContinuous("first phrase. second phrase")
	if err != nil {
		t.Fatalf("StartContinuous: %v", err)
	}
	if _, err := fut.GetTimeout(time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, want := range []string{"first phrase", "second phrase"} {
		select {
		case text := <-got:
			if text != want {
				t.Fatalf("recognized %q, want %q", text, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing %q", want)
		}
	}

	stop, err := r.StopContinuous()
	if err != nil {
		t.Fatalf("StopContinuous: %v", err)
	}
	if _, err := stop.GetTimeout(time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("no session-stopped")
	}
}

func TestRecognizer_ClosePendingFuture(t *testing.T) {
	eng := newSim(t, simengine.WithCompletionDelay(time.Hour))
	r, err := NewRecognizer(context.Background(), eng, nil)
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}

	fut, err := r.RecognizeOnce("never finishes")
	if err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}

	closed := make(chan error, 1)
	go func() { closed <- r.Close() }()

	_, err = fut.GetTimeout(2 * time.Second)
	if !errors.Is(err, errors.ErrCanceledByDisposal) {
		t.Fatalf("Get error = %v, want canceled by disposal", err)
	}
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	if eng.Live() != 0 {
		t.Fatalf("engine objects after Close = %d", eng.Live())
	}
}

func TestRecognizer_UseAfterClose(t *testing.T) {
	r := newRecognizer(t, newSim(t))

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !r.Closed() {
		t.Fatal("Closed = false")
	}
	if _, err := r.RecognizeOnce("x"); !errors.Is(err, errors.ErrAlreadyClosed) {
		t.Fatalf("RecognizeOnce after Close: %v", err)
	}
	if _, err := ConnectionFromRecognizer(r); !errors.Is(err, errors.ErrAlreadyClosed) {
		t.Fatalf("ConnectionFromRecognizer after Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestRecognizer_NoEventsAfterClose(t *testing.T) {
	eng := newSim(t, simengine.WithStepDelay(2*time.Millisecond))
	r := newRecognizer(t, eng)

	var after atomic.Bool
	var late atomic.Int32
	r.Recognizing().SubscribeFunc(func(RecognitionEventArgs) {
		if after.Load() {
			late.Add(1)
		}
	})

	if _, err := r.RecognizeOnce("one two three four five six seven eight nine ten"); err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	after.Store(true)
	time.Sleep(30 * time.Millisecond)

	if n := late.Load(); n != 0 {
		t.Fatalf("%d events delivered after Close returned", n)
	}
}

func TestRecognizer_CloseWaitsForHandler(t *testing.T) {
	r := newRecognizer(t, newSim(t))

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	r.SessionStarted().SubscribeFunc(func(SessionEventArgs) {
		close(entered)
		<-release
		finished.Store(true)
	})

	if _, err := r.RecognizeOnce("x"); err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	<-entered

	closed := make(chan struct{})
	go func() {
		r.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a handler was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-closed
	if !finished.Load() {
		t.Fatal("handler did not finish before Close returned")
	}
}

func TestRecognizer_CloseContextDeadline(t *testing.T) {
	r := newRecognizer(t, newSim(t))

	entered := make(chan struct{})
	release := make(chan struct{})
	r.SessionStarted().SubscribeFunc(func(SessionEventArgs) {
		close(entered)
		<-release
	})
	if _, err := r.RecognizeOnce("x"); err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.CloseContext(ctx); err != context.DeadlineExceeded {
		t.Fatalf("CloseContext = %v, want deadline exceeded", err)
	}
	if !r.Closed() {
		t.Fatal("object should be closed while draining")
	}
	close(release)
	if err := r.Close(); err != nil {
		t.Fatalf("Close after drain: %v", err)
	}
}

func TestRecognizer_HandlerFailureIsolated(t *testing.T) {
	var failures atomic.Int32
	r := newRecognizer(t, newSim(t), WithFailureHook(func(f event.Failure) {
		if !errors.Is(f.Err, errors.ErrHandlerFailure) {
			t.Errorf("failure error = %v", f.Err)
		}
		failures.Add(1)
	}))

	var second atomic.Int32
	r.Recognized().SubscribeFunc(func(RecognitionEventArgs) { panic("handler bug") })
	r.Recognized().Subscribe(func(RecognitionEventArgs) error { return fmt.Errorf("rejected") })
	r.Recognized().SubscribeFunc(func(RecognitionEventArgs) { second.Add(1) })

	fut, err := r.RecognizeOnce("hello")
	if err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	if _, err := fut.GetTimeout(time.Second); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second.Load() != 1 {
		t.Fatalf("later handler ran %d times", second.Load())
	}
	if failures.Load() != 2 {
		t.Fatalf("failures = %d", failures.Load())
	}
	stats := r.Recognized().Stats()
	if stats.Panicked != 1 || stats.Failed != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRecognizer_DuplicateCompletionIgnored(t *testing.T) {
	r := newRecognizer(t, newSim(t, simengine.WithDuplicateCompletion()))

	for i := 0; i < 3; i++ {
		fut, err := r.RecognizeOnce("same")
		if err != nil {
			t.Fatalf("RecognizeOnce: %v", err)
		}
		if _, err := fut.GetTimeout(time.Second); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	// Each duplicate would otherwise exit the gate a second time and panic.
	time.Sleep(10 * time.Millisecond)
	if n := r.obj.gate.Active(); n != 0 {
		t.Fatalf("gate uses = %d", n)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRecognizer_AwaitTimeoutLeavesFuturePending(t *testing.T) {
	r := newRecognizer(t, newSim(t, simengine.WithCompletionDelay(50*time.Millisecond)))

	fut, err := r.RecognizeOnce("slow")
	if err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	if _, err := fut.GetTimeout(5 * time.Millisecond); !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("short wait = %v, want timeout", err)
	}
	res, err := fut.GetTimeout(2 * time.Second)
	if err != nil || res.Text != "slow" {
		t.Fatalf("second wait = %+v, %v", res, err)
	}
}

func TestRecognizer_ConcurrentClose(t *testing.T) {
	r := newRecognizer(t, newSim(t))

	var wg sync.WaitGroup
	var errs atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Close(); err != nil {
				errs.Add(1)
			}
		}()
	}
	wg.Wait()
	if errs.Load() != 0 {
		t.Fatalf("%d Close calls failed", errs.Load())
	}
}

func TestConnection(t *testing.T) {
	eng := newSim(t)
	r, err := NewRecognizer(context.Background(), eng, nil)
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}

	conn, err := ConnectionFromRecognizer(r)
	if err != nil {
		t.Fatalf("ConnectionFromRecognizer: %v", err)
	}
	same, _ := ConnectionFromRecognizer(r)
	if same != conn {
		t.Fatal("expected the same connection")
	}

	var connected, disconnected atomic.Int32
	conn.Connected().SubscribeFunc(func(ConnectionEventArgs) { connected.Add(1) })
	conn.Disconnected().SubscribeFunc(func(ConnectionEventArgs) { disconnected.Add(1) })

	fut, _ := r.RecognizeOnce("hi")
	if _, err := fut.GetTimeout(time.Second); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if connected.Load() != 1 {
		t.Fatalf("connected = %d", connected.Load())
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if disconnected.Load() != 1 {
		t.Fatalf("disconnected = %d", disconnected.Load())
	}
	if !conn.Closed() {
		t.Fatal("connection should close with its recognizer")
	}
}

func TestConnection_CloseIndependently(t *testing.T) {
	r := newRecognizer(t, newSim(t))

	conn, err := ConnectionFromRecognizer(r)
	if err != nil {
		t.Fatalf("ConnectionFromRecognizer: %v", err)
	}
	var connected atomic.Int32
	conn.Connected().SubscribeFunc(func(ConnectionEventArgs) { connected.Add(1) })
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fut, _ := r.RecognizeOnce("hi")
	if _, err := fut.GetTimeout(time.Second); err != nil {
		t.Fatalf("recognizer unusable after connection close: %v", err)
	}
	if connected.Load() != 0 {
		t.Fatal("event delivered to closed connection")
	}

	next, err := ConnectionFromRecognizer(r)
	if err != nil || next == conn {
		t.Fatalf("expected a fresh connection, got %v, %v", next, err)
	}
}

func TestSynthesizer_SpeakText(t *testing.T) {
	eng := newSim(t, simengine.WithWordDuration(100*time.Millisecond), simengine.WithSampleRate(8000))
	s, err := NewSynthesizer(context.Background(), eng, NewConfig().WithVoice("test-voice"))
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	defer s.Close()

	var words []string
	var chunks atomic.Int32
	var mu sync.Mutex
	s.WordBoundary().SubscribeFunc(func(e WordBoundaryEventArgs) {
		mu.Lock()
		words = append(words, e.Text)
		mu.Unlock()
	})
	s.Synthesizing().SubscribeFunc(func(e SynthesisEventArgs) {
		if len(e.Result.Audio) > 0 {
			chunks.Add(1)
		}
	})

	fut, err := s.SpeakText("good morning")
	if err != nil {
		t.Fatalf("SpeakText: %v", err)
	}
	res, err := fut.GetTimeout(time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Reason != ReasonSynthesizingAudioCompleted || len(res.Audio) != 3200 {
		t.Fatalf("result reason %s, %d bytes", res.Reason, len(res.Audio))
	}
	if res.AudioDuration != 200*time.Millisecond {
		t.Fatalf("AudioDuration = %s", res.AudioDuration)
	}

	mu.Lock()
	defer mu.Unlock()
	if fmt.Sprint(words) != "[good morning]" || chunks.Load() != 2 {
		t.Fatalf("words = %q, chunks = %d", words, chunks.Load())
	}
}

func TestSynthesizer_Canceled(t *testing.T) {
	s, err := NewSynthesizer(context.Background(), newSim(t), nil)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	defer s.Close()

	canceled := make(chan SynthesisEventArgs, 1)
	s.SynthesisCanceled().SubscribeFunc(func(e SynthesisEventArgs) { canceled <- e })

	fut, err := s.SpeakText("")
	if err != nil {
		t.Fatalf("SpeakText: %v", err)
	}
	res, err := fut.GetTimeout(time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Reason != ReasonCanceled || res.Cancellation == nil || res.Cancellation.ErrorCode != 2 {
		t.Fatalf("result = %+v", res)
	}
	e := <-canceled
	if e.Result.Cancellation == nil {
		t.Fatal("canceled event without details")
	}
}

func TestTranscriber(t *testing.T) {
	tr, err := NewTranscriber(context.Background(), newSim(t), nil)
	if err != nil {
		t.Fatalf("NewTranscriber: %v", err)
	}
	defer tr.Close()

	segments := make(chan string, 4)
	tr.Transcribed().SubscribeFunc(func(e RecognitionEventArgs) { segments <- e.Result.Text })

	fut, err := tr.StartTranscribing("hello there. how are you")
	if err != nil {
		t.Fatalf("StartTranscribing: %v", err)
	}
	if _, err := fut.GetTimeout(time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, want := range []string{"hello there", "how are you"} {
		select {
		case got := <-segments:
			if got != want {
				t.Fatalf("segment %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing segment %q", want)
		}
	}
	stop, err := tr.StopTranscribing()
	if err != nil {
		t.Fatalf("StopTranscribing: %v", err)
	}
	if _, err := stop.GetTimeout(time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestRecognizer_WasmEngine(t *testing.T) {
	ctx := context.Background()
	eng, err := wasmengine.NewFromFile(ctx, "../engine/wasmengine/testdata/echo.wasm")
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	defer eng.Close(ctx)

	r, err := NewRecognizer(ctx, eng, nil)
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}
	defer r.Close()

	recognized := make(chan string, 1)
	r.Recognized().SubscribeFunc(func(e RecognitionEventArgs) { recognized <- e.Result.Text })

	fut, err := r.RecognizeOnce("through the guest")
	if err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	res, err := fut.GetTimeout(5 * time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Text != "through the guest" {
		t.Fatalf("Text = %q", res.Text)
	}
	if got := <-recognized; got != "through the guest" {
		t.Fatalf("recognized event = %q", got)
	}
}

func TestConfig(t *testing.T) {
	cfg := NewConfig().
		WithLanguage("de-DE").
		WithVoice("anna").
		WithEndpointSilence(750 * time.Millisecond).
		WithProperty("custom", "1")

	if cfg.Language() != "de-DE" || cfg.Voice() != "anna" {
		t.Fatalf("language %q voice %q", cfg.Language(), cfg.Voice())
	}
	props := cfg.Properties()
	if props[engine.PropEndpointSilence] != "750" || props["custom"] != "1" {
		t.Fatalf("props = %v", props)
	}
	props["custom"] = "changed"
	if cfg.Property("custom") != "1" {
		t.Fatal("Properties must return a copy")
	}
	cfg.WithProperty("custom", "")
	if cfg.Property("custom") != "" {
		t.Fatal("empty value should remove the property")
	}

	var nilCfg *Config
	if nilCfg.Language() != "" || len(nilCfg.Properties()) != 0 {
		t.Fatal("nil config should be empty")
	}
}
