package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/speech-runtime/config"
	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/engine/simengine"
	"github.com/wippyai/speech-runtime/engine/wasmengine"
	"github.com/wippyai/speech-runtime/event"
	"github.com/wippyai/speech-runtime/speech"
)

// Modes accepted by -mode.
const (
	modeRecognize  = "recognize"
	modeContinuous = "continuous"
	modeTranscribe = "transcribe"
	modeSpeak      = "speak"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg.RegisterFlags(flag.CommandLine)
	var (
		mode        = flag.String("mode", modeRecognize, "operation: recognize|continuous|transcribe|speak")
		text        = flag.String("text", "", "input text (utterance to recognize or text to speak)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		// The TUI owns the screen; keep logs off it.
		if err := runInteractive(ctx, cfg, zap.NewNop()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *text == "" && flag.NArg() > 0 {
		*text = strings.Join(flag.Args(), " ")
	}
	if *text == "" {
		fmt.Fprintln(os.Stderr, "Usage: run [-engine sim|wasm] [-wasm file.wasm] -mode recognize|continuous|transcribe|speak -text \"...\"")
		fmt.Fprintln(os.Stderr, "       run -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger, *mode, *text); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newEngine builds the engine selected by cfg.
func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (engine.Engine, error) {
	switch cfg.Engine {
	case config.EngineWasm:
		opts := []wasmengine.Option{wasmengine.WithLogger(logger)}
		if cfg.MemoryPages > 0 {
			opts = append(opts, wasmengine.WithMemoryLimitPages(cfg.MemoryPages))
		}
		eng, err := wasmengine.NewFromFile(ctx, cfg.WasmModule, opts...)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cfg.WasmModule, err)
		}
		return eng, nil
	default:
		return simengine.New(simengine.WithLogger(logger), simengine.WithStepDelay(cfg.StepDelay)), nil
	}
}

func speechConfig(cfg *config.Config) *speech.Config {
	return speech.NewConfig().
		WithLanguage(cfg.Language).
		WithVoice(cfg.Voice).
		WithSessionID(cfg.SessionID).
		WithWordTiming(true)
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, mode, text string) error {
	eng, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close(context.Background())

	opts := []speech.Option{
		speech.WithLogger(logger),
		speech.WithFailureHook(func(f event.Failure) {
			fmt.Fprintf(os.Stderr, "handler failed on %s: %v\n", f.Stream, f.Err)
		}),
	}
	out := func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}

	switch mode {
	case modeRecognize, modeContinuous:
		return recognize(ctx, eng, cfg, opts, out, mode == modeContinuous, text)
	case modeTranscribe:
		return transcribe(ctx, eng, cfg, opts, out, text)
	case modeSpeak:
		return speak(ctx, eng, cfg, opts, out, text)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

type printer func(format string, args ...any)

func recognize(ctx context.Context, eng engine.Engine, cfg *config.Config, opts []speech.Option, out printer, continuous bool, text string) error {
	rec, err := speech.NewRecognizer(ctx, eng, speechConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create recognizer: %w", err)
	}
	defer rec.Close()

	conn, err := speech.ConnectionFromRecognizer(rec)
	if err != nil {
		return fmt.Errorf("connection: %w", err)
	}
	conn.Connected().SubscribeFunc(func(speech.ConnectionEventArgs) { out("connected") })
	conn.Disconnected().SubscribeFunc(func(speech.ConnectionEventArgs) { out("disconnected") })

	rec.SessionStarted().SubscribeFunc(func(e speech.SessionEventArgs) { out("session started: %s", e.SessionID) })
	rec.SessionStopped().SubscribeFunc(func(e speech.SessionEventArgs) { out("session stopped: %s", e.SessionID) })
	rec.Recognizing().SubscribeFunc(func(e speech.RecognitionEventArgs) { out("recognizing: %s", e.Result.Text) })
	rec.Canceled().SubscribeFunc(func(e speech.CanceledEventArgs) { out("canceled: %s", e.ErrorDetails) })

	if !continuous {
		fut, err := rec.RecognizeOnce(text)
		if err != nil {
			return fmt.Errorf("recognize: %w", err)
		}
		res, err := awaitResult(ctx, fut.Get, cfg.Timeout)
		if err != nil {
			return fmt.Errorf("recognize: %w", err)
		}
		out("result [%s] %q (%s)", res.Reason, res.Text, res.Duration)
		return nil
	}

	done := make(chan struct{}, 1)
	want := int32(len(sentences(text)))
	var seen atomic.Int32
	rec.Recognized().SubscribeFunc(func(e speech.RecognitionEventArgs) {
		out("recognized: %s", e.Result.Text)
		if seen.Add(1) == want {
			done <- struct{}{}
		}
	})

	fut, err := rec.StartContinuous(text)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if _, err := awaitResult(ctx, fut.Get, cfg.Timeout); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if want > 0 {
		select {
		case <-done:
		case <-ctx.Done():
		case <-time.After(cfg.Timeout):
		}
	}
	stopFut, err := rec.StopContinuous()
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	_, err = awaitResult(ctx, stopFut.Get, cfg.Timeout)
	return err
}

func transcribe(ctx context.Context, eng engine.Engine, cfg *config.Config, opts []speech.Option, out printer, text string) error {
	tr, err := speech.NewTranscriber(ctx, eng, speechConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create transcriber: %w", err)
	}
	defer tr.Close()

	done := make(chan struct{}, 1)
	want := int32(len(sentences(text)))
	var seen atomic.Int32
	tr.Transcribing().SubscribeFunc(func(e speech.RecognitionEventArgs) { out("transcribing: %s", e.Result.Text) })
	tr.Transcribed().SubscribeFunc(func(e speech.RecognitionEventArgs) {
		out("transcribed [%s +%s]: %s", e.Result.ID, e.Result.Offset, e.Result.Text)
		if seen.Add(1) == want {
			done <- struct{}{}
		}
	})

	fut, err := tr.StartTranscribing(text)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if _, err := awaitResult(ctx, fut.Get, cfg.Timeout); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if want > 0 {
		select {
		case <-done:
		case <-ctx.Done():
		case <-time.After(cfg.Timeout):
		}
	}
	stopFut, err := tr.StopTranscribing()
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	_, err = awaitResult(ctx, stopFut.Get, cfg.Timeout)
	return err
}

func speak(ctx context.Context, eng engine.Engine, cfg *config.Config, opts []speech.Option, out printer, text string) error {
	syn, err := speech.NewSynthesizer(ctx, eng, speechConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create synthesizer: %w", err)
	}
	defer syn.Close()

	syn.SynthesisStarted().SubscribeFunc(func(speech.SynthesisEventArgs) { out("synthesis started") })
	syn.WordBoundary().SubscribeFunc(func(e speech.WordBoundaryEventArgs) { out("word %q at %s", e.Text, e.Offset) })
	syn.Synthesizing().SubscribeFunc(func(e speech.SynthesisEventArgs) { out("audio chunk: %d bytes", len(e.Result.Audio)) })
	syn.SynthesisCanceled().SubscribeFunc(func(e speech.SynthesisEventArgs) {
		if c := e.Result.Cancellation; c != nil {
			out("synthesis canceled: %s", c.ErrorDetails)
		}
	})

	fut, err := syn.SpeakText(text)
	if err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	res, err := awaitResult(ctx, fut.Get, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	out("result [%s] %d bytes, %s", res.Reason, len(res.Audio), res.AudioDuration)
	return nil
}

// awaitResult waits on get bounded by timeout and ctx.
func awaitResult[R any](ctx context.Context, get func(context.Context) (R, error), timeout time.Duration) (R, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return get(ctx)
}

// sentences mirrors how engines split continuous input into utterances.
func sentences(text string) []string {
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
