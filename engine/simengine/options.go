package simengine

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/engine"
)

type options struct {
	logger            *zap.Logger
	failures          map[engine.Operation]error
	startErrors       map[engine.Operation]error
	stepDelay         time.Duration
	completionDelay   time.Duration
	wordDuration      time.Duration
	sampleRate        int
	queueSize         int
	duplicateComplete bool
}

func defaultOptions() options {
	return options{
		logger:       engine.Logger(),
		failures:     make(map[engine.Operation]error),
		startErrors:  make(map[engine.Operation]error),
		wordDuration: 300 * time.Millisecond,
		sampleRate:   16000,
		queueSize:    64,
	}
}

// Option configures the simulated engine.
type Option func(*options)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStepDelay pauses the engine goroutine between consecutive events.
func WithStepDelay(d time.Duration) Option {
	return func(o *options) {
		o.stepDelay = d
	}
}

// WithCompletionDelay pauses before delivering each completion.
func WithCompletionDelay(d time.Duration) Option {
	return func(o *options) {
		o.completionDelay = d
	}
}

// WithWordDuration sets the audio time attributed to each word.
func WithWordDuration(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.wordDuration = d
		}
	}
}

// WithSampleRate sets the sample rate of synthesized PCM.
func WithSampleRate(hz int) Option {
	return func(o *options) {
		if hz > 0 {
			o.sampleRate = hz
		}
	}
}

// WithDuplicateCompletion makes the engine deliver every completion twice.
func WithDuplicateCompletion() Option {
	return func(o *options) {
		o.duplicateComplete = true
	}
}

// WithFailure makes op fail inside the engine: a canceled event is emitted
// and the completion carries err.
func WithFailure(op engine.Operation, err error) Option {
	return func(o *options) {
		o.failures[op] = err
	}
}

// WithStartError makes Start reject op synchronously with err.
func WithStartError(op engine.Operation, err error) Option {
	return func(o *options) {
		o.startErrors[op] = err
	}
}
