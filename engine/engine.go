package engine

import (
	"context"
	"time"
)

// Handle identifies a native object inside an engine. Zero is never valid.
type Handle uint64

// ObjectKind selects which native object Create allocates.
type ObjectKind uint8

const (
	KindRecognizer ObjectKind = iota + 1
	KindSynthesizer
	KindTranscriber
)

func (k ObjectKind) String() string {
	switch k {
	case KindRecognizer:
		return "recognizer"
	case KindSynthesizer:
		return "synthesizer"
	case KindTranscriber:
		return "transcriber"
	default:
		return "unknown"
	}
}

// Well-known property keys.
const (
	PropLanguage         = "language"
	PropVoice            = "voice"
	PropEndpointSilence  = "endpoint-silence-ms"
	PropSegmentation     = "segmentation"
	PropOutputFormat     = "output-format"
	PropSessionID        = "session-id"
	PropEnableWordTiming = "word-timing"
)

// Properties configure a native object.
type Properties map[string]string

// Get returns the value for key or def when unset.
func (p Properties) Get(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Clone returns a copy of p.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Reason classifies a result or event outcome.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonRecognizingSpeech
	ReasonRecognizedSpeech
	ReasonNoMatch
	ReasonCanceled
	ReasonSynthesizingAudio
	ReasonSynthesizingAudioCompleted
	ReasonSynthesizingAudioStarted
	ReasonEndOfStream
	ReasonError
)

var reasonNames = [...]string{
	ReasonNone:                       "none",
	ReasonRecognizingSpeech:          "recognizing-speech",
	ReasonRecognizedSpeech:           "recognized-speech",
	ReasonNoMatch:                    "no-match",
	ReasonCanceled:                   "canceled",
	ReasonSynthesizingAudio:          "synthesizing-audio",
	ReasonSynthesizingAudioCompleted: "synthesizing-audio-completed",
	ReasonSynthesizingAudioStarted:   "synthesizing-audio-started",
	ReasonEndOfStream:                "end-of-stream",
	ReasonError:                      "error",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Event is one engine notification on a stream.
type Event struct {
	ErrorDetails string
	SessionID    string
	ResultID     string
	Text         string
	Audio        []byte
	Handle       Handle
	Offset       time.Duration
	Duration     time.Duration
	ErrorCode    int
	Stream       Stream
	Reason       Reason
}

// Request asks the engine to run one operation.
type Request struct {
	Properties Properties
	Text       string
	Operation  Operation
}

// Completion is the terminal outcome of one Start. Err reports an engine
// failure; a canceled result carries its details in ErrorCode/ErrorDetails.
type Completion struct {
	Err          error
	ResultID     string
	Text         string
	ErrorDetails string
	Audio        []byte
	Offset       time.Duration
	Duration     time.Duration
	ErrorCode    int
	Operation    Operation
	Reason       Reason
}

// EventCallback receives events for one stream of one handle.
type EventCallback func(Event)

// CompletionCallback receives the outcome of one Start.
type CompletionCallback func(Completion)

// Engine is the native call interface.
type Engine interface {
	// Create allocates a native object.
	Create(ctx context.Context, kind ObjectKind, props Properties) (Handle, error)

	// SetEventCallback attaches cb to a stream of h. A nil cb detaches.
	SetEventCallback(h Handle, stream Stream, cb EventCallback) error

	// Start begins an operation. done is invoked from an engine goroutine.
	// A non-nil error means the operation was not started and done will not run.
	Start(h Handle, req Request, done CompletionCallback) error

	// Release frees h. After Release returns no callback for h is in
	// flight or will be issued.
	Release(h Handle) error

	// Close shuts the engine down, releasing any remaining handles.
	Close(ctx context.Context) error
}
