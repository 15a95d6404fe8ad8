package engine

import "strings"

// Stream names one event stream of a native object.
type Stream uint8

const (
	StreamSessionStarted Stream = iota + 1
	StreamSessionStopped
	StreamSpeechStartDetected
	StreamSpeechEndDetected
	StreamRecognizing
	StreamRecognized
	StreamCanceled
	StreamConnected
	StreamDisconnected
	StreamSynthesisStarted
	StreamSynthesizing
	StreamSynthesisCompleted
	StreamSynthesisCanceled
	StreamWordBoundary
	StreamTranscribing
	StreamTranscribed

	streamCount
)

var streamNames = [...]string{
	StreamSessionStarted:      "session-started",
	StreamSessionStopped:      "session-stopped",
	StreamSpeechStartDetected: "speech-start-detected",
	StreamSpeechEndDetected:   "speech-end-detected",
	StreamRecognizing:         "recognizing",
	StreamRecognized:          "recognized",
	StreamCanceled:            "canceled",
	StreamConnected:           "connected",
	StreamDisconnected:        "disconnected",
	StreamSynthesisStarted:    "synthesis-started",
	StreamSynthesizing:        "synthesizing",
	StreamSynthesisCompleted:  "synthesis-completed",
	StreamSynthesisCanceled:   "synthesis-canceled",
	StreamWordBoundary:        "word-boundary",
	StreamTranscribing:        "transcribing",
	StreamTranscribed:         "transcribed",
}

func (s Stream) String() string {
	if s > 0 && s < streamCount {
		return streamNames[s]
	}
	return "unknown"
}

// Valid reports whether s is a known stream.
func (s Stream) Valid() bool {
	return s > 0 && s < streamCount
}

// Streams returns every known stream in declaration order.
func Streams() []Stream {
	out := make([]Stream, 0, streamCount-1)
	for s := Stream(1); s < streamCount; s++ {
		out = append(out, s)
	}
	return out
}

// ParseStream resolves a stream by its kebab-case name.
func ParseStream(name string) (Stream, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s := Stream(1); s < streamCount; s++ {
		if streamNames[s] == name {
			return s, true
		}
	}
	return 0, false
}

// Operation identifies what a Request asks the engine to do.
type Operation uint8

const (
	OpRecognizeOnce Operation = iota + 1
	OpStartContinuous
	OpStopContinuous
	OpSpeakText
	OpStartTranscribing
	OpStopTranscribing

	opCount
)

var operationNames = [...]string{
	OpRecognizeOnce:     "recognize-once",
	OpStartContinuous:   "start-continuous",
	OpStopContinuous:    "stop-continuous",
	OpSpeakText:         "speak-text",
	OpStartTranscribing: "start-transcribing",
	OpStopTranscribing:  "stop-transcribing",
}

func (o Operation) String() string {
	if o > 0 && o < opCount {
		return operationNames[o]
	}
	return "unknown"
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	return o > 0 && o < opCount
}

// Supports reports whether objects of kind k accept op.
func (k ObjectKind) Supports(op Operation) bool {
	switch k {
	case KindRecognizer:
		return op == OpRecognizeOnce || op == OpStartContinuous || op == OpStopContinuous
	case KindSynthesizer:
		return op == OpSpeakText
	case KindTranscriber:
		return op == OpStartTranscribing || op == OpStopTranscribing
	}
	return false
}
