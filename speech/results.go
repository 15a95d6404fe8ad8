package speech

import (
	"time"

	"github.com/wippyai/speech-runtime/engine"
)

// ResultReason is the outcome of a recognition or synthesis.
type ResultReason = engine.Reason

const (
	ReasonRecognizingSpeech          = engine.ReasonRecognizingSpeech
	ReasonRecognizedSpeech           = engine.ReasonRecognizedSpeech
	ReasonNoMatch                    = engine.ReasonNoMatch
	ReasonCanceled                   = engine.ReasonCanceled
	ReasonSynthesizingAudio          = engine.ReasonSynthesizingAudio
	ReasonSynthesizingAudioStarted   = engine.ReasonSynthesizingAudioStarted
	ReasonSynthesizingAudioCompleted = engine.ReasonSynthesizingAudioCompleted
)

// CancellationDetails explains a canceled result.
type CancellationDetails struct {
	ErrorDetails string
	ErrorCode    int
	Reason       ResultReason
}

// RecognitionResult is a partial or final recognition.
type RecognitionResult struct {
	Cancellation *CancellationDetails
	ID           string
	Text         string
	Offset       time.Duration
	Duration     time.Duration
	Reason       ResultReason
}

// SynthesisResult is the outcome of one SpeakText.
type SynthesisResult struct {
	Cancellation  *CancellationDetails
	ID            string
	Audio         []byte
	AudioDuration time.Duration
	Reason        ResultReason
}

// SessionEventArgs is delivered on session and speech boundary streams.
type SessionEventArgs struct {
	SessionID string
	Offset    time.Duration
}

// RecognitionEventArgs is delivered on recognizing/recognized and
// transcribing/transcribed streams.
type RecognitionEventArgs struct {
	SessionID string
	Result    RecognitionResult
}

// CanceledEventArgs is delivered when the engine cancels recognition.
type CanceledEventArgs struct {
	SessionID string
	CancellationDetails
}

// SynthesisEventArgs is delivered on synthesis streams.
type SynthesisEventArgs struct {
	Result SynthesisResult
}

// WordBoundaryEventArgs marks one spoken word.
type WordBoundaryEventArgs struct {
	Text     string
	Offset   time.Duration
	Duration time.Duration
}

// ConnectionEventArgs is delivered on connected/disconnected streams.
type ConnectionEventArgs struct {
	SessionID string
}

func cancellation(reason engine.Reason, code int, details string) *CancellationDetails {
	if reason != engine.ReasonCanceled {
		return nil
	}
	return &CancellationDetails{Reason: reason, ErrorCode: code, ErrorDetails: details}
}

func sessionArgs(ev engine.Event) SessionEventArgs {
	return SessionEventArgs{SessionID: ev.SessionID, Offset: ev.Offset}
}

func recognitionArgs(ev engine.Event) RecognitionEventArgs {
	return RecognitionEventArgs{
		SessionID: ev.SessionID,
		Result: RecognitionResult{
			ID:           ev.ResultID,
			Text:         ev.Text,
			Offset:       ev.Offset,
			Duration:     ev.Duration,
			Reason:       ev.Reason,
			Cancellation: cancellation(ev.Reason, ev.ErrorCode, ev.ErrorDetails),
		},
	}
}

func canceledArgs(ev engine.Event) CanceledEventArgs {
	return CanceledEventArgs{
		SessionID: ev.SessionID,
		CancellationDetails: CancellationDetails{
			Reason:       engine.ReasonCanceled,
			ErrorCode:    ev.ErrorCode,
			ErrorDetails: ev.ErrorDetails,
		},
	}
}

func synthesisArgs(ev engine.Event) SynthesisEventArgs {
	return SynthesisEventArgs{Result: SynthesisResult{
		ID:            ev.ResultID,
		Audio:         ev.Audio,
		AudioDuration: ev.Duration,
		Reason:        ev.Reason,
		Cancellation:  cancellation(ev.Reason, ev.ErrorCode, ev.ErrorDetails),
	}}
}

func wordBoundaryArgs(ev engine.Event) WordBoundaryEventArgs {
	return WordBoundaryEventArgs{Text: ev.Text, Offset: ev.Offset, Duration: ev.Duration}
}

func connectionArgs(ev engine.Event) ConnectionEventArgs {
	return ConnectionEventArgs{SessionID: ev.SessionID}
}

func recognitionResult(c engine.Completion) RecognitionResult {
	return RecognitionResult{
		ID:           c.ResultID,
		Text:         c.Text,
		Offset:       c.Offset,
		Duration:     c.Duration,
		Reason:       c.Reason,
		Cancellation: cancellation(c.Reason, c.ErrorCode, c.ErrorDetails),
	}
}

func synthesisResult(c engine.Completion) SynthesisResult {
	return SynthesisResult{
		ID:            c.ResultID,
		Audio:         c.Audio,
		AudioDuration: c.Duration,
		Reason:        c.Reason,
		Cancellation:  cancellation(c.Reason, c.ErrorCode, c.ErrorDetails),
	}
}
