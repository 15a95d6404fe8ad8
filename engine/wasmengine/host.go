package wasmengine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/engine"
	"github.com/wippyai/speech-runtime/errors"
	"github.com/wippyai/speech-runtime/resource"
)

// instantiateHost registers the "speech" host module the guest imports.
func (e *Engine) instantiateHost(ctx context.Context) error {
	_, err := e.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.hostEvent),
			[]api.ValueType{api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{}).
		WithParameterNames("handle", "stream", "ptr", "len").
		Export("event").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.hostComplete),
			[]api.ValueType{api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{}).
		WithParameterNames("handle", "op", "status", "ptr", "len").
		Export("complete").
		Instantiate(ctx)
	return err
}

// readPayload copies a guest buffer. The view returned by wazero aliases
// guest memory and is only valid during the host call.
func readPayload(mod api.Module, ptr, length uint32) ([]byte, bool) {
	if length == 0 {
		return nil, true
	}
	view, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, true
}

func (e *Engine) hostEvent(_ context.Context, mod api.Module, stack []uint64) {
	h := engine.Handle(stack[0])
	stream := engine.Stream(api.DecodeU32(stack[1]))
	ptr, length := api.DecodeU32(stack[2]), api.DecodeU32(stack[3])

	obj, ok := e.objects.Get(resource.Handle(h))
	if !ok {
		e.logger.Debug("event for unknown handle", zap.Uint64("handle", uint64(h)))
		return
	}
	if !stream.Valid() {
		e.logger.Warn("guest emitted unknown stream", zap.Uint64("handle", uint64(h)), zap.Uint32("stream", uint32(stream)))
		return
	}
	payload, ok := readPayload(mod, ptr, length)
	if !ok {
		e.logger.Warn("event payload out of range", zap.Uint64("handle", uint64(h)), zap.Uint32("ptr", ptr), zap.Uint32("len", length))
		return
	}

	obj.emit(eventFor(h, stream, payload))
}

func eventFor(h engine.Handle, stream engine.Stream, payload []byte) engine.Event {
	ev := engine.Event{Stream: stream, Handle: h}
	switch stream {
	case engine.StreamSynthesizing, engine.StreamSynthesisCompleted:
		ev.Audio = payload
	case engine.StreamCanceled, engine.StreamSynthesisCanceled:
		ev.Reason = engine.ReasonCanceled
		ev.ErrorDetails = string(payload)
	default:
		ev.Text = string(payload)
	}
	switch stream {
	case engine.StreamRecognizing, engine.StreamTranscribing:
		ev.Reason = engine.ReasonRecognizingSpeech
	case engine.StreamRecognized, engine.StreamTranscribed:
		ev.Reason = engine.ReasonRecognizedSpeech
		if len(payload) == 0 {
			ev.Reason = engine.ReasonNoMatch
		}
	case engine.StreamSynthesisStarted:
		ev.Reason = engine.ReasonSynthesizingAudioStarted
	case engine.StreamSynthesizing:
		ev.Reason = engine.ReasonSynthesizingAudio
	case engine.StreamSynthesisCompleted:
		ev.Reason = engine.ReasonSynthesizingAudioCompleted
	}
	return ev
}

func (e *Engine) hostComplete(_ context.Context, mod api.Module, stack []uint64) {
	h := engine.Handle(stack[0])
	op := api.DecodeU32(stack[1])
	status := api.DecodeI32(stack[2])
	ptr, length := api.DecodeU32(stack[3]), api.DecodeU32(stack[4])

	obj, ok := e.objects.Get(resource.Handle(h))
	if !ok {
		return
	}
	payload, ok := readPayload(mod, ptr, length)
	if !ok {
		obj.fail(op, errors.Engine("completion payload out of range", nil))
		return
	}

	pending, ok := obj.take(op)
	if !ok {
		e.logger.Debug("completion for unknown operation", zap.Uint64("handle", uint64(h)), zap.Uint32("op", op))
		return
	}
	pending.done(completionFor(pending.op, status, payload))
}

func completionFor(op engine.Operation, status int32, payload []byte) engine.Completion {
	c := engine.Completion{Operation: op}
	switch status {
	case StatusOK:
		if op == engine.OpSpeakText {
			c.Audio = payload
			c.Reason = engine.ReasonSynthesizingAudioCompleted
		} else {
			c.Text = string(payload)
			if op == engine.OpRecognizeOnce {
				c.Reason = engine.ReasonRecognizedSpeech
			}
		}
	case StatusNoMatch:
		c.Reason = engine.ReasonNoMatch
	case StatusCanceled:
		c.Reason = engine.ReasonCanceled
		c.ErrorCode = int(status)
		c.ErrorDetails = string(payload)
	default:
		c.Err = errors.New(errors.PhaseEngine, errors.KindEngineFailure).
			Detail("guest reported status %d: %s", status, payload).
			Value(status).
			Build()
	}
	return c
}
