// Package simengine is an in-process speech engine that plays scripted
// sessions on its own goroutines.
//
// It treats request text as the "audio" to recognize, so tests and demos
// can drive the full callback surface without a real model:
//
//	eng := simengine.New(simengine.WithStepDelay(10 * time.Millisecond))
//	defer eng.Close(ctx)
//
// Each native object gets one engine goroutine. Every event and completion
// for that object is delivered from it, in script order, concurrently with
// the caller. Release stops the goroutine and waits for it, so no callback
// is issued after Release returns.
//
// Fault injection options (WithDuplicateCompletion, WithFailure,
// WithCompletionDelay) reproduce the engine behaviors the binding must
// tolerate.
package simengine
