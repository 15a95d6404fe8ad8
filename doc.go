// Package speechruntime binds a callback-driven, multi-threaded speech
// engine to a Go API with awaitable results, multi-listener events and
// deterministic disposal.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	speechruntime/       Root package, documentation only
//	├── speech/          Recognizer, Synthesizer, Transcriber, Connection
//	├── lifecycle/       Gate guarding objects against use after disposal
//	├── event/           Typed dispatchers with handler failure isolation
//	├── async/           Bridge turning engine completions into futures
//	├── engine/          Native call interface shared by engine implementations
//	│   ├── simengine/   In-process scripted engine
//	│   └── wasmengine/  Engine hosted as a WebAssembly guest through wazero
//	├── resource/        Generation-checked handle table
//	├── errors/          Structured error types
//	└── config/          .env and environment configuration
//
// # Quick Start
//
// Recognize one utterance:
//
//	eng := simengine.New()
//	defer eng.Close(ctx)
//
//	rec, err := speech.NewRecognizer(ctx, eng, speech.NewConfig().WithLanguage("en-US"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Close()
//
//	fut, err := rec.RecognizeOnce("hello world")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := fut.GetTimeout(5 * time.Second)
//	fmt.Println(res.Text) // "hello world"
//
// # Thread Safety
//
// Engine callbacks arrive on engine goroutines. Every speech object is safe
// for concurrent use; event handlers for one object may run concurrently
// with the caller but each stream is delivered in engine order.
//
// Close may be called from any goroutine except one running a handler of
// the same object.
//
// # Disposal
//
// Close on a speech object rejects new operations, resolves pending futures
// with errors.ErrCanceledByDisposal, waits for running handlers and only
// then releases the native handle. Engines guarantee that no callback for a
// handle is delivered after its release.
package speechruntime
