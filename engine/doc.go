// Package engine defines the narrow call interface between the binding
// and a speech engine.
//
// An engine is an opaque runtime that owns its own threads. The binding
// talks to it through five primitives:
//
//	Create           - allocate a native object (recognizer, synthesizer, transcriber)
//	SetEventCallback - attach one callback per event stream of an object
//	Start            - begin an operation; the engine reports its outcome
//	                   through a CompletionCallback
//	Release          - free a native object; once it returns the engine makes
//	                   no further callbacks for that handle
//	Close            - shut the engine down
//
// # Callbacks
//
// Event and completion callbacks run on engine goroutines, concurrently
// with the caller and with each other. Callbacks must return promptly and
// must not call back into the engine for the same handle.
//
// Completions are expected once per Start. Engines may deliver more than
// one under fault conditions; the binding ignores all but the first.
//
// # Implementations
//
//	simengine  - in-process scripted engine for tests and demos
//	wasmengine - engine logic hosted as a WebAssembly guest through wazero
package engine
