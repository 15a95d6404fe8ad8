// Package wasmengine hosts speech engine logic compiled to WebAssembly.
//
// The guest module is the opaque native engine: the host hands it requests
// and it reports events and completions through imported host functions.
// The runtime is wazero, so no cgo is involved.
//
// # Guest ABI
//
// The guest must export:
//
//	memory                                                  linear memory
//	speech_alloc(size i32) -> i32                           scratch buffer for request text
//	speech_start(handle i64, op i32, kind i32, ptr i32, len i32) -> i32
//
// and may import from module "speech":
//
//	event(handle i64, stream i32, ptr i32, len i32)
//	complete(handle i64, op i32, status i32, ptr i32, len i32)
//
// kind is the engine.Operation code, stream the engine.Stream code and op
// the id the host assigned to the Start call. A non-zero speech_start
// result rejects the request. Completion status 0 is success, 1 no match,
// 2 canceled (payload holds the details); anything else is an engine error.
// For speak-text the success payload is the synthesized audio, otherwise it
// is the recognized text.
//
// # Threading
//
// wazero module instances do not support concurrent calls, so every guest
// call runs on a single engine goroutine. Host callbacks therefore fire on
// that goroutine, never on the caller's. Release and Close run their
// teardown on the same goroutine, which is what guarantees that no callback
// for a handle is in flight once Release returns.
//
// Example:
//
//	wasm, _ := os.ReadFile("engine.wasm")
//	eng, err := wasmengine.New(ctx, wasm, wasmengine.WithMemoryLimitPages(256))
//	if err != nil {
//		return err
//	}
//	defer eng.Close(ctx)
package wasmengine
