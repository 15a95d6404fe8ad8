// Package async turns the engine's "start, then call back once" pattern
// into awaitable futures.
//
// A Bridge belongs to one engine-backed object and shares its
// lifecycle.Gate. Start enters the gate, hands the engine a Completion and
// returns a Future; the gate use is held until the future resolves, so the
// object's Close cannot finish while an operation is outstanding:
//
//	bridge := async.NewBridge(gate)
//
//	fut, err := async.Start(bridge, func(done async.Completion[string]) error {
//		return eng.Start(handle, req, func(c engine.Completion) {
//			done(c.Text, c.Err)
//		})
//	})
//	if err != nil {
//		return err // errors.ErrAlreadyClosed or the engine's start error
//	}
//	text, err := fut.GetTimeout(5 * time.Second)
//
// # Single delivery
//
// The first call to a Completion wins. Later calls, which some engines make
// under fault conditions, are ignored and report false.
//
// # Disposal
//
// When the gate closes, every future still pending resolves to
// errors.ErrCanceledByDisposal before the gate's drain wait, so no caller
// is left blocked on a torn-down object.
//
// # Waiting
//
// Get and GetTimeout block until the value is written or the wait gives
// up. Giving up leaves the future untouched; it can be awaited again and
// every read after resolution returns the same value.
package async
