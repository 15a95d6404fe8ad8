// Package event provides typed, multi-subscriber event streams for
// engine-backed objects.
//
// Each named stream of an object (session-started, recognized, canceled,
// word-boundary, ...) is one Dispatcher. Dispatchers share the owning
// object's lifecycle.Gate, so a closed object never delivers events:
//
//	gate := lifecycle.NewNamed("recognizer")
//	recognized := event.New[Recognition]("recognized", gate)
//
//	tok := recognized.SubscribeFunc(func(r Recognition) {
//		fmt.Println(r.Text)
//	})
//	defer recognized.Unsubscribe(tok)
//
//	// called from an engine thread
//	recognized.Dispatch(Recognition{Text: "hello"})
//
// # Delivery
//
// Dispatch runs synchronously on the calling goroutine, usually the
// engine's callback thread. It iterates a snapshot of the subscribers taken
// when the dispatch began, in subscription order. Subscribing or
// unsubscribing from inside a handler affects later dispatches only.
//
// # Failure isolation
//
// A handler that returns an error or panics is recorded as a handler
// failure: it is logged, passed to the optional failure hook and then
// dropped. Remaining handlers still run and the failure never reaches
// the caller of Dispatch.
package event
