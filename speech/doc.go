// Package speech exposes engine-backed recognizers, synthesizers and
// transcribers.
//
// Each object owns one native handle, a lifecycle gate shared by all of its
// event dispatchers, and an async bridge for its operations. Operations
// return futures:
//
//	rec, err := speech.NewRecognizer(ctx, eng, speech.NewConfig().WithLanguage("en-US"))
//	if err != nil {
//		return err
//	}
//	defer rec.Close()
//
//	rec.Recognizing().SubscribeFunc(func(e speech.RecognitionEventArgs) {
//		fmt.Println("partial:", e.Result.Text)
//	})
//
//	fut, err := rec.RecognizeOnce("what's the weather")
//	if err != nil {
//		return err
//	}
//	res, err := fut.GetTimeout(10 * time.Second)
//
// # Disposal
//
// Close marks the object closed, resolves every pending future with
// errors.ErrCanceledByDisposal, waits for in-flight event handlers to
// return and then releases the native handle. No handler runs after Close
// returns. Close is idempotent and safe to call concurrently.
//
// A handler must not call Close on the object that is dispatching to it:
// Close would wait for that handler to finish. Hand the call to another
// goroutine instead.
package speech
