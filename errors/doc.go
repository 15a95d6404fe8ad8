// Package errors provides structured error types for the speech-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the object the failure relates to, a detail message and
// an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAwait, errors.KindTimeout).
//		Object("recognizer").
//		Detail("no result after %s", d).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AlreadyClosed(errors.PhaseGate, "recognizer")
//	err := errors.CanceledByDisposal("speak-text")
//
// # Matching
//
// Error.Is matches on Phase and Kind. A target with an empty Phase matches
// on Kind alone, which is how the package sentinels work:
//
//	if errors.Is(err, errors.ErrAlreadyClosed) {
//		// object was disposed before the call
//	}
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
