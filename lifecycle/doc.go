// Package lifecycle provides the gate that guards engine-backed objects
// against use after disposal.
//
// Engine callbacks arrive on threads the binding does not control and may
// keep arriving until the engine acknowledges a release. Every such callback,
// and every caller operation, enters the object's Gate before touching it
// and exits when done. Close flips the gate to closed and waits for all
// in-flight uses to drain:
//
//	g := lifecycle.New()
//
//	// engine callback
//	if err := g.Enter(); err != nil {
//		return // object is closing, drop the callback
//	}
//	defer g.Exit()
//
//	// dispose path
//	g.Close() // blocks until every Enter has a matching Exit
//
// # States
//
// A gate is Open until the first Close and Closed afterwards. Closed is
// terminal. Enter fails with errors.ErrAlreadyClosed once the gate is
// closed; Close is idempotent.
//
// # Close hooks
//
// OnClose registers functions run by the first Close after the closed flag
// is set and before the drain wait. Owners use hooks to resolve work that
// holds a gate use (pending async operations) so the drain can finish.
package lifecycle
