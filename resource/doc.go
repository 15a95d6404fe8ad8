// Package resource provides the handle tables engines use to map native
// handles to their per-object state.
//
// Handles are opaque, never zero, and carry a generation so that a stale
// handle for a released object never resolves to a newer object reusing
// the same slot:
//
//	table := resource.NewTable[*session]()
//
//	h, err := table.Insert(s)
//	s, ok := table.Get(h)
//	s, ok = table.Remove(h) // Drop is called if the value implements Dropper
//
//	// a second Remove, or a Get with h, now fails
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(func(e resource.Event) {
//		if e.Type == resource.EventDropped {
//			log.Printf("handle %d released", e.Handle)
//		}
//	})
//
// Close drops every remaining value and rejects further inserts.
package resource
