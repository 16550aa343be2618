package collector

import "sync/atomic"

// Gate admits at most one fetch at a time. A caller that cannot acquire it
// is expected to give up rather than wait.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire takes the gate if it is free and reports whether it did.
func (g *Gate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the gate. Call it exactly once per successful TryAcquire,
// normally with defer.
func (g *Gate) Release() {
	g.busy.Store(false)
}

// Busy reports whether a fetch currently holds the gate.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}
