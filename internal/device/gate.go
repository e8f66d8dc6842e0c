package device

import "sync/atomic"

// Gate records whether the capture device completed initialization. It is an
// owned, injected object rather than a package global so tests can run
// independent gates in parallel. Reads and writes are atomic with
// last-writer-wins semantics; nothing blocks on it.
type Gate struct {
	ready atomic.Bool
}

// NewGate returns a gate in the NotReady state.
func NewGate() *Gate {
	return &Gate{}
}

// Ready reports whether the device finished a successful init.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

func (g *Gate) set(ready bool) {
	g.ready.Store(ready)
}
