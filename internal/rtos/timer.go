// Package rtos packages the RTOS analogues the PMC's components are built
// on: a re-armable timer helper, a bounded one-shot result channel, a
// generic priority queue, and a watchdog slot stub. None of this is
// PMC-specific; it is the concurrency glue component (§4.7) shared by IMT,
// SP, PSE, and the supervisor that wires them together.
package rtos

import "time"

// ResetTimer safely reprograms a running or already-fired timer, draining
// a stale tick first so Reset never races a pending send on t.C.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

// DrainTimer removes a pending tick without blocking.
func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
