// Package gate implements the single-permit, non-blocking admission
// gates that guard the processing and UI-preview stages of the frame
// pipeline: "try to take the permit; on success do the work and release
// it on completion; on failure, drop the frame immediately."
//
// This is a narrower cousin of the mailbox-slot pattern used elsewhere in
// the pipeline: where a mailbox overwrites a pending item and lets a
// blocked consumer wake up to it, a Gate has no consumer to wake and no
// item to hold — it exists purely to bound in-flight work to one frame at
// a time without ever blocking the producer.
package gate

import "sync/atomic"

// Gate is a single-permit admission gate. Zero value is ready to use
// (unlocked).
type Gate struct {
	held atomic.Bool
}

// TryAcquire attempts to take the permit without blocking. It reports
// whether the permit was acquired; the caller must call Release exactly
// once for every successful TryAcquire, on every exit path (including
// panics, via defer).
func (g *Gate) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release returns the permit. Calling Release without a matching
// successful TryAcquire is a caller bug (it would let two holders in at
// once) and is not guarded against, matching the pipeline's single-owner
// discipline for permits.
func (g *Gate) Release() {
	g.held.Store(false)
}

// Held reports whether the permit is currently taken, for diagnostics
// only; never gate correctness decisions on it, since it can change
// between the check and any subsequent action.
func (g *Gate) Held() bool {
	return g.held.Load()
}
