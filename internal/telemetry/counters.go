package telemetry

import "sync/atomic"

// Counters aggregates the drop taxonomy from the error handling design:
// transient frame errors, backpressure drops, resource exhaustion, ring
// detachment, and fatal transitions. A single registry replaces the
// scattered per-component drop counters the reference implementation
// keeps on each worker/stream struct.
type Counters struct {
	TransientErrors     uint64
	BackpressureDrops   uint64
	ResourceExhaustions uint64
	RingDetachDrops     uint64
	FatalTransitions    uint64
}

func (c *Counters) IncTransient()     { atomic.AddUint64(&c.TransientErrors, 1) }
func (c *Counters) IncBackpressure()  { atomic.AddUint64(&c.BackpressureDrops, 1) }
func (c *Counters) IncResourceExhaustion() { atomic.AddUint64(&c.ResourceExhaustions, 1) }
func (c *Counters) IncRingDetach()    { atomic.AddUint64(&c.RingDetachDrops, 1) }
func (c *Counters) IncFatal()         { atomic.AddUint64(&c.FatalTransitions, 1) }

// Snapshot returns a copy of the current counter values, safe to read
// concurrently with the Inc* methods.
func (c *Counters) Snapshot() Counters {
	return Counters{
		TransientErrors:     atomic.LoadUint64(&c.TransientErrors),
		BackpressureDrops:   atomic.LoadUint64(&c.BackpressureDrops),
		ResourceExhaustions: atomic.LoadUint64(&c.ResourceExhaustions),
		RingDetachDrops:     atomic.LoadUint64(&c.RingDetachDrops),
		FatalTransitions:    atomic.LoadUint64(&c.FatalTransitions),
	}
}
