package pipeline

import (
	"sync"

	"github.com/faisalnazir/AnonCam/internal/types"
)

// mailbox is a single-slot, overwrite-on-publish handoff between one
// producer goroutine and one blocked consumer goroutine, following the
// reference frame supplier's inbox: a publisher never blocks, a pending
// unconsumed item is simply replaced, and the consumer parks in
// sync.Cond.Wait until something is published or the mailbox is closed.
//
// This package pairs every publish with an admission gate held by the
// caller for the lifetime of the in-flight frame, so in practice a
// publish never actually overwrites a pending item — the gate refuses
// entry before that could happen. The overwrite behavior still matters
// as a safety net and keeps this type usable on its own.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *types.Frame
	ptsNs  int64
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// publish overwrites any pending frame and wakes the waiting consumer.
func (m *mailbox) publish(frame types.Frame, ptsNs int64) {
	m.mu.Lock()
	m.frame = &frame
	m.ptsNs = ptsNs
	m.cond.Signal()
	m.mu.Unlock()
}

// wait blocks until a frame is published or the mailbox is closed. ok is
// false once closed, signaling the consumer to exit.
func (m *mailbox) wait() (frame types.Frame, ptsNs int64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.frame == nil && !m.closed {
		m.cond.Wait()
	}
	if m.frame == nil {
		return types.Frame{}, 0, false
	}
	f, pts := *m.frame, m.ptsNs
	m.frame = nil
	return f, pts, true
}

// close wakes the blocked consumer permanently; subsequent wait calls
// return ok=false immediately.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}
