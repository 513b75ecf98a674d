package ring

import "errors"

// ErrDetached is returned when the producer has torn down the ring (or
// the consumer has not yet observed a valid header).
var ErrDetached = errors.New("ring: detached")

// Consumer is the reader side of a ring region, living in the consumer
// process (the virtual-camera extension). It validates magic/version on
// every access rather than once at attach time, so it recovers cleanly
// if the producer restarts the session underneath it.
type Consumer struct {
	r *region
}

// Attach wraps buf as a consumer view. It does not itself validate the
// header; call Attached to check liveness before use.
func Attach(buf []byte, width, height int) *Consumer {
	return &Consumer{r: newRegion(buf, width, height)}
}

// Attached reports whether the ring currently carries a live header
// (magic/version match). If false, the ring is torn down or not yet
// initialized; the caller should retry later rather than read slots.
func (c *Consumer) Attached() bool {
	return c.r.loadMagic() == MagicValue && c.r.loadVersion() == Version
}

// AcquireRead returns the slot at the read cursor if it is marked ready,
// acquire-loading WriteIndex first so the subsequent payload read is
// ordered after the producer's release-store.
func (c *Consumer) AcquireRead() (FrameView, bool) {
	if !c.Attached() {
		return FrameView{}, false
	}
	_ = c.r.loadWriteIndex() // acquire fence: ordered before Ready/payload reads below
	read := c.r.loadReadIndex()
	if c.r.loadSlotReady(int(read)) == 0 {
		return FrameView{}, false
	}
	return c.viewOf(int(read)), true
}

// ReleaseRead clears the current slot's ready flag and advances the read
// cursor.
func (c *Consumer) ReleaseRead() {
	read := c.r.loadReadIndex()
	c.r.storeSlotReady(int(read), 0)
	c.r.storeReadIndex((read + 1) % BufferCount)
}

// PeekLatest returns the most recently submitted slot without mutating
// either cursor, for low-latency consumers that only want the newest
// frame.
func (c *Consumer) PeekLatest() (FrameView, bool) {
	if !c.Attached() {
		return FrameView{}, false
	}
	write := c.r.loadWriteIndex()
	latest := (write + BufferCount - 1) % BufferCount
	if c.r.loadSlotReady(int(latest)) == 0 {
		return FrameView{}, false
	}
	return c.viewOf(int(latest)), true
}

func (c *Consumer) viewOf(slot int) FrameView {
	meta := c.r.readSlotMetadata(slot)
	return FrameView{
		SlotIndex:     slot,
		Width:         int(meta.Width),
		Height:        int(meta.Height),
		TimestampNs:   int64(meta.TimestampNs),
		FrameNumber:   meta.FrameNumber,
		SurfaceHandle: meta.SurfaceHandle,
		Pixels:        c.r.pixelSlice(slot),
	}
}

// Header returns a snapshot of the ring header, useful for diagnostics
// and for the round-trip-read-back property test. Every field is read
// with an atomic load so the snapshot is race-free even while the
// producer is concurrently publishing.
func (c *Consumer) Header() RingHeader {
	return RingHeader{
		Magic:        c.r.loadMagic(),
		Version:      c.r.loadVersion(),
		BufferCount:  BufferCount,
		Width:        uint32(c.r.width),
		Height:       uint32(c.r.height),
		PixelFormat:  PixelFormatBGRA,
		ReadIndex:    c.r.loadReadIndex(),
		WriteIndex:   c.r.loadWriteIndex(),
		FrameCount:   c.r.loadFrameCount(),
		LastUpdateNs: uint64(c.r.loadLastUpdateNs()),
	}
}
