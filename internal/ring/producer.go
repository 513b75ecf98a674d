package ring

// Producer is the single writer of a ring region, owned exclusively by
// the frame pipeline's processing executor (see internal/pipeline).
//
// Ordering contract: SubmitWrite publishes the pixel payload and slot
// metadata before it marks the slot ready and before it release-advances
// WriteIndex, so a consumer that acquire-loads WriteIndex (or Ready)
// before reading the payload always observes a fully published frame.
type Producer struct {
	r *region
}

// NewProducer creates a ring region for width x height frames and
// returns its producer side. The header is published last (magic
// written after every other field), so a concurrently-attaching consumer
// never observes a partially initialized header.
func NewProducer(buf []byte, width, height int) *Producer {
	r := newRegion(buf, width, height)
	r.initHeader()
	return &Producer{r: r}
}

// AcquireWrite returns the slot index at the current write cursor, or
// ok=false if that slot is still marked ready (the consumer has not
// released it yet: ring full, caller must drop this frame rather than
// block). All BufferCount slots are writable in-flight storage — the
// ring does not reserve one to disambiguate full from empty, since
// fullness is decided by the target slot's ready flag rather than by
// write/read cursor equality.
func (p *Producer) AcquireWrite() (slot int, ok bool) {
	write := p.r.loadWriteIndex()
	if p.r.loadSlotReady(int(write)) != 0 {
		return 0, false
	}
	return int(write), true
}

// SubmitWrite finalizes the write into slot, given the caller has
// already copied pixel bytes into PixelSlice(slot). timestampNs and
// frameNumber become the slot's published metadata.
func (p *Producer) SubmitWrite(slot int, timestampNs int64, frameNumber uint64, surfaceHandle uint64) {
	p.r.writeSlotMetadata(slot, SlotEntry{
		TimestampNs:   uint64(timestampNs),
		FrameNumber:   frameNumber,
		Width:         uint32(p.r.width),
		Height:        uint32(p.r.height),
		SurfaceHandle: surfaceHandle,
	})
	// Ready is the payload-visibility fence: must be stored after the
	// metadata/pixel writes above, before the cursor advance below.
	p.r.storeSlotReady(slot, 1)

	next := (uint32(slot) + 1) % BufferCount
	p.r.storeWriteIndex(next)
	p.r.incFrameCount()
	p.r.storeLastUpdateNs(timestampNs)
}

// PixelSlice returns the byte range for slot's pixel data, for the
// caller to fill before calling SubmitWrite.
func (p *Producer) PixelSlice(slot int) []byte {
	return p.r.pixelSlice(slot)
}

// Width and Height report the ring's fixed frame dimensions.
func (p *Producer) Width() int  { return p.r.width }
func (p *Producer) Height() int { return p.r.height }

// Detach marks the ring as torn down: the consumer observes magic == 0
// and returns "detached" until a new ring is created.
func (p *Producer) Detach() {
	p.r.storeMagic(0)
}
