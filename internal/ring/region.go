package ring

import (
	"sync/atomic"
	"unsafe"
)

// region is the shared byte-addressable memory backing a ring, whatever
// its origin (an in-process byte slice or an mmap'd shared-memory
// object). All cross-cursor ordering guarantees rest on this type's use
// of sync/atomic loads and stores, which give the acquire/release
// semantics the producer/consumer protocol requires.
type region struct {
	buf    []byte
	width  int
	height int
}

func newRegion(buf []byte, width, height int) *region {
	return &region{buf: buf, width: width, height: height}
}

func (r *region) u32At(offset int) *uint32 {
	return (*uint32)(unsafe.Pointer(&r.buf[offset]))
}

func (r *region) u64At(offset int) *uint64 {
	return (*uint64)(unsafe.Pointer(&r.buf[offset]))
}

// Header field offsets, matching the wire layout in header.go.
const (
	offMagic        = 0
	offVersion      = 4
	offBufferCount  = 8
	offWidth        = 12
	offHeight       = 16
	offPixelFormat  = 20
	offReadIndex    = 24
	offWriteIndex   = 28
	offFrameCount   = 32
	offLastUpdateNs = 40
)

func (r *region) loadMagic() uint32       { return atomic.LoadUint32(r.u32At(offMagic)) }
func (r *region) storeMagic(v uint32)     { atomic.StoreUint32(r.u32At(offMagic), v) }
func (r *region) loadVersion() uint32     { return atomic.LoadUint32(r.u32At(offVersion)) }
func (r *region) loadReadIndex() uint32   { return atomic.LoadUint32(r.u32At(offReadIndex)) }
func (r *region) loadWriteIndex() uint32  { return atomic.LoadUint32(r.u32At(offWriteIndex)) }
func (r *region) loadFrameCount() uint64  { return atomic.LoadUint64(r.u64At(offFrameCount)) }

func (r *region) storeReadIndex(v uint32)  { atomic.StoreUint32(r.u32At(offReadIndex), v) }
func (r *region) storeWriteIndex(v uint32) { atomic.StoreUint32(r.u32At(offWriteIndex), v) }

func (r *region) incFrameCount() uint64 {
	return atomic.AddUint64(r.u64At(offFrameCount), 1)
}

func (r *region) loadLastUpdateNs() int64 {
	return int64(atomic.LoadUint64(r.u64At(offLastUpdateNs)))
}

func (r *region) storeLastUpdateNs(v int64) {
	atomic.StoreUint64(r.u64At(offLastUpdateNs), uint64(v))
}

// initHeader writes the fixed fields of the header. Called once by the
// producer at ring creation time.
func (r *region) initHeader() {
	atomic.StoreUint32(r.u32At(offBufferCount), BufferCount)
	atomic.StoreUint32(r.u32At(offWidth), uint32(r.width))
	atomic.StoreUint32(r.u32At(offHeight), uint32(r.height))
	atomic.StoreUint32(r.u32At(offPixelFormat), PixelFormatBGRA)
	atomic.StoreUint32(r.u32At(offReadIndex), 0)
	atomic.StoreUint32(r.u32At(offWriteIndex), 0)
	atomic.StoreUint64(r.u64At(offFrameCount), 0)
	atomic.StoreUint64(r.u64At(offLastUpdateNs), 0)
	atomic.StoreUint32(r.u32At(offVersion), Version)
	// Magic is stored last: it is the field the consumer polls to decide
	// the ring is live, so every other field must already be visible.
	atomic.StoreUint32(r.u32At(offMagic), MagicValue)
}

// slotOffset returns the byte offset of SlotEntry i.
func (r *region) slotOffset(i int) int {
	return HeaderSize + i*SlotEntrySize
}

func (r *region) loadSlotReady(i int) uint32 {
	return atomic.LoadUint32(r.u32At(r.slotOffset(i)))
}

func (r *region) storeSlotReady(i int, v uint32) {
	atomic.StoreUint32(r.u32At(r.slotOffset(i)), v)
}

func (r *region) writeSlotMetadata(i int, entry SlotEntry) {
	off := r.slotOffset(i)
	// Ready is written last via storeSlotReady/submit; the rest of the
	// metadata is plain (non-atomic) since it is only meaningful once
	// Ready has been observed.
	binaryPutSlotMetadata(r.buf[off:off+SlotEntrySize], entry)
}

func (r *region) readSlotMetadata(i int) SlotEntry {
	off := r.slotOffset(i)
	return decodeSlotEntry(r.buf[off : off+SlotEntrySize])
}

// pixelSlice returns the byte range backing slot i's pixel data.
func (r *region) pixelSlice(i int) []byte {
	off := slotDataOffset(r.width, r.height, i)
	size := r.width * r.height * 4
	return r.buf[off : off+size]
}

// binaryPutSlotMetadata writes everything but the Ready flag, which the
// caller controls separately via storeSlotReady for ordering.
func binaryPutSlotMetadata(buf []byte, s SlotEntry) {
	encodeSlotEntry(buf, s)
}
