// Package ring implements the zero-copy IPC ring: a shared-memory,
// triple-buffered, IOSurface-like frame handoff between a producing
// process (the renderer) and a consuming process (a camera-extension
// consumer). See RingHeader for the exact wire layout.
package ring

import "encoding/binary"

const (
	// MagicValue identifies a live AnonCam ring header.
	MagicValue uint32 = 0x41434D53
	// Version is the only wire format version this package understands.
	Version uint32 = 1
	// BufferCount is the fixed triple-buffer depth.
	BufferCount = 3
	// PixelFormatBGRA is the fixed pixel format tag ('BGRA').
	PixelFormatBGRA uint32 = 0x42475241

	headerReservedSize = 64
	slotReservedSize   = 32
	alignment          = 64
)

// HeaderSize is the byte size of RingHeader as laid out in shared memory.
const HeaderSize = 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 8 + 8 + headerReservedSize

// SlotEntrySize is the byte size of one SlotEntry record.
const SlotEntrySize = 4 + 8 + 8 + 4 + 4 + 8 + slotReservedSize

// RingHeader mirrors the little-endian wire layout from the spec. Offsets
// are documented for clarity; encodeHeader/decodeHeader are the only code
// that must agree with them.
type RingHeader struct {
	Magic        uint32
	Version      uint32
	BufferCount  uint32
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	ReadIndex    uint32
	WriteIndex   uint32
	FrameCount   uint64
	LastUpdateNs uint64
}

// SlotEntry mirrors the little-endian wire layout of one ring slot's
// metadata record.
type SlotEntry struct {
	Ready         uint32
	TimestampNs   uint64
	FrameNumber   uint64
	Width         uint32
	Height        uint32
	SurfaceHandle uint64
}

func encodeHeader(buf []byte, h RingHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.BufferCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.Width)
	binary.LittleEndian.PutUint32(buf[16:20], h.Height)
	binary.LittleEndian.PutUint32(buf[20:24], h.PixelFormat)
	binary.LittleEndian.PutUint32(buf[24:28], h.ReadIndex)
	binary.LittleEndian.PutUint32(buf[28:32], h.WriteIndex)
	binary.LittleEndian.PutUint64(buf[32:40], h.FrameCount)
	binary.LittleEndian.PutUint64(buf[40:48], h.LastUpdateNs)
	// bytes [48:48+headerReservedSize) are left zeroed (reserved).
}

func decodeHeader(buf []byte) RingHeader {
	return RingHeader{
		Magic:        binary.LittleEndian.Uint32(buf[0:4]),
		Version:      binary.LittleEndian.Uint32(buf[4:8]),
		BufferCount:  binary.LittleEndian.Uint32(buf[8:12]),
		Width:        binary.LittleEndian.Uint32(buf[12:16]),
		Height:       binary.LittleEndian.Uint32(buf[16:20]),
		PixelFormat:  binary.LittleEndian.Uint32(buf[20:24]),
		ReadIndex:    binary.LittleEndian.Uint32(buf[24:28]),
		WriteIndex:   binary.LittleEndian.Uint32(buf[28:32]),
		FrameCount:   binary.LittleEndian.Uint64(buf[32:40]),
		LastUpdateNs: binary.LittleEndian.Uint64(buf[40:48]),
	}
}

func encodeSlotEntry(buf []byte, s SlotEntry) {
	binary.LittleEndian.PutUint32(buf[0:4], s.Ready)
	binary.LittleEndian.PutUint64(buf[4:12], s.TimestampNs)
	binary.LittleEndian.PutUint64(buf[12:20], s.FrameNumber)
	binary.LittleEndian.PutUint32(buf[20:24], s.Width)
	binary.LittleEndian.PutUint32(buf[24:28], s.Height)
	binary.LittleEndian.PutUint64(buf[28:36], s.SurfaceHandle)
	// bytes [36:36+slotReservedSize) are left zeroed (reserved).
}

func decodeSlotEntry(buf []byte) SlotEntry {
	return SlotEntry{
		Ready:         binary.LittleEndian.Uint32(buf[0:4]),
		TimestampNs:   binary.LittleEndian.Uint64(buf[4:12]),
		FrameNumber:   binary.LittleEndian.Uint64(buf[12:20]),
		Width:         binary.LittleEndian.Uint32(buf[20:24]),
		Height:        binary.LittleEndian.Uint32(buf[24:28]),
		SurfaceHandle: binary.LittleEndian.Uint64(buf[28:36]),
	}
}

func alignUp(n int) int {
	if n%alignment == 0 {
		return n
	}
	return n + (alignment - n%alignment)
}

// slotDataOffset returns the byte offset of pixel slot i's data within
// the region, given width/height.
func slotDataOffset(width, height, i int) int {
	pixelsStart := alignUp(HeaderSize + BufferCount*SlotEntrySize)
	frameSize := alignUp(width * height * 4)
	return pixelsStart + i*frameSize
}

// RegionSize returns the total byte size a ring region must have for the
// given frame dimensions.
func RegionSize(width, height int) int {
	return slotDataOffset(width, height, BufferCount)
}
