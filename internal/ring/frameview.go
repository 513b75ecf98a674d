package ring

// FrameView is a zero-copy read-only view into one ring slot, returned by
// AcquireRead and PeekLatest.
type FrameView struct {
	SlotIndex     int
	Width         int
	Height        int
	TimestampNs   int64
	FrameNumber   uint64
	SurfaceHandle uint64
	Pixels        []byte
}
