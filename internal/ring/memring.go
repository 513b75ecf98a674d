package ring

// NewMemPair allocates an in-process ring backed by a plain byte slice
// and returns both a Producer and a Consumer attached to the same
// backing memory. This is what the property tests in this package (and
// internal/pipeline's tests) exercise, since it needs no OS shared-memory
// permissions and runs identically under the race detector.
func NewMemPair(width, height int) (*Producer, *Consumer) {
	buf := make([]byte, RegionSize(width, height))
	p := NewProducer(buf, width, height)
	c := Attach(buf, width, height)
	return p, c
}
