package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faisalnazir/AnonCam/internal/capture"
	"github.com/faisalnazir/AnonCam/internal/compositor"
	"github.com/faisalnazir/AnonCam/internal/gpu/cpubackend"
	"github.com/faisalnazir/AnonCam/internal/ring"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// stubProvider is a capture.Provider that never delivers a frame on its
// own: tests drive the pipeline's onCaptureFrame directly instead, so
// the accepted/dropped accounting stays deterministic rather than
// racing against a ticking generator.
type stubProvider struct{}

func (stubProvider) Start(capture.Config, capture.Callbacks) error { return nil }
func (stubProvider) Stop() error                                  { return nil }
func (stubProvider) SetDevice(string) error                       { return nil }
func (stubProvider) SetMirrored(bool)                             {}
func (stubProvider) Stats() capture.Stats                         { return capture.Stats{} }

// gatedDetector is a detector.Detector whose Detect call blocks on a
// caller-controlled channel, letting tests pin the processing executor
// busy for a deterministic window.
type gatedDetector struct {
	mu    sync.Mutex
	block chan struct{}
	calls atomic.Uint64
}

func (d *gatedDetector) setBlock(ch chan struct{}) {
	d.mu.Lock()
	d.block = ch
	d.mu.Unlock()
}

func (d *gatedDetector) Detect(ctx context.Context, frame types.Frame) (types.FaceObservation, error) {
	d.mu.Lock()
	ch := d.block
	d.mu.Unlock()
	if ch != nil {
		<-ch
	}
	d.calls.Add(1)
	return types.EmptyObservation, nil
}

func (d *gatedDetector) Close() error { return nil }

// newTestRingFactory returns a RingFactory backed by in-process memory
// pairs, plus an accessor for the consumer half of whichever producer it
// most recently allocated — tests that need to read back published
// frames use the accessor rather than reaching into the pipeline.
func newTestRingFactory() (RingFactory, func() *ring.Consumer) {
	var mu sync.Mutex
	var consumer *ring.Consumer
	factory := func(width, height int) (*ring.Producer, error) {
		producer, c := ring.NewMemPair(width, height)
		mu.Lock()
		consumer = c
		mu.Unlock()
		return producer, nil
	}
	getConsumer := func() *ring.Consumer {
		mu.Lock()
		defer mu.Unlock()
		return consumer
	}
	return factory, getConsumer
}

func testFrame(w, h int, gray byte) types.Frame {
	data := make([]byte, w*h*4)
	for i := 0; i+3 < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = gray, gray, gray, 255
	}
	return types.Frame{Width: w, Height: h, Stride: w * 4, Format: types.PixelFormatBGRA8, Data: data}
}

func newTestPipeline(det *gatedDetector, ringFactory RingFactory, cb PipelineCallbacks) *Pipeline {
	comp := compositor.New(cpubackend.New())
	logger := slog.New(slog.NewTextHandler(noopWriter{}, nil))
	return New(stubProvider{}, det, comp, ringFactory, logger, cb)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestBackpressureAcceptsOneFrameAtATimePerGateHold(t *testing.T) {
	det := &gatedDetector{}
	ringFactory, _ := newTestRingFactory()
	var previewCount atomic.Uint64
	p := newTestPipeline(det, ringFactory, PipelineCallbacks{
		OnPreview: func(types.Frame) { previewCount.Add(1) },
	})

	if err := p.Start(capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}, Settings{Style: compositor.StyleHelmet, Scale: 1}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	// Drive capture delivery directly instead of through a live driver,
	// so the accepted/dropped split across 10 rapid attempts is
	// deterministic: 3 rounds of (1 accepted, N dropped), totaling 3
	// accepted and 7 dropped out of 10.
	dropsPerRound := []int{3, 2, 2}
	frame := testFrame(8, 8, 100)

	var accepted int
	for _, drops := range dropsPerRound {
		ch := make(chan struct{})
		det.setBlock(ch)

		p.onCaptureFrame(frame, 0)
		accepted++

		for i := 0; i < drops; i++ {
			p.onCaptureFrame(frame, 0)
		}

		close(ch)
		// Wait for the processing executor to actually release the
		// permit before starting the next round, rather than for the
		// (independently scheduled) preview callback to fire.
		waitFor(t, time.Second, func() bool { return !p.processingGate.Held() })
	}

	if accepted != 3 {
		t.Fatalf("accepted = %d, want 3", accepted)
	}
	if got := p.Counters().BackpressureDrops; got != 7 {
		t.Fatalf("BackpressureDrops = %d, want 7", got)
	}
	waitFor(t, time.Second, func() bool { return previewCount.Load() > 0 })
}

func TestResolutionChangeResizesRingToLatestFrame(t *testing.T) {
	det := &gatedDetector{}
	ringFactory, _ := newTestRingFactory()
	p := newTestPipeline(det, ringFactory, PipelineCallbacks{})

	if err := p.Start(capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}, Settings{Style: compositor.StyleQuad, Scale: 1}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	sizes := [][2]int{{640, 480}, {1280, 720}, {320, 240}}
	for _, wh := range sizes {
		w, h := wh[0], wh[1]
		waitFor(t, time.Second, func() bool { return !p.processingGate.Held() })
		p.onCaptureFrame(testFrame(w, h, 50), 0)
		waitFor(t, time.Second, func() bool {
			p.ringMu.Lock()
			defer p.ringMu.Unlock()
			return p.producer != nil && p.producer.Width() == w && p.producer.Height() == h
		})
	}
}

func TestStartIsNoOpWhileRunning(t *testing.T) {
	det := &gatedDetector{}
	ringFactory, _ := newTestRingFactory()
	p := newTestPipeline(det, ringFactory, PipelineCallbacks{})
	cfg := capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}

	if err := p.Start(cfg, Settings{Scale: 1}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(cfg, Settings{Scale: 1}); err != nil {
		t.Fatalf("second Start should be a no-op, got error: %v", err)
	}
}

func TestStopIsNoOpWhenNotRunning(t *testing.T) {
	det := &gatedDetector{}
	ringFactory, _ := newTestRingFactory()
	p := newTestPipeline(det, ringFactory, PipelineCallbacks{})

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop on idle pipeline should be a no-op, got: %v", err)
	}
}

func TestNoFacePassthroughReachesRingUnmodified(t *testing.T) {
	det := &gatedDetector{}
	ringFactory, getConsumer := newTestRingFactory()
	p := newTestPipeline(det, ringFactory, PipelineCallbacks{})

	if err := p.Start(capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}, Settings{Style: compositor.StyleHelmet, Scale: 1}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	frame := testFrame(8, 8, 128)
	p.onCaptureFrame(frame, 0)

	waitFor(t, time.Second, func() bool { return det.calls.Load() >= 1 })

	consumer := getConsumer()
	waitFor(t, time.Second, func() bool {
		_, ok := consumer.AcquireRead()
		return ok
	})
}
