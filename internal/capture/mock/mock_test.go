package mock_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/faisalnazir/AnonCam/internal/capture"
	"github.com/faisalnazir/AnonCam/internal/capture/mock"
	"github.com/faisalnazir/AnonCam/internal/types"
)

func TestStartDeliversFramesAtConfiguredRate(t *testing.T) {
	p := mock.New()
	var count atomic.Int64
	var lastFrame types.Frame

	cfg := capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}
	if err := p.Start(cfg, capture.Callbacks{
		OnFrame: func(f types.Frame, _ int64) {
			count.Add(1)
			lastFrame = f
		},
		OnError: func(err error) {
			t.Errorf("unexpected error: %v", err)
		},
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	time.Sleep(150 * time.Millisecond)

	if got := count.Load(); got < 2 {
		t.Fatalf("expected at least 2 frames in 150ms at 30fps, got %d", got)
	}
	w, h := capture.PresetLow.Dimensions()
	if lastFrame.Width != w || lastFrame.Height != h {
		t.Fatalf("frame dims = %dx%d, want %dx%d", lastFrame.Width, lastFrame.Height, w, h)
	}
	if lastFrame.Format != types.PixelFormatBGRA8 {
		t.Fatalf("frame format = %v, want BGRA8", lastFrame.Format)
	}
	if len(lastFrame.Data) != lastFrame.Stride*lastFrame.Height {
		t.Fatalf("frame data length = %d, want %d", len(lastFrame.Data), lastFrame.Stride*lastFrame.Height)
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	p := mock.New()
	err := p.Start(capture.Config{Preset: capture.PresetLow, FrameRate: 25, DeviceID: "mock0"}, capture.Callbacks{})
	if err == nil {
		t.Fatal("expected error for unsupported frame rate")
	}
}

func TestStartTwiceWithoutStopFails(t *testing.T) {
	p := mock.New()
	cfg := capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}
	if err := p.Start(cfg, capture.Callbacks{OnFrame: func(types.Frame, int64) {}}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(cfg, capture.Callbacks{OnFrame: func(types.Frame, int64) {}}); err == nil {
		t.Fatal("expected error starting an already-running provider")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := mock.New()
	cfg := capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}
	if err := p.Start(cfg, capture.Callbacks{OnFrame: func(types.Frame, int64) {}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestMirroredChangesWithoutRestart(t *testing.T) {
	p := mock.New()
	frames := make(chan types.Frame, 4)
	cfg := capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0", Mirrored: false}
	if err := p.Start(cfg, capture.Callbacks{
		OnFrame: func(f types.Frame, _ int64) {
			select {
			case frames <- f:
			default:
			}
		},
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	<-frames
	p.SetMirrored(true)
	time.Sleep(50 * time.Millisecond)

	select {
	case f := <-frames:
		if f.Width == 0 {
			t.Fatal("expected non-empty frame after mirroring toggle")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame after SetMirrored")
	}
}

func TestStatsReportsConnectedWhileRunning(t *testing.T) {
	p := mock.New()
	cfg := capture.Config{Preset: capture.PresetMedium, FrameRate: 30, DeviceID: "mock0"}
	if s := p.Stats(); s.IsConnected {
		t.Fatal("expected disconnected before Start")
	}
	if err := p.Start(cfg, capture.Callbacks{OnFrame: func(types.Frame, int64) {}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	time.Sleep(60 * time.Millisecond)
	s := p.Stats()
	if !s.IsConnected {
		t.Fatal("expected connected while running")
	}
	if s.FrameCount == 0 {
		t.Fatal("expected nonzero frame count")
	}
	if s.Resolution != "1280x720" {
		t.Fatalf("resolution = %q, want 1280x720", s.Resolution)
	}
}
