package capture_test

import (
	"context"
	"testing"
	"time"

	"github.com/faisalnazir/AnonCam/internal/capture"
	"github.com/faisalnazir/AnonCam/internal/capture/mock"
)

func TestPresetDimensions(t *testing.T) {
	tests := []struct {
		preset     capture.Preset
		wantW      int
		wantH      int
		wantString string
	}{
		{capture.PresetLow, 640, 480, "low"},
		{capture.PresetMedium, 1280, 720, "medium"},
		{capture.PresetHigh, 1920, 1080, "high"},
	}
	for _, tt := range tests {
		w, h := tt.preset.Dimensions()
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("%v.Dimensions() = %dx%d, want %dx%d", tt.preset, w, h, tt.wantW, tt.wantH)
		}
		if tt.preset.String() != tt.wantString {
			t.Errorf("%v.String() = %q, want %q", tt.preset, tt.preset.String(), tt.wantString)
		}
	}
}

func TestParsePresetFallsBackToMedium(t *testing.T) {
	if got := capture.ParsePreset("ultra"); got != capture.PresetMedium {
		t.Fatalf("ParsePreset(unknown) = %v, want PresetMedium", got)
	}
	if got := capture.ParsePreset("high"); got != capture.PresetHigh {
		t.Fatalf("ParsePreset(high) = %v, want PresetHigh", got)
	}
}

func TestConfigValidateRejectsBadFrameRate(t *testing.T) {
	cfg := capture.Config{Preset: capture.PresetMedium, FrameRate: 24, DeviceID: "cam0"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for 24fps")
	}
	cfg.FrameRate = 60
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for 60fps: %v", err)
	}
	cfg.DeviceID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty device id")
	}
}

func TestIsStableSample(t *testing.T) {
	if !capture.IsStableSample(30, 1) {
		t.Fatal("stddev 1 of mean 30 should be stable (< 15%)")
	}
	if capture.IsStableSample(30, 10) {
		t.Fatal("stddev 10 of mean 30 should be unstable (> 15%)")
	}
	if capture.IsStableSample(0, 0) {
		t.Fatal("zero mean should never be stable")
	}
}

func TestWarmupReportsStableForMockProvider(t *testing.T) {
	p := mock.New()
	cfg := capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}

	stats, err := capture.Warmup(context.Background(), p, cfg, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("Warmup: %v", err)
	}
	if stats.FramesReceived < 2 {
		t.Fatalf("expected at least 2 frames, got %d", stats.FramesReceived)
	}
	if !stats.IsStable {
		t.Fatalf("expected stable cadence, got stddev=%.2f mean=%.2f", stats.FPSStdDev, stats.FPSMean)
	}
}

func TestWarmupHonorsContextCancellation(t *testing.T) {
	p := mock.New()
	cfg := capture.Config{Preset: capture.PresetLow, FrameRate: 30, DeviceID: "mock0"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := capture.Warmup(ctx, p, cfg, 5*time.Second); err == nil {
		t.Fatal("expected error from an already-cancelled context")
	}
}
