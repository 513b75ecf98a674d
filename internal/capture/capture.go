// Package capture defines the camera capture driver contract and the
// value types the driver's callbacks and control surface use.
//
// The interface is callback-style rather than channel-style: a Provider
// invokes Callbacks.OnFrame/OnError on its own goroutine as frames or
// errors occur, and never blocks its caller. Start/Stop/SetDevice and
// SetMirrored form the control surface a pipeline uses to drive the
// driver's lifecycle and hot-reload settings without a restart.
package capture

import (
	"fmt"
	"time"

	"github.com/faisalnazir/AnonCam/internal/types"
)

// Preset selects a capture resolution tier.
type Preset int

const (
	PresetLow Preset = iota
	PresetMedium
	PresetHigh
)

// Dimensions returns the pixel width and height for the preset.
func (p Preset) Dimensions() (width, height int) {
	switch p {
	case PresetLow:
		return 640, 480
	case PresetHigh:
		return 1920, 1080
	case PresetMedium:
		return 1280, 720
	default:
		return 1280, 720
	}
}

func (p Preset) String() string {
	switch p {
	case PresetLow:
		return "low"
	case PresetMedium:
		return "medium"
	case PresetHigh:
		return "high"
	default:
		return "medium"
	}
}

// ParsePreset parses a preset name from configuration. Unknown values
// fall back to PresetMedium so a typo in a config file degrades rather
// than fails startup, matching the tolerant defaulting internal/config
// already applies to other fields.
func ParsePreset(s string) Preset {
	switch s {
	case "low":
		return PresetLow
	case "high":
		return PresetHigh
	default:
		return PresetMedium
	}
}

// Config configures a capture driver instance.
type Config struct {
	Preset    Preset
	FrameRate int // 30 or 60
	DeviceID  string
	Mirrored  bool
}

// Validate checks Config for the driver's supported ranges.
func (c Config) Validate() error {
	if c.FrameRate != 30 && c.FrameRate != 60 {
		return fmt.Errorf("capture: unsupported frame rate %d (want 30 or 60)", c.FrameRate)
	}
	if c.DeviceID == "" {
		return fmt.Errorf("capture: device id is required")
	}
	return nil
}

// Callbacks are invoked by a Provider on its own goroutine. OnFrame must
// not retain frame.Data past the call — Format contract in
// internal/types.Frame applies. OnError reports a driver-level failure;
// the driver keeps running afterward unless the failure is fatal, in
// which case a subsequent OnError with a wrapped fatal error is the
// caller's only signal.
type Callbacks struct {
	OnFrame func(frame types.Frame, ptsNs int64)
	OnError func(err error)
}

// Stats reports capture driver health, refreshed continuously and safe
// to read from any goroutine.
type Stats struct {
	FrameCount    uint64
	FramesDropped uint64
	DropRate      float64
	BytesRead     uint64
	FPSTarget     float64
	FPSReal       float64
	LatencyMS     int64
	Resolution    string
	IsConnected   bool
}

// Provider is the capture driver contract. Implementations must
// guarantee:
//   - Start returns once the driver has begun producing frames or
//     failed outright; frames and errors after that arrive exclusively
//     through Callbacks.
//   - Stop is idempotent and safe to call even if Start never succeeded.
//   - SetDevice and SetMirrored apply without requiring Stop/Start.
//   - Stats is safe to call from any goroutine, concurrently with
//     Start/Stop.
type Provider interface {
	Start(cfg Config, cb Callbacks) error
	Stop() error
	SetDevice(id string) error
	SetMirrored(mirrored bool)
	Stats() Stats
}

// WarmupStats summarizes frame delivery stability over a short warm-up
// window, used by a pipeline to decide whether a device is ready for
// production frames before it gates the processing loop open.
type WarmupStats struct {
	FramesReceived int
	Duration       time.Duration
	FPSMean        float64
	FPSStdDev      float64
	FPSMin         float64
	FPSMax         float64
	IsStable       bool
}

// IsStableSample reports whether stddev is within 15% of the mean, the
// same stability threshold the reference stream-capture warm-up uses.
func IsStableSample(mean, stddev float64) bool {
	if mean <= 0 {
		return false
	}
	return stddev < 0.15*mean
}
