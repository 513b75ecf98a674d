// Package virtualcam holds the identity constants and supported-format
// catalogue the host OS virtual-camera extension publishes at load time.
// Nothing here touches the ring buffer or the extension process itself —
// that lives in cmd/anoncam-consumer — this package is just the fixed
// descriptive surface both sides agree on.
package virtualcam

import "github.com/faisalnazir/AnonCam/internal/types"

// Extension identity, reported to the OS virtual-camera registry at
// load time.
const (
	ProviderID = "com.anoncam.provider"
	DeviceID   = "com.anoncam.device.source"
	StreamID   = "com.anoncam.stream.source"
	Model      = "AnonCam-1"
	Transport  = "builtIn"
)

// Format is one supported output video format, always BGRA8.
type Format struct {
	Width     int
	Height    int
	FrameRate int
}

// SupportedFormats is the fixed catalogue enumerated at extension load.
var SupportedFormats = []Format{
	{Width: 1920, Height: 1080, FrameRate: 30},
	{Width: 1920, Height: 1080, FrameRate: 60},
	{Width: 1280, Height: 720, FrameRate: 30},
	{Width: 1280, Height: 720, FrameRate: 60},
	{Width: 640, Height: 480, FrameRate: 30},
}

// PixelFormat is the sole pixel layout every supported format carries.
const PixelFormat = types.PixelFormatBGRA8

// Supports reports whether width/height/frameRate exactly matches one
// of SupportedFormats.
func Supports(width, height, frameRate int) bool {
	for _, f := range SupportedFormats {
		if f.Width == width && f.Height == height && f.FrameRate == frameRate {
			return true
		}
	}
	return false
}
