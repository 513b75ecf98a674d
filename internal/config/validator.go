package config

import "fmt"

var validPresets = map[string]bool{"low": true, "medium": true, "high": true}
var validMaskStyles = map[string]bool{
	"helmet": true, "ellipsoid": true, "lowpoly": true, "disc": true,
	"quad": true, "facemesh": true,
}

// Validate checks that the configuration is self-consistent. It is called
// by Load after defaults have been applied, and returns a Configuration
// error (see the error taxonomy in the pipeline state machine): a failure
// here keeps the session in Idle and never reaches Running.
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}

	if !validPresets[cfg.Camera.Preset] {
		return fmt.Errorf("camera.preset must be one of low/medium/high, got %q", cfg.Camera.Preset)
	}
	if cfg.Camera.FrameRate != 30 && cfg.Camera.FrameRate != 60 {
		return fmt.Errorf("camera.frame_rate must be 30 or 60, got %d", cfg.Camera.FrameRate)
	}

	if !validMaskStyles[cfg.Mask.Style] {
		return fmt.Errorf("mask.style must be one of helmet/ellipsoid/lowpoly/disc/quad/facemesh, got %q", cfg.Mask.Style)
	}
	if cfg.Mask.PixelSize < 0 || cfg.Mask.PixelSize > 1 {
		return fmt.Errorf("mask.pixel_size must be in [0,1], got %v", cfg.Mask.PixelSize)
	}
	if cfg.Mask.Scale <= 0 {
		return fmt.Errorf("mask.scale must be > 0, got %v", cfg.Mask.Scale)
	}

	if cfg.Ring.Width <= 0 || cfg.Ring.Height <= 0 {
		return fmt.Errorf("ring width/height must be > 0, got %dx%d", cfg.Ring.Width, cfg.Ring.Height)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}

	return nil
}
