// Package config loads and validates the AnonCam session configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete AnonCam session configuration.
type Config struct {
	InstanceID string       `yaml:"instance_id"`
	Camera     CameraConfig `yaml:"camera"`
	Mask       MaskConfig   `yaml:"mask"`
	Ring       RingConfig   `yaml:"ring"`
	Log        LogConfig    `yaml:"log"`
}

// CameraConfig contains capture driver settings.
type CameraConfig struct {
	DeviceID  string `yaml:"device_id"`
	Preset    string `yaml:"preset"`     // low, medium, high
	FrameRate int    `yaml:"frame_rate"` // 30 or 60
	Mirrored  bool   `yaml:"mirrored"`
}

// MaskConfig contains compositor/overlay settings.
type MaskConfig struct {
	Style       string  `yaml:"style"` // helmet, ellipsoid, lowpoly, disc, quad, facemesh
	Color       [4]byte `yaml:"color"`
	PixelSize   float64 `yaml:"pixel_size"` // 0 disables pixelation
	Scale       float64 `yaml:"scale"`
	Debug       bool    `yaml:"debug"`
	TexturePath string  `yaml:"texture_path"` // optional reference face image for face-mesh mapping
}

// RingConfig contains shared-memory ring sizing.
type RingConfig struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	ShmName string `yaml:"shm_name"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML configuration file, then applies defaults
// and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Camera.Preset == "" {
		cfg.Camera.Preset = "medium"
	}
	if cfg.Camera.FrameRate == 0 {
		cfg.Camera.FrameRate = 30
	}
	if cfg.Mask.Style == "" {
		cfg.Mask.Style = "helmet"
	}
	if cfg.Mask.PixelSize == 0 {
		cfg.Mask.PixelSize = 0.03
	}
	if cfg.Mask.Scale == 0 {
		cfg.Mask.Scale = 1.33
	}
	if cfg.Ring.Width == 0 {
		cfg.Ring.Width = 1280
	}
	if cfg.Ring.Height == 0 {
		cfg.Ring.Height = 720
	}
	if cfg.Ring.ShmName == "" {
		cfg.Ring.ShmName = fmt.Sprintf("/anoncam.%s", cfg.InstanceID)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
