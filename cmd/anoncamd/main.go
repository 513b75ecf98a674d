// Command anoncamd runs the AnonCam frame pipeline as a standalone
// daemon: it owns the capture driver, face detector, and compositor,
// publishes composited frames to a shared-memory ring for the
// virtual-camera extension to consume, and exposes a small HTTP health
// surface for supervisors.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/faisalnazir/AnonCam/internal/capture"
	capturegst "github.com/faisalnazir/AnonCam/internal/capture/gst"
	capturemock "github.com/faisalnazir/AnonCam/internal/capture/mock"
	"github.com/faisalnazir/AnonCam/internal/compositor"
	"github.com/faisalnazir/AnonCam/internal/config"
	"github.com/faisalnazir/AnonCam/internal/detector"
	detectorfacelib "github.com/faisalnazir/AnonCam/internal/detector/facelib"
	detectormock "github.com/faisalnazir/AnonCam/internal/detector/mock"
	"github.com/faisalnazir/AnonCam/internal/gpu"
	"github.com/faisalnazir/AnonCam/internal/gpu/cpubackend"
	"github.com/faisalnazir/AnonCam/internal/pipeline"
	"github.com/faisalnazir/AnonCam/internal/ring"
	"github.com/faisalnazir/AnonCam/internal/telemetry"
)

const (
	defaultConfigPath = "config/anoncam.yaml"
	healthCheckPort   = "8090"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	deviceID := flag.String("device", "", "capture device id, overriding the config file")
	mockCapture := flag.Bool("mock-capture", false, "use a synthetic capture source instead of a real camera")
	mockDetector := flag.Bool("mock-detector", false, "use a synthetic face detector instead of the native dlib backend")
	useGPU := flag.Bool("gpu", false, "use the real GPU compositor backend instead of the CPU rasterizer (best-effort adapter acquisition)")
	modelsDir := flag.String("models-dir", "models", "directory holding the dlib model files for the native detector")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "anoncamd: load config:", err)
		os.Exit(1)
	}
	if *deviceID != "" {
		cfg.Camera.DeviceID = *deviceID
	}

	logLevel := cfg.Log.Level
	if env := os.Getenv("ANONCAM_LOG_LEVEL"); env != "" {
		logLevel = env
	}
	logger := telemetry.NewLogger(logLevel, cfg.Log.Format)
	slog.SetDefault(logger)

	logger.Info("starting anoncam daemon", "config", *configPath, "device", cfg.Camera.DeviceID)

	provider, err := newCaptureProvider(*mockCapture)
	if err != nil {
		logger.Error("build capture provider", "error", err)
		os.Exit(1)
	}

	det, err := newDetector(*mockDetector, *modelsDir)
	if err != nil {
		logger.Error("build detector", "error", err)
		os.Exit(1)
	}
	defer det.Close()

	runtime, err := newGPURuntime(*useGPU, logger)
	if err != nil {
		logger.Error("build gpu runtime", "error", err)
		os.Exit(1)
	}
	defer runtime.Close()
	comp := compositor.New(runtime)

	// mappedRegions accumulates every shared-memory mapping a resize ever
	// creates. A resize's old Producer is still in use by the pipeline
	// (Stop calls Detach on it, writing into its mapping) at the moment
	// the factory hands back the replacement, so regions are only
	// unmapped at process shutdown, never eagerly on resize.
	var mappedRegions []*ring.SharedRegion
	ringFactory := func(width, height int) (*ring.Producer, error) {
		producer, sr, err := ring.NewSharedProducer(cfg.Ring.ShmName, width, height)
		if err != nil {
			return nil, err
		}
		mappedRegions = append(mappedRegions, sr)
		return producer, nil
	}
	closeRegions := func() {
		for i := len(mappedRegions) - 1; i >= 0; i-- {
			mappedRegions[i].Close()
		}
		if len(mappedRegions) > 0 {
			mappedRegions[len(mappedRegions)-1].Unlink()
		}
	}

	srv := newHealthServer(healthCheckPort, logger)

	pl := pipeline.New(provider, det, comp, ringFactory, logger, pipeline.PipelineCallbacks{
		OnStatus: func(status telemetry.Status) {
			logger.Info("status", "status", status.String())
		},
	})
	srv.pipeline = pl

	camCfg := capture.Config{
		Preset:    capture.ParsePreset(cfg.Camera.Preset),
		FrameRate: cfg.Camera.FrameRate,
		DeviceID:  cfg.Camera.DeviceID,
		Mirrored:  cfg.Camera.Mirrored,
	}
	settings := pipeline.Settings{
		Style:     compositor.Style(cfg.Mask.Style),
		Color:     cfg.Mask.Color,
		PixelSize: cfg.Mask.PixelSize,
		Scale:     cfg.Mask.Scale,
		Debug:     cfg.Mask.Debug,
	}

	if err := srv.start(); err != nil {
		logger.Error("start health server", "error", err)
		os.Exit(1)
	}

	if err := pl.Start(camCfg, settings); err != nil {
		logger.Error("start pipeline", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received shutdown signal", "signal", sig.String())

	if err := pl.Stop(); err != nil {
		logger.Error("stop pipeline", "error", err)
	}
	closeRegions()
	if err := srv.shutdown(context.Background()); err != nil {
		logger.Error("shutdown health server", "error", err)
	}

	logger.Info("anoncam daemon stopped")
}

func newCaptureProvider(useMock bool) (capture.Provider, error) {
	if useMock {
		return capturemock.New(), nil
	}
	return capturegst.New(), nil
}

func newDetector(useMock bool, modelsDir string) (detector.Detector, error) {
	if useMock {
		return detectormock.New(), nil
	}
	return detectorfacelib.New(modelsDir)
}

// newGPURuntime returns the CPU rasterizer unless -gpu is set, in which
// case it would need to acquire a real gogpu/wgpu instance/adapter/device
// before calling wgpubackend.Open. No adapter-acquisition example exists
// anywhere in this codebase's grounding material, so that path is not
// implemented; -gpu is refused rather than shipping an unverified
// acquisition sequence.
func newGPURuntime(useGPU bool, logger *slog.Logger) (gpu.Runtime, error) {
	if useGPU {
		return nil, fmt.Errorf("anoncamd: -gpu requested but real adapter/device acquisition is not implemented; run without -gpu to use the CPU compositor backend")
	}
	logger.Debug("using cpu compositor backend")
	return cpubackend.New(), nil
}
