// Package pipeline orchestrates one capture session end to end: it owns
// the capture driver, face detector, compositor, and ring producer, and
// runs them across two long-lived goroutines — a processing executor and
// a UI-preview executor — following the ordered-startup/ordered-shutdown
// lifecycle the reference orchestrator uses for its own workers, adapted
// to a single in-process pipeline instead of a fleet of worker slots.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/faisalnazir/AnonCam/internal/capture"
	"github.com/faisalnazir/AnonCam/internal/compositor"
	"github.com/faisalnazir/AnonCam/internal/detector"
	"github.com/faisalnazir/AnonCam/internal/gate"
	"github.com/faisalnazir/AnonCam/internal/ring"
	"github.com/faisalnazir/AnonCam/internal/telemetry"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// Settings is the mutable per-frame render configuration. A new Settings
// value is installed atomically by UpdateSettings; the processing
// executor always reads a single consistent snapshot, never a torn mix
// of an old and a new field.
type Settings struct {
	Style     compositor.Style
	Color     [4]byte
	PixelSize float64
	Scale     float64
	Debug     bool
}

// PipelineCallbacks delivers composited preview frames and user-visible
// status changes. Both are invoked on this package's own executor
// goroutines, never on the caller's goroutine and never concurrently
// with each other for a given callback field.
type PipelineCallbacks struct {
	OnPreview func(frame types.Frame)
	OnStatus  func(status telemetry.Status)
}

// RingFactory allocates a new ring producer sized for width x height,
// letting the caller choose shared-memory-backed or in-process-backed
// storage. It is called once at Start and again whenever the incoming
// camera frame size changes.
type RingFactory func(width, height int) (*ring.Producer, error)

// Pipeline is the frame pipeline orchestrator. Construct one fresh per
// capture session; it is never a package-level singleton.
type Pipeline struct {
	provider    capture.Provider
	detector    detector.Detector
	compositor  *compositor.Compositor
	ringFactory RingFactory
	logger      *slog.Logger
	callbacks   PipelineCallbacks
	counters    telemetry.Counters

	lifecycleMu sync.Mutex
	state       atomic.Int32

	settings atomic.Pointer[Settings]

	processingGate gate.Gate
	uiGate         gate.Gate
	processMailbox *mailbox
	previewMailbox *mailbox

	ringMu   sync.Mutex
	producer *ring.Producer

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	aspect      float64
	frameNumber atomic.Uint64
	fps         fpsCounter

	lastPresence atomic.Int32 // -1 unknown, 0 absent, 1 present
}

// New wires a pipeline around its owned dependencies. None of them are
// shared with another Pipeline instance.
func New(provider capture.Provider, det detector.Detector, comp *compositor.Compositor, ringFactory RingFactory, logger *slog.Logger, callbacks PipelineCallbacks) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		provider:       provider,
		detector:       det,
		compositor:     comp,
		ringFactory:    ringFactory,
		logger:         logger,
		callbacks:      callbacks,
		processMailbox: newMailbox(),
		previewMailbox: newMailbox(),
	}
	p.settings.Store(&Settings{Style: compositor.StyleHelmet, PixelSize: 0, Scale: 1, Debug: false})
	p.lastPresence.Store(-1)
	return p
}

// State reports the current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Counters returns a snapshot of the drop-taxonomy counters accumulated
// so far.
func (p *Pipeline) Counters() telemetry.Counters {
	return p.counters.Snapshot()
}

// UpdateSettings installs a new render configuration for the next frame
// onward. Safe to call from any goroutine at any time.
func (p *Pipeline) UpdateSettings(s Settings) {
	p.settings.Store(&s)
}

// Start begins a capture session against camCfg. It is a no-op if the
// pipeline is already Running or Starting. On a capture driver startup
// failure, the pipeline moves straight to Errored without ever reaching
// Running, per the configuration-error handling rule.
func (p *Pipeline) Start(camCfg capture.Config, settings Settings) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	switch State(p.state.Load()) {
	case StateStarting, StateRunning:
		return nil
	}

	if err := camCfg.Validate(); err != nil {
		p.state.Store(int32(StateErrored))
		p.emitStatus(telemetry.Status{Kind: telemetry.StatusError, Message: err.Error()})
		return fmt.Errorf("pipeline: invalid camera config: %w", err)
	}

	p.settings.Store(&settings)
	p.state.Store(int32(StateStarting))

	width, height := camCfg.Preset.Dimensions()
	p.aspect = float64(width) / float64(height)

	producer, err := p.ringFactory(width, height)
	if err != nil {
		p.state.Store(int32(StateErrored))
		p.emitStatus(telemetry.Status{Kind: telemetry.StatusError, Message: err.Error()})
		return fmt.Errorf("pipeline: allocate ring: %w", err)
	}
	p.ringMu.Lock()
	p.producer = producer
	p.ringMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	p.runCtx = ctx
	p.cancel = cancel

	p.wg.Add(2)
	go p.processingLoop(ctx)
	go p.previewLoop(ctx)

	cb := capture.Callbacks{
		OnFrame: p.onCaptureFrame,
		OnError: p.onCaptureError,
	}
	if err := p.provider.Start(camCfg, cb); err != nil {
		p.state.Store(int32(StateErrored))
		p.emitStatus(telemetry.Status{Kind: telemetry.StatusPermissionRequired, Message: err.Error()})
		p.cancel()
		p.processMailbox.close()
		p.previewMailbox.close()
		p.wg.Wait()
		return fmt.Errorf("pipeline: start capture: %w", err)
	}

	p.logger.Info("pipeline started", "device", camCfg.DeviceID, "preset", camCfg.Preset.String(), "width", width, "height", height)
	return nil
}

// Stop halts capture and drains both executors. It is a no-op if the
// pipeline is not currently running or starting.
func (p *Pipeline) Stop() error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	switch State(p.state.Load()) {
	case StateIdle, StateStopped:
		return nil
	}

	if err := p.provider.Stop(); err != nil {
		p.logger.Warn("error stopping capture provider", "error", err)
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.processMailbox.close()
	p.previewMailbox.close()
	p.wg.Wait()

	p.state.Store(int32(StateStopped))
	p.logger.Info("pipeline stopped")
	return nil
}

// SetDevice switches the active capture device without tearing down the
// pipeline's executors.
func (p *Pipeline) SetDevice(id string) error {
	return p.provider.SetDevice(id)
}

// onCaptureFrame runs on the capture driver's own delivery goroutine. It
// tries to take the processing permit; on failure the frame is dropped
// and counted as backpressure rather than queued, keeping the driver's
// goroutine non-blocking.
func (p *Pipeline) onCaptureFrame(frame types.Frame, ptsNs int64) {
	if State(p.state.Load()) == StateStarting {
		p.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	}
	if !p.processingGate.TryAcquire() {
		p.counters.IncBackpressure()
		p.logger.Debug("dropped frame: processing busy")
		return
	}
	p.processMailbox.publish(frame, ptsNs)
}

func (p *Pipeline) onCaptureError(err error) {
	p.logger.Error("capture error", "error", err)
	p.counters.IncFatal()
	p.state.Store(int32(StateErrored))
	p.emitStatus(telemetry.Status{Kind: telemetry.StatusDeviceLost, Message: err.Error()})
}

// processingLoop is the single owner of the detector, compositor, and
// ring producer handle: it runs every frame through analyze, map,
// render, publish in order, one frame at a time, releasing the
// processing permit on every exit path including a recovered panic.
func (p *Pipeline) processingLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		frame, ptsNs, ok := p.processMailbox.wait()
		if !ok {
			return
		}
		p.processFrame(ctx, frame, ptsNs)
		p.processingGate.Release()
	}
}

func (p *Pipeline) processFrame(ctx context.Context, frame types.Frame, ptsNs int64) {
	traceID := uuid.New().String()
	log := p.logger.With("trace_id", traceID)

	defer func() {
		if r := recover(); r != nil {
			p.counters.IncTransient()
			log.Error("panic recovered while processing frame", "recover", r)
		}
	}()

	obs, err := p.detector.Detect(ctx, frame)
	if err != nil {
		p.counters.IncTransient()
		log.Debug("detector error, dropping frame", "error", err)
		return
	}

	settings := p.settings.Load()
	opts := compositor.Options{
		Style:     settings.Style,
		Enabled:   true,
		PixelSize: settings.PixelSize,
		Debug:     settings.Debug,
	}

	out, err := p.compositor.Composite(frame, obs, opts, p.aspect)
	if err != nil {
		p.counters.IncTransient()
		log.Debug("composite error, dropping frame", "error", err)
		return
	}

	p.resizeRingIfNeeded(out.Width, out.Height)
	p.publishToRing(out, ptsNs)
	p.deliverPreview(out)
	p.fps.tick(time.Now())
	p.reportPresence(obs.Present)
}

func (p *Pipeline) resizeRingIfNeeded(width, height int) {
	p.ringMu.Lock()
	defer p.ringMu.Unlock()
	if p.producer != nil && p.producer.Width() == width && p.producer.Height() == height {
		return
	}
	newProducer, err := p.ringFactory(width, height)
	if err != nil {
		p.counters.IncResourceExhaustion()
		p.logger.Warn("ring resize failed", "width", width, "height", height, "error", err)
		return
	}
	if p.producer != nil {
		p.producer.Detach()
	}
	p.producer = newProducer
}

func (p *Pipeline) publishToRing(frame types.Frame, ptsNs int64) {
	p.ringMu.Lock()
	producer := p.producer
	p.ringMu.Unlock()
	if producer == nil {
		return
	}
	slot, ok := producer.AcquireWrite()
	if !ok {
		p.counters.IncResourceExhaustion()
		return
	}
	copy(producer.PixelSlice(slot), frame.Data)
	fn := p.frameNumber.Add(1)
	producer.SubmitWrite(slot, ptsNs, fn, 0)
}

func (p *Pipeline) deliverPreview(frame types.Frame) {
	if p.callbacks.OnPreview == nil {
		return
	}
	if !p.uiGate.TryAcquire() {
		return
	}
	p.previewMailbox.publish(frame, 0)
}

func (p *Pipeline) previewLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		frame, _, ok := p.previewMailbox.wait()
		if !ok {
			return
		}
		p.runPreviewCallback(frame)
		p.uiGate.Release()
	}
}

func (p *Pipeline) runPreviewCallback(frame types.Frame) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic recovered in preview callback", "recover", r)
		}
	}()
	p.callbacks.OnPreview(frame)
}

// reportPresence emits a status change only when face presence flips,
// avoiding a status callback on every single frame.
func (p *Pipeline) reportPresence(present bool) {
	next := int32(0)
	if present {
		next = 1
	}
	if p.lastPresence.Swap(next) == next {
		return
	}
	if present {
		p.emitStatus(telemetry.Status{Kind: telemetry.StatusFaceDetected})
	} else {
		p.emitStatus(telemetry.Status{Kind: telemetry.StatusNoFace})
	}
}

func (p *Pipeline) emitStatus(status telemetry.Status) {
	if p.callbacks.OnStatus == nil {
		return
	}
	p.callbacks.OnStatus(status)
}

// FPS reports the processing executor's most recently measured
// completed-frames-per-second, computed over a rolling window of at
// least 500ms.
func (p *Pipeline) FPS() float64 {
	return p.fps.value()
}

// fpsCounter computes frames-completed-per-interval over windows of at
// least 500ms, matching the cadence-reporting rule.
type fpsCounter struct {
	mu          sync.Mutex
	windowStart time.Time
	windowCount uint64
	fps         float64
}

const fpsReportInterval = 500 * time.Millisecond

func (c *fpsCounter) tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.windowStart.IsZero() {
		c.windowStart = now
	}
	c.windowCount++
	if elapsed := now.Sub(c.windowStart); elapsed >= fpsReportInterval {
		c.fps = float64(c.windowCount) / elapsed.Seconds()
		c.windowStart = now
		c.windowCount = 0
	}
}

func (c *fpsCounter) value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}
