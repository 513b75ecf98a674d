//go:build linux

// Package gst implements capture.Provider against a real camera device
// through GStreamer's v4l2src, following the same
// appsink-pull/map/copy/atomic-counters structure and bus-polling error
// reporting the reference RTSP capture module uses for network streams,
// adapted from a channel-producing design to the callback-style
// capture.Provider contract.
package gst

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/faisalnazir/AnonCam/internal/capture"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// Provider captures frames from a local video device via GStreamer.
type Provider struct {
	mu       sync.Mutex
	cfg      capture.Config
	cb       capture.Callbacks
	elements *pipelineElements
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool

	frameCount    uint64
	framesDropped uint64
	bytesRead     uint64
	started       time.Time
	lastFrameAt   atomic.Int64
}

// New returns a stopped GStreamer-backed provider.
func New() *Provider {
	return &Provider{}
}

// Start creates and plays a v4l2src pipeline for cfg.DeviceID. It blocks
// briefly waiting for the pipeline to reach PLAYING state, mirroring the
// reference provider's startup handshake, then returns — frames and
// errors arrive asynchronously through cb from then on.
func (p *Provider) Start(cfg capture.Config, cb capture.Callbacks) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("gst: already started")
	}

	width, height := cfg.Preset.Dimensions()
	elements, err := buildPipeline(pipelineConfig{
		Device:    cfg.DeviceID,
		Width:     width,
		Height:    height,
		FrameRate: cfg.FrameRate,
		Mirrored:  cfg.Mirrored,
	})
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("gst: build pipeline: %w", err)
	}

	p.cfg = cfg
	p.cb = cb
	p.elements = elements
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.started = time.Now()
	atomic.StoreUint64(&p.frameCount, 0)
	atomic.StoreUint64(&p.framesDropped, 0)
	atomic.StoreUint64(&p.bytesRead, 0)
	p.running = true
	ctx := p.ctx
	p.mu.Unlock()

	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return p.onNewSample(sink, width, height)
		},
	})

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		return fmt.Errorf("gst: start pipeline: %w", err)
	}

	bus := elements.Pipeline.GetPipelineBus()
	bus.TimedPop(5 * time.Second)

	p.wg.Add(1)
	go p.monitorBus(ctx, elements)

	return nil
}

// onNewSample pulls the latest sample, copies its buffer (GStreamer
// reuses the underlying memory once unmapped), and delivers a
// types.Frame to the configured callback. A single corrupted or
// unreadable sample is skipped rather than treated as fatal.
func (p *Provider) onNewSample(sink *app.Sink, width, height int) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	atomic.AddUint64(&p.frameCount, 1)
	atomic.AddUint64(&p.bytesRead, uint64(len(data)))
	p.lastFrameAt.Store(time.Now().UnixNano())

	frame := types.Frame{
		Width:       width,
		Height:      height,
		Stride:      width * 4,
		Format:      types.PixelFormatBGRA8,
		Data:        frameData,
		TimestampNs: time.Now().UnixNano(),
	}
	if !p.deliver(frame) {
		atomic.AddUint64(&p.framesDropped, 1)
	}
	return gst.FlowOK
}

func (p *Provider) deliver(frame types.Frame) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if p.cb.OnError != nil {
				p.cb.OnError(fmt.Errorf("gst: OnFrame callback panicked: %v", r))
			}
		}
	}()
	if p.cb.OnFrame == nil {
		return false
	}
	p.cb.OnFrame(frame, frame.TimestampNs)
	return true
}

// monitorBus polls the pipeline bus for error/EOS messages and forwards
// them through OnError, matching the reference provider's bus-polling
// loop but without its exponential-backoff reconnection logic: a local
// device failure (unplugged camera, busy device) is not expected to
// self-heal the way a flaky network stream might.
func (p *Provider) monitorBus(ctx context.Context, elements *pipelineElements) {
	defer p.wg.Done()
	bus := elements.Pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg := bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}
			switch msg.Type() {
			case gst.MessageEOS:
				if p.cb.OnError != nil {
					p.cb.OnError(fmt.Errorf("gst: end of stream from device %q", p.cfg.DeviceID))
				}
				return
			case gst.MessageError:
				gerr := msg.ParseError()
				if p.cb.OnError != nil {
					p.cb.OnError(fmt.Errorf("gst: pipeline error: %s (%s)", gerr.Error(), gerr.DebugString()))
				}
				return
			}
		}
	}
}

// Stop tears the pipeline down to the NULL state and waits for the bus
// monitor to exit. Idempotent.
func (p *Provider) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel := p.cancel
	elements := p.elements
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	if err := destroyPipeline(elements); err != nil {
		return err
	}

	p.mu.Lock()
	p.elements = nil
	p.mu.Unlock()
	return nil
}

// SetDevice switches the capture device. If the provider is currently
// running, it restarts the pipeline against the new device; otherwise
// it only updates the stored configuration for the next Start.
func (p *Provider) SetDevice(id string) error {
	p.mu.Lock()
	running := p.running
	cfg := p.cfg
	cb := p.cb
	p.mu.Unlock()

	cfg.DeviceID = id
	if !running {
		p.mu.Lock()
		p.cfg = cfg
		p.mu.Unlock()
		return nil
	}

	if err := p.Stop(); err != nil {
		return fmt.Errorf("gst: stop before device switch: %w", err)
	}
	return p.Start(cfg, cb)
}

// SetMirrored hot-toggles the videoflip element's method property
// without restarting the pipeline.
func (p *Provider) SetMirrored(mirrored bool) {
	p.mu.Lock()
	p.cfg.Mirrored = mirrored
	elements := p.elements
	p.mu.Unlock()

	if elements != nil && elements.VideoFlip != nil {
		elements.VideoFlip.SetProperty("method", flipMethod(mirrored))
	}
}

// Stats reports current capture counters.
func (p *Provider) Stats() capture.Stats {
	p.mu.Lock()
	cfg := p.cfg
	running := p.running
	started := p.started
	p.mu.Unlock()

	width, height := cfg.Preset.Dimensions()
	count := atomic.LoadUint64(&p.frameCount)
	dropped := atomic.LoadUint64(&p.framesDropped)

	var dropRate float64
	if total := count + dropped; total > 0 {
		dropRate = 100 * float64(dropped) / float64(total)
	}
	var fpsReal float64
	if !started.IsZero() {
		if uptime := time.Since(started).Seconds(); uptime > 0 {
			fpsReal = float64(count) / uptime
		}
	}
	var latencyMs int64
	if last := p.lastFrameAt.Load(); last != 0 {
		latencyMs = time.Since(time.Unix(0, last)).Milliseconds()
	}

	return capture.Stats{
		FrameCount:    count,
		FramesDropped: dropped,
		DropRate:      dropRate,
		BytesRead:     atomic.LoadUint64(&p.bytesRead),
		FPSTarget:     float64(cfg.FrameRate),
		FPSReal:       fpsReal,
		LatencyMS:     latencyMs,
		Resolution:    fmt.Sprintf("%dx%d", width, height),
		IsConnected:   running,
	}
}
