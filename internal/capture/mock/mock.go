// Package mock provides a deterministic synthetic capture.Provider for
// tests and local development without a camera attached. It produces a
// moving gradient pattern at the configured preset/frame rate instead of
// reading a real device, using the same goroutine-plus-atomic-counters
// structure the reference RTSP provider uses to drive its callbacks.
package mock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faisalnazir/AnonCam/internal/capture"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// Provider implements capture.Provider with a synthetic frame source.
type Provider struct {
	mu       sync.Mutex
	cfg      capture.Config
	cb       capture.Callbacks
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mirrored atomic.Bool

	frameCount    uint64
	framesDropped uint64
	bytesRead     uint64
	started       time.Time
	lastFrameAt   atomic.Int64 // unix nanos
}

// New returns a stopped mock provider.
func New() *Provider {
	return &Provider{}
}

// Start begins generating frames on a dedicated goroutine at cfg's frame
// rate. Callbacks are invoked from that goroutine, matching the
// capture.Provider contract.
func (p *Provider) Start(cfg capture.Config, cb capture.Callbacks) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("mock: already started")
	}
	p.cfg = cfg
	p.cb = cb
	p.mirrored.Store(cfg.Mirrored)
	p.stopCh = make(chan struct{})
	p.running = true
	p.started = time.Now()
	atomic.StoreUint64(&p.frameCount, 0)
	atomic.StoreUint64(&p.framesDropped, 0)
	atomic.StoreUint64(&p.bytesRead, 0)
	stopCh := p.stopCh
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(cfg, stopCh)
	return nil
}

// Stop halts frame generation. Idempotent.
func (p *Provider) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// SetDevice is a no-op for the synthetic source; it exists to satisfy
// capture.Provider and accepts any id.
func (p *Provider) SetDevice(id string) error {
	return nil
}

// SetMirrored flips the synthetic pattern horizontally in subsequent
// frames without requiring a restart.
func (p *Provider) SetMirrored(mirrored bool) {
	p.mirrored.Store(mirrored)
}

// Stats reports current generation counters.
func (p *Provider) Stats() capture.Stats {
	p.mu.Lock()
	cfg := p.cfg
	running := p.running
	p.mu.Unlock()

	w, h := cfg.Preset.Dimensions()
	count := atomic.LoadUint64(&p.frameCount)
	dropped := atomic.LoadUint64(&p.framesDropped)
	var dropRate float64
	if total := count + dropped; total > 0 {
		dropRate = 100 * float64(dropped) / float64(total)
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
		FPSReal:       float64(cfg.FrameRate),
		LatencyMS:     latencyMs,
		Resolution:    fmt.Sprintf("%dx%d", w, h),
		IsConnected:   running,
	}
}

func (p *Provider) run(cfg capture.Config, stopCh chan struct{}) {
	defer p.wg.Done()

	interval := time.Second / time.Duration(cfg.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w, h := cfg.Preset.Dimensions()
	var seq int64

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			seq++
			frame := p.render(w, h, seq)
			atomic.AddUint64(&p.frameCount, 1)
			atomic.AddUint64(&p.bytesRead, uint64(len(frame.Data)))
			p.lastFrameAt.Store(time.Now().UnixNano())

			// Graceful degradation: a panicking callback should not take
			// down the generator goroutine, matching the reference
			// provider's "a single corrupted frame should not kill the
			// entire pipeline" rule.
			if !p.deliver(frame, frame.TimestampNs) {
				atomic.AddUint64(&p.framesDropped, 1)
			}
		}
	}
}

func (p *Provider) deliver(frame types.Frame, ptsNs int64) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if p.cb.OnError != nil {
				p.cb.OnError(fmt.Errorf("mock: OnFrame callback panicked: %v", r))
			}
		}
	}()
	if p.cb.OnFrame == nil {
		return false
	}
	p.cb.OnFrame(frame, ptsNs)
	return true
}

// render generates one deterministic BGRA8 frame: a diagonal gradient
// that scrolls one pixel per frame, so successive frames are visibly
// distinct without any randomness.
func (p *Provider) render(w, h int, seq int64) types.Frame {
	stride := w * 4
	data := make([]byte, stride*h)
	offset := byte(seq % 256)
	mirrored := p.mirrored.Load()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx := x
			if mirrored {
				sx = w - 1 - x
			}
			b := byte((sx + y + int(offset)) % 256)
			g := byte((sx*2 + int(offset)) % 256)
			r := byte((y*2 + int(offset)) % 256)
			i := y*stride + x*4
			data[i+0] = b
			data[i+1] = g
			data[i+2] = r
			data[i+3] = 0xFF
		}
	}

	return types.Frame{
		Width:       w,
		Height:      h,
		Stride:      stride,
		Format:      types.PixelFormatBGRA8,
		Data:        data,
		TimestampNs: time.Now().UnixNano(),
	}
}
