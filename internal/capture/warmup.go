package capture

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/faisalnazir/AnonCam/internal/types"
)

const (
	fpsStabilityThreshold    = 0.15
	jitterStabilityThreshold = 0.20
)

// calculateStats derives FPS and jitter statistics from a series of frame
// arrival times, using the same instantaneous-FPS/jitter method and
// stability thresholds (FPS stddev < 15% of mean, jitter < 20% of the
// expected interval) as the reference implementation this package's
// warm-up procedure is grounded on.
func calculateStats(frameTimes []time.Time, totalDuration time.Duration) *WarmupStats {
	n := len(frameTimes)
	if n == 0 {
		return &WarmupStats{Duration: totalDuration}
	}

	fpsMean := float64(n) / totalDuration.Seconds()

	instFPS := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		if interval > 0 {
			instFPS = append(instFPS, 1.0/interval)
		}
	}
	if len(instFPS) == 0 {
		return &WarmupStats{FramesReceived: n, Duration: totalDuration, FPSMean: fpsMean}
	}

	fpsMin, fpsMax := instFPS[0], instFPS[0]
	for _, f := range instFPS {
		if f < fpsMin {
			fpsMin = f
		}
		if f > fpsMax {
			fpsMax = f
		}
	}

	var sumSquares float64
	for _, f := range instFPS {
		d := f - fpsMean
		sumSquares += d * d
	}
	fpsStdDev := math.Sqrt(sumSquares / float64(len(instFPS)))

	expectedInterval := 1.0 / fpsMean
	var jitterSum float64
	for i := 1; i < n; i++ {
		jitterSum += math.Abs(frameTimes[i].Sub(frameTimes[i-1]).Seconds() - expectedInterval)
	}
	jitterMean := jitterSum / float64(n-1)

	stable := fpsStdDev < fpsMean*fpsStabilityThreshold && jitterMean < expectedInterval*jitterStabilityThreshold

	return &WarmupStats{
		FramesReceived: n,
		Duration:       totalDuration,
		FPSMean:        fpsMean,
		FPSStdDev:      fpsStdDev,
		FPSMin:         fpsMin,
		FPSMax:         fpsMax,
		IsStable:       stable,
	}
}

// Warmup starts provider with cfg, collects frame arrival timestamps for
// duration, and reports whether the resulting cadence is stable. It stops
// the provider before returning regardless of outcome, since a caller
// that fails warmup is expected to retry Start on its own terms rather
// than inherit a half-warmed session.
func Warmup(ctx context.Context, provider Provider, cfg Config, duration time.Duration) (*WarmupStats, error) {
	var mu timestampCollector

	cb := Callbacks{
		OnFrame: func(_ types.Frame, _ int64) {
			mu.record(time.Now())
		},
		OnError: func(err error) {
			mu.recordErr(err)
		},
	}

	if err := provider.Start(cfg, cb); err != nil {
		return nil, fmt.Errorf("capture: warmup start: %w", err)
	}
	defer provider.Stop()

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	frameTimes, arrivalErr := mu.snapshot()
	if arrivalErr != nil {
		return nil, fmt.Errorf("capture: warmup: %w", arrivalErr)
	}
	if len(frameTimes) < 2 {
		return nil, fmt.Errorf("capture: warmup: not enough frames received (got %d, need at least 2)", len(frameTimes))
	}

	stats := calculateStats(frameTimes, duration)
	if !stats.IsStable {
		return stats, fmt.Errorf("capture: warmup: cadence unstable (fps_mean=%.2f fps_stddev=%.2f)", stats.FPSMean, stats.FPSStdDev)
	}
	return stats, nil
}

// timestampCollector accumulates frame arrival times from a Provider's
// own callback goroutine under a mutex, since Callbacks.OnFrame may be
// invoked concurrently with Warmup's timer goroutine reading the slice.
type timestampCollector struct {
	mu  sync.Mutex
	t   []time.Time
	err error
}

func (c *timestampCollector) record(t time.Time) {
	c.mu.Lock()
	c.t = append(c.t, t)
	c.mu.Unlock()
}

func (c *timestampCollector) recordErr(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *timestampCollector) snapshot() ([]time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Time, len(c.t))
	copy(out, c.t)
	return out, c.err
}
