// Package mock provides a deterministic synthetic Detector for tests and
// for running the pipeline without a native face-landmark library, driven
// by -mock-detector.
package mock

import (
	"context"
	"sync/atomic"

	"github.com/faisalnazir/AnonCam/internal/detector"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// Detector always reports the same synthetic face, centered in frame
// unless overridden, so tests can assert on stable geometry.
type Detector struct {
	present atomic.Bool
	bbox    atomic.Value // types.Rect
}

// New returns a mock Detector reporting a centered face by default.
func New() *Detector {
	d := &Detector{}
	d.present.Store(true)
	d.bbox.Store(types.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5})
	return d
}

// SetPresent toggles whether the mock reports a face at all, for testing
// the no-face passthrough path.
func (d *Detector) SetPresent(present bool) { d.present.Store(present) }

// SetBBox overrides the reported face bounding box (top-left origin).
func (d *Detector) SetBBox(r types.Rect) { d.bbox.Store(r) }

func (d *Detector) Detect(ctx context.Context, frame types.Frame) (types.FaceObservation, error) {
	if !d.present.Load() {
		return types.EmptyObservation, nil
	}
	bbox := d.bbox.Load().(types.Rect)

	raw := detector.RawRegions{
		Confidence:     0.99,
		BBoxBottomLeft: bboxToBottomLeft(bbox),
		BottomLeftY:    true,
		FaceContour:    ovalRegion(bbox, 17, 0.0, 1.0),
		RightBrow:      browRegion(bbox, 5, true),
		LeftBrow:       browRegion(bbox, 5, false),
		NoseCrest:      lineRegion(bbox, 4, 0.5, 0.35, 0.5, 0.55),
		Nose:           lineRegion(bbox, 5, 0.4, 0.6, 0.6, 0.6),
		RightEye:       ovalRegion(bbox, 6, 0.15, 0.35),
		LeftEye:        ovalRegion(bbox, 6, 0.6, 0.8),
		OuterLips:      ovalRegion(bbox, 12, 0.3, 0.7),
		InnerLips:      ovalRegion(bbox, 8, 0.35, 0.65),
	}
	return detector.Normalize(raw), nil
}

func (d *Detector) Close() error { return nil }

// bboxToBottomLeft mirrors a top-left-origin rect to bottom-left, so it
// round-trips through detector.Normalize the same way a real bottom-left
// native detector's output would.
func bboxToBottomLeft(r types.Rect) types.Rect {
	r.Y = 1 - r.Y - r.H
	return r
}

func ovalRegion(bbox types.Rect, n int, xFrom, xTo float64) []types.Vec2 {
	pts := make([]types.Vec2, n)
	cy := bbox.Mid().Y
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		x := bbox.X + (xFrom+(xTo-xFrom)*t)*bbox.W
		y := cy + 0.15*bbox.H*sinApprox(t)
		pts[i] = types.Vec2{X: x, Y: y}
	}
	return pts
}

func browRegion(bbox types.Rect, n int, right bool) []types.Vec2 {
	pts := make([]types.Vec2, n)
	base := 0.15
	if !right {
		base = 0.55
	}
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		pts[i] = types.Vec2{X: bbox.X + (base+0.3*t)*bbox.W, Y: bbox.Y + 0.25*bbox.H}
	}
	return pts
}

func lineRegion(bbox types.Rect, n int, x0, y0, x1, y1 float64) []types.Vec2 {
	pts := make([]types.Vec2, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		pts[i] = types.Vec2{
			X: bbox.X + (x0+(x1-x0)*t)*bbox.W,
			Y: bbox.Y + (y0+(y1-y0)*t)*bbox.H,
		}
	}
	return pts
}

// sinApprox avoids pulling in math for a cosmetic wobble; a plain
// parabola shapes the oval "eye"/"mouth" curve well enough for synthetic
// geometry.
func sinApprox(t float64) float64 {
	x := t*2 - 1
	return 1 - x*x
}
