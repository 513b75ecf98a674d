package detector

import (
	"math"
	"testing"

	"github.com/faisalnazir/AnonCam/internal/types"
)

func TestResampleRegionPreservesCardinality(t *testing.T) {
	pts := []types.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}}
	out := resampleRegion(pts, 5)
	if len(out) != 5 {
		t.Fatalf("len(out) = %d, want 5", len(out))
	}
	if out[0] != pts[0] {
		t.Fatalf("first sample = %+v, want %+v", out[0], pts[0])
	}
	if out[4] != pts[1] {
		t.Fatalf("last sample = %+v, want %+v", out[4], pts[1])
	}
}

func TestResampleRegionPadsMissingWithCentroid(t *testing.T) {
	out := resampleRegion(nil, 4)
	for i, p := range out {
		if p.X != centroidFallback || p.Y != centroidFallback {
			t.Fatalf("sample %d = %+v, want centroid", i, p)
		}
	}
}

func TestNormalizeFlipsBBoxToTopLeft(t *testing.T) {
	raw := RawRegions{
		Confidence:     0.8,
		BBoxBottomLeft: types.Rect{X: 0.2, Y: 0.1, W: 0.3, H: 0.4},
		BottomLeftY:    true,
	}
	obs := Normalize(raw)
	wantY := 1 - 0.1 - 0.4
	if math.Abs(obs.BBox.Y-wantY) > 1e-9 {
		t.Fatalf("BBox.Y = %v, want %v", obs.BBox.Y, wantY)
	}
	if obs.BBox.X != 0.2 || obs.BBox.W != 0.3 || obs.BBox.H != 0.4 {
		t.Fatalf("unexpected bbox: %+v", obs.BBox)
	}
}

func TestNormalizeYFlipRoundTrip(t *testing.T) {
	yBL := 0.37
	yTL := 1 - yBL
	if math.Abs((1-yTL)-yBL) > 1e-9 {
		t.Fatalf("round-trip flip broke identity")
	}
}

func TestNormalizeAlwaysProduces68Landmarks(t *testing.T) {
	obs := Normalize(RawRegions{})
	if len(obs.Landmarks) != types.NumLandmarks {
		t.Fatalf("len(Landmarks) = %d, want %d", len(obs.Landmarks), types.NumLandmarks)
	}
}
