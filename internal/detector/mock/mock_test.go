package mock

import (
	"context"
	"testing"

	"github.com/faisalnazir/AnonCam/internal/types"
)

func TestDetectReportsPresentByDefault(t *testing.T) {
	d := New()
	obs, err := d.Detect(context.Background(), types.Frame{})
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if !obs.Present {
		t.Fatalf("expected Present == true by default")
	}
	if obs.Confidence <= 0 {
		t.Fatalf("expected positive confidence, got %v", obs.Confidence)
	}
}

func TestSetPresentFalseYieldsEmptyObservation(t *testing.T) {
	d := New()
	d.SetPresent(false)
	obs, err := d.Detect(context.Background(), types.Frame{})
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if obs.Present {
		t.Fatalf("expected Present == false")
	}
	if obs != types.EmptyObservation {
		t.Fatalf("expected EmptyObservation, got %+v", obs)
	}
}

func TestSetBBoxIsReflectedInObservation(t *testing.T) {
	d := New()
	want := types.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}
	d.SetBBox(want)
	obs, _ := d.Detect(context.Background(), types.Frame{})
	if obs.BBox.X != want.X || obs.BBox.W != want.W {
		t.Fatalf("BBox = %+v, want X/W matching %+v", obs.BBox, want)
	}
}
