package compositor

import (
	"testing"

	"github.com/faisalnazir/AnonCam/internal/gpu/cpubackend"
	"github.com/faisalnazir/AnonCam/internal/types"
)

func TestBuildGeometryProducesValidMeshForEveryStyle(t *testing.T) {
	styles := []Style{StyleHelmet, StyleEllipsoid, StyleLowPoly, StyleDisc, StyleQuad, StyleFaceMesh}
	var live types.FaceMesh
	for i := range live.Points {
		t := float64(i) / float64(len(live.Points)-1)
		live.Points[i] = types.Vec2{X: t, Y: t * 0.5}
	}
	live.Confidence = 1
	live.BBox = types.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

	for _, style := range styles {
		geom := BuildGeometry(style, live)
		if !geom.Valid() {
			t.Fatalf("style %q produced invalid geometry: %+v", style, geom)
		}
		if geom.TriangleCount() == 0 {
			t.Fatalf("style %q produced zero triangles", style)
		}
	}
}

func TestStickerReportsFlatStylesOnly(t *testing.T) {
	flat := map[Style]bool{StyleDisc: true, StyleQuad: true}
	all := []Style{StyleHelmet, StyleEllipsoid, StyleLowPoly, StyleDisc, StyleQuad, StyleFaceMesh}
	for _, s := range all {
		if s.Sticker() != flat[s] {
			t.Fatalf("Style(%q).Sticker() = %v, want %v", s, s.Sticker(), flat[s])
		}
	}
}

func grayFrame(w, h int, gray byte) types.Frame {
	data := make([]byte, w*h*4)
	for i := 0; i+3 < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = gray, gray, gray, 255
	}
	return types.Frame{Width: w, Height: h, Stride: w * 4, Format: types.PixelFormatBGRA8, Data: data}
}

func TestCompositeNoFaceNeverTouchesMaskEnabled(t *testing.T) {
	c := New(cpubackend.New())
	frame := grayFrame(16, 16, 50)
	out, err := c.Composite(frame, types.EmptyObservation, Options{Style: StyleHelmet, Enabled: true}, 1.0)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if len(out.Data) != len(frame.Data) {
		t.Fatalf("output size mismatch")
	}
}

func TestCompositeWithFaceAndDiscStyleRuns(t *testing.T) {
	c := New(cpubackend.New())
	frame := grayFrame(32, 32, 10)
	obs := types.FaceObservation{
		Present: true,
		BBox:    types.Rect{X: 0.2, Y: 0.2, W: 0.6, H: 0.6},
		Pose:    types.IdentityPose,
	}
	out, err := c.Composite(frame, obs, Options{Style: StyleDisc, Enabled: true}, 1.0)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	cx, cy := 16, 16
	i := (cy*32 + cx) * 4
	if out.Data[i] == frame.Data[i] && out.Data[i+1] == frame.Data[i+1] && out.Data[i+2] == frame.Data[i+2] {
		t.Fatalf("expected the disc mask to change the center pixel")
	}
}

func TestCompositeMaskDisabledPassesThroughBackground(t *testing.T) {
	c := New(cpubackend.New())
	frame := grayFrame(16, 16, 80)
	obs := types.FaceObservation{Present: true, BBox: types.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}, Pose: types.IdentityPose}

	enabled, err := c.Composite(frame, obs, Options{Style: StyleHelmet, Enabled: true}, 1.0)
	if err != nil {
		t.Fatalf("Composite(enabled): %v", err)
	}
	disabled, err := c.Composite(frame, obs, Options{Style: StyleHelmet, Enabled: false}, 1.0)
	if err != nil {
		t.Fatalf("Composite(disabled): %v", err)
	}
	same := true
	for i := range enabled.Data {
		if enabled.Data[i] != disabled.Data[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected mask-enabled output to differ from mask-disabled output")
	}
}
