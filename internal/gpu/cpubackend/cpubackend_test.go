package cpubackend

import (
	"testing"

	"github.com/faisalnazir/AnonCam/internal/gpu"
	"github.com/faisalnazir/AnonCam/internal/pose"
	"github.com/faisalnazir/AnonCam/internal/types"
)

func grayFrame(w, h int, gray byte) types.Frame {
	data := make([]byte, w*h*4)
	for i := 0; i+3 < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = gray, gray, gray, 255
	}
	return types.Frame{Width: w, Height: h, Stride: w * 4, Format: types.PixelFormatBGRA8, Data: data}
}

func TestNoFacePassthroughWithinGammaTolerance(t *testing.T) {
	b := New()
	frame := grayFrame(8, 8, 128)
	req := gpu.CompositeRequest{
		CameraFrame: frame,
		Observation: types.EmptyObservation,
	}
	out, err := b.Composite(req)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	for i := 0; i+2 < len(out.Data); i += 4 {
		for c := 0; c < 3; c++ {
			diff := int(out.Data[i+c]) - int(frame.Data[i+c])
			if diff < 0 {
				diff = -diff
			}
			if diff > 8 {
				t.Fatalf("pixel channel drifted too far under gamma: got %d, want near %d", out.Data[i+c], frame.Data[i+c])
			}
		}
	}
}

func TestMaskDisabledEqualsNoMaskOutput(t *testing.T) {
	b := New()
	frame := grayFrame(8, 8, 100)
	present := types.FaceObservation{Present: true, BBox: types.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}, Pose: types.IdentityPose}
	mesh := &types.MaskGeometry{
		Vertices: []types.Vec3{{X: -1}, {X: 1}, {X: 0, Y: 1}},
		Indices:  []uint16{0, 1, 2},
		UVs:      []types.Vec2{{}, {X: 1}, {X: 0.5, Y: 1}},
	}

	withMaskDisabled, _ := b.Composite(gpu.CompositeRequest{
		CameraFrame: frame,
		Observation: present,
		Mask:        mesh,
		MaskEnabled: false,
	})
	withNoMask, _ := b.Composite(gpu.CompositeRequest{
		CameraFrame: frame,
		Observation: present,
		Mask:        nil,
		MaskEnabled: true,
	})
	if len(withMaskDisabled.Data) != len(withNoMask.Data) {
		t.Fatalf("output length mismatch")
	}
	for i := range withMaskDisabled.Data {
		if withMaskDisabled.Data[i] != withNoMask.Data[i] {
			t.Fatalf("byte %d differs: %d vs %d", i, withMaskDisabled.Data[i], withNoMask.Data[i])
		}
	}
}

func TestPixelateProducesBlockyRegionInsideBBox(t *testing.T) {
	b := New()
	w, h := 16, 16
	data := make([]byte, w*h*4)
	// Checkerboard pattern.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			v := byte(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			data[i], data[i+1], data[i+2], data[i+3] = v, v, v, 255
		}
	}
	frame := types.Frame{Width: w, Height: h, Stride: w * 4, Data: data}
	obs := types.FaceObservation{Present: true, BBox: types.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}}

	out, err := b.Composite(gpu.CompositeRequest{
		CameraFrame: frame,
		Observation: obs,
		PixelSize:   0.25,
	})
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}

	// Inside the bbox, a 4x4 pixel region (0.25 of 16) should be uniform.
	x0, y0 := 4, 4
	base := out.Data[(y0*w+x0)*4]
	for dy := 0; dy < 4; dy++ {
		for dx := 0; dx < 4; dx++ {
			i := ((y0+dy)*w + (x0 + dx)) * 4
			if out.Data[i] != base {
				t.Fatalf("expected uniform pixelated block, got mismatch at (%d,%d): %d vs %d", x0+dx, y0+dy, out.Data[i], base)
			}
		}
	}
}

func TestCompositeWithSolidMaskBlendsColor(t *testing.T) {
	b := New()
	frame := grayFrame(32, 32, 0)
	obs := types.FaceObservation{Present: true, BBox: types.Rect{X: 0.1, Y: 0.1, W: 0.8, H: 0.8}, Pose: types.IdentityPose}
	mesh := &types.MaskGeometry{
		Vertices: []types.Vec3{{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0, Y: 0.5}},
		Indices:  []uint16{0, 1, 2},
		UVs:      []types.Vec2{{}, {X: 1}, {X: 0.5, Y: 1}},
	}
	out, err := b.Composite(gpu.CompositeRequest{
		CameraFrame: frame,
		Observation: obs,
		Mask:        mesh,
		MaskEnabled: true,
		Placement:   pose.Sticker(obs.BBox),
		StickerMode: true,
	})
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	// Center pixel should have been touched by the mask triangle and no
	// longer be pure black.
	cx, cy := 16, 16
	i := (cy*32 + cx) * 4
	if out.Data[i] == 0 && out.Data[i+1] == 0 && out.Data[i+2] == 0 {
		t.Fatalf("expected mask overlay to change the center pixel from black")
	}
}
