//go:build cgo

// Package facelib adapts github.com/Kagami/go-face's dlib-based face
// detector and 68-point shape predictor to the detector.Detector
// interface. go-face links against libdlib via cgo, so this backend is
// only built when cgo is enabled.
package facelib

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/Kagami/go-face"

	"github.com/faisalnazir/AnonCam/internal/detector"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// Detector wraps a face.Recognizer configured with the dlib model
// directory (shape_predictor_68_face_landmarks.dat and friends).
type Detector struct {
	rec *face.Recognizer
}

// New loads the dlib models from modelsDir. modelsDir must contain the
// files go-face expects (mmod_human_face_detector.dat,
// shape_predictor_5/68_face_landmarks.dat, dlib_face_recognition_resnet_model_v1.dat).
func New(modelsDir string) (*Detector, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("facelib: load models from %s: %w", modelsDir, err)
	}
	return &Detector{rec: rec}, nil
}

func (d *Detector) Detect(ctx context.Context, frame types.Frame) (types.FaceObservation, error) {
	img := toImage(frame)
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return types.EmptyObservation, fmt.Errorf("facelib: encode frame: %w", err)
	}

	faces, err := d.rec.Recognize(buf.Bytes())
	if err != nil {
		return types.EmptyObservation, fmt.Errorf("facelib: recognize: %w", err)
	}
	if len(faces) == 0 {
		return types.EmptyObservation, nil
	}

	// The pipeline is single-face: take the largest detection.
	best := faces[0]
	for _, f := range faces[1:] {
		if area(f.Rectangle) > area(best.Rectangle) {
			best = f
		}
	}

	w, h := float64(frame.Width), float64(frame.Height)
	raw := detector.RawRegions{
		Confidence: 1.0, // go-face does not surface a scalar confidence for HOG/CNN detections
		BBoxBottomLeft: types.Rect{
			X: float64(best.Rectangle.Min.X) / w,
			// go-face's Rectangle is already top-left origin (image.Rectangle
			// convention); Normalize expects bottom-left input, so flip once
			// here to arrive back at top-left after Normalize's own flip.
			Y: 1 - (float64(best.Rectangle.Min.Y)/h + float64(best.Rectangle.Dy())/h),
			W: float64(best.Rectangle.Dx()) / w,
			H: float64(best.Rectangle.Dy()) / h,
		},
		BottomLeftY: true,
	}
	if len(best.Shapes) >= types.NumLandmarks {
		raw.FaceContour = pointsToVec2(best.Shapes[types.JawStart:types.JawEnd+1], w, h)
		raw.RightBrow = pointsToVec2(best.Shapes[types.BrowRightStart:types.BrowRightEnd+1], w, h)
		raw.LeftBrow = pointsToVec2(best.Shapes[types.BrowLeftStart:types.BrowLeftEnd+1], w, h)
		raw.NoseCrest = pointsToVec2(best.Shapes[types.NoseCrestStart:types.NoseCrestEnd+1], w, h)
		raw.Nose = pointsToVec2(best.Shapes[types.NoseStart:types.NoseEnd+1], w, h)
		raw.RightEye = pointsToVec2(best.Shapes[types.EyeRightStart:types.EyeRightEnd+1], w, h)
		raw.LeftEye = pointsToVec2(best.Shapes[types.EyeLeftStart:types.EyeLeftEnd+1], w, h)
		raw.OuterLips = pointsToVec2(best.Shapes[types.MouthOuterStart:types.MouthOuterEnd+1], w, h)
		raw.InnerLips = pointsToVec2(best.Shapes[types.MouthInnerStart:types.MouthInnerEnd+1], w, h)
	}

	return detector.Normalize(raw), nil
}

func (d *Detector) Close() error {
	d.rec.Close()
	return nil
}

func area(r image.Rectangle) int { return r.Dx() * r.Dy() }

// pointsToVec2 converts dlib shape points (pixel space, top-left origin)
// to bottom-left-normalized Vec2, matching what RawRegions.BottomLeftY
// expects Normalize to flip back.
func pointsToVec2(pts []image.Point, w, h float64) []types.Vec2 {
	out := make([]types.Vec2, len(pts))
	for i, p := range pts {
		out[i] = types.Vec2{X: float64(p.X) / w, Y: 1 - float64(p.Y)/h}
	}
	return out
}

// toImage converts a BGRA8 frame into a Go image for JPEG encoding.
func toImage(f types.Frame) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		srcRow := y * f.Stride
		dstRow := img.PixOffset(0, y)
		for x := 0; x < f.Width; x++ {
			si := srcRow + x*4
			di := dstRow + x*4
			if si+3 >= len(f.Data) {
				continue
			}
			b, g, r, a := f.Data[si], f.Data[si+1], f.Data[si+2], f.Data[si+3]
			img.Pix[di], img.Pix[di+1], img.Pix[di+2], img.Pix[di+3] = r, g, b, a
		}
	}
	return img
}
