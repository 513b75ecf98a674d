// Package detector adapts third-party face-landmark detectors to the
// pipeline's normalized FaceObservation, isolating every detector-specific
// coordinate convention (origin, landmark cardinality, region naming)
// behind a single narrow interface.
package detector

import (
	"context"
	"math"

	"github.com/faisalnazir/AnonCam/internal/types"
)

// Detector analyzes one BGRA8, top-left-origin frame and returns a
// normalized observation. It never returns an error for "no face
// present" — that case is represented by FaceObservation.Present == false.
// An error return is reserved for detector failure (device lost, model
// init failure), which the caller treats as fatal.
type Detector interface {
	Detect(ctx context.Context, frame types.Frame) (types.FaceObservation, error)
	Close() error
}

// RawRegions is the detector-native representation this package
// normalizes from: named landmark regions in whatever coordinate space
// the detector emits (bottom-left or top-left; Normalize handles both),
// plus a bounding box and confidence.
type RawRegions struct {
	Confidence float64
	// BBox is bottom-left origin, as most native detectors report it.
	// Normalize converts it to top-left before returning.
	BBoxBottomLeft types.Rect
	BottomLeftY    bool // true if landmark Y coordinates are bottom-left origin

	FaceContour []types.Vec2 // 17
	RightBrow   []types.Vec2 // 5
	LeftBrow    []types.Vec2 // 5
	NoseCrest   []types.Vec2 // 4
	Nose        []types.Vec2 // 5
	RightEye    []types.Vec2 // 6
	LeftEye     []types.Vec2 // 6
	OuterLips   []types.Vec2 // 12
	InnerLips   []types.Vec2 // 8

	// Pose, if the detector itself supplies pitch/yaw/roll in radians.
	// HasPose is false when the caller must derive pose from keypoints.
	HasPose bool
	Pitch   float64
	Yaw     float64
	Roll    float64
}

const centroidFallback = 0.5

// Normalize builds a types.FaceObservation from the detector-native
// RawRegions: resampling every named region to its fixed cardinality,
// padding missing regions with the frame centroid, flipping a bottom-left
// bbox/landmark space to top-left, and deriving keypoints and (if the
// detector did not supply one) head pose from the resulting 68 points.
func Normalize(r RawRegions) types.FaceObservation {
	var landmarks [types.NumLandmarks]types.Vec2

	regions := []struct {
		start, end int
		pts        []types.Vec2
	}{
		{types.JawStart, types.JawEnd, r.FaceContour},
		{types.BrowRightStart, types.BrowRightEnd, r.RightBrow},
		{types.BrowLeftStart, types.BrowLeftEnd, r.LeftBrow},
		{types.NoseCrestStart, types.NoseCrestEnd, r.NoseCrest},
		{types.NoseStart, types.NoseEnd, r.Nose},
		{types.EyeRightStart, types.EyeRightEnd, r.RightEye},
		{types.EyeLeftStart, types.EyeLeftEnd, r.LeftEye},
		{types.MouthOuterStart, types.MouthOuterEnd, r.OuterLips},
		{types.MouthInnerStart, types.MouthInnerEnd, r.InnerLips},
	}
	for _, reg := range regions {
		n := reg.end - reg.start + 1
		resampled := resampleRegion(reg.pts, n)
		for i := 0; i < n; i++ {
			p := resampled[i]
			if r.BottomLeftY {
				p.Y = 1 - p.Y
			}
			landmarks[reg.start+i] = p
		}
	}

	bbox := r.BBoxBottomLeft
	bbox.Y = 1 - bbox.Y - bbox.H

	kp := keypointsFrom(landmarks)

	var pose types.HeadPose
	if r.HasPose {
		pose = types.NewHeadPose(r.Pitch, r.Yaw, r.Roll, types.Vec3{})
	} else {
		pose = poseFromKeypoints(kp)
	}

	return types.FaceObservation{
		Present:    true,
		Confidence: r.Confidence,
		BBox:       bbox,
		Landmarks:  landmarks,
		Keypoints:  kp,
		Pose:       pose,
	}
}

// resampleRegion resamples pts to exactly n points by piecewise-linear
// interpolation along its parameter, or returns n centroid points if pts
// is empty (missing region).
func resampleRegion(pts []types.Vec2, n int) []types.Vec2 {
	out := make([]types.Vec2, n)
	if len(pts) == 0 {
		for i := range out {
			out[i] = types.Vec2{X: centroidFallback, Y: centroidFallback}
		}
		return out
	}
	if len(pts) == 1 {
		for i := range out {
			out[i] = pts[0]
		}
		return out
	}
	if n == 1 {
		out[0] = pts[len(pts)/2]
		return out
	}
	for i := 0; i < n; i++ {
		// Parameter t walks [0, len(pts)-1] evenly across the n samples.
		t := float64(i) / float64(n-1) * float64(len(pts)-1)
		lo := int(t)
		if lo >= len(pts)-1 {
			out[i] = pts[len(pts)-1]
			continue
		}
		frac := t - float64(lo)
		a, b := pts[lo], pts[lo+1]
		out[i] = types.Vec2{
			X: a.X + (b.X-a.X)*frac,
			Y: a.Y + (b.Y-a.Y)*frac,
		}
	}
	return out
}

func keypointsFrom(l [types.NumLandmarks]types.Vec2) types.Keypoints {
	mid := func(a, b types.Vec2) types.Vec2 {
		return types.Vec2{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	}
	return types.Keypoints{
		LeftEye:  mid(l[types.EyeLeftStart], l[types.EyeLeftEnd]),
		RightEye: mid(l[types.EyeRightStart], l[types.EyeRightEnd]),
		NoseTip:  l[types.NoseStart+2],
		UpperLip: l[types.MouthOuterStart],
		Chin:     l[types.JawStart+8],
		LeftEar:  l[types.JawStart+16],
		RightEar: l[types.JawStart],
		Forehead: l[types.BrowLeftStart+2],
	}
}

// poseFromKeypoints derives pitch/yaw/roll when the detector does not
// surface pose angles directly: eye line for roll, eye-vs-nose for
// pitch, eye-center asymmetry for yaw.
func poseFromKeypoints(kp types.Keypoints) types.HeadPose {
	eyeCenterX := (kp.LeftEye.X + kp.RightEye.X) / 2
	yaw := (eyeCenterX - 0.5) * 2.0

	eyeY := (kp.LeftEye.Y + kp.RightEye.Y) / 2
	pitch := (eyeY - kp.NoseTip.Y) * 1.5

	dx := kp.RightEye.X - kp.LeftEye.X
	dy := kp.RightEye.Y - kp.LeftEye.Y
	roll := math.Atan2(dy, dx)

	return types.NewHeadPose(pitch, yaw, roll, types.Vec3{})
}
