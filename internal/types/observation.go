package types

import "math"

// NumLandmarks is the fixed cardinality of the normalized landmark
// schema (standard 68-point face schema).
const NumLandmarks = 68

// Landmark region boundaries within the 68-point schema (inclusive).
const (
	JawStart, JawEnd               = 0, 16
	BrowRightStart, BrowRightEnd   = 17, 21
	BrowLeftStart, BrowLeftEnd     = 22, 26
	NoseCrestStart, NoseCrestEnd   = 27, 30
	NoseStart, NoseEnd             = 31, 35
	EyeRightStart, EyeRightEnd     = 36, 41
	EyeLeftStart, EyeLeftEnd       = 42, 47
	MouthOuterStart, MouthOuterEnd = 48, 59
	MouthInnerStart, MouthInnerEnd = 60, 67
)

// HeadPose is the 6DOF head pose derived by the face analyzer and
// consumed by the pose & mapping engine.
type HeadPose struct {
	// Euler angles in radians: pitch, yaw, roll.
	Pitch, Yaw, Roll float64
	// Translation: x,y in NDC, z is a scale proxy (not a metric depth).
	Translation Vec3
	// ModelMatrix is the composed 4x4 rotation (translation is applied
	// separately by internal/pose.Compute — see the placement
	// consolidation redesign in DESIGN.md).
	ModelMatrix [16]float64
}

// IdentityPose is the type-default pose used when Present == false.
var IdentityPose = HeadPose{ModelMatrix: identity4()}

func identity4() [16]float64 {
	var m [16]float64
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// NewHeadPose builds a HeadPose from Euler angles (radians) and a
// translation, composing the rotation matrix as Rz*Ry*Rx and embedding it
// row-major in a 4x4 with the given translation in the last column.
func NewHeadPose(pitch, yaw, roll float64, translation Vec3) HeadPose {
	rx := rotationX(pitch)
	ry := rotationY(yaw)
	rz := rotationZ(roll)
	r := mul3(mul3(rz, ry), rx)

	var m [16]float64
	m[0], m[1], m[2] = r[0], r[1], r[2]
	m[4], m[5], m[6] = r[3], r[4], r[5]
	m[8], m[9], m[10] = r[6], r[7], r[8]
	m[15] = 1
	m[12], m[13], m[14] = translation.X, translation.Y, translation.Z

	return HeadPose{Pitch: pitch, Yaw: yaw, Roll: roll, Translation: translation, ModelMatrix: m}
}

// 3x3 rotation matrices, row-major, matching the composition order used
// throughout this package: R = Rz * Ry * Rx.
type mat3 = [9]float64

func rotationX(a float64) mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return mat3{1, 0, 0, 0, c, -s, 0, s, c}
}

func rotationY(a float64) mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return mat3{c, 0, s, 0, 1, 0, -s, 0, c}
}

func rotationZ(a float64) mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return mat3{c, -s, 0, s, c, 0, 0, 0, 1}
}

func mul3(a, b mat3) mat3 {
	var r mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[i*3+k] * b[k*3+j]
			}
			r[i*3+j] = sum
		}
	}
	return r
}

// Keypoints is a named fixed-arity subset of the landmark set used for
// quick alignment without walking the full 68-point array.
type Keypoints struct {
	LeftEye, RightEye   Vec2
	NoseTip             Vec2
	UpperLip            Vec2
	Chin                Vec2
	LeftEar, RightEar   Vec2
	Forehead            Vec2
}

// FaceObservation is the immutable, value-typed output of the face
// analyzer for a single frame.
type FaceObservation struct {
	Present    bool
	Confidence float64
	BBox       Rect
	Landmarks  [NumLandmarks]Vec2
	Keypoints  Keypoints
	Pose       HeadPose
}

// EmptyObservation is the canonical Present==false value: landmarks are
// zero-valued and pose is the identity pose, matching the "type-default"
// invariant.
var EmptyObservation = FaceObservation{Pose: IdentityPose}
