package pose

import (
	"math"

	"github.com/faisalnazir/AnonCam/internal/types"
)

// fovRadians and headScale are the two fixed constants of the 3D
// placement model.
const (
	fovRadians = 45 * math.Pi / 180
	headScale  = 1.33
)

// Placement is the fully resolved model/view-projection pair a
// compositor needs to draw a mask: no further translation derivation
// happens downstream of Compute, resolving the open question the
// original design left about where placement is assembled.
type Placement struct {
	Model          Mat4
	ViewProjection Mat4
}

// Sticker computes the 2D flat-overlay placement: an identity
// view-projection with the whole positioning done in the model matrix,
// mapping the mask quad onto bbox in NDC. Matrices here follow the
// row-vector convention (v' = v * M), so "scale then translate" composes
// as Mul4(Scale, Translation).
func Sticker(bbox types.Rect) Placement {
	mid := bbox.Mid()
	cx := 2*mid.X - 1
	cy := 2*mid.Y - 1
	model := Mul4(Scale4(2*bbox.W, 2*bbox.H, 1), Translation4(cx, cy, 0))
	return Placement{Model: model, ViewProjection: Identity4()}
}

// Compute3D computes the full 3D placement given the face bbox, the
// rotation-only model matrix from the observation's HeadPose, and the
// camera's aspect ratio. Translation is derived from bbox here (and only
// here) and folded directly into Model.
func Compute3D(bbox types.Rect, rotation Mat4, aspect float64) Placement {
	tanHalf := math.Tan(fovRadians / 2)
	distance := 1 / (bbox.W * tanHalf * 1.5)

	mid := bbox.Mid()
	cx := 2*mid.X - 1
	cy := 2*mid.Y - 1

	wx := cx * distance * aspect * tanHalf
	wy := cy * distance * tanHalf
	wz := -distance

	model := Mul4(Mul4(Scale4(headScale, headScale, headScale), rotation), Translation4(wx, wy, wz))
	vp := Perspective(fovRadians, aspect, 0.1, 100)
	return Placement{Model: model, ViewProjection: vp}
}

// RotationOf extracts the Mat4 form of a HeadPose's rotation-only model
// matrix, for handing to Compute3D.
func RotationOf(hp types.HeadPose) Mat4 {
	return Mat4(hp.ModelMatrix)
}
