package pose

import (
	"math"
	"testing"

	"github.com/faisalnazir/AnonCam/internal/types"
)

func TestEulerRoundTripAwayFromGimbalLock(t *testing.T) {
	cases := []struct{ pitch, yaw, roll float64 }{
		{0, 0, 0},
		{0.3, -0.4, 0.2},
		{-0.5, 0.6, -0.3},
		{1.0, 0.9, -1.0},
	}
	for _, c := range cases {
		hp := types.NewHeadPose(c.pitch, c.yaw, c.roll, types.Vec3{})
		gotPitch, gotYaw, gotRoll := EulerFromRotation(RotationOf(hp))
		const eps = 1e-9
		if math.Abs(gotPitch-c.pitch) > eps || math.Abs(gotYaw-c.yaw) > eps || math.Abs(gotRoll-c.roll) > eps {
			t.Fatalf("round trip mismatch for %+v: got pitch=%v yaw=%v roll=%v", c, gotPitch, gotYaw, gotRoll)
		}
	}
}

func TestBarycentricSumsToOne(t *testing.T) {
	v1 := types.Vec2{X: 0, Y: 0}
	v2 := types.Vec2{X: 1, Y: 0}
	v3 := types.Vec2{X: 0, Y: 1}
	p := types.Vec2{X: 0.25, Y: 0.25}

	u, v, w, ok := barycentric(v1, v2, v3, p)
	if !ok {
		t.Fatalf("expected barycentric solve to succeed for a well-conditioned triangle")
	}
	sum := u + v + w
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("u+v+w = %v, want ~1", sum)
	}
}

func TestBarycentricRejectsDegenerateTriangle(t *testing.T) {
	v1 := types.Vec2{X: 0, Y: 0}
	v2 := types.Vec2{X: 1, Y: 0}
	v3 := types.Vec2{X: 2, Y: 0} // collinear: zero area
	_, _, _, ok := barycentric(v1, v2, v3, types.Vec2{X: 0.5, Y: 0})
	if ok {
		t.Fatalf("expected degenerate triangle to be rejected")
	}
}

func identityMesh() types.FaceMesh {
	var pts [types.NumLandmarks]types.Vec2
	for i := range pts {
		// Place points on a simple grid so every anchor is well-defined
		// and no two anchors coincide.
		t := float64(i) / float64(types.NumLandmarks-1)
		pts[i] = types.Vec2{X: t, Y: t * 0.5}
	}
	return types.FaceMesh{Points: pts, BBox: types.Rect{X: 0, Y: 0, W: 1, H: 1}, Confidence: 1}
}

func TestMapUVIdenticalMeshesActAsIdentity(t *testing.T) {
	mesh := identityMesh()
	// v is already the caller-offset normalized live-space coordinate
	// (mask-local vertex + 0.5), per MapUV's contract.
	v := types.Vec2{X: 0.3, Y: 0.6}
	uv := MapUV(v, mesh, mesh)

	// With texture == live, every triangle (or the affine fallback) maps
	// a point back to itself.
	if math.Abs(uv.X-v.X) > 1e-4 || math.Abs(uv.Y-v.Y) > 1e-4 {
		t.Fatalf("MapUV(identity meshes) = %+v, want ~%+v", uv, v)
	}
}

func TestMapUVFallsBackToIdentityWithoutTextureFace(t *testing.T) {
	live := identityMesh()
	var empty types.FaceMesh
	v := types.Vec2{X: 0.1, Y: -0.2}
	uv := MapUV(v, live, empty)
	if uv != v {
		t.Fatalf("MapUV without a texture face = %+v, want identity %+v", uv, v)
	}
}
