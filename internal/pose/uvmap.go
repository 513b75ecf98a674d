package pose

import (
	"math"

	"github.com/faisalnazir/AnonCam/internal/types"
)

// anchor indices into the 9-point face skeleton extracted by anchors().
const (
	anchorRightEye = iota
	anchorLeftEye
	anchorNose
	anchorMouthRight
	anchorMouthLeft
	anchorChin
	anchorCheekRight
	anchorCheekLeft
	anchorForehead
	numAnchors
)

// triangle is one of the 11 fixed triangles over the 9-anchor skeleton.
type triangle [3]int

// anchorTriangles is the fixed triangulation shared by every face mesh:
// forehead-eyes, eye-nose-forehead pairs, cheek-eye-nose pairs,
// nose-mouth, mouth-cheek-nose pairs, chin-cheek-mouth pairs, and the
// center-chin triangle.
var anchorTriangles = []triangle{
	{anchorForehead, anchorRightEye, anchorLeftEye},
	{anchorRightEye, anchorNose, anchorForehead},
	{anchorLeftEye, anchorNose, anchorForehead},
	{anchorCheekRight, anchorRightEye, anchorNose},
	{anchorCheekLeft, anchorLeftEye, anchorNose},
	{anchorNose, anchorMouthRight, anchorMouthLeft},
	{anchorMouthRight, anchorCheekRight, anchorNose},
	{anchorMouthLeft, anchorCheekLeft, anchorNose},
	{anchorChin, anchorCheekRight, anchorMouthRight},
	{anchorChin, anchorCheekLeft, anchorMouthLeft},
	{anchorMouthRight, anchorChin, anchorMouthLeft},
}

const (
	degenerateAreaTolerance = 1e-6
	barycentricTolerance    = -0.1
	denomEpsilon            = 1e-9
)

// anchors extracts the 9-point skeleton from a full 68-point mesh: eye
// centers from averaged 6-point rings, nose tip (pt 30), mouth corners
// (pts 48/54), chin (pt 8), cheeks (pts 2/14), forehead (midpoint of pts
// 21/22).
func anchors(points [types.NumLandmarks]types.Vec2) [numAnchors]types.Vec2 {
	avg := func(from, to int) types.Vec2 {
		var sum types.Vec2
		n := to - from + 1
		for i := from; i <= to; i++ {
			sum.X += points[i].X
			sum.Y += points[i].Y
		}
		return types.Vec2{X: sum.X / float64(n), Y: sum.Y / float64(n)}
	}
	mid := func(a, b types.Vec2) types.Vec2 {
		return types.Vec2{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	}

	var a [numAnchors]types.Vec2
	a[anchorRightEye] = avg(types.EyeRightStart, types.EyeRightEnd)
	a[anchorLeftEye] = avg(types.EyeLeftStart, types.EyeLeftEnd)
	a[anchorNose] = points[30]
	a[anchorMouthRight] = points[48]
	a[anchorMouthLeft] = points[54]
	a[anchorChin] = points[8]
	a[anchorCheekRight] = points[2]
	a[anchorCheekLeft] = points[14]
	a[anchorForehead] = mid(points[21], points[22])
	return a
}

// barycentric solves for (u, v, w) such that p = w*v1 + v*v2 + u*v3,
// using the two-edge-dot formulation from the corresponding triangle
// mapping algorithm: e0 = v3-v1, e1 = v2-v1, e2 = p-v1.
func barycentric(v1, v2, v3, p types.Vec2) (u, v, w float64, ok bool) {
	e0 := types.Vec2{X: v3.X - v1.X, Y: v3.Y - v1.Y}
	e1 := types.Vec2{X: v2.X - v1.X, Y: v2.Y - v1.Y}
	e2 := types.Vec2{X: p.X - v1.X, Y: p.Y - v1.Y}

	dot := func(a, b types.Vec2) float64 { return a.X*b.X + a.Y*b.Y }

	dot00 := dot(e0, e0)
	dot01 := dot(e0, e1)
	dot11 := dot(e1, e1)
	dot02 := dot(e0, e2)
	dot12 := dot(e1, e2)

	denom := dot00*dot11 - dot01*dot01
	if abs(denom) < denomEpsilon {
		return 0, 0, 0, false
	}
	u = (dot11*dot02 - dot01*dot12) / denom
	v = (dot00*dot12 - dot01*dot02) / denom
	w = 1 - u - v
	return u, v, w, true
}

func triangleArea(a, b, c types.Vec2) float64 {
	return abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// FaceMeshGeometry builds a coarse mask geometry directly from a live
// face's 9-anchor skeleton: one vertex per anchor, extruded along Z in
// proportion to its distance from the skeleton centroid so the mesh has
// some relief instead of lying flat, triangulated with the same 11
// triangles anchors() and MapUV already share. UVs default to the
// anchor's own normalized position, so a bound mask texture samples
// itself; a caller wanting texture-face correspondence should run the
// vertices through MapUV first.
func FaceMeshGeometry(live types.FaceMesh) types.MaskGeometry {
	a := anchors(live.Points)

	var centroid types.Vec2
	for _, p := range a {
		centroid.X += p.X
		centroid.Y += p.Y
	}
	centroid.X /= float64(numAnchors)
	centroid.Y /= float64(numAnchors)

	verts := make([]types.Vec3, numAnchors)
	uvs := make([]types.Vec2, numAnchors)
	for i, p := range a {
		dx, dy := p.X-centroid.X, p.Y-centroid.Y
		dist := math.Sqrt(dx*dx + dy*dy)
		verts[i] = types.Vec3{X: p.X - 0.5, Y: 0.5 - p.Y, Z: -dist * 0.3}
		uvs[i] = p
	}

	indices := make([]uint16, 0, len(anchorTriangles)*3)
	for _, tri := range anchorTriangles {
		indices = append(indices, uint16(tri[0]), uint16(tri[1]), uint16(tri[2]))
	}

	return types.MaskGeometry{Vertices: verts, Indices: indices, UVs: uvs}
}

// MapUV computes the texture-space UV for a mask vertex given normalized
// live-space coordinates v (already offset to [0,1]^2 by the caller),
// the live face mesh, and the texture face mesh. It returns the identity
// UV (v unchanged) if no texture face is registered or the live mesh is
// not Valid (fewer than 68 usable points).
func MapUV(v types.Vec2, live, texture types.FaceMesh) types.Vec2 {
	if !texture.Valid() || !live.Valid() {
		return v
	}

	liveAnchors := anchors(live.Points)
	texAnchors := anchors(texture.Points)

	for _, tri := range anchorTriangles {
		l1, l2, l3 := liveAnchors[tri[0]], liveAnchors[tri[1]], liveAnchors[tri[2]]
		if triangleArea(l1, l2, l3) < degenerateAreaTolerance {
			continue
		}
		u, vv, w, ok := barycentric(l1, l2, l3, v)
		if !ok {
			continue
		}
		if u < barycentricTolerance || vv < barycentricTolerance || w < barycentricTolerance {
			continue
		}
		t1, t2, t3 := texAnchors[tri[0]], texAnchors[tri[1]], texAnchors[tri[2]]
		uv := types.Vec2{
			X: t1.X*w + t2.X*vv + t3.X*u,
			Y: t1.Y*w + t2.Y*vv + t3.Y*u,
		}
		return types.Vec2{X: clamp01(uv.X), Y: clamp01(uv.Y)}
	}

	// Affine fallback: translate live bbox center to texture bbox center,
	// scale by the ratio of bbox sizes.
	lc, tc := live.BBox.Mid(), texture.BBox.Mid()
	sx, sy := 1.0, 1.0
	if live.BBox.W > 0 {
		sx = texture.BBox.W / live.BBox.W
	}
	if live.BBox.H > 0 {
		sy = texture.BBox.H / live.BBox.H
	}
	uv := types.Vec2{
		X: tc.X + (v.X-lc.X)*sx,
		Y: tc.Y + (v.Y-lc.Y)*sy,
	}
	return types.Vec2{X: clamp01(uv.X), Y: clamp01(uv.Y)}
}
