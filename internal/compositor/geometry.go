// Package compositor orchestrates one render pass: pick a mask geometry
// for the configured style, resolve its placement, and hand a
// gpu.CompositeRequest to a gpu.Runtime backend. Mask geometry is
// value-typed and rebuilt (cheaply) every frame rather than cached
// mutable state, matching the "no cyclic structures" design note the
// rest of the geometry types carry.
package compositor

import (
	"math"

	"github.com/faisalnazir/AnonCam/internal/pose"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// Style names one of the six mask geometry variants. Values match
// internal/config's mask.style strings so the compositor can dispatch
// directly off the loaded configuration.
type Style string

const (
	StyleHelmet    Style = "helmet"
	StyleEllipsoid Style = "ellipsoid"
	StyleLowPoly   Style = "lowpoly"
	StyleDisc      Style = "disc"
	StyleQuad      Style = "quad"
	StyleFaceMesh  Style = "facemesh"
)

// Sticker reports whether a style is rendered as a flat 2D overlay
// (pose.Sticker placement, identity view-projection) rather than a 3D
// object locked to head rotation (pose.Compute3D).
func (s Style) Sticker() bool {
	return s == StyleDisc || s == StyleQuad
}

// BuildGeometry returns the MaskGeometry for the given style. live is
// only consulted for StyleFaceMesh, which is derived from the current
// observation's landmarks rather than being a fixed primitive.
func BuildGeometry(style Style, live types.FaceMesh) types.MaskGeometry {
	switch style {
	case StyleHelmet:
		return hemisphere(10, 20, 1, 1, 1)
	case StyleEllipsoid:
		return sphere(12, 24, 0.85, 1.05, 0.9, true)
	case StyleLowPoly:
		return hemisphere(4, 8, 1, 1, 1)
	case StyleDisc:
		return disc(16)
	case StyleFaceMesh:
		return pose.FaceMeshGeometry(live)
	case StyleQuad:
		fallthrough
	default:
		return quad()
	}
}

// quad is a single unit square in the XY plane, centered on the
// origin, facing +Z. Used for the sticker-mode flat overlay.
func quad() types.MaskGeometry {
	return types.MaskGeometry{
		Vertices: []types.Vec3{
			{X: -0.5, Y: -0.5},
			{X: 0.5, Y: -0.5},
			{X: 0.5, Y: 0.5},
			{X: -0.5, Y: 0.5},
		},
		UVs: []types.Vec2{
			{X: 0, Y: 1},
			{X: 1, Y: 1},
			{X: 1, Y: 0},
			{X: 0, Y: 0},
		},
		Indices: []uint16{0, 1, 2, 0, 2, 3},
	}
}

// disc is a flat n-gon fan of segments triangles, radius 0.5, centered
// on the origin.
func disc(segments int) types.MaskGeometry {
	verts := make([]types.Vec3, 0, segments+1)
	uvs := make([]types.Vec2, 0, segments+1)
	indices := make([]uint16, 0, segments*3)

	verts = append(verts, types.Vec3{})
	uvs = append(uvs, types.Vec2{X: 0.5, Y: 0.5})

	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		x, y := 0.5*math.Cos(theta), 0.5*math.Sin(theta)
		verts = append(verts, types.Vec3{X: x, Y: y})
		uvs = append(uvs, types.Vec2{X: x + 0.5, Y: y + 0.5})
	}
	for i := 0; i < segments; i++ {
		next := i + 1
		if next == segments {
			next = 0
		}
		indices = append(indices, 0, uint16(i+1), uint16(next+1))
	}
	return types.MaskGeometry{Vertices: verts, Indices: indices, UVs: uvs}
}

// hemisphere builds the upper half (y >= 0) of a latitude/longitude
// sphere with the given ring and segment subdivision, scaled by
// (rx,ry,rz). Used for both the smooth "helmet" style and, at coarser
// subdivision, the "lowpoly" style — the two are the same generator at
// different resolutions, per the resolved helmet-parameterization
// question.
func hemisphere(rings, segments int, rx, ry, rz float64) types.MaskGeometry {
	return latLonMesh(rings, segments, rx, ry, rz, 0, math.Pi/2, false)
}

// sphere builds a full latitude/longitude sphere. When organic is set,
// each vertex radius gets a small deterministic sine-based perturbation
// so the "organic ellipsoid" style reads as hand-sculpted rather than a
// mathematically perfect ellipsoid.
func sphere(rings, segments int, rx, ry, rz float64, organic bool) types.MaskGeometry {
	m := latLonMesh(rings, segments, rx, ry, rz, 0, math.Pi, organic)
	return m
}

// latLonMesh is the shared latitude/longitude generator behind
// hemisphere and sphere: phi ranges [phiMin, phiMax] (polar angle from
// +Y), theta ranges a full turn.
func latLonMesh(rings, segments int, rx, ry, rz, phiMin, phiMax float64, organic bool) types.MaskGeometry {
	verts := make([]types.Vec3, 0, (rings+1)*(segments+1))
	uvs := make([]types.Vec2, 0, (rings+1)*(segments+1))

	for ring := 0; ring <= rings; ring++ {
		v := float64(ring) / float64(rings)
		phi := phiMin + v*(phiMax-phiMin)
		for seg := 0; seg <= segments; seg++ {
			u := float64(seg) / float64(segments)
			theta := u * 2 * math.Pi

			nx := math.Sin(phi) * math.Cos(theta)
			ny := math.Cos(phi)
			nz := math.Sin(phi) * math.Sin(theta)

			r := 1.0
			if organic {
				r += 0.06 * math.Sin(theta*3) * math.Cos(phi*2)
			}
			verts = append(verts, types.Vec3{X: nx * rx * r, Y: ny * ry * r, Z: nz * rz * r})
			uvs = append(uvs, types.Vec2{X: u, Y: v})
		}
	}

	stride := segments + 1
	indices := make([]uint16, 0, rings*segments*6)
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			a := uint16(ring*stride + seg)
			b := uint16(ring*stride + seg + 1)
			c := uint16((ring+1)*stride + seg)
			d := uint16((ring+1)*stride + seg + 1)
			indices = append(indices, a, c, b, b, c, d)
		}
	}
	return types.MaskGeometry{Vertices: verts, Indices: indices, UVs: uvs}
}
