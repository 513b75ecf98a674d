// Package cpubackend is a pure-Go software rasterizer implementing
// gpu.Runtime, used as the default backend (no native GPU dependency)
// and by every headless test in this repository. It implements the same
// render-pass semantics as the real GPU backend at reduced fidelity: a
// pixelated background quad and a flat/Lambertian-shaded mask overlay,
// with no hardware acceleration.
package cpubackend

import (
	"math"

	"github.com/faisalnazir/AnonCam/internal/gpu"
	"github.com/faisalnazir/AnonCam/internal/pose"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// gammaCorrection matches the reference fragment path's global gamma,
// applied uniformly to every output pixel.
const gammaCorrection = 0.95

// Backend is a stateless software rasterizer; the zero value is ready to
// use.
type Backend struct{}

// New returns a ready-to-use CPU backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Close() error { return nil }

func (b *Backend) Composite(req gpu.CompositeRequest) (types.Frame, error) {
	src := req.CameraFrame
	out := types.Frame{
		Width:       src.Width,
		Height:      src.Height,
		Stride:      src.Stride,
		Format:      src.Format,
		Data:        make([]byte, len(src.Data)),
		TimestampNs: src.TimestampNs,
	}
	copy(out.Data, src.Data)

	drawBackground(&out, req)

	if req.Observation.Present && req.MaskEnabled && req.Mask != nil {
		drawMask(&out, req)
	}

	if req.Debug && req.Observation.Present {
		drawDebugOverlay(&out, req.Observation.BBox)
	}

	applyGamma(&out)
	return out, nil
}

// drawBackground samples the source frame into out, snapping to a
// pixelSize grid inside the face bbox when pixelation is requested.
func drawBackground(out *types.Frame, req gpu.CompositeRequest) {
	if !req.Observation.Present || req.PixelSize <= 0 {
		return
	}
	bbox := req.Observation.BBox
	cell := req.PixelSize
	w, h := out.Width, out.Height

	for y := 0; y < h; y++ {
		v := (float64(y) + 0.5) / float64(h)
		if v < bbox.Y || v > bbox.Y+bbox.H {
			continue
		}
		for x := 0; x < w; x++ {
			u := (float64(x) + 0.5) / float64(w)
			if u < bbox.X || u > bbox.X+bbox.W {
				continue
			}
			su := snapToGrid(u, cell)
			sv := snapToGrid(v, cell)
			sx := clampInt(int(su*float64(w)), 0, w-1)
			sy := clampInt(int(sv*float64(h)), 0, h-1)
			copyPixel(out, x, y, out, sx, sy)
		}
	}
}

func snapToGrid(v, cell float64) float64 {
	return math.Floor(v/cell)*cell + cell/2
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func copyPixel(dst *types.Frame, dx, dy int, src *types.Frame, sx, sy int) {
	di := dy*dst.Stride + dx*4
	si := sy*src.Stride + sx*4
	if di+4 > len(dst.Data) || si+4 > len(src.Data) {
		return
	}
	copy(dst.Data[di:di+4], src.Data[si:si+4])
}

// drawMask rasterizes the mask geometry's triangles, projected through
// req.Placement, over the background. Sticker mode bypasses lighting and
// emits the sampled color verbatim.
func drawMask(out *types.Frame, req gpu.CompositeRequest) {
	mesh := req.Mask
	w, h := out.Width, out.Height

	// v' = v*Model*ViewProjection under the row-vector convention, so the
	// combined transform is Mul4(Model, ViewProjection).
	mvp := pose.Mul4(req.Placement.Model, req.Placement.ViewProjection)

	project := func(v types.Vec3) (screenX, screenY, depth float64, ok bool) {
		clip := transformPoint(mvp, v)
		if clip[3] == 0 {
			return 0, 0, 0, false
		}
		ndcX := clip[0] / clip[3]
		ndcY := clip[1] / clip[3]
		ndcZ := clip[2] / clip[3]
		return (ndcX*0.5 + 0.5) * float64(w), (1 - (ndcY*0.5 + 0.5)) * float64(h), ndcZ, true
	}

	triCount := mesh.TriangleCount()
	for t := 0; t < triCount; t++ {
		i0, i1, i2 := mesh.Indices[t*3], mesh.Indices[t*3+1], mesh.Indices[t*3+2]
		p0x, p0y, _, ok0 := project(mesh.Vertices[i0])
		p1x, p1y, _, ok1 := project(mesh.Vertices[i1])
		p2x, p2y, _, ok2 := project(mesh.Vertices[i2])
		if !ok0 || !ok1 || !ok2 {
			continue
		}
		uv0, uv1, uv2 := mesh.UVs[i0], mesh.UVs[i1], mesh.UVs[i2]
		rasterizeTriangle(out, req, p0x, p0y, p1x, p1y, p2x, p2y, uv0, uv1, uv2)
	}
}

func rasterizeTriangle(out *types.Frame, req gpu.CompositeRequest, x0, y0, x1, y1, x2, y2 float64, uv0, uv1, uv2 types.Vec2) {
	minX := clampInt(int(math.Floor(min3(x0, x1, x2))), 0, out.Width-1)
	maxX := clampInt(int(math.Ceil(max3(x0, x1, x2))), 0, out.Width-1)
	minY := clampInt(int(math.Floor(min3(y0, y1, y2))), 0, out.Height-1)
	maxY := clampInt(int(math.Ceil(max3(y0, y1, y2))), 0, out.Height-1)

	area := edge(x0, y0, x1, y1, x2, y2)
	if math.Abs(area) < 1e-6 {
		return
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			w0 := edge(x1, y1, x2, y2, px, py) / area
			w1 := edge(x2, y2, x0, y0, px, py) / area
			w2 := edge(x0, y0, x1, y1, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			u := w0*uv0.X + w1*uv1.X + w2*uv2.X
			v := w0*uv0.Y + w1*uv1.Y + w2*uv2.Y
			color := sampleMaskColor(req, u, v)
			blendPixel(out, x, y, color)
		}
	}
}

func edge(x0, y0, x1, y1, px, py float64) float64 {
	return (px-x0)*(y1-y0) - (py-y0)*(x1-x0)
}

func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }

// rgba is a straight-alpha color in [0,1] per channel.
type rgba struct{ r, g, b, a float64 }

const (
	maskBaseGray  = 0.55
	maskBaseAlpha = 0.92
)

func sampleMaskColor(req gpu.CompositeRequest, u, v float64) rgba {
	if req.MaskTexture != nil {
		return sampleTexture(req.MaskTexture, u, v)
	}
	if req.StickerMode {
		return rgba{maskBaseGray, maskBaseGray, maskBaseGray, maskBaseAlpha}
	}
	// Two-light Lambertian approximation plus a Fresnel-like rim, using a
	// flat (0,0,1) normal since the geometry carries no per-vertex normal
	// (near-NaN normals fall back to this same value).
	rim := math.Pow(1-math.Abs(u-0.5)*2, 3)
	lit := maskBaseGray*0.6 + 0.3 + rim*0.15
	return rgba{lit, lit, lit, maskBaseAlpha}
}

func sampleTexture(tex *types.Frame, u, v float64) rgba {
	x := clampInt(int(u*float64(tex.Width)), 0, tex.Width-1)
	y := clampInt(int(v*float64(tex.Height)), 0, tex.Height-1)
	i := y*tex.Stride + x*4
	if i+4 > len(tex.Data) {
		return rgba{0, 0, 0, 0}
	}
	bl, g, r, a := tex.Data[i], tex.Data[i+1], tex.Data[i+2], tex.Data[i+3]
	return rgba{float64(r) / 255, float64(g) / 255, float64(bl) / 255, float64(a) / 255}
}

func blendPixel(out *types.Frame, x, y int, c rgba) {
	i := y*out.Stride + x*4
	if i+4 > len(out.Data) {
		return
	}
	dstB, dstG, dstR := float64(out.Data[i])/255, float64(out.Data[i+1])/255, float64(out.Data[i+2])/255
	srcR, srcG, srcB := c.r, c.g, c.b
	invA := 1 - c.a
	out.Data[i+0] = to8(srcB*c.a + dstB*invA)
	out.Data[i+1] = to8(srcG*c.a + dstG*invA)
	out.Data[i+2] = to8(srcR*c.a + dstR*invA)
}

func to8(v float64) byte {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return byte(v * 255)
}

// drawDebugOverlay draws a green bbox outline and dims pixels outside
// the face by 50%.
func drawDebugOverlay(out *types.Frame, bbox types.Rect) {
	w, h := out.Width, out.Height
	x0 := clampInt(int(bbox.X*float64(w)), 0, w-1)
	y0 := clampInt(int(bbox.Y*float64(h)), 0, h-1)
	x1 := clampInt(int((bbox.X+bbox.W)*float64(w)), 0, w-1)
	y1 := clampInt(int((bbox.Y+bbox.H)*float64(h)), 0, h-1)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			inside := x >= x0 && x <= x1 && y >= y0 && y <= y1
			if !inside {
				dimPixel(out, x, y)
			}
		}
	}
	drawRectOutline(out, x0, y0, x1, y1)
}

func dimPixel(out *types.Frame, x, y int) {
	i := y*out.Stride + x*4
	if i+3 >= len(out.Data) {
		return
	}
	out.Data[i] /= 2
	out.Data[i+1] /= 2
	out.Data[i+2] /= 2
}

func drawRectOutline(out *types.Frame, x0, y0, x1, y1 int) {
	setGreen := func(x, y int) {
		i := y*out.Stride + x*4
		if i+3 >= len(out.Data) || x < 0 || y < 0 || x >= out.Width || y >= out.Height {
			return
		}
		out.Data[i], out.Data[i+1], out.Data[i+2] = 0, 255, 0
	}
	for x := x0; x <= x1; x++ {
		setGreen(x, y0)
		setGreen(x, y1)
	}
	for y := y0; y <= y1; y++ {
		setGreen(x0, y)
		setGreen(x1, y)
	}
}

func applyGamma(f *types.Frame) {
	for i := 0; i+3 < len(f.Data); i += 4 {
		f.Data[i] = gammaByte(f.Data[i])
		f.Data[i+1] = gammaByte(f.Data[i+1])
		f.Data[i+2] = gammaByte(f.Data[i+2])
	}
}

func gammaByte(v byte) byte {
	return to8(math.Pow(float64(v)/255, gammaCorrection))
}

// transformPoint applies a row-major matrix (see internal/pose.Mat4) to a
// point under the row-vector convention (v' = v * M), matching how
// internal/pose composes Translation4/Scale4/rotation: out[j] = sum_i
// v[i] * m[i*4+j].
func transformPoint(m [16]float64, p types.Vec3) [4]float64 {
	v := [4]float64{p.X, p.Y, p.Z, 1.0}
	var out [4]float64
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			out[j] += v[i] * m[i*4+j]
		}
	}
	return out
}
