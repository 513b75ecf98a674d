package compositor

import (
	"fmt"

	"github.com/faisalnazir/AnonCam/internal/gpu"
	"github.com/faisalnazir/AnonCam/internal/pose"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// Options carries the per-frame mask configuration the compositor needs
// beyond the observation itself; it is the compositor's view of
// config.MaskConfig plus a resolved texture frame.
type Options struct {
	Style       Style
	Enabled     bool
	PixelSize   float64
	Debug       bool
	Texture     *types.Frame
	TextureMesh types.FaceMesh // landmarks on Texture, for facemesh UV correspondence
}

// Compositor renders one output frame per input frame by building a
// gpu.CompositeRequest and delegating the actual raster/GPU work to a
// gpu.Runtime. It is deliberately thin: every decision about mask
// geometry (geometry.go) and placement (internal/pose) lives elsewhere,
// so swapping gpu.Runtime backends never touches this orchestration.
type Compositor struct {
	runtime gpu.Runtime
}

// New wraps a concrete gpu.Runtime backend.
func New(runtime gpu.Runtime) *Compositor {
	return &Compositor{runtime: runtime}
}

// Close releases the underlying runtime.
func (c *Compositor) Close() error {
	return c.runtime.Close()
}

// Composite produces one output frame for the given camera frame and
// face observation under opts. aspect is the camera's width/height,
// used for the 3D perspective placement.
func (c *Compositor) Composite(frame types.Frame, obs types.FaceObservation, opts Options, aspect float64) (types.Frame, error) {
	req := gpu.CompositeRequest{
		CameraFrame: frame,
		Observation: obs,
		MaskEnabled: opts.Enabled && obs.Present,
		MaskTexture: opts.Texture,
		PixelSize:   opts.PixelSize,
		Debug:       opts.Debug,
		StickerMode: opts.Style.Sticker(),
	}

	if req.MaskEnabled {
		liveMesh := faceMeshFrom(obs)
		geometry := BuildGeometry(opts.Style, liveMesh)
		if opts.Style == StyleFaceMesh && opts.TextureMesh.Valid() {
			geometry = remapUV(geometry, liveMesh, opts.TextureMesh)
		}
		mesh := geometry
		if !mesh.Valid() {
			return types.Frame{}, fmt.Errorf("compositor: built invalid mask geometry for style %q", opts.Style)
		}
		req.Mask = &mesh

		if opts.Style.Sticker() {
			req.Placement = pose.Sticker(obs.BBox)
		} else {
			req.Placement = pose.Compute3D(obs.BBox, pose.RotationOf(obs.Pose), aspect)
		}
	}

	return c.runtime.Composite(req)
}

// faceMeshFrom adapts a FaceObservation's landmark array into the
// FaceMesh type the pose engine's anchor extraction and UV mapping
// expect.
func faceMeshFrom(obs types.FaceObservation) types.FaceMesh {
	if !obs.Present {
		return types.FaceMesh{}
	}
	return types.FaceMesh{Points: obs.Landmarks, BBox: obs.BBox, Confidence: obs.Confidence}
}

// remapUV replaces a mask's UVs in place with texture-space coordinates
// resolved through pose.MapUV, one vertex at a time. Only meaningful for
// StyleFaceMesh, whose vertex/UV pairs start out as live-space
// coordinates rather than a fixed UV layout.
func remapUV(mesh types.MaskGeometry, live, texture types.FaceMesh) types.MaskGeometry {
	remapped := make([]types.Vec2, len(mesh.UVs))
	for i, uv := range mesh.UVs {
		remapped[i] = pose.MapUV(uv, live, texture)
	}
	mesh.UVs = remapped
	return mesh
}
