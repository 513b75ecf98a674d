// Package gpu defines the narrow shader-runtime interface the compositor
// draws through, and the values that cross it: a camera frame, an
// optional mask geometry and texture, and per-frame placement/pixelation
// parameters. Concrete backends live in subpackages: cpubackend (a
// pure-Go rasterizer used by default and by tests) and wgpubackend
// (github.com/gogpu/gg-backed, for real GPU device access).
package gpu

import (
	"github.com/faisalnazir/AnonCam/internal/pose"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// CompositeRequest is everything one render pass needs: the camera
// frame, the current face observation (Present==false means no-face
// passthrough), an optional mask and its geometry, and the resolved
// placement from internal/pose.
type CompositeRequest struct {
	CameraFrame types.Frame
	Observation types.FaceObservation

	Mask        *types.MaskGeometry
	MaskTexture *types.Frame // nil if no user texture is bound
	Placement   pose.Placement
	StickerMode bool

	MaskEnabled bool
	PixelSize   float64 // grid cell size in normalized UV units; 0 disables pixelation
	Debug       bool
}

// Runtime is the narrow interface the compositor draws through: given a
// composite request, produce one output frame. Implementations own their
// own device/pipeline/sampler state and are not required to be safe for
// concurrent use — the pipeline serializes calls onto its processing
// executor.
type Runtime interface {
	Composite(req CompositeRequest) (types.Frame, error)
	Close() error
}
