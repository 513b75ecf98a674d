//go:build !nogpu

// Package wgpubackend implements gpu.Runtime on top of a real GPU device
// via github.com/gogpu/gg's hal layer (github.com/gogpu/wgpu/hal), using
// the same offscreen-render-then-readback session pattern gogpu/gg itself
// uses for headless rendering: a single render pass with MSAA color +
// resolve textures, a texture-to-buffer copy, and a CPU readback. This
// repository has exactly two draw tiers per frame (background, mask
// overlay) instead of gg's four (SDF/convex/stencil/text), but submits
// them through the same encoder/fence/queue sequence.
package wgpubackend

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/faisalnazir/AnonCam/internal/gpu"
	"github.com/faisalnazir/AnonCam/internal/types"
)

// copyPitchAlignment matches WebGPU/DX12's required row-pitch alignment
// for texture-to-buffer copies.
const copyPitchAlignment = 256

// textureSet is the per-resolution set of GPU textures a render pass
// needs: MSAA color target, its single-sample resolve target, and the
// depth/stencil buffer the mask overlay's depth test reads.
type textureSet struct {
	width, height uint32
	msaaTex       hal.Texture
	msaaView      hal.TextureView
	resolveTex    hal.Texture
	resolveView   hal.TextureView
	depthTex      hal.Texture
	depthView     hal.TextureView
}

// Backend renders through a real GPU device/queue pair. The device and
// queue are supplied by the caller (the same division of responsibility
// gogpu/gg's GPURenderSession uses: the session never performs adapter
// selection itself) so cmd/anoncamd owns the one-time adapter/device
// acquisition and this backend only ever issues render passes.
type Backend struct {
	device hal.Device
	queue  hal.Queue

	textures textureSet

	bgPipeline   hal.RenderPipeline
	maskPipeline hal.RenderPipeline

	cameraTex  hal.Texture
	cameraView hal.TextureView
	sampler    hal.Sampler
}

// Open builds a Backend over an already-created device/queue pair.
func Open(device hal.Device, queue hal.Queue) (*Backend, error) {
	b := &Backend{device: device, queue: queue}

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "anoncam_sampler",
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: create sampler: %w", err)
	}
	b.sampler = sampler

	bg, err := buildBackgroundPipeline(device)
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: build background pipeline: %w", err)
	}
	b.bgPipeline = bg

	mask, err := buildMaskPipeline(device)
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: build mask pipeline: %w", err)
	}
	b.maskPipeline = mask

	return b, nil
}

func (b *Backend) Close() error {
	b.destroyTextures()
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
	}
	if b.bgPipeline != nil {
		b.device.DestroyRenderPipeline(b.bgPipeline)
	}
	if b.maskPipeline != nil {
		b.device.DestroyRenderPipeline(b.maskPipeline)
	}
	return nil
}

// Composite implements gpu.Runtime. It re-creates the camera texture and,
// on a resolution change, the shared MSAA/resolve/depth textures, before
// recording and submitting one render pass and reading the result back
// to a CPU-side types.Frame.
func (b *Backend) Composite(req gpu.CompositeRequest) (types.Frame, error) {
	w, h := uint32(req.CameraFrame.Width), uint32(req.CameraFrame.Height)
	if err := b.ensureTextures(w, h); err != nil {
		return types.Frame{}, err
	}
	if err := b.uploadCamera(req.CameraFrame); err != nil {
		return types.Frame{}, err
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "anoncam_encoder"})
	if err != nil {
		return types.Frame{}, fmt.Errorf("wgpubackend: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("anoncam_frame"); err != nil {
		return types.Frame{}, fmt.Errorf("wgpubackend: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "anoncam_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:          b.textures.msaaView,
			ResolveTarget: b.textures.resolveView,
			LoadOp:        gputypes.LoadOpClear,
			StoreOp:       gputypes.StoreOpStore,
			ClearValue:    gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            b.textures.depthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})

	if err := recordBackground(b.device, b.queue, rp, b.bgPipeline, b.cameraView, b.sampler, req); err != nil {
		rp.End()
		encoder.DiscardEncoding()
		return types.Frame{}, err
	}
	if req.Observation.Present && req.MaskEnabled && req.Mask != nil {
		if err := recordMask(b.device, b.queue, rp, b.maskPipeline, req); err != nil {
			rp.End()
			encoder.DiscardEncoding()
			return types.Frame{}, err
		}
	}
	rp.End()

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.textures.resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	return b.copySubmitReadback(encoder, w, h, req.CameraFrame.TimestampNs)
}

func (b *Backend) copySubmitReadback(encoder hal.CommandEncoder, w, h uint32, timestampNs int64) (types.Frame, error) {
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "anoncam_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return types.Frame{}, fmt.Errorf("wgpubackend: create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	encoder.CopyTextureToBuffer(b.textures.resolveTex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: int(alignedBytesPerRow), RowsPerImage: int(h)},
		TextureBase:  hal.ImageCopyTexture{Texture: b.textures.resolveTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.textures.resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return types.Frame{}, fmt.Errorf("wgpubackend: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return types.Frame{}, fmt.Errorf("wgpubackend: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return types.Frame{}, fmt.Errorf("wgpubackend: submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, 5*time.Second)
	if err != nil || !ok {
		return types.Frame{}, fmt.Errorf("wgpubackend: wait for GPU: ok=%v err=%w", ok, err)
	}

	readback := make([]byte, stagingSize)
	if err := b.queue.ReadBuffer(staging, 0, readback); err != nil {
		return types.Frame{}, fmt.Errorf("wgpubackend: readback: %w", err)
	}

	out := types.Frame{Width: int(w), Height: int(h), Stride: int(bytesPerRow), Format: types.PixelFormatBGRA8, TimestampNs: timestampNs}
	if alignedBytesPerRow == bytesPerRow {
		out.Data = readback
		return out, nil
	}
	out.Data = make([]byte, uint64(bytesPerRow)*uint64(h))
	for row := uint32(0); row < h; row++ {
		srcOff := int(row) * int(alignedBytesPerRow)
		dstOff := int(row) * int(bytesPerRow)
		copy(out.Data[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
	}
	return out, nil
}
