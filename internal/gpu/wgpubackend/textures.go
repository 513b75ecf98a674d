//go:build !nogpu

package wgpubackend

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/faisalnazir/AnonCam/internal/types"
)

// ensureTextures (re)allocates the shared MSAA/resolve/depth textures and
// the camera source texture when the requested resolution changes,
// mirroring the retrieved session's EnsureTextures resize-on-demand
// pattern rather than reallocating every frame.
func (b *Backend) ensureTextures(w, h uint32) error {
	if b.textures.width == w && b.textures.height == h && b.cameraTex != nil {
		return nil
	}
	b.destroyTextures()

	msaaTex, msaaView, err := createColorTexture(b.device, w, h, sampleCount)
	if err != nil {
		return fmt.Errorf("wgpubackend: create msaa texture: %w", err)
	}
	resolveTex, resolveView, err := createColorTexture(b.device, w, h, 1)
	if err != nil {
		return fmt.Errorf("wgpubackend: create resolve texture: %w", err)
	}
	depthTex, depthView, err := createDepthTexture(b.device, w, h, sampleCount)
	if err != nil {
		return fmt.Errorf("wgpubackend: create depth texture: %w", err)
	}

	cameraTex, cameraView, err := createColorTexture(b.device, w, h, 1)
	if err != nil {
		return fmt.Errorf("wgpubackend: create camera texture: %w", err)
	}

	b.textures = textureSet{
		width: w, height: h,
		msaaTex: msaaTex, msaaView: msaaView,
		resolveTex: resolveTex, resolveView: resolveView,
		depthTex: depthTex, depthView: depthView,
	}
	b.cameraTex = cameraTex
	b.cameraView = cameraView
	return nil
}

func (b *Backend) destroyTextures() {
	if b.textures.msaaTex != nil {
		b.device.DestroyTextureView(b.textures.msaaView)
		b.device.DestroyTexture(b.textures.msaaTex)
	}
	if b.textures.resolveTex != nil {
		b.device.DestroyTextureView(b.textures.resolveView)
		b.device.DestroyTexture(b.textures.resolveTex)
	}
	if b.textures.depthTex != nil {
		b.device.DestroyTextureView(b.textures.depthView)
		b.device.DestroyTexture(b.textures.depthTex)
	}
	if b.cameraTex != nil {
		b.device.DestroyTextureView(b.cameraView)
		b.device.DestroyTexture(b.cameraTex)
	}
	b.textures = textureSet{}
	b.cameraTex, b.cameraView = nil, nil
}

func createColorTexture(device hal.Device, w, h uint32, samples int) (hal.Texture, hal.TextureView, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "anoncam_color",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		SampleCount:   samples,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "anoncam_color_view"})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, nil, err
	}
	return tex, view, nil
}

func createDepthTexture(device hal.Device, w, h uint32, samples int) (hal.Texture, hal.TextureView, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "anoncam_depth",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		Format:        gputypes.TextureFormatDepth32Float,
		Usage:         gputypes.TextureUsageRenderAttachment,
		SampleCount:   samples,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "anoncam_depth_view"})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, nil, err
	}
	return tex, view, nil
}

// uploadCamera copies a BGRA8 CPU frame into the GPU camera texture.
func (b *Backend) uploadCamera(frame types.Frame) error {
	bytesPerRow := frame.Width * 4
	b.queue.WriteTexture(
		hal.ImageCopyTexture{Texture: b.cameraTex, MipLevel: 0},
		frame.Data,
		hal.ImageDataLayout{Offset: 0, BytesPerRow: bytesPerRow, RowsPerImage: frame.Height},
		hal.Extent3D{Width: uint32(frame.Width), Height: uint32(frame.Height), DepthOrArrayLayers: 1},
	)
	return nil
}
