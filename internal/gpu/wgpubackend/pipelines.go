//go:build !nogpu

package wgpubackend

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/faisalnazir/AnonCam/internal/gpu"
	"github.com/faisalnazir/AnonCam/internal/pose"
)

const sampleCount = 4 // MSAA, matching the retrieved session's 4x color target.

// backgroundShaderWGSL samples the camera texture, snapping UV to a grid
// inside the face bbox when pixelation is requested — the same rule
// cpubackend.drawBackground implements in software.
const backgroundShaderWGSL = `
struct Uniforms {
  bbox: vec4<f32>,   // x, y, w, h
  pixelSize: f32,
  hasFace: f32,
  _pad: vec2<f32>,
}
@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var cameraTex: texture_2d<f32>;
@group(0) @binding(2) var cameraSampler: sampler;

struct VSOut {
  @builtin(position) pos: vec4<f32>,
  @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> VSOut {
  var quad = array<vec2<f32>, 3>(vec2<f32>(-1.0, -1.0), vec2<f32>(3.0, -1.0), vec2<f32>(-1.0, 3.0));
  var out: VSOut;
  out.pos = vec4<f32>(quad[i], 0.0, 1.0);
  out.uv = vec2<f32>(quad[i].x * 0.5 + 0.5, 1.0 - (quad[i].y * 0.5 + 0.5));
  return out;
}

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
  var uv = in.uv;
  if (u.hasFace > 0.5 && u.pixelSize > 0.0 &&
      uv.x >= u.bbox.x && uv.x <= u.bbox.x + u.bbox.z &&
      uv.y >= u.bbox.y && uv.y <= u.bbox.y + u.bbox.w) {
    uv = floor(uv / u.pixelSize) * u.pixelSize + u.pixelSize * 0.5;
  }
  return textureSample(cameraTex, cameraSampler, uv);
}
`

// maskShaderWGSL projects mask vertices through model*viewProjection
// (row-vector convention, matching internal/pose.Mul4) and shades with
// the same flat-gray-sticker / Lambertian-plus-rim rule cpubackend uses.
const maskShaderWGSL = `
struct Uniforms {
  mvp: mat4x4<f32>,
  stickerMode: f32,
  _pad: vec3<f32>,
}
@group(0) @binding(0) var<uniform> u: Uniforms;

struct VSIn {
  @location(0) position: vec3<f32>,
  @location(1) uv: vec2<f32>,
}
struct VSOut {
  @builtin(position) pos: vec4<f32>,
  @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(in: VSIn) -> VSOut {
  var out: VSOut;
  out.pos = vec4<f32>(in.position, 1.0) * u.mvp;
  out.uv = in.uv;
  return out;
}

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
  if (u.stickerMode > 0.5) {
    return vec4<f32>(0.55, 0.55, 0.55, 0.92);
  }
  let rim = pow(1.0 - abs(in.uv.x - 0.5) * 2.0, 3.0);
  let lit = 0.55 * 0.6 + 0.3 + rim * 0.15;
  return vec4<f32>(lit, lit, lit, 0.92);
}
`

func buildBackgroundPipeline(device hal.Device) (hal.RenderPipeline, error) {
	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: "anoncam_bg_shader", Source: backgroundShaderWGSL})
	if err != nil {
		return nil, fmt.Errorf("create background shader: %w", err)
	}
	defer device.DestroyShaderModule(shader)

	return device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:        "anoncam_bg_pipeline",
		VertexShader: hal.ShaderStage{Module: shader, EntryPoint: "vs_main"},
		FragmentShader: hal.ShaderStage{Module: shader, EntryPoint: "fs_main"},
		ColorTargets: []hal.ColorTargetState{{Format: gputypes.TextureFormatBGRA8Unorm}},
		Primitive:    hal.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
		DepthStencil: &hal.DepthStencilState{Format: gputypes.TextureFormatDepth32Float, DepthWriteEnabled: false, DepthCompare: gputypes.CompareFunctionAlways},
		MultisampleCount: sampleCount,
	})
}

func buildMaskPipeline(device hal.Device) (hal.RenderPipeline, error) {
	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: "anoncam_mask_shader", Source: maskShaderWGSL})
	if err != nil {
		return nil, fmt.Errorf("create mask shader: %w", err)
	}
	defer device.DestroyShaderModule(shader)

	return device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:        "anoncam_mask_pipeline",
		VertexShader: hal.ShaderStage{Module: shader, EntryPoint: "vs_main"},
		FragmentShader: hal.ShaderStage{Module: shader, EntryPoint: "fs_main"},
		VertexBuffers: []hal.VertexBufferLayout{{
			ArrayStride: 5 * 4, // vec3 position + vec2 uv, float32
			Attributes: []hal.VertexAttribute{
				{ShaderLocation: 0, Offset: 0, Format: gputypes.VertexFormatFloat32x3},
				{ShaderLocation: 1, Offset: 3 * 4, Format: gputypes.VertexFormatFloat32x2},
			},
		}},
		ColorTargets: []hal.ColorTargetState{{
			Format: gputypes.TextureFormatBGRA8Unorm,
			Blend: &hal.BlendState{
				Color: hal.BlendComponent{SrcFactor: gputypes.BlendFactorSrcAlpha, DstFactor: gputypes.BlendFactorOneMinusSrcAlpha, Operation: gputypes.BlendOperationAdd},
				Alpha: hal.BlendComponent{SrcFactor: gputypes.BlendFactorOne, DstFactor: gputypes.BlendFactorZero, Operation: gputypes.BlendOperationAdd},
			},
		}},
		Primitive:        hal.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
		DepthStencil:     &hal.DepthStencilState{Format: gputypes.TextureFormatDepth32Float, DepthWriteEnabled: true, DepthCompare: gputypes.CompareFunctionLess},
		MultisampleCount: sampleCount,
	})
}

// recordBackground uploads the per-frame uniform block (face bbox,
// pixelSize, hasFace flag) and the camera-texture bind group, then
// records the full-screen background triangle's draw call.
func recordBackground(device hal.Device, queue hal.Queue, rp hal.RenderPassEncoder, pipeline hal.RenderPipeline, cameraView hal.TextureView, sampler hal.Sampler, req gpu.CompositeRequest) error {
	bbox := req.Observation.BBox
	hasFace := float32(0)
	if req.Observation.Present {
		hasFace = 1
	}
	uniform := []float32{
		float32(bbox.X), float32(bbox.Y), float32(bbox.W), float32(bbox.H),
		float32(req.PixelSize), hasFace, 0, 0,
	}

	uniformBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "anoncam_bg_ubuf",
		Size:  uint64(len(uniform) * 4),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create background uniform buffer: %w", err)
	}
	defer device.DestroyBuffer(uniformBuf)
	queue.WriteBuffer(uniformBuf, 0, float32SliceToBytes(uniform))

	bindGroup, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "anoncam_bg_bindgroup",
		Entries: []hal.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuf},
			{Binding: 1, TextureView: cameraView},
			{Binding: 2, Sampler: sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create background bind group: %w", err)
	}
	defer device.DestroyBindGroup(bindGroup)

	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bindGroup)
	rp.Draw(3, 1, 0, 0)
	return nil
}

// recordMask uploads mask vertex data and the model*viewProjection
// uniform, then records the triangle-list draw call for the mask mesh.
func recordMask(device hal.Device, queue hal.Queue, rp hal.RenderPassEncoder, pipeline hal.RenderPipeline, req gpu.CompositeRequest) error {
	mesh := req.Mask
	vertexData := make([]float32, 0, len(mesh.Vertices)*5)
	for i, v := range mesh.Vertices {
		uv := mesh.UVs[i]
		vertexData = append(vertexData, float32(v.X), float32(v.Y), float32(v.Z), float32(uv.X), float32(uv.Y))
	}

	vertBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "anoncam_mask_vbuf",
		Size:  uint64(len(vertexData) * 4),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create mask vertex buffer: %w", err)
	}
	defer device.DestroyBuffer(vertBuf)
	queue.WriteBuffer(vertBuf, 0, float32SliceToBytes(vertexData))

	idxData := make([]uint16, len(mesh.Indices))
	copy(idxData, mesh.Indices)
	idxBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "anoncam_mask_ibuf",
		Size:  uint64(len(idxData) * 2),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create mask index buffer: %w", err)
	}
	defer device.DestroyBuffer(idxBuf)
	queue.WriteBuffer(idxBuf, 0, uint16SliceToBytes(idxData))

	mvp := pose.Mul4(req.Placement.Model, req.Placement.ViewProjection)
	uniform := mat4ToFloat32(mvp)
	stickerFlag := float32(0)
	if req.StickerMode {
		stickerFlag = 1
	}
	uniform = append(uniform, stickerFlag, 0, 0, 0)

	uniformBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "anoncam_mask_ubuf",
		Size:  uint64(len(uniform) * 4),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create mask uniform buffer: %w", err)
	}
	defer device.DestroyBuffer(uniformBuf)
	queue.WriteBuffer(uniformBuf, 0, float32SliceToBytes(uniform))

	bindGroup, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "anoncam_mask_bindgroup",
		Entries: []hal.BindGroupEntry{{Binding: 0, Buffer: uniformBuf}},
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create mask bind group: %w", err)
	}
	defer device.DestroyBindGroup(bindGroup)

	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bindGroup)
	rp.SetVertexBuffer(0, vertBuf, 0)
	rp.SetIndexBuffer(idxBuf, gputypes.IndexFormatUint16, 0)
	rp.DrawIndexed(uint32(len(idxData)), 1, 0, 0, 0)
	return nil
}

func mat4ToFloat32(m pose.Mat4) []float32 {
	out := make([]float32, 16)
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

func float32SliceToBytes(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, f := range data {
		bits := math.Float32bits(f)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func uint16SliceToBytes(data []uint16) []byte {
	out := make([]byte, len(data)*2)
	for i, v := range data {
		out[i*2+0] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}
