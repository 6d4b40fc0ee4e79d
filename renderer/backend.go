// Package renderer supplies the swapchain.DrawCallback that actually puts
// pixels on screen: a single fixed WebGPU pipeline that draws colored,
// optionally circular, axis-aligned quads, fed by a scene-graph walk over
// the Compositor/LayerStack/Layer/Scene resource chain (spec §3, §4.4).
//
// The teacher's engine/renderer package is a full mesh/shadow/compute
// pipeline cache for 3D PBR content (RegisterPipelines, BindGroupProvider,
// per-mesh vertex/index buffers, shadow passes). A display compositor only
// ever draws flat-shaded CircleShape/RectangleShape content (spec §3's
// Non-goals exclude arbitrary mesh content), so one instanced quad
// pipeline replaces that generic cache entirely; the teacher's surface/
// device bring-up and BeginFrame/EndFrame/Present frame lifecycle are kept
// as-is.
package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

const quadWGSL = `
struct Instance {
    transform: vec4<f32>, // x: translate.x, y: translate.y, z: scale.x, w: scale.y
    color: vec4<f32>,
    shapeKind: f32, // 0 = rectangle, 1 = circle
    opacity: f32,
    _pad0: f32,
    _pad1: f32,
};

struct Uniforms {
    viewportSize: vec2<f32>,
    _pad: vec2<f32>,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var<storage, read> instances: array<Instance>;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) localUV: vec2<f32>,
    @location(2) shapeKind: f32,
};

const UNIT_QUAD = array<vec2<f32>, 6>(
    vec2<f32>(-0.5, -0.5), vec2<f32>(0.5, -0.5), vec2<f32>(0.5, 0.5),
    vec2<f32>(-0.5, -0.5), vec2<f32>(0.5, 0.5), vec2<f32>(-0.5, 0.5),
);

@vertex
fn vs_main(@builtin(vertex_index) vertexIndex: u32, @builtin(instance_index) instanceIndex: u32) -> VertexOutput {
    let inst = instances[instanceIndex];
    let local = UNIT_QUAD[vertexIndex];
    let world = vec2<f32>(inst.transform.x, inst.transform.y) + local * vec2<f32>(inst.transform.z, inst.transform.w);
    let ndc = vec2<f32>(
        (world.x / uniforms.viewportSize.x) * 2.0 - 1.0,
        1.0 - (world.y / uniforms.viewportSize.y) * 2.0,
    );
    var out: VertexOutput;
    out.position = vec4<f32>(ndc, 0.0, 1.0);
    out.color = vec4<f32>(inst.color.rgb, inst.color.a * inst.opacity);
    out.localUV = local;
    out.shapeKind = inst.shapeKind;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    if (in.shapeKind > 0.5 && length(in.localUV) > 0.5) {
        discard;
    }
    return in.color;
}
`

// Quad is one axis-aligned rectangle or circle to draw this frame, in
// pixel coordinates with the origin at the top-left of the surface.
type Quad struct {
	X, Y, Width, Height float32
	Color               [4]float32
	Opacity             float32
	Circle              bool
}

// quadInstance is Quad packed into the layout quadWGSL's Instance struct
// expects, 16-byte aligned throughout.
type quadInstance struct {
	TX, TY, SX, SY float32
	R, G, B, A     float32
	ShapeKind      float32
	Opacity        float32
	Pad0, Pad1     float32
}

func toInstance(q Quad) quadInstance {
	shapeKind := float32(0)
	if q.Circle {
		shapeKind = 1
	}
	return quadInstance{
		TX: q.X + q.Width/2, TY: q.Y + q.Height/2,
		SX: q.Width, SY: q.Height,
		R: q.Color[0], G: q.Color[1], B: q.Color[2], A: q.Color[3],
		ShapeKind: shapeKind,
		Opacity:   q.Opacity,
	}
}

// quadInstanceSize is the marshaled size of quadInstance: 12 float32
// fields, matching quadWGSL's Instance struct layout exactly.
const quadInstanceSize = 12 * 4

// marshal packs q into quadWGSL's Instance layout, following the same
// binary.LittleEndian/math.Float32bits packing the pack's GPU uniform
// types use.
func (q quadInstance) marshal(buf []byte) {
	fields := [12]float32{q.TX, q.TY, q.SX, q.SY, q.R, q.G, q.B, q.A, q.ShapeKind, q.Opacity, q.Pad0, q.Pad1}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
}

func marshalInstances(instances []quadInstance) []byte {
	buf := make([]byte, len(instances)*quadInstanceSize)
	for i, inst := range instances {
		inst.marshal(buf[i*quadInstanceSize:])
	}
	return buf
}

type uniforms struct {
	ViewportW, ViewportH float32
	Pad0, Pad1           float32
}

// marshal packs the viewport-size uniform into quadWGSL's Uniforms layout.
func (u uniforms) marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(u.ViewportW))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(u.ViewportH))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(u.Pad0))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(u.Pad1))
	return buf
}

// Backend is the compositor's drawing surface: configure it to a size,
// bracket a frame with BeginFrame/EndFrame, draw every quad for the frame
// in one batch, and Present.
type Backend interface {
	ConfigureSurface(width, height int) error
	BeginFrame() error
	DrawQuads(quads []Quad) error
	EndFrame()
	Present()
}

type wgpuBackend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	width, height int
	configured    bool

	pipeline        *wgpu.RenderPipeline
	pipelineLayout  *wgpu.PipelineLayout
	shaderModule    *wgpu.ShaderModule
	bindGroupLayout *wgpu.BindGroupLayout
	uniformBuffer   *wgpu.Buffer
	instanceBuffer  *wgpu.Buffer
	instanceCap     int
	bindGroup       *wgpu.BindGroup

	frameSurface *wgpu.SurfaceTexture
	frameView    *wgpu.TextureView
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
}

// NewWGPUBackend creates a WebGPU surface and device against
// surfaceDescriptor (from a display.Adapter such as GLFWAdapter) and
// compiles the quad pipeline.
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor) (Backend, error) {
	runtime.LockOSThread()
	b := &wgpuBackend{instance: wgpu.CreateInstance(nil)}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{CompatibleSurface: b.surface})
	if err != nil {
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{Label: "compositor device"})
	if err != nil {
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.createPipeline(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *wgpuBackend) createPipeline() error {
	shader, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "quad shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: quadWGSL},
	})
	if err != nil {
		return fmt.Errorf("renderer: compile quad shader: %w", err)
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "quad bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("renderer: quad bind group layout: %w", err)
	}
	b.bindGroupLayout = layout

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "quad pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return fmt.Errorf("renderer: quad pipeline layout: %w", err)
	}

	b.uniformBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "quad uniforms",
		Size:  uint64(4 * 4),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("renderer: uniform buffer: %w", err)
	}

	b.pipelineLayout = pipelineLayout
	b.shaderModule = shader
	return nil
}

func (b *wgpuBackend) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.configured && b.width == width && b.height == height {
		return nil
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.width, b.height = width, height
	b.configured = true

	if b.pipeline == nil {
		pipeline, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  "quad pipeline",
			Layout: b.pipelineLayout,
			Vertex: wgpu.VertexState{
				Module:     b.shaderModule,
				EntryPoint: "vs_main",
			},
			Fragment: &wgpu.FragmentState{
				Module:     b.shaderModule,
				EntryPoint: "fs_main",
				Targets: []wgpu.ColorTargetState{{
					Format:    b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
						Alpha: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
					},
				}},
			},
			Primitive: wgpu.PrimitiveState{
				Topology: wgpu.PrimitiveTopologyTriangleList,
			},
			Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		})
		if err != nil {
			return fmt.Errorf("renderer: create quad pipeline: %w", err)
		}
		b.pipeline = pipeline
	}

	uni := uniforms{ViewportW: float32(width), ViewportH: float32(height)}
	b.queue.WriteBuffer(b.uniformBuffer, 0, uni.marshal())
	return nil
}

func (b *wgpuBackend) ensureInstanceCapacity(n int) error {
	if n <= b.instanceCap {
		return nil
	}
	newCap := n
	if newCap < 64 {
		newCap = 64
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "quad instances",
		Size:  uint64(newCap) * uint64(quadInstanceSize),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("renderer: grow instance buffer: %w", err)
	}
	b.instanceBuffer = buf
	b.instanceCap = newCap

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "quad bind group",
		Layout: b.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.uniformBuffer, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: b.instanceBuffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("renderer: quad bind group: %w", err)
	}
	b.bindGroup = bg
	return nil
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return fmt.Errorf("renderer: previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuBackend) DrawQuads(quads []Quad) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(quads) == 0 {
		return nil
	}
	if err := b.ensureInstanceCapacity(len(quads)); err != nil {
		return err
	}

	instances := make([]quadInstance, len(quads))
	for i, q := range quads {
		instances[i] = toInstance(q)
	}
	b.queue.WriteBuffer(b.instanceBuffer, 0, marshalInstances(instances))

	b.framePass.SetPipeline(b.pipeline)
	b.framePass.SetBindGroup(0, b.bindGroup, nil)
	b.framePass.Draw(6, uint32(len(quads)), 0, 0)
	return nil
}

func (b *wgpuBackend) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.End()
	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder, b.framePass, b.frameSurface, b.frameView = nil, nil, nil, nil
		return
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder, b.framePass = nil, nil
}

func (b *wgpuBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.frameView.Release()
	b.frameSurface.Release()
	b.frameSurface, b.frameView = nil, nil
}

var _ Backend = (*wgpuBackend)(nil)
