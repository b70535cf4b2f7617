package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/warp/imgwarp"
	"github.com/openfluke/warp/tensor"
)

// WarpSpec fixes the tensor geometry a pipeline is compiled for. Shader
// dimensions are burned in as WGSL constants, so a new spec needs a new
// pipeline.
type WarpSpec struct {
	Batch    int
	Channels int
	InH      int
	InW      int
	OutH     int
	OutW     int
}

// Warper executes the affine warp primitive on the GPU. It satisfies
// affine.Warper[float32]; pipelines and buffers are rebuilt lazily when
// the input geometry changes.
type Warper struct {
	spec WarpSpec

	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup

	srcBuffer    *wgpu.Buffer
	matrixBuffer *wgpu.Buffer
	outBuffer    *wgpu.Buffer
}

// NewWarper creates a Warper, initializing the GPU context.
func NewWarper() (*Warper, error) {
	if err := EnsureGPU(); err != nil {
		return nil, err
	}
	return &Warper{}, nil
}

// WarpAffine resamples src ((B,C,H,W) float32) through m ((B,2,3)) with
// the same contract as imgwarp.WarpAffine: inverse-mapping bilinear
// sampling with zero padding.
func (l *Warper) WarpAffine(src, m *tensor.Tensor[float32], outH, outW int) (*tensor.Tensor[float32], error) {
	if src == nil || m == nil {
		return nil, fmt.Errorf("gpu: nil argument to WarpAffine")
	}
	if src.Rank() != 4 {
		return nil, fmt.Errorf("gpu: src must have shape (B,C,H,W), got %v", src.Shape)
	}
	if m.Rank() != 3 || m.Shape[1] != 2 || m.Shape[2] != 3 {
		return nil, fmt.Errorf("gpu: matrix must have shape (B,2,3), got %v", m.Shape)
	}
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("gpu: invalid output size %dx%d", outH, outW)
	}
	spec := WarpSpec{
		Batch:    src.Shape[0],
		Channels: src.Shape[1],
		InH:      src.Shape[2],
		InW:      src.Shape[3],
		OutH:     outH,
		OutW:     outW,
	}
	if m.Shape[0] != spec.Batch {
		return nil, fmt.Errorf("gpu: matrix batch %d does not match image batch %d",
			m.Shape[0], spec.Batch)
	}

	ctx, err := GetContext()
	if err != nil {
		return nil, err
	}
	if l.pipeline == nil || l.spec != spec {
		l.Cleanup()
		l.spec = spec
		if err := l.allocateBuffers(ctx); err != nil {
			return nil, err
		}
		if err := l.compile(ctx); err != nil {
			return nil, err
		}
		if err := l.createBindGroup(ctx); err != nil {
			return nil, err
		}
	}

	// The shader maps each output pixel through the inverse matrix, so
	// invert on the host before upload.
	inv := make([]float32, spec.Batch*6)
	for b := 0; b < spec.Batch; b++ {
		im, err := imgwarp.InvertAffine(m.Data[b*6 : b*6+6])
		if err != nil {
			return nil, err
		}
		copy(inv[b*6:], im)
	}
	ctx.Queue.WriteBuffer(l.srcBuffer, 0, wgpu.ToBytes(src.Data))
	ctx.Queue.WriteBuffer(l.matrixBuffer, 0, wgpu.ToBytes(inv))

	encoder, err := ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: failed to create command encoder: %v", err)
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(l.pipeline)
	pass.SetBindGroup(0, l.bindGroup, nil)
	total := spec.Batch * spec.Channels * spec.OutH * spec.OutW
	pass.DispatchWorkgroups(uint32((total+255)/256), 1, 1)
	pass.End()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: failed to finish command: %v", err)
	}
	ctx.Queue.Submit(cmd)

	data, err := ReadBuffer(l.outBuffer, total)
	if err != nil {
		return nil, err
	}
	return tensor.FromSlice(data, spec.Batch, spec.Channels, spec.OutH, spec.OutW)
}

func (l *Warper) allocateBuffers(ctx *Context) error {
	var err error
	inSize := l.spec.Batch * l.spec.Channels * l.spec.InH * l.spec.InW
	outSize := l.spec.Batch * l.spec.Channels * l.spec.OutH * l.spec.OutW

	l.srcBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Warp_Src",
		Size:  uint64(inSize * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	l.matrixBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Warp_Matrix",
		Size:  uint64(l.spec.Batch * 6 * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	l.outBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Warp_Out",
		Size:  uint64(outSize * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	return err
}

func (l *Warper) generateShader() string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> src : array<f32>;
		@group(0) @binding(1) var<storage, read> matrices : array<f32>;
		@group(0) @binding(2) var<storage, read_write> dst : array<f32>;

		const BATCH: u32 = %du;
		const CH: u32 = %du;
		const IN_H: u32 = %du;
		const IN_W: u32 = %du;
		const OUT_H: u32 = %du;
		const OUT_W: u32 = %du;

		fn sample(base: u32, y: i32, x: i32) -> f32 {
			if (y < 0 || y >= i32(IN_H) || x < 0 || x >= i32(IN_W)) {
				return 0.0;
			}
			return src[base + u32(y) * IN_W + u32(x)];
		}

		@compute @workgroup_size(256)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let idx = gid.x;
			let total = BATCH * CH * OUT_H * OUT_W;
			if (idx >= total) { return; }

			// Output layout: [B, C, H, W]
			let ox = idx %% OUT_W;
			let oy = (idx / OUT_W) %% OUT_H;
			let c = (idx / (OUT_W * OUT_H)) %% CH;
			let b = idx / (OUT_W * OUT_H * CH);

			let mi = b * 6u;
			let xs = matrices[mi] * f32(ox) + matrices[mi + 1u] * f32(oy) + matrices[mi + 2u];
			let ys = matrices[mi + 3u] * f32(ox) + matrices[mi + 4u] * f32(oy) + matrices[mi + 5u];

			let x0 = i32(floor(xs));
			let y0 = i32(floor(ys));
			let fx = xs - f32(x0);
			let fy = ys - f32(y0);

			let base = (b * CH + c) * IN_H * IN_W;
			var acc: f32 = 0.0;
			acc += sample(base, y0, x0) * (1.0 - fx) * (1.0 - fy);
			acc += sample(base, y0, x0 + 1) * fx * (1.0 - fy);
			acc += sample(base, y0 + 1, x0) * (1.0 - fx) * fy;
			acc += sample(base, y0 + 1, x0 + 1) * fx * fy;

			dst[idx] = acc;
		}
	`, l.spec.Batch, l.spec.Channels, l.spec.InH, l.spec.InW, l.spec.OutH, l.spec.OutW)
}

func (l *Warper) compile(ctx *Context) error {
	mod, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Warp_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: l.generateShader()},
	})
	if err != nil {
		return err
	}
	l.pipeline, err = ctx.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "Warp_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: mod, EntryPoint: "main"},
	})
	return err
}

func (l *Warper) createBindGroup(ctx *Context) error {
	var err error
	l.bindGroup, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Warp_Bind",
		Layout: l.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: l.srcBuffer, Size: l.srcBuffer.GetSize()},
			{Binding: 1, Buffer: l.matrixBuffer, Size: l.matrixBuffer.GetSize()},
			{Binding: 2, Buffer: l.outBuffer, Size: l.outBuffer.GetSize()},
		},
	})
	return err
}

// Cleanup releases the device buffers. The Warper can be reused; the next
// WarpAffine call reallocates.
func (l *Warper) Cleanup() {
	if l.srcBuffer != nil {
		l.srcBuffer.Destroy()
		l.srcBuffer = nil
	}
	if l.matrixBuffer != nil {
		l.matrixBuffer.Destroy()
		l.matrixBuffer = nil
	}
	if l.outBuffer != nil {
		l.outBuffer.Destroy()
		l.outBuffer = nil
	}
	l.pipeline = nil
	l.bindGroup = nil
}
