package gpu

import (
	"fmt"

	"github.com/openfluke/devcompute/compute"
	"github.com/openfluke/devcompute/internal/logging"
	"github.com/openfluke/webgpu/wgpu"
)

// pipeline is a compiled compute shader, cached per source text.
type pipeline struct {
	module *wgpu.ShaderModule
	pipe   *wgpu.ComputePipeline
}

func (p *pipeline) release() {
	if p.pipe != nil {
		p.pipe.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}

func (d *Device) compile(s compute.Shader) (*pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if p, ok := d.pipelines[s.Source]; ok {
		return p, nil
	}

	entry := s.Entry
	if entry == "" {
		entry = "main"
	}
	module, err := d.ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          s.Label + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.Source},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", s.Label, err)
	}
	pipe, err := d.ctx.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   s.Label + "_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: entry},
	})
	if err != nil {
		module.Release()
		return nil, fmt.Errorf("pipeline %s: %w", s.Label, err)
	}

	p := &pipeline{module: module, pipe: pipe}
	d.pipelines[s.Source] = p
	logging.Component("gpu").Debugf("compiled %s", s.Label)
	return p, nil
}

// RunShader binds mem at group 0, binding 0 and dispatches g.Blocks
// workgroups. The shader declares the workgroup size itself.
func (d *Device) RunShader(s compute.Shader, g compute.Geometry, mem compute.DeviceMemory) error {
	b, err := d.own(mem)
	if err != nil {
		return fmt.Errorf("run %s: %w", s.Label, err)
	}
	if g.Blocks == 0 {
		return nil
	}
	if err := g.CheckLimits(d.Limits()); err != nil {
		return fmt.Errorf("run %s: %w", s.Label, err)
	}

	p, err := d.compile(s)
	if err != nil {
		return err
	}

	bindGroup, err := d.ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  s.Label + "_Bind",
		Layout: p.pipe.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.buf, Size: b.buf.GetSize()},
		},
	})
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.Label, err)
	}
	defer bindGroup.Release()

	enc, err := d.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.Label, err)
	}
	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(p.pipe)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(g.Blocks, 1, 1)
	pass.End()

	cmd, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish %s: %w", s.Label, err)
	}
	d.ctx.Queue.Submit(cmd)
	return nil
}
