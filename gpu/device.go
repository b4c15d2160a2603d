package gpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/openfluke/devcompute/compute"
	"github.com/openfluke/webgpu/wgpu"
)

// Device is a compute.ShaderDevice backed by one WebGPU device.
type Device struct {
	ctx     *Context
	index   int
	timeout time.Duration

	mu        sync.Mutex
	closed    bool
	allocated uint64
	buffers   map[*deviceBuffer]struct{}
	pipelines map[string]*pipeline
}

var _ compute.ShaderDevice = (*Device)(nil)

func newDevice(ctx *Context, index int, timeout time.Duration) *Device {
	return &Device{
		ctx:       ctx,
		index:     index,
		timeout:   timeout,
		buffers:   make(map[*deviceBuffer]struct{}),
		pipelines: make(map[string]*pipeline),
	}
}

func (d *Device) Info() compute.DeviceInfo {
	r := d.ctx.Report
	return compute.DeviceInfo{
		Index:   d.index,
		Name:    r.Name,
		Vendor:  r.VendorID,
		Driver:  r.Driver,
		Backend: BackendName,
	}
}

func (d *Device) Limits() compute.Limits {
	l := d.ctx.Report.Limits
	return compute.Limits{
		MaxThreadsPerBlock:        l.MaxComputeInvocationsPerWorkgroup,
		MaxWorkgroupsPerDimension: l.MaxComputeWorkgroupsPerDimension,
		MaxBufferSize:             l.MaxBufferSize,
	}
}

// Allocated returns the bytes currently held by live allocations.
func (d *Device) Allocated() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated
}

func (d *Device) Allocate(size int) (compute.DeviceMemory, error) {
	if size <= 0 {
		return nil, fmt.Errorf("allocate %d bytes: %w", size, compute.ErrSizeMismatch)
	}
	padded := uint64(align4(size))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if limit := d.ctx.Report.Limits.MaxBufferSize; limit > 0 && padded > limit {
		return nil, fmt.Errorf("allocate %d bytes, max buffer %d: %w", padded, limit, compute.ErrGeometryLimit)
	}
	if budget := d.ctx.Report.Recommended.BudgetBytes; budget > 0 && d.allocated+padded > budget {
		return nil, fmt.Errorf("allocate %d bytes with %d of %d in use: %w", padded, d.allocated, budget, ErrBudget)
	}

	buf, err := d.ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("Storage_%d", len(d.buffers)),
		Size:  padded,
		Usage: storageUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer: %w", err)
	}
	mem := &deviceBuffer{buf: buf, size: size, owner: d}
	d.buffers[mem] = struct{}{}
	d.allocated += padded
	return mem, nil
}

func (d *Device) forget(b *deviceBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[b]; ok {
		delete(d.buffers, b)
		d.allocated -= uint64(align4(b.size))
	}
}

func (d *Device) own(mem compute.DeviceMemory) (*deviceBuffer, error) {
	b, ok := mem.(*deviceBuffer)
	if !ok || b.owner != d || b.buf == nil {
		return nil, ErrForeignMemory
	}
	return b, nil
}

func (d *Device) Upload(dst compute.DeviceMemory, src []byte) error {
	b, err := d.own(dst)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if len(src) != b.size {
		return fmt.Errorf("upload %d bytes into %d: %w", len(src), b.size, compute.ErrSizeMismatch)
	}
	data := src
	if pad := align4(len(src)); pad != len(src) {
		data = make([]byte, pad)
		copy(data, src)
	}
	d.ctx.Queue.WriteBuffer(b.buf, 0, data)
	return nil
}

func (d *Device) Download(dst []byte, src compute.DeviceMemory) error {
	b, err := d.own(src)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if len(dst) != b.size {
		return fmt.Errorf("download %d bytes into %d: %w", b.size, len(dst), compute.ErrSizeMismatch)
	}
	data, err := readBuffer(d.ctx, b.buf, b.size, d.timeout)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	copy(dst, data)
	return nil
}

// Synchronize waits for submitted work to finish.
func (d *Device) Synchronize() error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrClosed
	}
	d.ctx.Device.Poll(true, nil)
	return nil
}

// Close releases pipelines, live buffers and the WebGPU context.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	pipes := d.pipelines
	bufs := make([]*deviceBuffer, 0, len(d.buffers))
	for b := range d.buffers {
		bufs = append(bufs, b)
	}
	d.pipelines = nil
	d.mu.Unlock()

	for _, p := range pipes {
		p.release()
	}
	for _, b := range bufs {
		_ = b.Release()
	}
	d.ctx.Release()
	return nil
}
