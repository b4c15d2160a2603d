package compute

import (
	"fmt"
	"runtime"
	"sync"
)

// HostBackendName is the registry name of the CPU-resident backend.
const HostBackendName = "host"

func init() {
	RegisterBackend(HostBackendName, NewHostBackend())
}

// HostBackend keeps "device" memory in ordinary Go slices. It is always
// available and executes kernels on the CPU, which makes it the default for
// tests and for machines without an adapter.
type HostBackend struct {
	device DeviceInfo
}

// NewHostBackend returns a host backend with a single device.
func NewHostBackend() *HostBackend {
	return &HostBackend{
		device: DeviceInfo{
			Index:   0,
			Name:    fmt.Sprintf("host (%s)", runtime.GOARCH),
			Vendor:  "go",
			Driver:  runtime.Version(),
			Backend: HostBackendName,
		},
	}
}

func (b *HostBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        HostBackendName,
		Version:     "1",
		Description: "CPU-resident device memory",
	}
}

func (b *HostBackend) Available() bool { return true }

func (b *HostBackend) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{b.device}, nil
}

func (b *HostBackend) Open(deviceIndex int) (Device, error) {
	if deviceIndex != 0 {
		return nil, fmt.Errorf("host backend: device %d: %w", deviceIndex, ErrDeviceIndex)
	}
	return &HostDevice{info: b.device}, nil
}

// HostStats counts transfers issued against a HostDevice.
type HostStats struct {
	Allocations int
	Uploads     int
	Downloads   int
	Syncs       int
}

// HostDevice is the device opened by HostBackend.
type HostDevice struct {
	info DeviceInfo

	mu    sync.Mutex
	stats HostStats
}

func (d *HostDevice) Info() DeviceInfo { return d.info }

func (d *HostDevice) Limits() Limits { return Limits{} }

// Stats returns a snapshot of the transfer counters.
func (d *HostDevice) Stats() HostStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *HostDevice) Allocate(size int) (DeviceMemory, error) {
	if size <= 0 {
		return nil, fmt.Errorf("host device: allocate %d bytes: %w", size, ErrSizeMismatch)
	}
	d.mu.Lock()
	d.stats.Allocations++
	d.mu.Unlock()
	return &hostMemory{data: make([]byte, size)}, nil
}

func (d *HostDevice) Upload(dst DeviceMemory, src []byte) error {
	mem, ok := dst.(*hostMemory)
	if !ok {
		return fmt.Errorf("host device: upload target is %T", dst)
	}
	if len(src) != len(mem.data) {
		return fmt.Errorf("host device: upload %d bytes into %d: %w", len(src), len(mem.data), ErrSizeMismatch)
	}
	copy(mem.data, src)
	d.mu.Lock()
	d.stats.Uploads++
	d.mu.Unlock()
	return nil
}

func (d *HostDevice) Download(dst []byte, src DeviceMemory) error {
	mem, ok := src.(*hostMemory)
	if !ok {
		return fmt.Errorf("host device: download source is %T", src)
	}
	if len(dst) != len(mem.data) {
		return fmt.Errorf("host device: download %d bytes into %d: %w", len(mem.data), len(dst), ErrSizeMismatch)
	}
	copy(dst, mem.data)
	d.mu.Lock()
	d.stats.Downloads++
	d.mu.Unlock()
	return nil
}

func (d *HostDevice) Synchronize() error {
	d.mu.Lock()
	d.stats.Syncs++
	d.mu.Unlock()
	return nil
}

func (d *HostDevice) Close() error { return nil }

type hostMemory struct {
	data []byte
}

func (m *hostMemory) Size() int { return len(m.data) }

func (m *hostMemory) Bytes() []byte { return m.data }

func (m *hostMemory) Release() error {
	m.data = nil
	return nil
}
