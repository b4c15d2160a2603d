package gpu

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openfluke/devcompute/compute"
	"github.com/openfluke/webgpu/wgpu"
)

// BackendName is the registry name of the WebGPU backend.
const BackendName = "webgpu"

// DefaultReadbackTimeout bounds how long a download waits for the device.
const DefaultReadbackTimeout = 2 * time.Second

func init() {
	compute.RegisterBackend(BackendName, NewBackend(DefaultReadbackTimeout))
}

// Register replaces the registered WebGPU backend with one using timeout
// for readbacks.
func Register(timeout time.Duration) {
	compute.RegisterBackend(BackendName, NewBackend(timeout))
}

// Backend opens WebGPU adapters as compute devices.
type Backend struct {
	timeout time.Duration

	once      sync.Once
	available bool
}

// NewBackend returns a backend whose devices wait at most timeout per readback.
func NewBackend(timeout time.Duration) *Backend {
	if timeout <= 0 {
		timeout = DefaultReadbackTimeout
	}
	return &Backend{timeout: timeout}
}

func (b *Backend) Info() compute.BackendInfo {
	return compute.BackendInfo{
		Name:        BackendName,
		Version:     "wgpu-native",
		Description: "WebGPU compute shaders",
	}
}

// Available reports whether an adapter can be requested. The probe runs once.
func (b *Backend) Available() bool {
	b.once.Do(func() {
		inst := wgpu.CreateInstance(nil)
		if inst == nil {
			return
		}
		defer inst.Release()
		adapter, err := inst.RequestAdapter(nil)
		if err != nil || adapter == nil {
			return
		}
		adapter.Release()
		b.available = true
	})
	return b.available
}

func (b *Backend) Devices() ([]compute.DeviceInfo, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, ErrNoAdapter
	}
	defer inst.Release()

	adapters := inst.EnumerateAdapters(nil)
	out := make([]compute.DeviceInfo, 0, len(adapters))
	for i, a := range adapters {
		info := a.GetInfo()
		out = append(out, compute.DeviceInfo{
			Index:   i,
			Name:    strings.TrimSpace(info.Name),
			Vendor:  fmt.Sprintf("0x%04x", info.VendorId),
			Driver:  strings.TrimSpace(info.DriverDescription),
			Backend: BackendName,
		})
		a.Release()
	}
	return out, nil
}

func (b *Backend) Open(deviceIndex int) (compute.Device, error) {
	if deviceIndex < 0 {
		return nil, fmt.Errorf("webgpu device %d: %w", deviceIndex, compute.ErrDeviceIndex)
	}
	ctx, err := openContext(deviceIndex)
	if err != nil {
		return nil, err
	}
	return newDevice(ctx, deviceIndex, b.timeout), nil
}
