package compute

import (
	"sort"
	"sync"
)

// Backend is implemented by device providers (host, webgpu).
// It is responsible for device discovery and for opening devices.
type Backend interface {
	Info() BackendInfo
	Available() bool
	Devices() ([]DeviceInfo, error)
	Open(deviceIndex int) (Device, error)
}

// Device is an opened execution device.
type Device interface {
	Info() DeviceInfo
	Limits() Limits
	// Allocate reserves size bytes of device memory.
	Allocate(size int) (DeviceMemory, error)
	// Upload copies host bytes into device memory.
	Upload(dst DeviceMemory, src []byte) error
	// Download copies device memory into host bytes.
	Download(dst []byte, src DeviceMemory) error
	// Synchronize blocks until previously issued work has completed.
	Synchronize() error
	Close() error
}

// DeviceMemory is an allocation owned by a Device.
type DeviceMemory interface {
	Size() int
	Release() error
}

// HostMemory is device memory the host can address directly.
type HostMemory interface {
	DeviceMemory
	Bytes() []byte
}

// Shader is a compute program in WGSL.
type Shader struct {
	Label  string
	Source string
	Entry  string
}

// ShaderDevice is a Device that can run compute shaders over one storage buffer.
type ShaderDevice interface {
	Device
	RunShader(s Shader, g Geometry, mem DeviceMemory) error
}

// BackendInfo describes a backend implementation.
type BackendInfo struct {
	Name        string
	Version     string
	Description string
}

// DeviceInfo describes a device.
type DeviceInfo struct {
	Index   int
	Name    string
	Vendor  string
	Driver  string
	Backend string
}

// Limits reports the launch and memory bounds of a device. Zero means unbounded.
type Limits struct {
	MaxThreadsPerBlock        uint32
	MaxWorkgroupsPerDimension uint32
	MaxBufferSize             uint64
}

var (
	backendMu sync.RWMutex
	backends  = map[string]Backend{}
)

// RegisterBackend registers a backend under name. Passing nil removes it.
func RegisterBackend(name string, b Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	if b == nil {
		delete(backends, name)
		return
	}
	backends[name] = b
}

// LookupBackend returns the backend registered under name.
func LookupBackend(name string) (Backend, bool) {
	backendMu.RLock()
	b, ok := backends[name]
	backendMu.RUnlock()
	return b, ok
}

// BackendNames lists registered backends in sorted order.
func BackendNames() []string {
	backendMu.RLock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	backendMu.RUnlock()
	sort.Strings(out)
	return out
}
