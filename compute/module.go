package compute

import (
	"fmt"
	"sync"

	"github.com/openfluke/devcompute/internal/logging"
)

// Module is a unit of device work. Init validates dependencies and prepares
// the launch; Launch issues it through a current context; Clear drops
// references so the module can be rebound.
type Module interface {
	Name() string
	Init() error
	Launch(ctx *Context) error
	Clear()
}

// ModuleBase carries the bookkeeping shared by modules. Embed it and call its
// Init and Clear from the embedding type's versions.
type ModuleBase struct {
	name        string
	initialized bool
}

func (m *ModuleBase) Name() string { return m.name }

func (m *ModuleBase) SetName(name string) { m.name = name }

// Init marks the module initialized.
func (m *ModuleBase) Init() error {
	m.initialized = true
	return nil
}

// IsInitialized reports whether Init succeeded since the last Clear.
func (m *ModuleBase) IsInitialized() bool { return m.initialized }

// Clear marks the module uninitialized.
func (m *ModuleBase) Clear() { m.initialized = false }

// KernelModule launches a Kernel over the first axis of one bound buffer.
// The buffer is referenced, not owned.
type KernelModule struct {
	ModuleBase

	mu       sync.Mutex
	buffer   *Buffer
	kernel   Kernel
	threads  int
	strict   bool
	geometry Geometry
}

// NewKernelModule returns an unbound module running k with one thread per block.
func NewKernelModule(name string, k Kernel) *KernelModule {
	m := &KernelModule{kernel: k, threads: 1}
	m.SetName(name)
	return m
}

// SetBuffer binds buf, replacing any previous binding. The module must be
// initialized again before the next launch.
func (m *KernelModule) SetBuffer(buf *Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = buf
	m.geometry = Geometry{}
	m.ModuleBase.Clear()
}

// Buffer returns the bound buffer, or nil.
func (m *KernelModule) Buffer() *Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffer
}

// SetKernel replaces the kernel. Nil restores the identity kernel.
func (m *KernelModule) SetKernel(k Kernel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kernel = k
}

// Kernel returns the kernel the module launches.
func (m *KernelModule) Kernel() Kernel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kernel == nil {
		return IdentityKernel
	}
	return m.kernel
}

// SetThreads sets the invocations per block used by the next Init.
// Values below one are treated as one.
func (m *KernelModule) SetThreads(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 {
		n = 1
	}
	m.threads = n
}

// SetStrict makes Init fail when the extent leaves a remainder.
func (m *KernelModule) SetStrict(strict bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strict = strict
}

// Geometry returns the launch geometry computed by the last Init.
func (m *KernelModule) Geometry() Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geometry
}

// Init computes the launch geometry from the bound buffer's first axis.
// A failed Init leaves the module uninitialized.
func (m *KernelModule) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.geometry = Geometry{}
	m.ModuleBase.Clear()

	if m.buffer == nil {
		return fmt.Errorf("init %s: %w", m.Name(), ErrNoBuffer)
	}
	if !m.buffer.IsInitialized() {
		return fmt.Errorf("init %s: %w", m.Name(), ErrNotInitialized)
	}

	threads := m.threads
	if threads < 1 {
		threads = 1
	}
	g, err := LinearGeometry(m.buffer.Dimension(0), threads)
	if err != nil {
		return fmt.Errorf("init %s: %w", m.Name(), err)
	}
	if g.Remainder > 0 {
		if m.strict {
			return fmt.Errorf("init %s: extent %d, %d threads: %w", m.Name(), m.buffer.Dimension(0), threads, ErrUnevenGeometry)
		}
		logging.Component("compute").Warnf("%s: %d trailing element(s) not covered by %s", m.Name(), g.Remainder, g)
	}
	m.geometry = g
	return m.ModuleBase.Init()
}

// Invalidate drops the geometry and marks the module uninitialized while
// keeping the buffer binding.
func (m *KernelModule) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometry = Geometry{}
	m.ModuleBase.Clear()
}

// Launch maps the buffer to ctx's device and runs the kernel.
func (m *KernelModule) Launch(ctx *Context) error {
	m.mu.Lock()
	buf, g, k, ok := m.buffer, m.geometry, m.kernel, m.IsInitialized()
	m.mu.Unlock()

	if !ok || buf == nil {
		return fmt.Errorf("launch %s: %w", m.Name(), ErrModuleNotInitialized)
	}
	if k == nil {
		k = IdentityKernel
	}
	if err := ctx.ready(); err != nil {
		return fmt.Errorf("launch %s: %w", m.Name(), err)
	}
	dev := ctx.Device()
	if err := g.CheckLimits(dev.Limits()); err != nil {
		return fmt.Errorf("launch %s: %w", m.Name(), err)
	}

	mem, err := buf.MapDevice(ctx)
	if err != nil {
		return fmt.Errorf("launch %s: %w", m.Name(), err)
	}
	logging.Component("compute").Debugf("launch %s: kernel %s, %s", m.Name(), k.Name(), g)
	if err := k.Launch(dev, g, mem); err != nil {
		return fmt.Errorf("launch %s: kernel %s: %w", m.Name(), k.Name(), err)
	}
	return nil
}

// Clear drops the buffer reference and the geometry. It is idempotent.
func (m *KernelModule) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = nil
	m.geometry = Geometry{}
	m.ModuleBase.Clear()
}
