package endian

import (
	"fmt"

	"github.com/openfluke/devcompute/compute"
)

// SwapModule converts the elements of one bound buffer between big and little
// endian. Geometry follows the buffer's first axis with one thread per block
// unless configured otherwise.
type SwapModule struct {
	compute.KernelModule

	custom bool
}

// Option configures a SwapModule.
type Option func(*SwapModule)

// WithThreads sets the invocations per block.
func WithThreads(n int) Option {
	return func(m *SwapModule) { m.SetThreads(n) }
}

// WithStrictGeometry rejects extents that are not a multiple of the thread count.
func WithStrictGeometry() Option {
	return func(m *SwapModule) { m.SetStrict(true) }
}

// WithKernel replaces the swap kernel, e.g. with compute.IdentityKernel.
func WithKernel(k compute.Kernel) Option {
	return func(m *SwapModule) {
		m.SetKernel(k)
		m.custom = k != nil
	}
}

// WithName overrides the module name used in logs and errors.
func WithName(name string) Option {
	return func(m *SwapModule) { m.SetName(name) }
}

// NewSwapModule binds buf and initializes the module, so the returned module
// is ready to launch.
func NewSwapModule(buf *compute.Buffer, opts ...Option) (*SwapModule, error) {
	m := &SwapModule{}
	m.SetName("SwapModule")
	m.SetThreads(1)
	for _, opt := range opts {
		opt(m)
	}
	m.SetBuffer(buf)
	if err := m.Init(); err != nil {
		return nil, err
	}
	return m, nil
}

// Init checks the element size of the bound buffer and computes the launch
// geometry.
func (m *SwapModule) Init() error {
	if buf := m.Buffer(); buf != nil && buf.IsInitialized() && !m.custom {
		size := buf.ElementSize()
		switch size {
		case 1, 2, 4, 8:
		default:
			m.Invalidate()
			return fmt.Errorf("init %s: %d-byte elements: %w", m.label(), size, ErrElementSize)
		}
		m.SetKernel(SwapKernel{ElementSize: size})
	}
	if m.Name() == "" {
		m.SetName("SwapModule")
	}
	return m.KernelModule.Init()
}

func (m *SwapModule) label() string {
	if n := m.Name(); n != "" {
		return n
	}
	return "SwapModule"
}
