package compute

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/openfluke/devcompute/internal/logging"
)

var current atomic.Pointer[Context]

// Current returns the context made current by the last Apply, or nil.
func Current() *Context {
	return current.Load()
}

// Context is a session on one device of one backend. It must be initialized
// and applied before buffers can be mapped to the device or modules launched.
type Context struct {
	backend     string
	deviceIndex int

	mu          sync.Mutex
	device      Device
	initialized bool
	released    bool
	buffers     map[*Buffer]struct{}
}

// NewContext constructs a context for the named backend on device 0.
// Nothing is opened until Init.
func NewContext(backend string) *Context {
	if backend == "" {
		backend = HostBackendName
	}
	return &Context{
		backend: backend,
		buffers: make(map[*Buffer]struct{}),
	}
}

// OpenContext constructs, initializes and applies a context in one step.
func OpenContext(backend string, deviceIndex int) (*Context, error) {
	c := NewContext(backend)
	if err := c.SetDevice(deviceIndex); err != nil {
		return nil, err
	}
	if err := c.Init(); err != nil {
		return nil, err
	}
	if err := c.Apply(); err != nil {
		_ = c.Release()
		return nil, err
	}
	return c, nil
}

// SetDevice selects the device index. It must be called before Init.
func (c *Context) SetDevice(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return fmt.Errorf("set device %d: %w", index, ErrAlreadyInitialized)
	}
	if index < 0 {
		return fmt.Errorf("set device %d: %w", index, ErrDeviceIndex)
	}
	c.deviceIndex = index
	return nil
}

// Backend returns the backend name.
func (c *Context) Backend() string { return c.backend }

// DeviceIndex returns the selected device index.
func (c *Context) DeviceIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceIndex
}

// Device returns the opened device, or nil before Init.
func (c *Context) Device() Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

// Init opens the device. Calling Init on an initialized context is a no-op.
func (c *Context) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return fmt.Errorf("init context: %w", ErrReleased)
	}
	if c.initialized {
		return nil
	}

	b, ok := LookupBackend(c.backend)
	if !ok {
		return fmt.Errorf("init context %q: %w", c.backend, ErrNoBackend)
	}
	if !b.Available() {
		return fmt.Errorf("init context %q: %w", c.backend, ErrBackendUnavailable)
	}
	dev, err := b.Open(c.deviceIndex)
	if err != nil {
		return fmt.Errorf("init context %q device %d: %w", c.backend, c.deviceIndex, err)
	}

	c.device = dev
	c.initialized = true
	logging.Component("compute").Debugf("context %s/%d initialized on %s", c.backend, c.deviceIndex, dev.Info().Name)
	return nil
}

// Apply makes c the current context, replacing any previous one.
func (c *Context) Apply() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return fmt.Errorf("apply context: %w", ErrReleased)
	}
	if !c.initialized {
		return fmt.Errorf("apply context: %w", ErrContextNotInitialized)
	}
	current.Store(c)
	return nil
}

// IsCurrent reports whether c is the current context.
func (c *Context) IsCurrent() bool {
	return current.Load() == c
}

// ready reports whether device work may be issued through c.
func (c *Context) ready() error {
	if c == nil {
		return ErrContextNotInitialized
	}
	c.mu.Lock()
	initialized, released := c.initialized, c.released
	c.mu.Unlock()
	switch {
	case released:
		return ErrReleased
	case !initialized:
		return ErrContextNotInitialized
	case !c.IsCurrent():
		return ErrContextNotCurrent
	}
	return nil
}

func (c *Context) track(b *Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	c.buffers[b] = struct{}{}
	return nil
}

func (c *Context) untrack(b *Buffer) {
	c.mu.Lock()
	if c.buffers != nil {
		delete(c.buffers, b)
	}
	c.mu.Unlock()
}

// Release frees device memory that buffers still hold for this context and
// closes the device. Buffers should be released first; stragglers are freed
// here and logged.
func (c *Context) Release() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	dev := c.device
	pending := make([]*Buffer, 0, len(c.buffers))
	for b := range c.buffers {
		pending = append(pending, b)
	}
	c.buffers = nil
	c.mu.Unlock()

	current.CompareAndSwap(c, nil)

	var firstErr error
	if len(pending) > 0 {
		logging.Component("compute").Warnf("context %s/%d released with %d live buffer(s)", c.backend, c.deviceIndex, len(pending))
	}
	for _, b := range pending {
		if err := b.dropContext(c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if dev != nil {
		if err := dev.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
