package compute

import (
	"fmt"
	"sync"
)

// MapTarget selects which side of a buffer a mapping is valid for and how the
// caller intends to use it.
type MapTarget int

const (
	// MapNone is the state of a buffer that has not been mapped yet.
	MapNone MapTarget = iota
	// MapHostSource maps host memory for reading.
	MapHostSource
	// MapHostTarget maps host memory for writing. The host copy becomes
	// authoritative and the next device mapping uploads it.
	MapHostTarget
	// MapDevice maps device memory for the context. The device copy becomes
	// authoritative and the next host mapping downloads it.
	MapDevice
)

func (t MapTarget) String() string {
	switch t {
	case MapNone:
		return "none"
	case MapHostSource:
		return "host-source"
	case MapHostTarget:
		return "host-target"
	case MapDevice:
		return "device"
	default:
		return fmt.Sprintf("MapTarget(%d)", int(t))
	}
}

// Side names the copy of a buffer's data.
type Side int

const (
	SideHost Side = iota
	SideDevice
)

func (s Side) String() string {
	if s == SideDevice {
		return "device"
	}
	return "host"
}

// Buffer is a dimensioned block of elements with a host copy and one device
// copy per context. Exactly one side is authoritative; mapping the other side
// copies the data across first.
//
// Buffers are owned by the caller. Modules only reference them.
type Buffer struct {
	mu sync.Mutex

	elemSize    int
	dims        []int
	initialized bool
	released    bool

	host    []byte
	devices map[*Context]DeviceMemory

	// version is bumped on every write mapping. A copy whose version equals
	// it holds current data.
	version    int
	hostVer    int
	devVer     map[*Context]int
	authority  Side
	lastMapped MapTarget
}

// NewBuffer returns an initialized buffer of elemSize-byte elements with the
// given per-axis extents.
func NewBuffer(elemSize int, dims ...int) (*Buffer, error) {
	b := &Buffer{}
	if err := b.SetElementSize(elemSize); err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("new buffer: no axes: %w", ErrInvalidDimension)
	}
	for axis, extent := range dims {
		if err := b.SetDimension(axis, extent); err != nil {
			return nil, err
		}
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// SetElementSize sets the size of one element in bytes.
func (b *Buffer) SetElementSize(bytes int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return fmt.Errorf("set element size: %w", ErrAlreadyInitialized)
	}
	if bytes < 1 {
		return fmt.Errorf("set element size %d: %w", bytes, ErrInvalidElementSize)
	}
	b.elemSize = bytes
	return nil
}

// SetDimension sets the extent of one axis. Axes below it that were never
// set default to an extent of one.
func (b *Buffer) SetDimension(axis, extent int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return fmt.Errorf("set dimension: %w", ErrAlreadyInitialized)
	}
	if axis < 0 || extent < 1 {
		return fmt.Errorf("set dimension %d to %d: %w", axis, extent, ErrInvalidDimension)
	}
	for len(b.dims) <= axis {
		b.dims = append(b.dims, 1)
	}
	b.dims[axis] = extent
	return nil
}

// Init validates the layout and allocates host memory. Device memory is
// allocated lazily on the first device mapping per context.
func (b *Buffer) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return fmt.Errorf("init buffer: %w", ErrReleased)
	}
	if b.initialized {
		return nil
	}
	if b.elemSize < 1 {
		return fmt.Errorf("init buffer: %w", ErrInvalidElementSize)
	}
	if len(b.dims) == 0 {
		return fmt.Errorf("init buffer: no axes: %w", ErrInvalidDimension)
	}
	b.host = make([]byte, b.elemSize*product(b.dims))
	b.devices = make(map[*Context]DeviceMemory)
	b.devVer = make(map[*Context]int)
	b.authority = SideHost
	b.initialized = true
	return nil
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// IsInitialized reports whether Init succeeded and the buffer is not released.
func (b *Buffer) IsInitialized() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized && !b.released
}

// ElementSize returns the element size in bytes.
func (b *Buffer) ElementSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.elemSize
}

// Dimension returns the extent of axis, or 0 if the axis does not exist.
func (b *Buffer) Dimension(axis int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if axis < 0 || axis >= len(b.dims) {
		return 0
	}
	return b.dims[axis]
}

// Dimensions returns a copy of all axis extents.
func (b *Buffer) Dimensions() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.dims...)
}

// NumElements returns the product of all extents.
func (b *Buffer) NumElements() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.dims) == 0 {
		return 0
	}
	return product(b.dims)
}

// ByteSize returns the size of the buffer in bytes.
func (b *Buffer) ByteSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.host)
}

// Authority returns the side holding the most recent writes.
func (b *Buffer) Authority() Side {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authority
}

// Mapping returns the target of the last successful map call.
func (b *Buffer) Mapping() MapTarget {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastMapped
}

func (b *Buffer) usable() error {
	switch {
	case b.released:
		return ErrReleased
	case !b.initialized:
		return ErrNotInitialized
	}
	return nil
}

// Map returns the buffer's bytes for target through ctx.
//
// Host targets return the host copy after downloading newer device data.
// MapDevice returns the device copy's bytes when the backend keeps device
// memory host-addressable, and ErrNotHostVisible otherwise; use MapDevice to
// obtain the allocation itself.
func (b *Buffer) Map(ctx *Context, target MapTarget) ([]byte, error) {
	switch target {
	case MapHostSource, MapHostTarget:
	case MapDevice:
		mem, err := b.MapDevice(ctx)
		if err != nil {
			return nil, err
		}
		hm, ok := mem.(HostMemory)
		if !ok {
			return nil, fmt.Errorf("map %s: %w", target, ErrNotHostVisible)
		}
		return hm.Bytes(), nil
	default:
		return nil, fmt.Errorf("map %s: %w", target, ErrInvalidTarget)
	}

	if err := ctx.ready(); err != nil {
		return nil, fmt.Errorf("map %s: %w", target, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.usable(); err != nil {
		return nil, fmt.Errorf("map %s: %w", target, err)
	}
	if err := b.refreshHost(); err != nil {
		return nil, fmt.Errorf("map %s: %w", target, err)
	}
	if target == MapHostTarget {
		b.version++
		b.hostVer = b.version
		b.authority = SideHost
	}
	b.lastMapped = target
	return b.host, nil
}

// MapDevice returns the device allocation for ctx, allocating it on first use
// and uploading host data when the host copy is newer. The device copy
// becomes authoritative.
func (b *Buffer) MapDevice(ctx *Context) (DeviceMemory, error) {
	if err := ctx.ready(); err != nil {
		return nil, fmt.Errorf("map %s: %w", MapDevice, err)
	}
	dev := ctx.Device()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.usable(); err != nil {
		return nil, fmt.Errorf("map %s: %w", MapDevice, err)
	}

	mem, ok := b.devices[ctx]
	if !ok {
		if err := ctx.track(b); err != nil {
			return nil, fmt.Errorf("map %s: %w", MapDevice, err)
		}
		var err error
		mem, err = dev.Allocate(len(b.host))
		if err != nil {
			ctx.untrack(b)
			return nil, fmt.Errorf("map %s: allocate: %w", MapDevice, err)
		}
		b.devices[ctx] = mem
		b.devVer[ctx] = -1
	}

	if b.devVer[ctx] != b.version {
		if err := b.refreshHost(); err != nil {
			return nil, fmt.Errorf("map %s: %w", MapDevice, err)
		}
		if err := dev.Upload(mem, b.host); err != nil {
			return nil, fmt.Errorf("map %s: upload: %w", MapDevice, err)
		}
	}

	b.version++
	b.devVer[ctx] = b.version
	b.authority = SideDevice
	b.lastMapped = MapDevice
	return mem, nil
}

// refreshHost downloads the current device copy when the host copy is stale.
// Callers hold b.mu.
func (b *Buffer) refreshHost() error {
	if b.hostVer == b.version {
		return nil
	}
	for c, ver := range b.devVer {
		if ver != b.version {
			continue
		}
		dev := c.Device()
		if err := dev.Synchronize(); err != nil {
			return fmt.Errorf("synchronize: %w", err)
		}
		if err := dev.Download(b.host, b.devices[c]); err != nil {
			return fmt.Errorf("download: %w", err)
		}
		b.hostVer = b.version
		return nil
	}
	// The only current copy was lost with its context; the host copy is the
	// best data left.
	b.hostVer = b.version
	return nil
}

// dropContext frees the allocation held for c, saving its data to the host
// first if it is the only current copy. Called by Context.Release.
func (b *Buffer) dropContext(c *Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	mem, ok := b.devices[c]
	if !ok {
		return nil
	}
	var firstErr error
	if b.devVer[c] == b.version && b.hostVer != b.version {
		dev := c.Device()
		if err := dev.Synchronize(); err != nil {
			firstErr = err
		} else if err := dev.Download(b.host, mem); err != nil {
			firstErr = err
		}
		b.hostVer = b.version
		b.authority = SideHost
	}
	if err := mem.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	delete(b.devices, c)
	delete(b.devVer, c)
	return firstErr
}

// Release frees all device allocations and the host copy. Released buffers
// cannot be mapped again.
func (b *Buffer) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	var firstErr error
	for c, mem := range b.devices {
		if err := mem.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.untrack(b)
	}
	b.devices = nil
	b.devVer = nil
	b.host = nil
	b.released = true
	return firstErr
}
