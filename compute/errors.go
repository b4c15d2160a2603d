package compute

import "errors"

// Sentinel errors returned by contexts, buffers, modules and backends.
var (
	// ErrNoBackend is returned when the requested backend is not registered.
	ErrNoBackend = errors.New("compute: backend not registered")

	// ErrBackendUnavailable is returned when the backend is registered but cannot
	// run on the current system (no adapter, driver missing).
	ErrBackendUnavailable = errors.New("compute: backend unavailable")

	// ErrDeviceIndex is returned when a device index is out of range.
	ErrDeviceIndex = errors.New("compute: device index out of range")

	// ErrContextNotInitialized is returned when a context is used before Init.
	ErrContextNotInitialized = errors.New("compute: context not initialized")

	// ErrContextNotCurrent is returned when a device operation is issued through
	// a context that has not been applied.
	ErrContextNotCurrent = errors.New("compute: context not current")

	// ErrAlreadyInitialized is returned when a setter runs after Init.
	ErrAlreadyInitialized = errors.New("compute: already initialized")

	// ErrNotInitialized is returned when a buffer is used before Init.
	ErrNotInitialized = errors.New("compute: buffer not initialized")

	// ErrInvalidElementSize is returned for element sizes below one byte.
	ErrInvalidElementSize = errors.New("compute: invalid element size")

	// ErrInvalidDimension is returned for missing axes or extents below one.
	ErrInvalidDimension = errors.New("compute: invalid dimension")

	// ErrInvalidTarget is returned for an unknown mapping target.
	ErrInvalidTarget = errors.New("compute: invalid mapping target")

	// ErrNotHostVisible is returned when device memory cannot be viewed from the host.
	ErrNotHostVisible = errors.New("compute: device memory not host visible")

	// ErrReleased is returned when a released buffer or context is used.
	ErrReleased = errors.New("compute: released")

	// ErrSizeMismatch is returned when a transfer does not match an allocation.
	ErrSizeMismatch = errors.New("compute: size mismatch")

	// ErrNoBuffer is returned when a module is initialized without a bound buffer.
	ErrNoBuffer = errors.New("compute: no buffer bound")

	// ErrModuleNotInitialized is returned when a module launches before Init
	// succeeded, or after Clear.
	ErrModuleNotInitialized = errors.New("compute: module not initialized")

	// ErrUnevenGeometry is returned in strict mode when the first-axis extent is
	// not a multiple of the thread count.
	ErrUnevenGeometry = errors.New("compute: extent not divisible by thread count")

	// ErrGeometryLimit is returned when a launch exceeds device limits.
	ErrGeometryLimit = errors.New("compute: launch geometry exceeds device limits")

	// ErrUnsupportedDevice is returned when a kernel has no implementation for a device.
	ErrUnsupportedDevice = errors.New("compute: kernel unsupported on device")
)
