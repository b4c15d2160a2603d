package gpu

import "errors"

var (
	// ErrNoAdapter is returned when no WebGPU adapter or device can be created.
	ErrNoAdapter = errors.New("gpu: no WebGPU adapter")

	// ErrAdapterIndex is returned for an adapter index beyond the enumerated adapters.
	ErrAdapterIndex = errors.New("gpu: adapter index out of range")

	// ErrTimeout is returned when a readback does not complete in time.
	ErrTimeout = errors.New("gpu: readback timed out")

	// ErrBudget is returned when an allocation would exceed the memory budget.
	ErrBudget = errors.New("gpu: memory budget exceeded")

	// ErrForeignMemory is returned when memory from another device is passed in.
	ErrForeignMemory = errors.New("gpu: memory not owned by this device")

	// ErrClosed is returned when a closed device is used.
	ErrClosed = errors.New("gpu: device closed")
)
