package compute

// Kernel is a data-parallel transformation over one device allocation.
type Kernel interface {
	Name() string
	Launch(dev Device, g Geometry, mem DeviceMemory) error
}

// KernelFunc adapts a function to the Kernel interface.
type KernelFunc func(dev Device, g Geometry, mem DeviceMemory) error

func (f KernelFunc) Name() string { return "func" }

func (f KernelFunc) Launch(dev Device, g Geometry, mem DeviceMemory) error {
	return f(dev, g, mem)
}

// IdentityKernel leaves device memory untouched.
var IdentityKernel Kernel = KernelFunc(func(Device, Geometry, DeviceMemory) error { return nil })
