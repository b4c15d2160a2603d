// Package gpu registers the "webgpu" compute backend.
//
// Importing the package is enough to make the backend available to
// compute.OpenContext:
//
//	import _ "github.com/openfluke/devcompute/gpu"
//
//	ctx, err := compute.OpenContext(gpu.BackendName, 0)
//
// Device memory is a storage buffer padded to a multiple of four bytes.
// Kernels that implement compute.ShaderDevice dispatch run WGSL compute
// shaders; compiled pipelines are cached per device by shader source.
package gpu
