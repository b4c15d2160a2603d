package endian

import (
	"fmt"

	"github.com/openfluke/devcompute/compute"
)

// SwapKernel reverses the byte order of every element a launch covers.
// Host-visible memory is swapped on the CPU; shader devices run a WGSL
// program with one workgroup per block and one invocation per thread.
type SwapKernel struct {
	ElementSize int
}

func (k SwapKernel) Name() string { return "swapEndianness" }

func (k SwapKernel) Launch(dev compute.Device, g compute.Geometry, mem compute.DeviceMemory) error {
	n := g.Elements()
	if n*k.ElementSize > mem.Size() {
		return fmt.Errorf("%d elements of %d bytes in %d bytes: %w", n, k.ElementSize, mem.Size(), ErrShortBuffer)
	}
	if n == 0 || k.ElementSize == 1 {
		return nil
	}

	if sd, ok := dev.(compute.ShaderDevice); ok {
		src, err := k.GenerateShader(g)
		if err != nil {
			return err
		}
		return sd.RunShader(compute.Shader{
			Label:  fmt.Sprintf("swap%d_t%d", k.ElementSize*8, g.Threads),
			Source: src,
			Entry:  "main",
		}, g, mem)
	}
	if hm, ok := mem.(compute.HostMemory); ok {
		return SwapBytes(hm.Bytes(), k.ElementSize, n)
	}
	return fmt.Errorf("%s on %s: %w", k.Name(), dev.Info().Name, compute.ErrUnsupportedDevice)
}

// GenerateShader returns the WGSL program for g. Storage is addressed as
// 32-bit words in little-endian layout, as WebGPU defines it. The covered
// element count comes from the dispatch size, so the source only depends on
// the element size and g.Threads.
func (k SwapKernel) GenerateShader(g compute.Geometry) (string, error) {
	var body string
	switch k.ElementSize {
	case 2:
		// Two elements share a word; even invocations swap both halves.
		body = `
	if (i % 2u != 0u) { return; }
	let w = data[i / 2u];
	let swapped = ((w & 0x00ff00ffu) << 8u) | ((w >> 8u) & 0x00ff00ffu);
	if (i + 1u < N) {
		data[i / 2u] = swapped;
	} else {
		data[i / 2u] = (w & 0xffff0000u) | (swapped & 0x0000ffffu);
	}`
	case 4:
		body = `
	data[i] = bswap(data[i]);`
	case 8:
		body = `
	let lo = data[2u * i];
	let hi = data[2u * i + 1u];
	data[2u * i] = bswap(hi);
	data[2u * i + 1u] = bswap(lo);`
	default:
		return "", fmt.Errorf("shader for %d-byte elements: %w", k.ElementSize, ErrElementSize)
	}

	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read_write> data : array<u32>;

const WG: u32 = %du;

fn bswap(x: u32) -> u32 {
	return (x << 24u) | ((x & 0x0000ff00u) << 8u) | ((x >> 8u) & 0x0000ff00u) | (x >> 24u);
}

@compute @workgroup_size(%d, 1, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(num_workgroups) nwg: vec3<u32>) {
	let N = nwg.x * WG;
	let i = gid.x;
	if (i >= N) { return; }
%s
}
`, g.Threads, g.Threads, body), nil
}
