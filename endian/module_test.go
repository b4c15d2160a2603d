package endian

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/devcompute/compute"
)

var bigEndians = []uint32{0x3faff7b4, 0x32332323, 0xffccaadd, 0xaaaacccc}

func openHost(t *testing.T) *compute.Context {
	t.Helper()
	ctx, err := compute.OpenContext(compute.HostBackendName, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Release() })
	return ctx
}

func writeWords(t *testing.T, ctx *compute.Context, buf *compute.Buffer, words []uint32) {
	t.Helper()
	host, err := buf.Map(ctx, compute.MapHostTarget)
	require.NoError(t, err)
	require.NoError(t, PutWords32(host, words))
}

func readWords(t *testing.T, ctx *compute.Context, buf *compute.Buffer) []uint32 {
	t.Helper()
	host, err := buf.Map(ctx, compute.MapHostSource)
	require.NoError(t, err)
	return Words32(host)
}

func TestSwapModuleDemoScenario(t *testing.T) {
	ctx := openHost(t)

	buf := &compute.Buffer{}
	require.NoError(t, buf.SetElementSize(4))
	require.NoError(t, buf.SetDimension(0, len(bigEndians)))
	require.NoError(t, buf.Init())
	defer buf.Release()

	mod := &SwapModule{}
	mod.SetBuffer(buf)
	require.NoError(t, mod.Init())
	assert.Equal(t, compute.Geometry{Blocks: 4, Threads: 1}, mod.Geometry())

	writeWords(t, ctx, buf, bigEndians)
	require.NoError(t, mod.Launch(ctx))

	assert.Equal(t, []uint32{0xb4f7af3f, 0x23233332, 0xddaaccff, 0xccccaaaa}, readWords(t, ctx, buf))
}

func TestSwapModuleTwiceRestoresInput(t *testing.T) {
	ctx := openHost(t)
	buf, err := compute.NewBuffer(4, len(bigEndians))
	require.NoError(t, err)

	mod, err := NewSwapModule(buf)
	require.NoError(t, err)

	writeWords(t, ctx, buf, bigEndians)
	require.NoError(t, mod.Launch(ctx))
	require.NoError(t, mod.Launch(ctx))
	assert.Equal(t, bigEndians, readWords(t, ctx, buf))
}

func TestSwapModuleIdentityKernel(t *testing.T) {
	ctx := openHost(t)
	buf, err := compute.NewBuffer(4, len(bigEndians))
	require.NoError(t, err)

	mod, err := NewSwapModule(buf, WithKernel(compute.IdentityKernel))
	require.NoError(t, err)

	writeWords(t, ctx, buf, bigEndians)
	require.NoError(t, mod.Launch(ctx))
	assert.Equal(t, bigEndians, readWords(t, ctx, buf))
}

func TestSwapModuleWithoutBuffer(t *testing.T) {
	_, err := NewSwapModule(nil)
	assert.ErrorIs(t, err, compute.ErrNoBuffer)

	mod := &SwapModule{}
	assert.ErrorIs(t, mod.Init(), compute.ErrNoBuffer)
	assert.Equal(t, compute.Geometry{}, mod.Geometry())
	assert.ErrorIs(t, mod.Launch(openHost(t)), compute.ErrModuleNotInitialized)
}

func TestSwapModuleRejectsOddElementSize(t *testing.T) {
	buf, err := compute.NewBuffer(3, 4)
	require.NoError(t, err)
	_, err = NewSwapModule(buf)
	assert.ErrorIs(t, err, ErrElementSize)

	_, err = NewSwapModule(buf, WithKernel(compute.IdentityKernel))
	assert.NoError(t, err, "custom kernels decide for themselves")
}

func TestSwapModuleFailedReinitKeepsData(t *testing.T) {
	ctx := openHost(t)
	buf, err := compute.NewBuffer(4, 4)
	require.NoError(t, err)
	words := []uint32{0x01020304, 0x05060708, 0x090a0b0c, 0x0d0e0f10}
	writeWords(t, ctx, buf, words)

	mod, err := NewSwapModule(buf)
	require.NoError(t, err)
	mod.SetThreads(3)
	mod.SetStrict(true)
	require.ErrorIs(t, mod.Init(), compute.ErrUnevenGeometry)

	assert.ErrorIs(t, mod.Launch(ctx), compute.ErrModuleNotInitialized)
	assert.Equal(t, words, readWords(t, ctx, buf))
}

func TestSwapModuleRebind(t *testing.T) {
	ctx := openHost(t)
	small, err := compute.NewBuffer(4, 2)
	require.NoError(t, err)
	large, err := compute.NewBuffer(4, 8)
	require.NoError(t, err)

	mod, err := NewSwapModule(small)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), mod.Geometry().Blocks)

	mod.SetBuffer(large)
	require.NoError(t, mod.Init())
	assert.Equal(t, uint32(8), mod.Geometry().Blocks)

	words := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	writeWords(t, ctx, large, words)
	require.NoError(t, mod.Launch(ctx))
	out := readWords(t, ctx, large)
	for i, w := range words {
		assert.Equal(t, w<<24, out[i])
	}
}

func TestSwapModuleClear(t *testing.T) {
	ctx := openHost(t)
	buf, err := compute.NewBuffer(4, 4)
	require.NoError(t, err)
	mod, err := NewSwapModule(buf)
	require.NoError(t, err)
	require.NoError(t, mod.Launch(ctx))

	mod.Clear()
	mod.Clear()
	assert.Nil(t, mod.Buffer())
	assert.ErrorIs(t, mod.Launch(ctx), compute.ErrModuleNotInitialized)
}

func TestSwapModuleUnevenThreads(t *testing.T) {
	ctx := openHost(t)
	buf, err := compute.NewBuffer(4, 5)
	require.NoError(t, err)

	_, err = NewSwapModule(buf, WithThreads(2), WithStrictGeometry())
	assert.ErrorIs(t, err, compute.ErrUnevenGeometry)

	mod, err := NewSwapModule(buf, WithThreads(2), WithName("partial"))
	require.NoError(t, err)
	assert.Equal(t, "partial", mod.Name())
	assert.Equal(t, compute.Geometry{Blocks: 2, Threads: 2, Remainder: 1}, mod.Geometry())

	writeWords(t, ctx, buf, []uint32{0x01020304, 0x01020304, 0x01020304, 0x01020304, 0x01020304})
	require.NoError(t, mod.Launch(ctx))
	out := readWords(t, ctx, buf)
	assert.Equal(t, []uint32{0x04030201, 0x04030201, 0x04030201, 0x04030201, 0x01020304}, out,
		"the tail element is left untouched")
}

func TestSwapModuleElementSizes(t *testing.T) {
	ctx := openHost(t)

	buf16, err := compute.NewBuffer(2, 3)
	require.NoError(t, err)
	host, err := buf16.Map(ctx, compute.MapHostTarget)
	require.NoError(t, err)
	copy(host, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	mod, err := NewSwapModule(buf16)
	require.NoError(t, err)
	require.NoError(t, mod.Launch(ctx))
	host, err = buf16.Map(ctx, compute.MapHostSource)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03, 0x06, 0x05}, host)

	buf64, err := compute.NewBuffer(8, 1)
	require.NoError(t, err)
	host, err = buf64.Map(ctx, compute.MapHostTarget)
	require.NoError(t, err)
	copy(host, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	mod, err = NewSwapModule(buf64)
	require.NoError(t, err)
	require.NoError(t, mod.Launch(ctx))
	host, err = buf64.Map(ctx, compute.MapHostSource)
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, host)
}

type fakeShaderDevice struct {
	compute.Device
	shaders []compute.Shader
	geoms   []compute.Geometry
}

func (d *fakeShaderDevice) RunShader(s compute.Shader, g compute.Geometry, mem compute.DeviceMemory) error {
	d.shaders = append(d.shaders, s)
	d.geoms = append(d.geoms, g)
	return nil
}

type opaqueMemory struct{ size int }

func (m opaqueMemory) Size() int      { return m.size }
func (m opaqueMemory) Release() error { return nil }

func TestSwapKernelDispatchesShader(t *testing.T) {
	dev := &fakeShaderDevice{Device: openHost(t).Device()}
	g := compute.Geometry{Blocks: 4, Threads: 1}
	require.NoError(t, SwapKernel{ElementSize: 4}.Launch(dev, g, opaqueMemory{size: 16}))

	require.Len(t, dev.shaders, 1)
	assert.Equal(t, "main", dev.shaders[0].Entry)
	assert.Equal(t, "swap32_t1", dev.shaders[0].Label)
	assert.Contains(t, dev.shaders[0].Source, "const WG: u32 = 1u;")
	assert.Contains(t, dev.shaders[0].Source, "@workgroup_size(1, 1, 1)")
	assert.Equal(t, g, dev.geoms[0])
}

func TestSwapKernelUnsupportedDevice(t *testing.T) {
	dev := openHost(t).Device()
	err := SwapKernel{ElementSize: 4}.Launch(dev, compute.Geometry{Blocks: 1, Threads: 1}, opaqueMemory{size: 4})
	assert.ErrorIs(t, err, compute.ErrUnsupportedDevice)

	err = SwapKernel{ElementSize: 4}.Launch(dev, compute.Geometry{Blocks: 2, Threads: 1}, opaqueMemory{size: 4})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestGenerateShader(t *testing.T) {
	g := compute.Geometry{Blocks: 3, Threads: 64}
	for _, size := range []int{2, 4, 8} {
		src, err := SwapKernel{ElementSize: size}.GenerateShader(g)
		require.NoError(t, err)
		assert.True(t, strings.Contains(src, "@workgroup_size(64, 1, 1)"), "size %d", size)
		assert.Contains(t, src, "const WG: u32 = 64u;")
		assert.NotContains(t, src, "192")
	}

	other, err := SwapKernel{ElementSize: 4}.GenerateShader(compute.Geometry{Blocks: 1000, Threads: 64})
	require.NoError(t, err)
	same, err := SwapKernel{ElementSize: 4}.GenerateShader(g)
	require.NoError(t, err)
	assert.Equal(t, same, other, "source depends only on element size and threads")
	_, err = SwapKernel{ElementSize: 3}.GenerateShader(g)
	assert.ErrorIs(t, err, ErrElementSize)
}
