package gpu

import (
	"testing"
	"time"

	"github.com/openfluke/devcompute/compute"
	"github.com/openfluke/devcompute/endian"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistered(t *testing.T) {
	b, ok := compute.LookupBackend(BackendName)
	require.True(t, ok)
	assert.Equal(t, BackendName, b.Info().Name)
}

func TestAlign4(t *testing.T) {
	assert.Equal(t, 0, align4(0))
	assert.Equal(t, 4, align4(1))
	assert.Equal(t, 4, align4(4))
	assert.Equal(t, 8, align4(6))
}

func TestOpenNegativeIndex(t *testing.T) {
	_, err := NewBackend(time.Second).Open(-1)
	assert.ErrorIs(t, err, compute.ErrDeviceIndex)
}

func openDevice(t *testing.T) *compute.Context {
	t.Helper()
	if !NewBackend(time.Second).Available() {
		t.Skip("no WebGPU adapter")
	}
	ctx, err := compute.OpenContext(BackendName, 0)
	if err != nil {
		t.Skipf("webgpu context: %v", err)
	}
	t.Cleanup(func() { ctx.Release() })
	return ctx
}

func TestSwapOnDevice(t *testing.T) {
	ctx := openDevice(t)

	buf, err := compute.NewBuffer(4, 4)
	require.NoError(t, err)
	defer buf.Release()

	host, err := buf.Map(ctx, compute.MapHostTarget)
	require.NoError(t, err)
	require.NoError(t, endian.PutWords32(host, []uint32{0x3faff7b4, 0x32332323, 0xffccaadd, 0xaaaacccc}))

	m, err := endian.NewSwapModule(buf, endian.WithThreads(2))
	require.NoError(t, err)
	require.NoError(t, m.Init())
	require.NoError(t, m.Launch(ctx))

	out, err := buf.Map(ctx, compute.MapHostSource)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0xb4f7af3f, 0x23233332, 0xddaaccff, 0xccccaaaa}, endian.Words32(out))
}

func TestDeviceRejectsForeignMemory(t *testing.T) {
	ctx := openDevice(t)
	dev := ctx.Device()

	host := compute.NewHostBackend()
	hd, err := host.Open(0)
	require.NoError(t, err)
	mem, err := hd.Allocate(4)
	require.NoError(t, err)

	assert.ErrorIs(t, dev.Upload(mem, make([]byte, 4)), ErrForeignMemory)
}

func TestAllocateTracksBytes(t *testing.T) {
	ctx := openDevice(t)
	dev := ctx.Device().(*Device)

	before := dev.Allocated()
	mem, err := dev.Allocate(6)
	require.NoError(t, err)
	assert.Equal(t, 6, mem.Size())
	assert.Equal(t, before+8, dev.Allocated())

	require.NoError(t, mem.Release())
	assert.Equal(t, before, dev.Allocated())
}
