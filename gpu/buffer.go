package gpu

import (
	"fmt"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

// storageUsage is the usage of every buffer handed out as device memory.
const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

// deviceBuffer is a storage buffer allocated by Device. WebGPU requires
// 4-byte aligned sizes, so the allocation may be larger than Size reports.
type deviceBuffer struct {
	buf   *wgpu.Buffer
	size  int
	owner *Device
}

func (b *deviceBuffer) Size() int { return b.size }

func (b *deviceBuffer) Release() error {
	if b.buf == nil {
		return nil
	}
	b.buf.Destroy()
	b.buf.Release()
	b.buf = nil
	if b.owner != nil {
		b.owner.forget(b)
	}
	return nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// readBuffer copies size bytes of buffer back to the host through a staging
// buffer and waits for the mapping at most timeout.
func readBuffer(c *Context, buffer *wgpu.Buffer, size int, timeout time.Duration) ([]byte, error) {
	sizeBytes := uint64(align4(size))
	stagingBuf, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadStaging",
		Size:  sizeBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create staging buffer: %w", err)
	}
	defer stagingBuf.Destroy()

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(buffer, 0, stagingBuf, 0, sizeBytes)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to finish command: %w", err)
	}
	c.Queue.Submit(cmd)

	done := make(chan struct{})
	var mapErr error
	err = stagingBuf.MapAsync(wgpu.MapModeRead, 0, sizeBytes, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map failed: %v", status)
		}
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("MapAsync failed: %w", err)
	}

	deadline := time.After(timeout)
Loop:
	for {
		c.Device.Poll(false, nil)
		select {
		case <-done:
			break Loop
		case <-deadline:
			return nil, fmt.Errorf("readback after %s: %w", timeout, ErrTimeout)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}

	data := stagingBuf.GetMappedRange(0, uint(sizeBytes))
	if data == nil {
		return nil, fmt.Errorf("failed to get mapped range")
	}
	out := make([]byte, size)
	copy(out, data)
	stagingBuf.Unmap()
	return out, nil
}
