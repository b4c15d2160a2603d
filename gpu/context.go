package gpu

import (
	"fmt"
	"strings"

	"github.com/openfluke/devcompute/detector"
	"github.com/openfluke/devcompute/internal/logging"
	"github.com/openfluke/webgpu/wgpu"
)

// Context holds the WebGPU objects behind one opened device.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Report   *detector.Report
}

// openContext creates a WebGPU context on adapter index. Index 0 prefers an
// NVIDIA adapter, then high performance, then low power, then the default.
func openContext(index int) (*Context, error) {
	log := logging.Component("gpu")
	c := &Context{}

	c.Instance = wgpu.CreateInstance(nil)
	if c.Instance == nil {
		return nil, fmt.Errorf("failed to create WebGPU instance: %w", ErrNoAdapter)
	}

	adapters := c.Instance.EnumerateAdapters(nil)
	if index > 0 {
		if index >= len(adapters) {
			c.Release()
			return nil, fmt.Errorf("adapter %d of %d: %w", index, len(adapters), ErrAdapterIndex)
		}
		c.Adapter = adapters[index]
	} else {
		for _, a := range adapters {
			info := a.GetInfo()
			log.Debugf("adapter: %s (vendor %s, device 0x%X, vendor 0x%X, type %s)", info.Name, info.VendorName, info.DeviceId, info.VendorId, info.AdapterType.String())
			if strings.Contains(strings.ToLower(info.Name), "nvidia") ||
				strings.Contains(strings.ToLower(info.VendorName), "nvidia") {
				log.Debugf("selecting NVIDIA adapter %s", info.Name)
				c.Adapter = a
				break
			}
		}
	}

	tryInit := func(opts *wgpu.RequestAdapterOptions) error {
		if c.Adapter != nil {
			return nil
		}
		var err error
		c.Adapter, err = c.Instance.RequestAdapter(opts)
		return err
	}

	var initErr error
	if c.Adapter == nil {
		initErr = tryInit(&wgpu.RequestAdapterOptions{
			PowerPreference: wgpu.PowerPreferenceHighPerformance,
		})
	}
	if initErr != nil && c.Adapter == nil {
		log.Debugf("high performance adapter failed: %v, falling back", initErr)
		initErr = tryInit(&wgpu.RequestAdapterOptions{
			PowerPreference: wgpu.PowerPreferenceLowPower,
		})
	}
	if initErr != nil && c.Adapter == nil {
		log.Debugf("low power adapter failed: %v, trying default", initErr)
		initErr = tryInit(nil)
	}
	if c.Adapter == nil {
		c.Release()
		return nil, fmt.Errorf("all adapter attempts failed (%v): %w", initErr, ErrNoAdapter)
	}

	c.Report = detector.Probe(c.Adapter)
	log.Infof("using GPU adapter %s (%s, %s)", c.Report.Name, c.Report.Backend, c.Report.AdapterType)

	var err error
	c.Device, err = c.Adapter.RequestDevice(nil)
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	c.Queue = c.Device.GetQueue()
	if c.Queue == nil {
		c.Release()
		return nil, fmt.Errorf("WebGPU queue not initialized: %w", ErrNoAdapter)
	}
	return c, nil
}

// Release drops the device, adapter and instance.
func (c *Context) Release() {
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
	if c.Adapter != nil {
		c.Adapter.Release()
		c.Adapter = nil
	}
	if c.Instance != nil {
		c.Instance.Release()
		c.Instance = nil
	}
}
