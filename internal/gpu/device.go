// Package gpu owns the wgpu device and everything a lock surface needs on
// it: the shader pipeline, the background texture and an offscreen render
// target whose pixels are read back for presentation.
package gpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/wgpu"
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/tuxx/shaderlock/internal/logging"
)

// ErrDeviceInit wraps every failure to obtain an adapter or device.
var ErrDeviceInit = errors.New("gpu device init failed")

// Device is one adapter and logical device shared by all outputs.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	log      *slog.Logger
}

// Open creates an instance, picks the high-performance adapter and
// requests a device with default limits.
func Open(log *slog.Logger) (*Device, error) {
	log = logging.Or(log).With("component", "gpu")

	instance, err := wgpu.CreateInstance(&wgpu.InstanceDescriptor{
		Backends: wgpu.BackendsPrimary,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrDeviceInit, err)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", ErrDeviceInit, err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "shaderlock"})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", ErrDeviceInit, err)
	}

	info := adapter.Info()
	log.Info("gpu initialized", "adapter", info.Name, "backend", info.Backend)

	return &Device{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.Queue(),
		log:      log,
	}, nil
}

// Release destroys the device, adapter and instance.
func (d *Device) Release() {
	if d == nil {
		return
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}
