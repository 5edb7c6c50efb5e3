package wgpu

import (
	"sync"

	"github.com/gogpu/rhi/hal"
	gputypes "github.com/gogpu/rhi/types"
)

// InstanceDescriptor configures instance creation.
type InstanceDescriptor struct {
	Backends Backends
}

// Instance is the entry point for GPU operations. It enumerates the
// backends registered with the hal package (via blank import, e.g.
// "github.com/gogpu/rhi/hal/noop") and exposes the adapters each one
// reports.
//
// Instance methods are safe for concurrent use, except Release() which
// must not be called concurrently with other methods.
type Instance struct {
	mu           sync.RWMutex
	backends     Backends
	flags        gputypes.InstanceFlags
	halInstances []hal.Instance
	adapters     []*Adapter
	released     bool
}

// CreateInstance creates a new GPU instance.
// If desc is nil, all available backends are used.
func CreateInstance(desc *InstanceDescriptor) (*Instance, error) {
	gpuDesc := gputypes.DefaultInstanceDescriptor()
	if desc != nil {
		gpuDesc.Backends = desc.Backends
	}

	i := &Instance{
		backends: gpuDesc.Backends,
		flags:    gpuDesc.Flags,
	}
	i.enumerateAdapters(&gpuDesc)

	return i, nil
}

// backendEnabled reports whether mask selects variant. BackendEmpty (the
// noop backend) is always enabled, since it carries no real driver cost
// and is the only backend guaranteed to be registered in this module's
// scope.
func backendEnabled(mask Backends, variant gputypes.Backend) bool {
	if variant == gputypes.BackendEmpty {
		return true
	}
	return mask.Contains(variant)
}

func (i *Instance) enumerateAdapters(desc *gputypes.InstanceDescriptor) {
	halDesc := &hal.InstanceDescriptor{Backends: desc.Backends, Flags: desc.Flags}

	for _, variant := range hal.AvailableBackends() {
		if !backendEnabled(desc.Backends, variant) {
			continue
		}
		backend, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}

		halInstance, err := backend.CreateInstance(halDesc)
		if err != nil {
			continue
		}
		i.halInstances = append(i.halInstances, halInstance)

		for _, exposed := range halInstance.EnumerateAdapters(nil) {
			i.adapters = append(i.adapters, &Adapter{
				halAdapter: exposed.Adapter,
				info:       exposed.Info,
				features:   exposed.Features,
				limits:     exposed.Capabilities.Limits,
				instance:   i,
			})
		}
	}
}

// EnumerateAdapters returns a snapshot of the adapters this instance found.
func (i *Instance) EnumerateAdapters() []*Adapter {
	i.mu.RLock()
	defer i.mu.RUnlock()
	result := make([]*Adapter, len(i.adapters))
	copy(result, i.adapters)
	return result
}

// RequestAdapter requests a GPU adapter matching the options.
// If opts is nil, the first available adapter is returned.
func (i *Instance) RequestAdapter(opts *RequestAdapterOptions) (*Adapter, error) {
	if i.released {
		return nil, ErrReleased
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.adapters) == 0 {
		return nil, ErrNoAdapters
	}

	if opts == nil {
		return i.adapters[0], nil
	}

	for _, adapter := range i.adapters {
		if opts.PowerPreference != PowerPreferenceNone {
			if !matchesPowerPreference(adapter.info.DeviceType, opts.PowerPreference) {
				continue
			}
		}
		if opts.ForceFallbackAdapter && adapter.info.DeviceType != gputypes.DeviceTypeCPU {
			continue
		}
		return adapter, nil
	}

	return nil, ErrNoAdapters
}

// matchesPowerPreference reports whether a device type satisfies a power
// preference hint.
func matchesPowerPreference(deviceType DeviceType, preference PowerPreference) bool {
	switch preference {
	case PowerPreferenceLowPower:
		return deviceType == gputypes.DeviceTypeIntegratedGPU
	case PowerPreferenceHighPerformance:
		return deviceType == gputypes.DeviceTypeDiscreteGPU
	default:
		return true
	}
}

// Backends returns the enabled backends for this instance.
func (i *Instance) Backends() Backends {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.backends
}

// Release releases the instance and all associated resources.
func (i *Instance) Release() {
	if i.released {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.released = true

	for _, adapter := range i.adapters {
		if adapter.halAdapter != nil {
			adapter.halAdapter.Destroy()
		}
	}
	i.adapters = nil

	for _, halInstance := range i.halInstances {
		halInstance.Destroy()
	}
	i.halInstances = nil
}
