package wgpu

import (
	"fmt"

	"github.com/gogpu/rhi/hal"
	gputypes "github.com/gogpu/rhi/types"
)

// DeviceDescriptor configures device creation.
type DeviceDescriptor struct {
	Label            string
	RequiredFeatures Features
	RequiredLimits   Limits
}

// Adapter represents a physical GPU.
type Adapter struct {
	halAdapter hal.Adapter
	info       AdapterInfo
	features   Features
	limits     Limits
	instance   *Instance
	released   bool
}

// Info returns adapter metadata.
func (a *Adapter) Info() AdapterInfo { return a.info }

// Features returns supported features.
func (a *Adapter) Features() Features { return a.features }

// Limits returns the adapter's resource limits.
func (a *Adapter) Limits() Limits { return a.limits }

// RequestDevice creates a logical device from this adapter.
// If desc is nil, default features and limits are used.
func (a *Adapter) RequestDevice(desc *DeviceDescriptor) (*Device, error) {
	if a.released {
		return nil, ErrReleased
	}

	var features gputypes.Features
	var limits gputypes.Limits
	var label string

	if desc != nil {
		features = desc.RequiredFeatures
		limits = desc.RequiredLimits
		label = desc.Label
	} else {
		limits = gputypes.DefaultLimits()
	}

	opened, err := a.halAdapter.Open(features, limits)
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to open device: %w", err)
	}

	fence, err := opened.Device.CreateFence()
	if err != nil {
		opened.Device.Destroy()
		return nil, fmt.Errorf("wgpu: failed to create fence: %w", err)
	}

	device := newDevice(opened.Device, label, features, limits)
	device.queue = newQueue(opened.Queue, opened.Device, fence, device)

	return device, nil
}

// Release releases the adapter.
func (a *Adapter) Release() {
	if a.released {
		return
	}
	a.released = true
}
