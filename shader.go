package wgpu

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/track"
)

// ShaderModule represents a compiled shader module.
type ShaderModule struct {
	*track.TrackingData
	hal      hal.ShaderModule
	device   *Device
	released bool
}

// Release destroys the shader module.
func (m *ShaderModule) Release() {
	if m.released {
		return
	}
	m.released = true
	m.TrackingData.Release()
	m.device.lists.shaderModules.untrack(m)
	halDevice := m.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyShaderModule(m.hal)
	}
}
