package wgpu

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/track"
)

// RenderPipeline represents a configured render pipeline.
type RenderPipeline struct {
	*track.TrackingData
	hal      hal.RenderPipeline
	device   *Device
	layout   *PipelineLayout
	released bool
}

// Layout returns the pipeline layout this pipeline was created with, or nil
// if none was given.
func (p *RenderPipeline) Layout() *PipelineLayout { return p.layout }

// Release destroys the render pipeline.
func (p *RenderPipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	p.TrackingData.Release()
	p.device.lists.renderPipelines.untrack(p)
	halDevice := p.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyRenderPipeline(p.hal)
	}
}

// ComputePipeline represents a configured compute pipeline.
type ComputePipeline struct {
	*track.TrackingData
	hal      hal.ComputePipeline
	device   *Device
	layout   *PipelineLayout
	released bool
}

// Layout returns the pipeline layout this pipeline was created with, or nil
// if none was given.
func (p *ComputePipeline) Layout() *PipelineLayout { return p.layout }

// Release destroys the compute pipeline.
func (p *ComputePipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	p.TrackingData.Release()
	p.device.lists.computePipelines.untrack(p)
	halDevice := p.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyComputePipeline(p.hal)
	}
}
