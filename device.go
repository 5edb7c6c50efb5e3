package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/track"
	gputypes "github.com/gogpu/rhi/types"
)

// Device represents a logical GPU device.
// It is the main interface for creating GPU resources.
//
// Thread-safe for concurrent use.
type Device struct {
	hal      *snatchable[hal.Device]
	snatch   *snatchLock
	tracked  *track.Allocators
	lists    *resourceLists
	errors   errorScopeStack
	queue    *Queue
	label    string
	features Features
	limits   Limits
	released bool

	emptyLayoutOnce sync.Once
	emptyLayout     *BindSetLayout
}

// newDevice wraps an opened HAL device.
func newDevice(h hal.Device, label string, features Features, limits Limits) *Device {
	return &Device{
		hal:      newSnatchable(h),
		snatch:   newSnatchLock(),
		tracked:  track.NewAllocators(),
		lists:    &resourceLists{},
		label:    label,
		features: features,
		limits:   limits,
	}
}

// Queue returns the device's command queue.
func (d *Device) Queue() *Queue {
	return d.queue
}

// Features returns the device's enabled features.
func (d *Device) Features() Features { return d.features }

// Limits returns the device's resource limits.
func (d *Device) Limits() Limits { return d.limits }

// CreateBuffer creates a GPU buffer.
func (d *Device) CreateBuffer(desc *BufferDescriptor) (*Buffer, error) {
	if d.released {
		return nil, ErrReleased
	}
	if desc == nil {
		return nil, newValidationError("Buffer", "", "descriptor is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halBuf, err := halDevice.CreateBuffer(desc.toHAL())
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create buffer: %w", err)
	}

	buf := &Buffer{
		hal:          halBuf,
		device:       d,
		size:         desc.Size,
		usage:        desc.Usage,
		label:        desc.Label,
		TrackingData: track.NewTrackingData(d.tracked.Buffers),
	}
	if desc.MappedAtCreation {
		buf.mapState = BufferMapStateMappedAtCreation
	}
	d.lists.buffers.track(buf)
	return buf, nil
}

// CreateTexture creates a GPU texture.
func (d *Device) CreateTexture(desc *TextureDescriptor) (*Texture, error) {
	if d.released {
		return nil, ErrReleased
	}
	if desc == nil {
		return nil, newValidationError("Texture", "", "descriptor is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halTexture, err := halDevice.CreateTexture(desc.toHAL())
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create texture: %w", err)
	}

	tex := &Texture{
		hal:          halTexture,
		device:       d,
		format:       desc.Format,
		size:         desc.Size,
		mipLevels:    orDefault(desc.MipLevelCount, 1),
		arrayLayers:  orDefault(desc.Size.DepthOrArrayLayers, 1),
		TrackingData: track.NewTrackingData(d.tracked.Textures),
	}
	d.lists.textures.track(tex)
	return tex, nil
}

func orDefault(v, def uint32) uint32 {
	if v == 0 {
		return def
	}
	return v
}

// CreateTextureView creates a view into a texture.
func (d *Device) CreateTextureView(texture *Texture, desc *TextureViewDescriptor) (*TextureView, error) {
	if d.released {
		return nil, ErrReleased
	}
	if texture == nil {
		return nil, newValidationError("TextureView", "Texture", "texture is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halDesc := &hal.TextureViewDescriptor{}
	if desc != nil {
		halDesc = desc.toHAL()
	}

	halView, err := halDevice.CreateTextureView(texture.hal, halDesc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create texture view: %w", err)
	}

	aspect := track.AspectColor
	if halDesc.Aspect == TextureAspectDepthOnly {
		aspect = track.AspectDepth
	} else if halDesc.Aspect == TextureAspectStencilOnly {
		aspect = track.AspectStencil
	}

	rng := track.FullSubresourceRange(aspect, texture.arrayLayers, texture.mipLevels)
	if desc != nil {
		baseLayer, layerCount := desc.BaseArrayLayer, desc.ArrayLayerCount
		if layerCount == 0 {
			layerCount = texture.arrayLayers - baseLayer
		}
		baseMip, mipCount := desc.BaseMipLevel, desc.MipLevelCount
		if mipCount == 0 {
			mipCount = texture.mipLevels - baseMip
		}
		rng = track.SubresourceRange{Aspects: aspect, BaseLayer: baseLayer, LayerCount: layerCount, BaseMipLevel: baseMip, LevelCount: mipCount}
	}

	view := &TextureView{
		hal:          halView,
		device:       d,
		texture:      texture,
		rng:          rng,
		TrackingData: track.NewTrackingData(d.tracked.TextureViews),
	}
	texture.views = append(texture.views, view)
	return view, nil
}

// CreateSampler creates a texture sampler.
func (d *Device) CreateSampler(desc *SamplerDescriptor) (*Sampler, error) {
	if d.released {
		return nil, ErrReleased
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halDesc := &hal.SamplerDescriptor{}
	if desc != nil {
		halDesc = desc.toHAL()
	}

	halSampler, err := halDevice.CreateSampler(halDesc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create sampler: %w", err)
	}

	sampler := &Sampler{hal: halSampler, device: d, TrackingData: track.NewTrackingData(d.tracked.Samplers)}
	d.lists.samplers.track(sampler)
	return sampler, nil
}

// CreateShaderModule creates a shader module.
func (d *Device) CreateShaderModule(desc *ShaderModuleDescriptor) (*ShaderModule, error) {
	if d.released {
		return nil, ErrReleased
	}
	if desc == nil {
		return nil, newValidationError("ShaderModule", "", "descriptor is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halModule, err := halDevice.CreateShaderModule(desc.toHAL())
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create shader module: %w", err)
	}

	module := &ShaderModule{hal: halModule, device: d, TrackingData: track.NewTrackingData(d.tracked.ShaderModules)}
	d.lists.shaderModules.track(module)
	return module, nil
}

// CreateBindSetLayout creates a bind set layout.
func (d *Device) CreateBindSetLayout(desc *BindSetLayoutDescriptor) (*BindSetLayout, error) {
	if d.released {
		return nil, ErrReleased
	}
	if desc == nil {
		return nil, newValidationError("BindSetLayout", "", "descriptor is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halLayout, err := halDevice.CreateBindSetLayout(desc.toHAL())
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create bind set layout: %w", err)
	}

	entries := make([]BindSetLayoutEntry, len(desc.Entries))
	copy(entries, desc.Entries)

	layout := &BindSetLayout{hal: halLayout, device: d, entries: entries, TrackingData: track.NewTrackingData(d.tracked.BindSetLayouts)}
	d.lists.bindSetLayouts.track(layout)
	return layout, nil
}

// CreatePipelineLayout creates a pipeline layout.
func (d *Device) CreatePipelineLayout(desc *PipelineLayoutDescriptor) (*PipelineLayout, error) {
	if d.released {
		return nil, ErrReleased
	}
	if desc == nil {
		return nil, newValidationError("PipelineLayout", "", "descriptor is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	if len(desc.BindSetLayouts) > int(gputypes.MaxBindSets) {
		return nil, newLimitError("PipelineLayout", "MaxBindSets", uint64(len(desc.BindSetLayouts)), uint64(gputypes.MaxBindSets))
	}
	if desc.PushConstantSize%4 != 0 {
		return nil, newValidationError("PipelineLayout", "PushConstantSize", "must be a multiple of 4")
	}

	// Nil slots are filled with the device's shared empty layout, so the
	// backend always sees a dense array of real layouts.
	halLayouts := make([]hal.BindSetLayout, len(desc.BindSetLayouts))
	for i, layout := range desc.BindSetLayouts {
		if layout == nil {
			empty, err := d.EmptyBindSetLayout()
			if err != nil {
				return nil, err
			}
			layout = empty
		}
		halLayouts[i] = layout.hal
	}

	var pushRanges []hal.PushConstantRange
	if desc.PushConstantSize > 0 {
		pushRanges = []hal.PushConstantRange{{
			Stages: desc.PushConstantStages,
			Range:  hal.Range{Start: 0, End: desc.PushConstantSize},
		}}
	}

	halLayout, err := halDevice.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:              desc.Label,
		BindSetLayouts:     halLayouts,
		PushConstantRanges: pushRanges,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create pipeline layout: %w", err)
	}

	layout := &PipelineLayout{
		hal:              halLayout,
		device:           d,
		TrackingData:     track.NewTrackingData(d.tracked.PipelineLayouts),
		pushConstantSize: desc.PushConstantSize,
	}
	d.lists.pipelineLayouts.track(layout)
	return layout, nil
}

// EmptyBindSetLayout returns the device's shared zero-binding layout,
// created on first use. It fills pipeline-layout slots the caller left
// nil and is destroyed with the device itself, not through the ordinary
// per-kind sweep.
func (d *Device) EmptyBindSetLayout() (*BindSetLayout, error) {
	var createErr error
	d.emptyLayoutOnce.Do(func() {
		halDevice := d.halDevice()
		if halDevice == nil {
			createErr = ErrReleased
			return
		}
		halLayout, err := halDevice.CreateBindSetLayout(&hal.BindSetLayoutDescriptor{Label: "wgpu-empty-layout"})
		if err != nil {
			createErr = fmt.Errorf("wgpu: failed to create empty bind set layout: %w", err)
			return
		}
		d.emptyLayout = &BindSetLayout{hal: halLayout, device: d, TrackingData: track.NewTrackingData(nil)}
	})
	if d.emptyLayout == nil {
		if createErr == nil {
			createErr = ErrReleased
		}
		return nil, createErr
	}
	return d.emptyLayout, nil
}

// CreateBindSet creates a bind set.
func (d *Device) CreateBindSet(desc *BindSetDescriptor) (*BindSet, error) {
	if d.released {
		return nil, ErrReleased
	}
	if desc == nil {
		return nil, newValidationError("BindSet", "", "descriptor is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halEntries := make([]gputypes.BindSetEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		halEntries[i] = entry.toHAL()
	}

	halSet, err := halDevice.CreateBindSet(&hal.BindSetDescriptor{
		Label:   desc.Label,
		Layout:  desc.Layout.hal,
		Entries: halEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create bind set: %w", err)
	}

	entries := make([]BindSetEntry, len(desc.Entries))
	copy(entries, desc.Entries)

	set := &BindSet{hal: halSet, device: d, layout: desc.Layout, entries: entries, TrackingData: track.NewTrackingData(d.tracked.BindSets)}
	d.lists.bindSets.track(set)
	return set, nil
}

// CreateRenderPipeline creates a render pipeline.
func (d *Device) CreateRenderPipeline(desc *RenderPipelineDescriptor) (*RenderPipeline, error) {
	if d.released {
		return nil, ErrReleased
	}
	if desc == nil {
		return nil, newValidationError("RenderPipeline", "", "descriptor is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halPipeline, err := halDevice.CreateRenderPipeline(desc.toHAL())
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create render pipeline: %w", err)
	}

	pipeline := &RenderPipeline{hal: halPipeline, device: d, layout: desc.Layout, TrackingData: track.NewTrackingData(d.tracked.RenderPipelines)}
	d.lists.renderPipelines.track(pipeline)
	return pipeline, nil
}

// CreateComputePipeline creates a compute pipeline.
func (d *Device) CreateComputePipeline(desc *ComputePipelineDescriptor) (*ComputePipeline, error) {
	if d.released {
		return nil, ErrReleased
	}
	if desc == nil {
		return nil, newValidationError("ComputePipeline", "", "descriptor is nil")
	}

	halDevice := d.halDevice()
	if halDevice == nil {
		return nil, ErrReleased
	}

	halPipeline, err := halDevice.CreateComputePipeline(desc.toHAL())
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create compute pipeline: %w", err)
	}

	pipeline := &ComputePipeline{hal: halPipeline, device: d, layout: desc.Layout, TrackingData: track.NewTrackingData(d.tracked.ComputePipelines)}
	d.lists.computePipelines.track(pipeline)
	return pipeline, nil
}

// CreateCommandEncoder creates a command encoder for recording GPU commands.
func (d *Device) CreateCommandEncoder(desc *CommandEncoderDescriptor) (*CommandEncoder, error) {
	if d.released {
		return nil, ErrReleased
	}

	label := ""
	if desc != nil {
		label = desc.Label
	}

	return newCommandEncoder(d, label), nil
}

// PushErrorScope pushes a new error scope onto the device's error scope stack.
func (d *Device) PushErrorScope(filter ErrorFilter) {
	d.errors.push(filter)
}

// PopErrorScope pops the most recently pushed error scope.
// Returns the captured error, or nil if no error occurred. Panics if
// there is no matching PushErrorScope.
func (d *Device) PopErrorScope() *GPUError {
	gpuErr, err := d.errors.pop()
	if err != nil {
		panic(err)
	}
	return gpuErr
}

// WaitIdle waits for all GPU work to complete, then advances the queue's
// completed serial to everything submitted so far and runs a tick so
// deferred work gated on those serials resolves before WaitIdle returns.
func (d *Device) WaitIdle() error {
	if d.released {
		return ErrReleased
	}
	halDevice := d.halDevice()
	if halDevice == nil {
		return ErrReleased
	}
	if err := halDevice.WaitIdle(); err != nil {
		return err
	}
	if d.queue != nil {
		d.queue.timeline.CheckAndUpdateCompleted(d.queue.timeline.LastSubmitted())
		return d.queue.Tick()
	}
	return nil
}

// Destroy destroys every resource still alive on this device, in an order
// that tears dependent kinds down before the kinds they reference:
// pipelines first, then the layouts and sets they bind, then shader
// modules, textures, samplers, and buffers. Each resource's GPU-side
// destruction runs at most once; resources already released by the caller
// are simply absent from the sweep.
//
// Outstanding references remain valid Go values after Destroy, but their
// GPU objects are gone and their operations fail with ErrReleased.
func (d *Device) Destroy() {
	for _, p := range d.lists.renderPipelines.drain() {
		p.Release()
	}
	for _, p := range d.lists.computePipelines.drain() {
		p.Release()
	}
	for _, l := range d.lists.pipelineLayouts.drain() {
		l.Release()
	}
	for _, s := range d.lists.bindSets.drain() {
		s.Release()
	}
	for _, l := range d.lists.bindSetLayouts.drain() {
		l.Release()
	}
	for _, m := range d.lists.shaderModules.drain() {
		m.Release()
	}
	for _, t := range d.lists.textures.drain() {
		t.Release()
	}
	for _, s := range d.lists.samplers.drain() {
		s.Release()
	}
	for _, b := range d.lists.buffers.drain() {
		b.Release()
	}
	if d.emptyLayout != nil {
		d.emptyLayout.Release()
		d.emptyLayout = nil
	}
}

// Release releases the device and all associated resources.
func (d *Device) Release() {
	if d.released {
		return
	}

	d.Destroy()
	d.released = true

	if d.queue != nil {
		d.queue.release()
	}

	guard := d.snatch.Write()
	defer guard.Release()
	if h := d.hal.Snatch(guard); h != nil {
		(*h).Destroy()
	}
}

// halDevice returns the underlying HAL device for direct resource creation,
// or nil if the device has been released.
func (d *Device) halDevice() hal.Device {
	guard := d.snatch.Read()
	defer guard.Release()
	h := d.hal.Get(guard)
	if h == nil {
		return nil
	}
	return *h
}
