package wgpu

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/track"
)

// BindSetLayout describes the shape of a BindSet: the binding number, type,
// and shader visibility of each slot a conforming BindSet must fill.
type BindSetLayout struct {
	*track.TrackingData
	hal      hal.BindSetLayout
	device   *Device
	entries  []BindSetLayoutEntry
	released bool
}

// Entries returns the layout's binding slots.
func (l *BindSetLayout) Entries() []BindSetLayoutEntry { return l.entries }

// Release destroys the bind set layout.
func (l *BindSetLayout) Release() {
	if l.released {
		return
	}
	l.released = true
	l.TrackingData.Release()
	l.device.lists.bindSetLayouts.untrack(l)
	halDevice := l.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyBindSetLayout(l.hal)
	}
}

// PipelineLayout describes the full set of BindSetLayouts and push-constant
// ranges a pipeline draws its resources from.
type PipelineLayout struct {
	*track.TrackingData
	hal              hal.PipelineLayout
	device           *Device
	released         bool
	pushConstantSize uint32
}

// PushConstantSize returns the layout's declared push-constant range size
// in bytes, or 0 if it declares none.
func (l *PipelineLayout) PushConstantSize() uint32 { return l.pushConstantSize }

// Release destroys the pipeline layout.
func (l *PipelineLayout) Release() {
	if l.released {
		return
	}
	l.released = true
	l.TrackingData.Release()
	l.device.lists.pipelineLayouts.untrack(l)
	halDevice := l.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyPipelineLayout(l.hal)
	}
}

// BindSet is a set of resource bindings conforming to a BindSetLayout, bound
// to a pipeline at draw/dispatch time.
type BindSet struct {
	*track.TrackingData
	hal      hal.BindSet
	device   *Device
	layout   *BindSetLayout
	entries  []BindSetEntry
	released bool
}

// Layout returns the layout this bind set conforms to.
func (s *BindSet) Layout() *BindSetLayout { return s.layout }

// Release destroys the bind set.
func (s *BindSet) Release() {
	if s.released {
		return
	}
	s.released = true
	s.TrackingData.Release()
	s.device.lists.bindSets.untrack(s)
	halDevice := s.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyBindSet(s.hal)
	}
}

// entryFor returns the bind set layout's entry for binding, or ok=false if
// binding isn't present in the layout. The entry's Type selects the buffer
// or texture usage (bufferUsageFor/textureUsageFor) and its Visibility the
// shader stages recorded against the matching Scope.
func (s *BindSet) entryFor(binding uint32) (BindSetLayoutEntry, bool) {
	for _, e := range s.layout.entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return BindSetLayoutEntry{}, false
}

// bufferUsageFor reports the buffer usage flag a bound buffer entry
// contributes to sync-scope tracking, given its layout entry's type.
func bufferUsageFor(t BindingType) BufferUsage {
	switch t {
	case BindingTypeUniformBuffer:
		return BufferUsageUniform
	case BindingTypeStorageBuffer:
		return BufferUsageStorage
	case BindingTypeReadOnlyStorageBuffer:
		return BufferUsageStorage | BufferUsageReadOnlyStorage
	default:
		return 0
	}
}

// textureUsageFor reports the texture usage flag a bound texture-view entry
// contributes to sync-scope tracking, given its layout entry's type.
func textureUsageFor(t BindingType) TextureUsage {
	switch t {
	case BindingTypeSampledTexture, BindingTypeCombinedTextureSampler:
		return TextureUsageTextureBinding
	case BindingTypeStorageTexture:
		return TextureUsageStorageBinding
	case BindingTypeReadOnlyStorageTexture:
		return TextureUsageStorageBinding | TextureUsageReadOnlyStorage
	default:
		return 0
	}
}

// recordUsage unions every entry's resource into scope, selecting the usage
// flag per the binding-type-to-usage mapping above and the shader stages
// declared visible on the layout slot. Samplers contribute no usage.
func (s *BindSet) recordUsage(scope *resourceScope) {
	for _, entry := range s.entries {
		layoutEntry, ok := s.entryFor(entry.Binding)
		if !ok {
			continue
		}
		switch {
		case entry.Buffer != nil:
			if usage := bufferUsageFor(layoutEntry.Type); usage != 0 {
				scope.BufferUsedAs(entry.Buffer, usage, layoutEntry.Visibility)
			}
		case entry.TextureView != nil:
			if usage := textureUsageFor(layoutEntry.Type); usage != 0 {
				scope.TextureViewUsedAs(entry.TextureView, usage, layoutEntry.Visibility)
			}
		}
	}
}
