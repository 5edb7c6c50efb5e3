package types

// BindingType classifies a single bind set layout entry. The sync-scope
// usage tracker uses it to pick which usage flag a bound resource
// contributes when a BindSet is consulted at pass-begin time.
type BindingType uint8

const (
	// BindingTypeNone is the zero value; never a valid entry type.
	BindingTypeNone BindingType = iota
	BindingTypeSampler
	BindingTypeCombinedTextureSampler
	BindingTypeSampledTexture
	BindingTypeStorageTexture
	BindingTypeReadOnlyStorageTexture
	BindingTypeUniformBuffer
	BindingTypeStorageBuffer
	BindingTypeReadOnlyStorageBuffer
)

// BindSetLayoutDescriptor describes a bind set layout: a fixed array of
// entries indexed by binding number, sized to maxBinding+1 and capped at
// MaxBindingsPerSet.
type BindSetLayoutDescriptor struct {
	// Label is a debug label.
	Label string
	// Entries are the layout entries.
	Entries []BindSetLayoutEntry
}

// BindSetLayoutEntry describes a single binding slot in a bind set layout.
type BindSetLayoutEntry struct {
	// Binding is the binding number.
	Binding uint32
	// Type classifies the entry for usage tracking; must agree with
	// whichever of Buffer/Sampler/Texture/Storage below is set.
	Type BindingType
	// Visibility specifies which shader stages can access this binding.
	Visibility ShaderStages
	// Buffer/Sampler/Texture/Storage: exactly one is set, matching Type.
	Buffer  *BufferBindingLayout
	Sampler *SamplerBindingLayout
	Texture *TextureBindingLayout
	Storage *StorageTextureBindingLayout
}

// BufferBindingLayout describes a buffer binding.
type BufferBindingLayout struct {
	// Type is the buffer binding type.
	Type BufferBindingType
	// HasDynamicOffset indicates if the buffer has a dynamic offset.
	HasDynamicOffset bool
	// MinBindingSize is the minimum buffer size required.
	MinBindingSize uint64
}

// SamplerBindingLayout describes a sampler binding.
type SamplerBindingLayout struct {
	// Type is the sampler binding type.
	Type SamplerBindingType
}

// TextureBindingLayout describes a texture binding.
type TextureBindingLayout struct {
	// SampleType is the texture sample type.
	SampleType TextureSampleType
	// ViewDimension is the texture view dimension.
	ViewDimension TextureViewDimension
	// Multisampled indicates if the texture is multisampled.
	Multisampled bool
}

// StorageTextureBindingLayout describes a storage texture binding.
type StorageTextureBindingLayout struct {
	// Access specifies the storage texture access mode.
	Access StorageTextureAccess
	// Format is the texture format.
	Format TextureFormat
	// ViewDimension is the texture view dimension.
	ViewDimension TextureViewDimension
}

// TextureSampleType describes the sample type of a texture.
type TextureSampleType uint8

const (
	// TextureSampleTypeFloat samples as floating-point.
	TextureSampleTypeFloat TextureSampleType = iota
	// TextureSampleTypeUnfilterableFloat samples as unfilterable float.
	TextureSampleTypeUnfilterableFloat
	// TextureSampleTypeDepth samples as depth.
	TextureSampleTypeDepth
	// TextureSampleTypeSint samples as signed integer.
	TextureSampleTypeSint
	// TextureSampleTypeUint samples as unsigned integer.
	TextureSampleTypeUint
)

// StorageTextureAccess describes storage texture access mode.
type StorageTextureAccess uint8

const (
	// StorageTextureAccessWriteOnly allows write-only access.
	StorageTextureAccessWriteOnly StorageTextureAccess = iota
	// StorageTextureAccessReadOnly allows read-only access.
	StorageTextureAccessReadOnly
	// StorageTextureAccessReadWrite allows read-write access.
	StorageTextureAccessReadWrite
)

// BindSetDescriptor describes a bind set: a set of resource bindings
// conforming to a BindSetLayout.
type BindSetDescriptor struct {
	// Label is a debug label.
	Label string
	// Layout is the bind set layout this set conforms to.
	Layout BindSetLayoutHandle
	// Entries are the bound resources.
	Entries []BindSetEntry
}

// BindSetEntry binds one resource to one binding slot (and, for binding
// arrays, one array element) of a bind set.
type BindSetEntry struct {
	// Binding is the binding number, matching a BindSetLayoutEntry.Binding.
	Binding uint32
	// ArrayElementIndex selects the element within a binding array; 0 for
	// non-array bindings.
	ArrayElementIndex uint32
	// Resource is the bound resource.
	Resource BindingResource
}

// BindingResource is a resource that can be bound.
type BindingResource interface {
	bindingResource()
}

// BufferBinding binds a buffer range.
type BufferBinding struct {
	// Buffer is the buffer handle.
	Buffer BufferHandle
	// Offset is the byte offset into the buffer.
	Offset uint64
	// Range is the byte size of the binding (WholeSize for the remainder of
	// the buffer from Offset).
	Range uint64
}

func (BufferBinding) bindingResource() {}

// SamplerBinding binds a sampler.
type SamplerBinding struct {
	// Sampler is the sampler handle.
	Sampler SamplerHandle
}

func (SamplerBinding) bindingResource() {}

// TextureViewBinding binds a texture view.
type TextureViewBinding struct {
	// TextureView is the texture view handle.
	TextureView TextureViewHandle
}

func (TextureViewBinding) bindingResource() {}

// Handle types for bind resources.
type (
	BindSetLayoutHandle uint64
	BufferHandle        uint64
	SamplerHandle       uint64
	TextureViewHandle   uint64
)

// MaxBindingsPerSet bounds the size of a single BindSetLayout's entry
// array; layouts that would need more are rejected at creation.
const MaxBindingsPerSet = 128

// MaxBindSets bounds how many BindSetLayouts a PipelineLayout may index.
const MaxBindSets = 4

// PipelineLayoutDescriptor describes a pipeline layout.
type PipelineLayoutDescriptor struct {
	// Label is a debug label.
	Label string
	// BindSetLayouts are the bind set layouts, indexed by set number. A nil
	// entry is filled with the device's empty BindSetLayout singleton.
	BindSetLayouts []BindSetLayoutHandle
	// PushConstantRange describes the single push-constant range available
	// to this layout's pipelines; Size 0 means none.
	PushConstantRange PushConstantRange
}

// PushConstantRange describes a push constant range.
type PushConstantRange struct {
	// Stages are the shader stages that can access this range.
	Stages ShaderStages
	// Size is the range's byte size, validated as a multiple of 4.
	Size uint32
}
