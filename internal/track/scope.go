package track

import "github.com/gogpu/rhi/types"

// BufferResource is the minimal interface a buffer type must satisfy to
// participate in sync-scope usage tracking. Resource types are normally
// pointers, which are naturally comparable.
type BufferResource interface {
	comparable
}

// TextureResource is the minimal interface a texture type must satisfy.
type TextureResource interface {
	comparable
	Aspects() Aspect
	LayerCount() uint32
	MipCount() uint32
}

// TextureViewResource is the minimal interface a texture view type must
// satisfy to be usable with Scope.TextureViewUsedAs.
type TextureViewResource[Texture TextureResource] interface {
	Texture() Texture
	SubresourceRange() SubresourceRange
}

// Scope is the per-pass usage tracker described by the sync-scope model:
// it OR-merges every buffer and texture-subresource usage recorded during
// one render or compute pass, ready to be acquired into a
// SyncScopeResourceUsage snapshot at pass end.
//
// A BindSet's contribution is not derived generically here; the caller (the
// concrete BindSet type, which knows its own layout's binding types) calls
// BufferUsedAs/TextureViewUsedAs once per binding, selecting the usage flag
// per the binding-type-to-usage mapping in the data model (sampled texture
// -> SampledBinding, storage texture -> StorageBinding, uniform buffer ->
// Uniform, and so on; samplers contribute no usage).
type Scope[Buffer BufferResource, Texture TextureResource] struct {
	bufferSyncInfos  map[Buffer]*BufferSyncInfo
	textureSyncInfos map[Texture]*SubresourceStorage[TextureSyncInfo]
}

// NewScope returns a ready-to-use, empty tracker.
func NewScope[Buffer BufferResource, Texture TextureResource]() *Scope[Buffer, Texture] {
	return &Scope[Buffer, Texture]{
		bufferSyncInfos:  make(map[Buffer]*BufferSyncInfo),
		textureSyncInfos: make(map[Texture]*SubresourceStorage[TextureSyncInfo]),
	}
}

// BufferUsedAs unions usage/shaderStages into buffer's recorded sync info.
func (s *Scope[Buffer, Texture]) BufferUsedAs(buffer Buffer, usage types.BufferUsage, stages types.ShaderStage) {
	info, ok := s.bufferSyncInfos[buffer]
	if !ok {
		info = &BufferSyncInfo{}
		s.bufferSyncInfos[buffer] = info
	}
	info.Usage |= usage
	info.ShaderStages |= stages
}

// TextureRangeUsedAs unions usage/shaderStages into every subresource of
// texture named by r.
func (s *Scope[Buffer, Texture]) TextureRangeUsedAs(texture Texture, r SubresourceRange, usage types.TextureUsage, stages types.ShaderStage) {
	storage, ok := s.textureSyncInfos[texture]
	if !ok {
		storage = NewSubresourceStorage[TextureSyncInfo](texture.Aspects(), texture.LayerCount(), texture.MipCount())
		s.textureSyncInfos[texture] = storage
	}
	storage.Update(r, func(info TextureSyncInfo) TextureSyncInfo {
		info.Usage |= usage
		info.ShaderStages |= stages
		return info
	})
}

// TextureViewUsedAs is TextureRangeUsedAs over the view's own subresource
// range against its parent texture.
func (s *Scope[Buffer, Texture]) TextureViewUsedAs(view TextureViewResource[Texture], usage types.TextureUsage, stages types.ShaderStage) {
	s.TextureRangeUsedAs(view.Texture(), view.SubresourceRange(), usage, stages)
}

// AcquireSyncScopeUsage moves the accumulated maps into parallel slices and
// resets the tracker, ready for the next pass.
func (s *Scope[Buffer, Texture]) AcquireSyncScopeUsage() SyncScopeResourceUsage[Buffer, Texture] {
	usage := SyncScopeResourceUsage[Buffer, Texture]{
		Buffers:          make([]Buffer, 0, len(s.bufferSyncInfos)),
		BufferSyncInfos:  make([]BufferSyncInfo, 0, len(s.bufferSyncInfos)),
		Textures:         make([]Texture, 0, len(s.textureSyncInfos)),
		TextureSyncInfos: make([]*SubresourceStorage[TextureSyncInfo], 0, len(s.textureSyncInfos)),
	}

	for buf, info := range s.bufferSyncInfos {
		usage.Buffers = append(usage.Buffers, buf)
		usage.BufferSyncInfos = append(usage.BufferSyncInfos, *info)
	}
	for tex, info := range s.textureSyncInfos {
		usage.Textures = append(usage.Textures, tex)
		usage.TextureSyncInfos = append(usage.TextureSyncInfos, info)
	}

	s.bufferSyncInfos = make(map[Buffer]*BufferSyncInfo)
	s.textureSyncInfos = make(map[Texture]*SubresourceStorage[TextureSyncInfo])
	return usage
}
