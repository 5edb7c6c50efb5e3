package track

import "github.com/gogpu/rhi/types"

// BufferSyncInfo is the OR-merged usage recorded for one buffer inside a
// sync scope.
type BufferSyncInfo struct {
	Usage        types.BufferUsage
	ShaderStages types.ShaderStage
}

// TextureSyncInfo is the OR-merged usage recorded for one subresource of a
// texture inside a sync scope, plus the queue that last used it.
type TextureSyncInfo struct {
	Usage        types.TextureUsage
	ShaderStages types.ShaderStage
	Queue        QueueType
}

// QueueType tags which queue kind a texture subresource was last used from,
// carried on TextureSyncInfo so cross-queue ownership transitions can be
// detected.
type QueueType uint8

const (
	QueueTypeGraphics QueueType = iota
	QueueTypeCompute
	QueueTypeCopy
)

// SyncScopeResourceUsage is the usage snapshot acquired at the end of a
// sync scope (a render pass or compute pass): parallel buffer/texture
// resource lists alongside their merged usage.
type SyncScopeResourceUsage[Buffer, Texture any] struct {
	Buffers         []Buffer
	BufferSyncInfos []BufferSyncInfo

	Textures         []Texture
	TextureSyncInfos []*SubresourceStorage[TextureSyncInfo]
}

// CommandListResourceUsage is the full per-pass usage history of one
// finished encoding, used by the backend to derive barriers between
// successive sync scopes.
type CommandListResourceUsage[Buffer, Texture any] struct {
	RenderPassUsages  []SyncScopeResourceUsage[Buffer, Texture]
	ComputePassUsages []SyncScopeResourceUsage[Buffer, Texture]
}
