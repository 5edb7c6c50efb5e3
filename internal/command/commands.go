package command

import "github.com/gogpu/rhi/types"

// Kind tags every command a CommandEncoder, RenderPassEncoder, or
// ComputePassEncoder can record. Values double as the ID passed to Allocate,
// so NextCommandID's return value can be switched on directly by a replayer.
type Kind ID

const (
	KindClearBuffer Kind = iota
	KindCopyBufferToBuffer
	KindCopyBufferToTexture
	KindCopyTextureToBuffer
	KindCopyTextureToTexture
	KindWriteBuffer
	KindMapBufferAsync
	KindBeginDebugLabel
	KindEndDebugLabel

	KindBeginRenderPass
	KindEndRenderPass
	KindBeginComputePass
	KindEndComputePass

	KindSetRenderPipeline
	KindSetComputePipeline
	KindSetBindSet
	KindSetViewport
	KindSetScissorRect
	KindSetIndexBuffer
	KindSetVertexBuffer
	KindSetPushConstant
	KindSetStencilReference
	KindSetBlendConstant

	KindDraw
	KindDrawIndexed
	KindDrawIndirect
	KindDrawIndexedIndirect
	KindMultiDrawIndirect
	KindMultiDrawIndexedIndirect
	KindDispatch
	KindDispatchIndirect
)

// Resource operands are typed any to keep this package free of a dependency
// on the concrete resource types the root package defines; the encoder that
// records a command and the replayer that consumes it agree on the concrete
// type by construction, so NextCommand's type assertion never fails in
// practice.

// ClearBufferCmd zero-fills a byte range of a buffer.
type ClearBufferCmd struct {
	Buffer any
	Offset uint64
	Size   uint64
}

// CopyBufferToBufferCmd copies a byte range between two buffers.
type CopyBufferToBufferCmd struct {
	SrcBuffer any
	SrcOffset uint64
	DstBuffer any
	DstOffset uint64
	Size      uint64
}

// TextureDataLayout describes how linear buffer bytes map onto a texture
// copy region.
type TextureDataLayout struct {
	Offset       uint64
	BytesPerRow  uint32
	RowsPerImage uint32
}

// CopyBufferToTextureCmd copies linear buffer bytes into a texture region.
type CopyBufferToTextureCmd struct {
	SrcBuffer   any
	SrcLayout   TextureDataLayout
	DstTexture  any
	DstOrigin   types.Origin3D
	CopySize    types.Extent3D
	DstMipLevel uint32
	DstAspect   types.TextureAspect
}

// CopyTextureToBufferCmd copies a texture region into linear buffer bytes.
type CopyTextureToBufferCmd struct {
	SrcTexture  any
	SrcOrigin   types.Origin3D
	CopySize    types.Extent3D
	SrcMipLevel uint32
	SrcAspect   types.TextureAspect
	DstBuffer   any
	DstLayout   TextureDataLayout
}

// CopyTextureToTextureCmd copies a region between two textures.
type CopyTextureToTextureCmd struct {
	SrcTexture  any
	SrcOrigin   types.Origin3D
	SrcMipLevel uint32
	SrcAspect   types.TextureAspect
	DstTexture  any
	DstOrigin   types.Origin3D
	DstMipLevel uint32
	DstAspect   types.TextureAspect
	CopySize    types.Extent3D
}

// WriteBufferCmd is the queue-side counterpart of CopyBufferToBuffer: it
// stages caller-supplied bytes (recorded as AdditionalData immediately
// following this command) into a buffer outside of a CommandEncoder.
type WriteBufferCmd struct {
	Buffer     any
	Offset     uint64
	DataLength uint64
}

// MapBufferAsyncCmd requests an async buffer mapping, to be resolved by the
// queue's callback task manager once the mapping's serial has completed.
type MapBufferAsyncCmd struct {
	Buffer   any
	Mode     types.MapMode
	Offset   uint64
	Size     uint64
	Callback func(status types.MapAsyncStatus)
}

// BeginDebugLabelCmd opens a debug group; the label text is recorded as
// AdditionalData ([]byte) immediately following this command.
type BeginDebugLabelCmd struct {
	Color      types.Color
	LabelBytes int
}

// EndDebugLabelCmd closes the most recently opened debug group.
type EndDebugLabelCmd struct{}

// RenderPassColorAttachment mirrors types.RenderPassColorAttachment but with
// resolved resource operands rather than handles.
type RenderPassColorAttachment struct {
	View          any
	ResolveTarget any
	LoadOp        types.LoadOp
	StoreOp       types.StoreOp
	ClearValue    types.Color
}

// RenderPassDepthStencilAttachment mirrors
// types.RenderPassDepthStencilAttachment with a resolved view.
type RenderPassDepthStencilAttachment struct {
	View              any
	DepthLoadOp       types.LoadOp
	DepthStoreOp      types.StoreOp
	DepthClearValue   float32
	DepthReadOnly     bool
	StencilLoadOp     types.LoadOp
	StencilStoreOp    types.StoreOp
	StencilClearValue uint32
	StencilReadOnly   bool
}

// BeginRenderPassCmd opens a render pass over the given attachments.
type BeginRenderPassCmd struct {
	ColorAttachments       []RenderPassColorAttachment
	DepthStencilAttachment *RenderPassDepthStencilAttachment
}

// EndRenderPassCmd closes the currently open render pass.
type EndRenderPassCmd struct{}

// BeginComputePassCmd opens a compute pass. It carries no attachments.
type BeginComputePassCmd struct{}

// EndComputePassCmd closes the currently open compute pass.
type EndComputePassCmd struct{}

// SetRenderPipelineCmd binds a render pipeline for subsequent draws.
type SetRenderPipelineCmd struct {
	Pipeline any
}

// SetComputePipelineCmd binds a compute pipeline for subsequent dispatches.
type SetComputePipelineCmd struct {
	Pipeline any
}

// SetBindSetCmd binds a BindSet at setIndex; dynamic offsets (if any) are
// recorded as AdditionalData ([]uint32) immediately following this command.
type SetBindSetCmd struct {
	Set                any
	SetIndex           uint32
	DynamicOffsetCount uint32
}

// Viewport describes a viewport rectangle plus its depth range.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// SetViewportCmd sets the active viewport.
type SetViewportCmd struct {
	Viewport Viewport
}

// ScissorRect describes a scissor rectangle in pixels.
type ScissorRect struct {
	X, Y, Width, Height uint32
}

// SetScissorRectCmd sets the active scissor rectangle.
type SetScissorRectCmd struct {
	Rect ScissorRect
}

// SetIndexBufferCmd binds an index buffer for subsequent indexed draws.
type SetIndexBufferCmd struct {
	Buffer any
	Format types.IndexFormat
	Offset uint64
	Size   uint64
}

// SetVertexBufferCmd binds a vertex buffer at a vertex-buffer slot.
type SetVertexBufferCmd struct {
	Slot   uint32
	Buffer any
	Offset uint64
	Size   uint64
}

// SetPushConstantCmd updates a range of push-constant bytes, recorded as
// AdditionalData ([]byte) of exactly Size bytes immediately following this
// command. Size is the caller's requested byte count, not the pipeline
// layout's full declared range.
type SetPushConstantCmd struct {
	Stages types.ShaderStages
	Offset uint32
	Size   uint32
}

// SetStencilReferenceCmd sets the stencil reference value used by stencil
// tests in the current render pass.
type SetStencilReferenceCmd struct {
	Reference uint32
}

// SetBlendConstantCmd sets the blend constant color used by Constant blend
// factors in the current render pass.
type SetBlendConstantCmd struct {
	Color types.Color
}

// DrawCmd issues a non-indexed draw.
type DrawCmd struct {
	VertexCount, InstanceCount uint32
	FirstVertex, FirstInstance uint32
}

// DrawIndexedCmd issues an indexed draw.
type DrawIndexedCmd struct {
	IndexCount, InstanceCount uint32
	FirstIndex                uint32
	BaseVertex                int32
	FirstInstance             uint32
}

// DrawIndirectCmd issues a non-indexed draw whose parameters are read from a
// buffer at the given offset.
type DrawIndirectCmd struct {
	IndirectBuffer any
	IndirectOffset uint64
}

// DrawIndexedIndirectCmd issues an indexed draw whose parameters are read
// from a buffer at the given offset.
type DrawIndexedIndirectCmd struct {
	IndirectBuffer any
	IndirectOffset uint64
}

// MultiDrawIndirectCmd issues count non-indexed indirect draws read back to
// back from a buffer, as a single recorded command (kept distinct from
// DrawIndirect so a backend that supports multi-draw natively can batch
// count draws into one call instead of count separate ones).
type MultiDrawIndirectCmd struct {
	IndirectBuffer any
	IndirectOffset uint64
	Count          uint32
	Stride         uint32
}

// MultiDrawIndexedIndirectCmd is the indexed counterpart of
// MultiDrawIndirectCmd.
type MultiDrawIndexedIndirectCmd struct {
	IndirectBuffer any
	IndirectOffset uint64
	Count          uint32
	Stride         uint32
}

// DispatchCmd issues a compute dispatch over a workgroup grid.
type DispatchCmd struct {
	X, Y, Z uint32
}

// DispatchIndirectCmd issues a compute dispatch whose workgroup counts are
// read from a buffer at the given offset.
type DispatchIndirectCmd struct {
	IndirectBuffer any
	IndirectOffset uint64
}
