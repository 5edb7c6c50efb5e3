package wgpu

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/command"
)

// RenderPassEncoder records draw commands within a render pass.
//
// Created by CommandEncoder.BeginRenderPass().
// Must be ended with End() before the CommandEncoder can be finished.
//
// NOT thread-safe.
type RenderPassEncoder struct {
	hal         hal.RenderPassEncoder
	encoder     *CommandEncoder
	scope       *resourceScope
	ended       bool
	pipelineSet bool
	layout      *PipelineLayout
}

// checkPipeline reports an error if no pipeline has been set yet; SetBindSet
// and SetPushConstant both require one.
func (p *RenderPassEncoder) checkPipeline(op string) error {
	if !p.pipelineSet {
		return p.encoder.latch(newStateError("RenderPassEncoder", op, "NoPipelineSet"))
	}
	return nil
}

// recording reports whether the pass is still open. A command issued after
// End is dropped and latches a state error on the owning encoder.
func (p *RenderPassEncoder) recording(op string) bool {
	if p.ended {
		p.encoder.latch(newStateError("RenderPassEncoder", op, "Ended"))
		return false
	}
	return true
}

// SetPipeline sets the active render pipeline.
func (p *RenderPassEncoder) SetPipeline(pipeline *RenderPipeline) {
	if !p.recording("SetPipeline") {
		return
	}
	if pipeline == nil {
		return
	}
	cmd := command.Allocate[command.SetRenderPipelineCmd](p.encoder.arena, command.ID(command.KindSetRenderPipeline))
	cmd.Pipeline = pipeline
	p.hal.SetPipeline(pipeline.hal)
	p.pipelineSet = true
	p.layout = pipeline.layout
}

// SetBindSet sets a bind set for the given index. Returns an error if no
// pipeline has been set yet.
func (p *RenderPassEncoder) SetBindSet(index uint32, set *BindSet, offsets []uint32) error {
	if !p.recording("SetBindSet") {
		return p.encoder.failed
	}
	if err := p.checkPipeline("SetBindSet"); err != nil {
		return err
	}
	if set == nil {
		return nil
	}
	cmd := command.Allocate[command.SetBindSetCmd](p.encoder.arena, command.ID(command.KindSetBindSet))
	cmd.Set, cmd.SetIndex, cmd.DynamicOffsetCount = set, index, uint32(len(offsets))
	if len(offsets) > 0 {
		copy(command.AllocateData[uint32](p.encoder.arena, len(offsets)), offsets)
	}
	p.hal.SetBindSet(index, set.hal, offsets)
	set.recordUsage(p.scope)
	return nil
}

// SetVertexBuffer sets a vertex buffer for the given slot.
func (p *RenderPassEncoder) SetVertexBuffer(slot uint32, buffer *Buffer, offset uint64) {
	if !p.recording("SetVertexBuffer") {
		return
	}
	if buffer == nil {
		return
	}
	halBuf := buffer.halBuffer()
	if halBuf == nil {
		return
	}
	cmd := command.Allocate[command.SetVertexBufferCmd](p.encoder.arena, command.ID(command.KindSetVertexBuffer))
	cmd.Slot, cmd.Buffer, cmd.Offset = slot, buffer, offset
	p.hal.SetVertexBuffer(slot, halBuf, offset)
}

// SetIndexBuffer sets the index buffer.
func (p *RenderPassEncoder) SetIndexBuffer(buffer *Buffer, format IndexFormat, offset uint64) {
	if !p.recording("SetIndexBuffer") {
		return
	}
	if buffer == nil {
		return
	}
	halBuf := buffer.halBuffer()
	if halBuf == nil {
		return
	}
	cmd := command.Allocate[command.SetIndexBufferCmd](p.encoder.arena, command.ID(command.KindSetIndexBuffer))
	cmd.Buffer, cmd.Format, cmd.Offset = buffer, format, offset
	p.hal.SetIndexBuffer(halBuf, format, offset)
}

// SetViewport sets the viewport transformation.
func (p *RenderPassEncoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	if !p.recording("SetViewport") {
		return
	}
	cmd := command.Allocate[command.SetViewportCmd](p.encoder.arena, command.ID(command.KindSetViewport))
	cmd.Viewport = command.Viewport{X: x, Y: y, Width: width, Height: height, MinDepth: minDepth, MaxDepth: maxDepth}
	p.hal.SetViewport(x, y, width, height, minDepth, maxDepth)
}

// SetScissorRect sets the scissor rectangle for clipping.
func (p *RenderPassEncoder) SetScissorRect(x, y, width, height uint32) {
	if !p.recording("SetScissorRect") {
		return
	}
	cmd := command.Allocate[command.SetScissorRectCmd](p.encoder.arena, command.ID(command.KindSetScissorRect))
	cmd.Rect = command.ScissorRect{X: x, Y: y, Width: width, Height: height}
	p.hal.SetScissorRect(x, y, width, height)
}

// SetBlendConstant sets the blend constant color.
func (p *RenderPassEncoder) SetBlendConstant(color *Color) {
	if !p.recording("SetBlendConstant") {
		return
	}
	if color != nil {
		cmd := command.Allocate[command.SetBlendConstantCmd](p.encoder.arena, command.ID(command.KindSetBlendConstant))
		cmd.Color = *color
	}
	p.hal.SetBlendConstant(color)
}

// SetStencilReference sets the stencil reference value.
func (p *RenderPassEncoder) SetStencilReference(reference uint32) {
	if !p.recording("SetStencilReference") {
		return
	}
	cmd := command.Allocate[command.SetStencilReferenceCmd](p.encoder.arena, command.ID(command.KindSetStencilReference))
	cmd.Reference = reference
	p.hal.SetStencilReference(reference)
}

// SetPushConstant updates a range of push-constant bytes visible to stages.
// offset and len(data) must both be multiples of 4, and offset+len(data)
// must not exceed the bound pipeline layout's declared push-constant size.
// Requires a pipeline to have been set.
func (p *RenderPassEncoder) SetPushConstant(stages ShaderStages, offset uint32, data []byte) error {
	if !p.recording("SetPushConstant") {
		return p.encoder.failed
	}
	if err := p.checkPipeline("SetPushConstant"); err != nil {
		return err
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return p.encoder.latch(newValidationError("RenderPassEncoder", "offset", "push constant offset and size must be a multiple of 4"))
	}
	var layoutSize uint32
	if p.layout != nil {
		layoutSize = p.layout.PushConstantSize()
	}
	if uint64(offset)+uint64(len(data)) > uint64(layoutSize) {
		return p.encoder.latch(newValidationError("RenderPassEncoder", "size", "push constant range exceeds pipeline layout's declared size"))
	}
	cmd := command.Allocate[command.SetPushConstantCmd](p.encoder.arena, command.ID(command.KindSetPushConstant))
	cmd.Stages, cmd.Offset, cmd.Size = stages, offset, uint32(len(data))
	copy(command.AllocateData[byte](p.encoder.arena, len(data)), data)
	return nil
}

// Draw draws primitives.
func (p *RenderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !p.recording("Draw") {
		return
	}
	cmd := command.Allocate[command.DrawCmd](p.encoder.arena, command.ID(command.KindDraw))
	cmd.VertexCount, cmd.InstanceCount, cmd.FirstVertex, cmd.FirstInstance = vertexCount, instanceCount, firstVertex, firstInstance
	p.hal.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed draws indexed primitives.
func (p *RenderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if !p.recording("DrawIndexed") {
		return
	}
	cmd := command.Allocate[command.DrawIndexedCmd](p.encoder.arena, command.ID(command.KindDrawIndexed))
	cmd.IndexCount, cmd.InstanceCount, cmd.FirstIndex, cmd.BaseVertex, cmd.FirstInstance = indexCount, instanceCount, firstIndex, baseVertex, firstInstance
	p.hal.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// DrawIndirect draws primitives with GPU-generated parameters.
func (p *RenderPassEncoder) DrawIndirect(buffer *Buffer, offset uint64) {
	if !p.recording("DrawIndirect") {
		return
	}
	if buffer == nil {
		return
	}
	halBuf := buffer.halBuffer()
	if halBuf == nil {
		return
	}
	cmd := command.Allocate[command.DrawIndirectCmd](p.encoder.arena, command.ID(command.KindDrawIndirect))
	cmd.IndirectBuffer, cmd.IndirectOffset = buffer, offset
	p.hal.DrawIndirect(halBuf, offset)
	p.scope.BufferUsedAs(buffer, BufferUsageIndirect, ShaderStageNone)
}

// DrawIndexedIndirect draws indexed primitives with GPU-generated parameters.
func (p *RenderPassEncoder) DrawIndexedIndirect(buffer *Buffer, offset uint64) {
	if !p.recording("DrawIndexedIndirect") {
		return
	}
	if buffer == nil {
		return
	}
	halBuf := buffer.halBuffer()
	if halBuf == nil {
		return
	}
	cmd := command.Allocate[command.DrawIndexedIndirectCmd](p.encoder.arena, command.ID(command.KindDrawIndexedIndirect))
	cmd.IndirectBuffer, cmd.IndirectOffset = buffer, offset
	p.hal.DrawIndexedIndirect(halBuf, offset)
	p.scope.BufferUsedAs(buffer, BufferUsageIndirect, ShaderStageNone)
}

// End ends the render pass.
// After this call, the encoder cannot be used again. The pass's accumulated
// sync-scope usage is moved into the owning CommandEncoder's usage history.
func (p *RenderPassEncoder) End() error {
	if p.ended {
		return newStateError("RenderPassEncoder", "End", "AlreadyEnded")
	}
	p.ended = true
	command.Allocate[command.EndRenderPassCmd](p.encoder.arena, command.ID(command.KindEndRenderPass))
	p.hal.End()
	p.encoder.usage.RenderPassUsages = append(p.encoder.usage.RenderPassUsages, p.scope.AcquireSyncScopeUsage())
	p.encoder.state = encodingOutside
	return nil
}
