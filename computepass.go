package wgpu

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/command"
)

// ComputePassEncoder records compute dispatch commands.
//
// Created by CommandEncoder.BeginComputePass().
// Must be ended with End() before the CommandEncoder can be finished.
//
// NOT thread-safe.
type ComputePassEncoder struct {
	hal         hal.ComputePassEncoder
	encoder     *CommandEncoder
	scope       *resourceScope
	ended       bool
	pipelineSet bool
	layout      *PipelineLayout
}

// checkPipeline reports an error if no pipeline has been set yet; SetBindSet
// and SetPushConstant both require one.
func (p *ComputePassEncoder) checkPipeline(op string) error {
	if !p.pipelineSet {
		return p.encoder.latch(newStateError("ComputePassEncoder", op, "NoPipelineSet"))
	}
	return nil
}

// recording reports whether the pass is still open. A command issued after
// End is dropped and latches a state error on the owning encoder.
func (p *ComputePassEncoder) recording(op string) bool {
	if p.ended {
		p.encoder.latch(newStateError("ComputePassEncoder", op, "Ended"))
		return false
	}
	return true
}

// SetPipeline sets the active compute pipeline.
func (p *ComputePassEncoder) SetPipeline(pipeline *ComputePipeline) {
	if !p.recording("SetPipeline") {
		return
	}
	if pipeline == nil {
		return
	}
	cmd := command.Allocate[command.SetComputePipelineCmd](p.encoder.arena, command.ID(command.KindSetComputePipeline))
	cmd.Pipeline = pipeline
	p.hal.SetPipeline(pipeline.hal)
	p.pipelineSet = true
	p.layout = pipeline.layout
}

// SetBindSet sets a bind set for the given index. Returns an error if no
// pipeline has been set yet.
func (p *ComputePassEncoder) SetBindSet(index uint32, set *BindSet, offsets []uint32) error {
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

// SetPushConstant updates a range of push-constant bytes visible to stages.
// offset and len(data) must both be multiples of 4, and offset+len(data)
// must not exceed the bound pipeline layout's declared push-constant size.
// Requires a pipeline to have been set.
func (p *ComputePassEncoder) SetPushConstant(stages ShaderStages, offset uint32, data []byte) error {
	if !p.recording("SetPushConstant") {
		return p.encoder.failed
	}
	if err := p.checkPipeline("SetPushConstant"); err != nil {
		return err
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return p.encoder.latch(newValidationError("ComputePassEncoder", "offset", "push constant offset and size must be a multiple of 4"))
	}
	var layoutSize uint32
	if p.layout != nil {
		layoutSize = p.layout.PushConstantSize()
	}
	if uint64(offset)+uint64(len(data)) > uint64(layoutSize) {
		return p.encoder.latch(newValidationError("ComputePassEncoder", "size", "push constant range exceeds pipeline layout's declared size"))
	}
	cmd := command.Allocate[command.SetPushConstantCmd](p.encoder.arena, command.ID(command.KindSetPushConstant))
	cmd.Stages, cmd.Offset, cmd.Size = stages, offset, uint32(len(data))
	copy(command.AllocateData[byte](p.encoder.arena, len(data)), data)
	return nil
}

// Dispatch dispatches compute work.
func (p *ComputePassEncoder) Dispatch(x, y, z uint32) {
	if !p.recording("Dispatch") {
		return
	}
	cmd := command.Allocate[command.DispatchCmd](p.encoder.arena, command.ID(command.KindDispatch))
	cmd.X, cmd.Y, cmd.Z = x, y, z
	p.hal.Dispatch(x, y, z)
}

// DispatchIndirect dispatches compute work with GPU-generated parameters.
func (p *ComputePassEncoder) DispatchIndirect(buffer *Buffer, offset uint64) {
	if !p.recording("DispatchIndirect") {
		return
	}
	if buffer == nil {
		return
	}
	halBuf := buffer.halBuffer()
	if halBuf == nil {
		return
	}
	cmd := command.Allocate[command.DispatchIndirectCmd](p.encoder.arena, command.ID(command.KindDispatchIndirect))
	cmd.IndirectBuffer, cmd.IndirectOffset = buffer, offset
	p.hal.DispatchIndirect(halBuf, offset)
	p.scope.BufferUsedAs(buffer, BufferUsageIndirect, ShaderStageNone)
}

// End ends the compute pass. The pass's accumulated sync-scope usage is
// moved into the owning CommandEncoder's usage history.
func (p *ComputePassEncoder) End() error {
	if p.ended {
		return newStateError("ComputePassEncoder", "End", "AlreadyEnded")
	}
	p.ended = true
	command.Allocate[command.EndComputePassCmd](p.encoder.arena, command.ID(command.KindEndComputePass))
	p.hal.End()
	p.encoder.usage.ComputePassUsages = append(p.encoder.usage.ComputePassUsages, p.scope.AcquireSyncScopeUsage())
	p.encoder.state = encodingOutside
	return nil
}
