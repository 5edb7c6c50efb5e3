package wgpu

import (
	"fmt"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/command"
	"github.com/gogpu/rhi/internal/track"
	gputypes "github.com/gogpu/rhi/types"
)

// resourceScope is the per-pass sync-scope tracker, specialized to this
// package's own resource handle types.
type resourceScope = track.Scope[*Buffer, *Texture]

// resourceUsage is the full per-pass usage history acquired from one
// finished CommandEncoder, specialized the same way.
type resourceUsage = track.CommandListResourceUsage[*Buffer, *Texture]

// encodingState is the CommandEncoder's current position in its state
// machine: Outside, InRenderPass, InComputePass, Finished.
type encodingState uint8

const (
	encodingOutside encodingState = iota
	encodingInRenderPass
	encodingInComputePass
	encodingFinished
)

func (s encodingState) String() string {
	switch s {
	case encodingOutside:
		return "Outside"
	case encodingInRenderPass:
		return "InRenderPass"
	case encodingInComputePass:
		return "InComputePass"
	case encodingFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// CommandEncoder records GPU commands for later submission.
//
// A command encoder is single-use. After calling Finish(), the encoder
// cannot be used again. Call Device.CreateCommandEncoder() to create a new one.
//
// NOT thread-safe - do not use from multiple goroutines.
type CommandEncoder struct {
	hal        hal.CommandEncoder
	device     *Device
	released   bool
	failed     error
	usage      resourceUsage
	state      encodingState
	arena      *command.Allocator
	debugDepth int

	// Deferred queue-side work: buffers the stream names outside any pass
	// (their last-usage serial is stamped at submit), WriteBuffer payloads
	// applied at submit, and map-async requests filed against the submit's
	// serial.
	usedBuffers   []bufferUse
	pendingWrites []pendingWrite
	mapRequests   []mapRequest
}

// bufferUse names a buffer an outside-pass command touched, with the usage
// it touched it as; the queue folds these into each buffer's per-queue
// usage track at submit.
type bufferUse struct {
	buffer *Buffer
	usage  BufferUsage
}

// pendingWrite is one recorded WriteBuffer, applied when the finished
// command buffer is submitted.
type pendingWrite struct {
	buffer *Buffer
	offset uint64
	data   []byte
}

// mapRequest is one recorded MapBufferAsync, filed with the queue at the
// submit serial so its callback fires after the GPU has consumed the
// submission.
type mapRequest struct {
	buffer *Buffer
	offset uint64
	size   uint64
	cb     func(MapAsyncStatus)
}

// newCommandEncoder creates and begins a HAL command encoder.
func newCommandEncoder(d *Device, label string) *CommandEncoder {
	e := &CommandEncoder{device: d, arena: command.NewAllocator()}
	halDevice := d.halDevice()
	if halDevice == nil {
		e.failed = ErrReleased
		return e
	}
	halEnc, err := halDevice.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		e.failed = fmt.Errorf("wgpu: failed to create command encoder: %w", err)
		return e
	}
	if err := halEnc.BeginEncoding(label); err != nil {
		e.failed = fmt.Errorf("wgpu: failed to begin command encoding: %w", err)
		return e
	}
	e.hal = halEnc
	return e
}

// latch records err as the encoder's first failure, if none is recorded
// yet, and returns it. Every subsequent recording call short-circuits on
// e.failed, so the first contract violation poisons the whole encoding.
func (e *CommandEncoder) latch(err error) error {
	if e.failed == nil {
		e.failed = err
	}
	return e.failed
}

func (e *CommandEncoder) checkOutside(op string) error {
	if e.failed != nil {
		return e.failed
	}
	if e.released {
		return ErrReleased
	}
	if e.state != encodingOutside {
		return e.latch(newStateError("CommandEncoder", op, e.state.String()))
	}
	return nil
}

// BeginRenderPass begins a render pass.
// The returned RenderPassEncoder records draw commands.
// Call RenderPassEncoder.End() when done.
func (e *CommandEncoder) BeginRenderPass(desc *RenderPassDescriptor) (*RenderPassEncoder, error) {
	if err := e.checkOutside("BeginRenderPass"); err != nil {
		return nil, err
	}

	halDesc := &hal.RenderPassDescriptor{}
	if desc != nil {
		halDesc = desc.toHAL()
	}

	scope := track.NewScope[*Buffer, *Texture]()
	cmd := command.Allocate[command.BeginRenderPassCmd](e.arena, command.ID(command.KindBeginRenderPass))
	if desc != nil {
		for _, ca := range desc.ColorAttachments {
			if ca.View != nil {
				scope.TextureViewUsedAs(ca.View, TextureUsageRenderAttachment, ShaderStageNone)
			}
			if ca.ResolveTarget != nil {
				scope.TextureViewUsedAs(ca.ResolveTarget, TextureUsageRenderAttachment, ShaderStageNone)
			}
			cmd.ColorAttachments = append(cmd.ColorAttachments, command.RenderPassColorAttachment{
				View:          ca.View,
				ResolveTarget: ca.ResolveTarget,
				LoadOp:        ca.LoadOp,
				StoreOp:       ca.StoreOp,
				ClearValue:    ca.ClearValue,
			})
		}
		if desc.DepthStencilAttachment != nil {
			ds := desc.DepthStencilAttachment
			if ds.View != nil {
				scope.TextureViewUsedAs(ds.View, TextureUsageRenderAttachment, ShaderStageNone)
			}
			cmd.DepthStencilAttachment = &command.RenderPassDepthStencilAttachment{
				View:              ds.View,
				DepthLoadOp:       ds.DepthLoadOp,
				DepthStoreOp:      ds.DepthStoreOp,
				DepthClearValue:   ds.DepthClearValue,
				DepthReadOnly:     ds.DepthReadOnly,
				StencilLoadOp:     ds.StencilLoadOp,
				StencilStoreOp:    ds.StencilStoreOp,
				StencilClearValue: ds.StencilClearValue,
				StencilReadOnly:   ds.StencilReadOnly,
			}
		}
	}

	e.state = encodingInRenderPass
	halPass := e.hal.BeginRenderPass(halDesc)
	return &RenderPassEncoder{hal: halPass, encoder: e, scope: scope}, nil
}

// BeginComputePass begins a compute pass.
// The returned ComputePassEncoder records dispatch commands.
// Call ComputePassEncoder.End() when done.
func (e *CommandEncoder) BeginComputePass(desc *ComputePassDescriptor) (*ComputePassEncoder, error) {
	if err := e.checkOutside("BeginComputePass"); err != nil {
		return nil, err
	}

	halDesc := &hal.ComputePassDescriptor{}
	if desc != nil {
		halDesc = desc.toHAL()
	}

	command.Allocate[command.BeginComputePassCmd](e.arena, command.ID(command.KindBeginComputePass))
	e.state = encodingInComputePass
	halPass := e.hal.BeginComputePass(halDesc)
	return &ComputePassEncoder{hal: halPass, encoder: e, scope: track.NewScope[*Buffer, *Texture]()}, nil
}

// BeginDebugLabel opens a named debug group, nestable to any depth. Every
// BeginDebugLabel must be matched by a later EndDebugLabel before Finish.
// Only legal outside a pass.
func (e *CommandEncoder) BeginDebugLabel(label string, color Color) error {
	if err := e.checkOutside("BeginDebugLabel"); err != nil {
		return err
	}
	cmd := command.Allocate[command.BeginDebugLabelCmd](e.arena, command.ID(command.KindBeginDebugLabel))
	cmd.Color = color
	cmd.LabelBytes = len(label)
	data := command.AllocateData[byte](e.arena, len(label))
	copy(data, label)
	e.debugDepth++
	return nil
}

// EndDebugLabel closes the most recently opened debug group. Calling it
// with no open group is a contract violation.
func (e *CommandEncoder) EndDebugLabel() error {
	if err := e.checkOutside("EndDebugLabel"); err != nil {
		return err
	}
	if e.debugDepth == 0 {
		return e.latch(newValidationError("CommandEncoder", "", "EndDebugLabel with no matching BeginDebugLabel"))
	}
	command.Allocate[command.EndDebugLabelCmd](e.arena, command.ID(command.KindEndDebugLabel))
	e.debugDepth--
	return nil
}

// ClearBuffer clears a buffer region to zero.
func (e *CommandEncoder) ClearBuffer(buf *Buffer, offset, size uint64) {
	if e.checkOutside("ClearBuffer") != nil || buf == nil {
		return
	}
	halBuf := buf.halBuffer()
	if halBuf == nil {
		return
	}
	cmd := command.Allocate[command.ClearBufferCmd](e.arena, command.ID(command.KindClearBuffer))
	cmd.Buffer, cmd.Offset, cmd.Size = buf, offset, size
	e.usedBuffers = append(e.usedBuffers, bufferUse{buf, BufferUsageCopyDst})
	e.hal.ClearBuffer(halBuf, offset, size)
}

// CopyBufferToBuffer copies data between buffers.
func (e *CommandEncoder) CopyBufferToBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset uint64, size uint64) {
	if e.checkOutside("CopyBufferToBuffer") != nil || src == nil || dst == nil {
		return
	}
	halSrc := src.halBuffer()
	halDst := dst.halBuffer()
	if halSrc == nil || halDst == nil {
		return
	}
	cmd := command.Allocate[command.CopyBufferToBufferCmd](e.arena, command.ID(command.KindCopyBufferToBuffer))
	cmd.SrcBuffer, cmd.SrcOffset, cmd.DstBuffer, cmd.DstOffset, cmd.Size = src, srcOffset, dst, dstOffset, size
	e.usedBuffers = append(e.usedBuffers, bufferUse{src, BufferUsageCopySrc}, bufferUse{dst, BufferUsageCopyDst})
	e.hal.CopyBufferToBuffer(halSrc, halDst, []hal.BufferCopy{
		{SrcOffset: srcOffset, DstOffset: dstOffset, Size: size},
	})
}

// CopyBufferToTexture copies data from a buffer to a texture.
func (e *CommandEncoder) CopyBufferToTexture(src *Buffer, layout ImageDataLayout, dst *Texture, origin Origin3D, size Extent3D) {
	if e.checkOutside("CopyBufferToTexture") != nil || src == nil || dst == nil {
		return
	}
	halSrc := src.halBuffer()
	if halSrc == nil {
		return
	}
	cmd := command.Allocate[command.CopyBufferToTextureCmd](e.arena, command.ID(command.KindCopyBufferToTexture))
	cmd.SrcBuffer = src
	cmd.SrcLayout = command.TextureDataLayout{Offset: layout.Offset, BytesPerRow: layout.BytesPerRow, RowsPerImage: layout.RowsPerImage}
	cmd.DstTexture = dst
	cmd.DstOrigin = gputypes.Origin3D(origin)
	cmd.CopySize = gputypes.Extent3D(size)
	e.usedBuffers = append(e.usedBuffers, bufferUse{src, BufferUsageCopySrc})
	e.hal.CopyBufferToTexture(halSrc, dst.hal, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: layout.Offset, BytesPerRow: layout.BytesPerRow, RowsPerImage: layout.RowsPerImage},
		TextureBase:  hal.ImageCopyTexture{Texture: dst.hal, Origin: hal.Origin3D(origin)},
		Size:         hal.Extent3D(size),
	}})
}

// CopyTextureToBuffer copies data from a texture to a buffer.
func (e *CommandEncoder) CopyTextureToBuffer(src *Texture, origin Origin3D, dst *Buffer, layout ImageDataLayout, size Extent3D) {
	if e.checkOutside("CopyTextureToBuffer") != nil || src == nil || dst == nil {
		return
	}
	halDst := dst.halBuffer()
	if halDst == nil {
		return
	}
	cmd := command.Allocate[command.CopyTextureToBufferCmd](e.arena, command.ID(command.KindCopyTextureToBuffer))
	cmd.SrcTexture = src
	cmd.SrcOrigin = gputypes.Origin3D(origin)
	cmd.CopySize = gputypes.Extent3D(size)
	cmd.DstBuffer = dst
	cmd.DstLayout = command.TextureDataLayout{Offset: layout.Offset, BytesPerRow: layout.BytesPerRow, RowsPerImage: layout.RowsPerImage}
	e.usedBuffers = append(e.usedBuffers, bufferUse{dst, BufferUsageCopyDst})
	e.hal.CopyTextureToBuffer(src.hal, halDst, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: layout.Offset, BytesPerRow: layout.BytesPerRow, RowsPerImage: layout.RowsPerImage},
		TextureBase:  hal.ImageCopyTexture{Texture: src.hal, Origin: hal.Origin3D(origin)},
		Size:         hal.Extent3D(size),
	}})
}

// CopyTextureToTexture copies data between textures.
func (e *CommandEncoder) CopyTextureToTexture(src *Texture, srcOrigin Origin3D, dst *Texture, dstOrigin Origin3D, size Extent3D) {
	if e.checkOutside("CopyTextureToTexture") != nil || src == nil || dst == nil {
		return
	}
	cmd := command.Allocate[command.CopyTextureToTextureCmd](e.arena, command.ID(command.KindCopyTextureToTexture))
	cmd.SrcTexture, cmd.SrcOrigin = src, gputypes.Origin3D(srcOrigin)
	cmd.DstTexture, cmd.DstOrigin = dst, gputypes.Origin3D(dstOrigin)
	cmd.CopySize = gputypes.Extent3D(size)
	e.hal.CopyTextureToTexture(src.hal, dst.hal, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: src.hal, Origin: hal.Origin3D(srcOrigin)},
		DstBase: hal.ImageCopyTexture{Texture: dst.hal, Origin: hal.Origin3D(dstOrigin)},
		Size:    hal.Extent3D(size),
	}})
}

// WriteBuffer records a deferred write of data into buf at offset. The
// payload is copied into the command stream now and applied by the queue
// when the finished command buffer is submitted, so the caller may reuse
// data immediately.
func (e *CommandEncoder) WriteBuffer(buf *Buffer, offset uint64, data []byte) error {
	if err := e.checkOutside("WriteBuffer"); err != nil {
		return err
	}
	if buf == nil {
		return newValidationError("CommandEncoder", "Buffer", "WriteBuffer buffer is nil")
	}
	if offset+uint64(len(data)) > buf.size {
		return e.latch(newValidationError("CommandEncoder", "Size", "write range exceeds buffer size"))
	}
	cmd := command.Allocate[command.WriteBufferCmd](e.arena, command.ID(command.KindWriteBuffer))
	cmd.Buffer, cmd.Offset, cmd.DataLength = buf, offset, uint64(len(data))
	payload := command.AllocateData[byte](e.arena, len(data))
	copy(payload, data)
	e.usedBuffers = append(e.usedBuffers, bufferUse{buf, BufferUsageCopyDst})
	e.pendingWrites = append(e.pendingWrites, pendingWrite{buffer: buf, offset: offset, data: payload})
	return nil
}

// MapBufferAsync records a map-async request against buf. The buffer moves
// to PendingMap now; the callback is filed with the queue at submit time,
// gated on the submission's own serial, so it fires only after the GPU has
// consumed every command recorded before it.
func (e *CommandEncoder) MapBufferAsync(buf *Buffer, mode MapMode, offset, size uint64, cb func(MapAsyncStatus)) error {
	if err := e.checkOutside("MapBufferAsync"); err != nil {
		return err
	}
	if buf == nil {
		return newValidationError("CommandEncoder", "Buffer", "MapBufferAsync buffer is nil")
	}
	if buf.mapState != BufferMapStateUnmapped {
		return e.latch(newStateError("Buffer", "MapBufferAsync", buf.mapState.String()))
	}
	if size == WholeSize {
		if offset > buf.size {
			return e.latch(newValidationError("Buffer", "Offset", "map offset exceeds buffer size"))
		}
		size = buf.size - offset
	}
	if offset+size > buf.size {
		return e.latch(newValidationError("Buffer", "Size", "map range exceeds buffer size"))
	}
	cmd := command.Allocate[command.MapBufferAsyncCmd](e.arena, command.ID(command.KindMapBufferAsync))
	cmd.Buffer, cmd.Mode, cmd.Offset, cmd.Size, cmd.Callback = buf, mode, offset, size, cb
	buf.mapState = BufferMapStatePendingMap
	buf.mapMode = mode
	buf.mapOffset = offset
	buf.mapSize = size
	e.mapRequests = append(e.mapRequests, mapRequest{buffer: buf, offset: offset, size: size, cb: cb})
	return nil
}

// Finish completes command recording and returns a CommandBuffer.
// After calling Finish(), the encoder cannot be used again.
func (e *CommandEncoder) Finish() (*CommandBuffer, error) {
	if e.released {
		return nil, ErrReleased
	}
	e.released = true
	if e.failed != nil {
		return nil, e.failed
	}
	if e.state != encodingOutside {
		return nil, newStateError("CommandEncoder", "Finish", e.state.String())
	}
	if e.debugDepth != 0 {
		return nil, newValidationError("CommandEncoder", "", "Finish called with unbalanced debug labels")
	}
	e.state = encodingFinished

	halBuf, err := e.hal.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to finish command encoder: %w", err)
	}

	return &CommandBuffer{
		hal:           halBuf,
		device:        e.device,
		usage:         e.usage,
		blocks:        e.arena.Finish(),
		usedBuffers:   e.usedBuffers,
		pendingWrites: e.pendingWrites,
		mapRequests:   e.mapRequests,
	}, nil
}

// ImageDataLayout describes the layout of image data in a buffer.
type ImageDataLayout struct {
	Offset       uint64
	BytesPerRow  uint32
	RowsPerImage uint32
}

// CommandBuffer holds recorded GPU commands ready for submission.
// Created by CommandEncoder.Finish().
type CommandBuffer struct {
	hal    hal.CommandBuffer
	device *Device
	usage  resourceUsage
	blocks *command.Blocks

	// Deferred queue-side work moved off the encoder at Finish; consumed by
	// Queue.Submit.
	usedBuffers   []bufferUse
	pendingWrites []pendingWrite
	mapRequests   []mapRequest
}

// halBuffer returns the underlying HAL command buffer.
func (cb *CommandBuffer) halBuffer() hal.CommandBuffer {
	return cb.hal
}

// ResourceUsage returns the per-pass resource-usage snapshot recorded while
// this command buffer was encoded: one entry per render pass and one per
// compute pass, in recording order. A backend derives the pipeline barriers
// between successive sync scopes from this snapshot at submission time.
func (cb *CommandBuffer) ResourceUsage() resourceUsage {
	return cb.usage
}

// Commands returns a forward-only iterator over every command recorded
// into this buffer, in recording order, including render/compute pass
// boundaries and debug labels. A backend (or a test) walks it with
// command.NextCommandID/NextCommand/NextData to replay the stream.
func (cb *CommandBuffer) Commands() *command.Iterator {
	return command.NewIterator(cb.blocks)
}
