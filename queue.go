package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/callback"
	"github.com/gogpu/rhi/internal/serial"
	"github.com/gogpu/rhi/internal/track"
	"github.com/gogpu/rhi/internal/upload"
)

// copyBytesPerRowAlignment is the stride alignment a staging buffer's rows
// are padded to, mirroring the "optimally aligned bytes per row" a real
// backend would report for buffer-to-texture copies.
const copyBytesPerRowAlignment = 256

// Queue handles command submission and data transfers.
//
// Submission is asynchronous: Submit assigns the next serial on the queue's
// timeline and returns without waiting for the GPU. Tick polls the fence,
// promotes the completed serial, and releases everything gated on serials
// the GPU has finished: retained command buffers, upload-ring space, and
// deferred callbacks such as map-async completions.
type Queue struct {
	hal       hal.Queue
	halDevice hal.Device
	fence     hal.Fence
	device    *Device

	timeline     *serial.Timeline
	uploader     *upload.Allocator
	callbacks    *callback.Manager
	pendingTasks serial.Map[callback.Task]
	inflight     serial.Map[hal.CommandBuffer]
	lost         bool
}

// newQueue wires a queue's serial timeline, upload allocator, and deferred
// callback manager around the HAL objects RequestDevice opened.
func newQueue(h hal.Queue, halDevice hal.Device, fence hal.Fence, device *Device) *Queue {
	return &Queue{
		hal:       h,
		halDevice: halDevice,
		fence:     fence,
		device:    device,
		timeline:  &serial.Timeline{},
		callbacks: &callback.Manager{},
		uploader:  upload.NewAllocator(&stagingFactory{halDevice: halDevice}),
	}
}

// Submit submits command buffers for execution.
//
// Each call bears the queue's next serial. The submitted command buffers
// are retained until the GPU reports that serial complete; deferred work
// recorded on them (queue-side buffer writes, map-async requests) is
// applied or filed against the same serial. Submit does not wait for the
// GPU; it finishes with a Tick so anything the submission already
// unblocked resolves immediately.
func (q *Queue) Submit(commandBuffers ...*CommandBuffer) error {
	if q.hal == nil {
		return fmt.Errorf("wgpu: queue not available")
	}
	if q.lost {
		return hal.ErrDeviceLost
	}

	s := q.timeline.NextSubmitSerial()

	halBuffers := make([]hal.CommandBuffer, len(commandBuffers))
	for i, cb := range commandBuffers {
		halBuffers[i] = cb.halBuffer()
		q.applyDeferred(cb, s)
	}

	if err := q.hal.Submit(halBuffers, q.fence, uint64(s)); err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			q.handleDeviceLoss()
		}
		return fmt.Errorf("wgpu: submit failed: %w", err)
	}

	for _, raw := range halBuffers {
		if raw != nil {
			q.inflight.Push(s, raw)
		}
	}

	return q.Tick()
}

// applyDeferred performs the queue-side work a command buffer recorded for
// submission time: stamping every named buffer with the submission's
// serial, applying recorded WriteBuffer payloads, and filing map-async
// requests so their callbacks fire once the GPU has consumed this
// submission.
func (q *Queue) applyDeferred(cb *CommandBuffer, s serial.Serial) {
	for _, use := range cb.usedBuffers {
		use.buffer.recordQueueUsage(track.QueueTypeCopy, use.usage, ShaderStageNone, s)
	}
	for _, usage := range cb.usage.RenderPassUsages {
		for i, buf := range usage.Buffers {
			info := usage.BufferSyncInfos[i]
			buf.recordQueueUsage(track.QueueTypeGraphics, info.Usage, info.ShaderStages, s)
		}
	}
	for _, usage := range cb.usage.ComputePassUsages {
		for i, buf := range usage.Buffers {
			info := usage.BufferSyncInfos[i]
			buf.recordQueueUsage(track.QueueTypeCompute, info.Usage, info.ShaderStages, s)
		}
	}
	for _, w := range cb.pendingWrites {
		if halBuf := w.buffer.halBuffer(); halBuf != nil {
			_ = q.hal.WriteBuffer(halBuf, w.offset, w.data)
		}
	}
	cb.pendingWrites = nil
	for _, m := range cb.mapRequests {
		q.TrackTask(s, &mapAsyncTask{buffer: m.buffer, offset: m.offset, size: m.size, cb: m.cb})
	}
	cb.mapRequests = nil
}

// NeedsTick reports whether the queue still has work gated on GPU
// completion: submitted command buffers not yet retired, deferred tasks
// waiting on a serial, or already-gated callbacks still to run.
func (q *Queue) NeedsTick() bool {
	return !q.inflight.Empty() || !q.pendingTasks.Empty() || !q.callbacks.IsEmpty()
}

// Tick polls the GPU's progress and releases everything it has finished
// with: the completed serial is promoted from the fence, retired command
// buffers are freed, deferred tasks whose serial has completed move into
// the callback manager, upload-ring space is reclaimed, and the manager is
// flushed. Submit ticks automatically; an application calls Tick directly
// to poll for completions without submitting new work.
func (q *Queue) Tick() error {
	completed := q.checkAndUpdateCompletedSerial()

	q.inflight.IterateUpTo(completed, func(_ serial.Serial, raw hal.CommandBuffer) {
		q.halDevice.FreeCommandBuffer(raw)
	})
	q.pendingTasks.IterateUpTo(completed, func(_ serial.Serial, task callback.Task) {
		q.callbacks.AddTask(task)
	})
	q.uploader.Deallocate(completed)
	q.callbacks.Flush()
	return nil
}

// checkAndUpdateCompletedSerial queries the fence and promotes the
// timeline's completed serial monotonically. A lost device drains every
// outstanding callback with DeviceLost and reports everything complete so
// retained resources are not leaked.
func (q *Queue) checkAndUpdateCompletedSerial() serial.Serial {
	if q.halDevice == nil || q.fence == nil {
		return q.timeline.Completed()
	}
	value, err := q.halDevice.GetFenceValue(q.fence)
	if err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			q.handleDeviceLoss()
		}
		return q.timeline.Completed()
	}
	return q.timeline.CheckAndUpdateCompleted(serial.Serial(value))
}

// handleDeviceLoss transitions the callback manager to DeviceLoss exactly
// once and drains every still-pending task through it, so each outstanding
// callback fires with a device-lost status. The timeline is promoted to
// lastSubmitted: the GPU will never report those serials, and resources
// gated on them must not stay retained forever.
func (q *Queue) handleDeviceLoss() {
	if q.lost {
		return
	}
	q.lost = true
	q.callbacks.HandleDeviceLoss()
	q.pendingTasks.IterateUpTo(q.timeline.LastSubmitted(), func(_ serial.Serial, task callback.Task) {
		q.callbacks.AddTask(task)
	})
	q.timeline.CheckAndUpdateCompleted(q.timeline.LastSubmitted())
	q.callbacks.Flush()
}

// TrackTask files task to run once every submission up to and including s
// has completed GPU execution. A serial that has already completed
// enqueues the task for the next Flush directly.
func (q *Queue) TrackTask(s serial.Serial, task callback.Task) {
	if s <= q.timeline.Completed() {
		q.callbacks.AddTask(task)
		return
	}
	q.pendingTasks.Push(s, task)
}

// OnMapAsync files a map-async completion task gated on the last
// submission that named the buffer: the map can't resolve until every GPU
// operation already submitted against the buffer has finished.
func (q *Queue) OnMapAsync(buffer *Buffer, offset, size uint64, cb func(MapAsyncStatus)) {
	q.TrackTask(buffer.lastUsage, &mapAsyncTask{buffer: buffer, offset: offset, size: size, cb: cb})
}

// mapAsyncTask resolves one MapAsync call. Exactly one of its three
// methods runs, chosen by the callback manager's lifecycle state at flush
// time: Finish on ordinary completion, HandleShutDown if the buffer (or the
// queue) was torn down first, HandleDeviceLoss if the device was lost
// first.
type mapAsyncTask struct {
	buffer *Buffer
	offset uint64
	size   uint64
	cb     func(MapAsyncStatus)
}

func (t *mapAsyncTask) Finish() {
	status := MapAsyncStatusSuccess
	if t.buffer.released {
		status = MapAsyncStatusDestroyedBeforeCallback
	}
	t.buffer.completeMapAsync(status, t.offset, t.size)
	if t.cb != nil {
		t.cb(status)
	}
}

func (t *mapAsyncTask) HandleShutDown() {
	t.buffer.completeMapAsync(MapAsyncStatusDestroyedBeforeCallback, t.offset, t.size)
	if t.cb != nil {
		t.cb(MapAsyncStatusDestroyedBeforeCallback)
	}
}

func (t *mapAsyncTask) HandleDeviceLoss() {
	status := MapAsyncStatusDeviceLost
	if t.buffer.released {
		status = MapAsyncStatusDestroyedBeforeCallback
	}
	t.buffer.completeMapAsync(status, t.offset, t.size)
	if t.cb != nil {
		t.cb(status)
	}
}

// stagingBuffer adapts a HAL buffer created host-visible and mapped at
// creation to upload.StagingBuffer.
type stagingBuffer struct {
	hal hal.Buffer
}

func (s *stagingBuffer) MappedBytes() []byte { return s.hal.MappedBytes() }

// stagingFactory creates the staging buffers an upload.Allocator
// sub-allocates from, sized and flagged for CPU write plus GPU copy-source.
type stagingFactory struct {
	halDevice hal.Device
}

func (f *stagingFactory) CreateStagingBuffer(size uint64) (upload.StagingBuffer, error) {
	buf, err := f.halDevice.CreateBuffer(&hal.BufferDescriptor{
		Label:            "wgpu-upload-staging",
		Size:             size,
		Usage:            BufferUsageCopySrc | BufferUsageMapWrite,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, err
	}
	return &stagingBuffer{hal: buf}, nil
}

// WriteBuffer writes data to a buffer. If the buffer is already host-visible
// (persistently mapped, or mapped at creation and not yet unmapped), this
// writes directly into it; otherwise it stages the write through the
// queue's upload allocator at the pending submit serial and submits a
// staging-to-device copy.
func (q *Queue) WriteBuffer(buffer *Buffer, offset uint64, data []byte) error {
	if q.hal == nil || buffer == nil {
		return fmt.Errorf("wgpu: WriteBuffer: queue or buffer is nil")
	}
	halBuffer := buffer.halBuffer()
	if halBuffer == nil {
		return fmt.Errorf("wgpu: WriteBuffer: no HAL buffer")
	}
	if offset+uint64(len(data)) > buffer.size {
		return newValidationError("Buffer", "size", "write range exceeds buffer size")
	}
	if len(data) == 0 {
		return nil
	}

	if mapped := halBuffer.MappedBytes(); mapped != nil && offset+uint64(len(data)) <= uint64(len(mapped)) {
		copy(mapped[offset:], data)
		return nil
	}

	alloc, err := q.uploader.Allocate(uint64(len(data)), q.timeline.PendingSubmit(), 4)
	if err != nil {
		return fmt.Errorf("wgpu: WriteBuffer: staging allocation failed: %w", err)
	}
	copy(alloc.Mapped, data)

	return q.copyStagingToBuffer(alloc.Buffer.(*stagingBuffer).hal, alloc.Offset, buffer, offset, uint64(len(data)))
}

func (q *Queue) copyStagingToBuffer(staging hal.Buffer, stagingOffset uint64, dst *Buffer, dstOffset, size uint64) error {
	halEnc, err := q.halDevice.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "wgpu-upload-copy"})
	if err != nil {
		return fmt.Errorf("wgpu: upload copy: %w", err)
	}
	if err := halEnc.BeginEncoding("wgpu-upload-copy"); err != nil {
		return fmt.Errorf("wgpu: upload copy: %w", err)
	}
	halEnc.CopyBufferToBuffer(staging, dst.halBuffer(), []hal.BufferCopy{
		{SrcOffset: stagingOffset, DstOffset: dstOffset, Size: size},
	})
	halBuf, err := halEnc.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: upload copy: %w", err)
	}
	return q.Submit(&CommandBuffer{hal: halBuf, device: q.device, usedBuffers: []bufferUse{{dst, BufferUsageCopyDst}}})
}

// WriteTexture writes data to a texture, repacking rows from data's layout
// into a staging buffer's layout via copyTextureData's fast-path table,
// then recording a copy command from the staging buffer into dst.
func (q *Queue) WriteTexture(dst *Texture, origin Origin3D, layout ImageDataLayout, data []byte, size Extent3D) error {
	if q.hal == nil || dst == nil {
		return fmt.Errorf("wgpu: WriteTexture: queue or texture is nil")
	}
	if len(data) == 0 || size.Width == 0 || size.Height == 0 || size.DepthOrArrayLayers == 0 {
		return nil
	}
	if layout.Offset > uint64(len(data)) {
		return newValidationError("Texture", "layout.Offset", "data offset is greater than the data size")
	}

	srcBytesPerRow := layout.BytesPerRow
	srcRowsPerImage := layout.RowsPerImage
	if srcRowsPerImage == 0 {
		srcRowsPerImage = size.Height
	}
	copyRows := size.Height
	dstBytesPerRow := alignBytesPerRow(srcBytesPerRow)

	requiredBytes := uint64(dstBytesPerRow) * uint64(copyRows) * uint64(size.DepthOrArrayLayers)
	alloc, err := q.uploader.Allocate(requiredBytes, q.timeline.PendingSubmit(), uint64(copyBytesPerRowAlignment))
	if err != nil {
		return fmt.Errorf("wgpu: WriteTexture: staging allocation failed: %w", err)
	}

	additionalStridePerImage := uint64(srcBytesPerRow) * uint64(srcRowsPerImage-copyRows)
	copyTextureData(alloc.Mapped, data[layout.Offset:], size.DepthOrArrayLayers, copyRows,
		additionalStridePerImage, srcBytesPerRow, dstBytesPerRow, srcBytesPerRow)

	return q.copyStagingToTexture(alloc.Buffer.(*stagingBuffer).hal, alloc.Offset, dst, origin,
		hal.ImageDataLayout{BytesPerRow: dstBytesPerRow, RowsPerImage: copyRows}, size)
}

func (q *Queue) copyStagingToTexture(staging hal.Buffer, stagingOffset uint64, dst *Texture, origin Origin3D, layout hal.ImageDataLayout, size Extent3D) error {
	halEnc, err := q.halDevice.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "wgpu-upload-copy"})
	if err != nil {
		return fmt.Errorf("wgpu: upload copy: %w", err)
	}
	if err := halEnc.BeginEncoding("wgpu-upload-copy"); err != nil {
		return fmt.Errorf("wgpu: upload copy: %w", err)
	}
	layout.Offset = stagingOffset
	halEnc.CopyBufferToTexture(staging, dst.hal, []hal.BufferTextureCopy{{
		BufferLayout: layout,
		TextureBase:  hal.ImageCopyTexture{Texture: dst.hal, Origin: hal.Origin3D(origin)},
		Size:         hal.Extent3D(size),
	}})
	halBuf, err := halEnc.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: upload copy: %w", err)
	}
	return q.Submit(&CommandBuffer{hal: halBuf, device: q.device})
}

func alignBytesPerRow(v uint32) uint32 {
	return uint32((uint64(v) + uint64(copyBytesPerRowAlignment) - 1) / uint64(copyBytesPerRowAlignment) * uint64(copyBytesPerRowAlignment))
}

// copyTextureData copies depth image layers from src to dst, choosing
// between three fast paths instead of a byte-by-byte loop: a single
// contiguous memcpy when every row is already packed and dst/src strides
// match, a per-layer memcpy when rows match but layers carry extra source
// padding, or a per-row memcpy as the general fallback.
func copyTextureData(dst, src []byte, depth, rowsPerImage uint32, additionalStridePerImage uint64, actualBytesPerRow, dstBytesPerRow, srcBytesPerRow uint32) {
	copyWholeLayer := actualBytesPerRow == dstBytesPerRow && dstBytesPerRow == srcBytesPerRow
	copyWholeData := copyWholeLayer && additionalStridePerImage == 0

	switch {
	case !copyWholeLayer:
		dstOff, srcOff := 0, 0
		for d := uint32(0); d < depth; d++ {
			for h := uint32(0); h < rowsPerImage; h++ {
				copy(dst[dstOff:dstOff+int(actualBytesPerRow)], src[srcOff:srcOff+int(actualBytesPerRow)])
				dstOff += int(dstBytesPerRow)
				srcOff += int(srcBytesPerRow)
			}
			srcOff += int(additionalStridePerImage)
		}
	case !copyWholeData:
		layerSize := int(uint64(rowsPerImage) * uint64(actualBytesPerRow))
		dstOff, srcOff := 0, 0
		for d := uint32(0); d < depth; d++ {
			copy(dst[dstOff:dstOff+layerSize], src[srcOff:srcOff+layerSize])
			dstOff += layerSize
			srcOff += layerSize + int(additionalStridePerImage)
		}
	default:
		layerSize := int(uint64(rowsPerImage) * uint64(actualBytesPerRow))
		copy(dst[:layerSize*int(depth)], src[:layerSize*int(depth)])
	}
}

// ReadBuffer reads data from a GPU buffer.
func (q *Queue) ReadBuffer(buffer *Buffer, offset uint64, data []byte) error {
	if q.hal == nil {
		return fmt.Errorf("wgpu: queue not available")
	}
	if buffer == nil {
		return fmt.Errorf("wgpu: buffer is nil")
	}

	halBuffer := buffer.halBuffer()
	if halBuffer == nil {
		return ErrReleased
	}

	return q.hal.ReadBuffer(halBuffer, offset, data)
}

// release shuts the queue down: every deferred task still waiting on a
// serial drains through the callback manager with ShutDown status, retained
// command buffers are freed, and the fence is destroyed.
func (q *Queue) release() {
	if q.callbacks != nil {
		q.callbacks.HandleShutDown()
		q.pendingTasks.IterateUpTo(q.timeline.LastSubmitted(), func(_ serial.Serial, task callback.Task) {
			q.callbacks.AddTask(task)
		})
		q.callbacks.Flush()
	}
	if q.halDevice != nil {
		q.inflight.IterateUpTo(q.timeline.LastSubmitted(), func(_ serial.Serial, raw hal.CommandBuffer) {
			q.halDevice.FreeCommandBuffer(raw)
		})
	}
	if q.fence != nil && q.halDevice != nil {
		q.halDevice.DestroyFence(q.fence)
		q.fence = nil
	}
}
