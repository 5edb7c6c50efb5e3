package wgpu

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/serial"
	"github.com/gogpu/rhi/internal/track"
)

// Buffer represents a GPU buffer.
//
// A buffer moves through the map states Unmapped, PendingMap, Mapped,
// MappedAtCreation, and Destroyed. MapAsync is only legal from Unmapped;
// the transition to Mapped happens when the queue resolves the request
// after the GPU has finished with the buffer's last recorded use.
type Buffer struct {
	*track.TrackingData
	hal      hal.Buffer
	device   *Device
	size     uint64
	usage    BufferUsage
	label    string
	released bool

	mapState  BufferMapState
	mapMode   MapMode
	mapOffset uint64
	mapSize   uint64

	// lastUsage is the serial of the most recent submission that named this
	// buffer; map-async completion is gated on it.
	lastUsage serial.Serial

	// usageTrack records how each queue type last touched the buffer,
	// indexed by track.QueueType. A backend derives the barrier between a
	// prior write and subsequent reads from the last-write fields and the
	// cumulative read union.
	usageTrack [3]bufferUsageTrack
}

// bufferUsageTrack is one queue type's view of a buffer's usage history:
// the last write's usage and stages, every read usage OR-merged since that
// write, and the serial of the queue's last submission naming the buffer.
type bufferUsageTrack struct {
	lastWriteUsage  BufferUsage
	lastWriteStages ShaderStages
	readUsage       BufferUsage
	readStages      ShaderStages
	lastSerial      serial.Serial
}

// bufferWriteUsages are the usage bits that mutate buffer contents; a
// recorded usage containing any of them (and not marked read-only
// storage) resets the cumulative read union.
const bufferWriteUsages = BufferUsageCopyDst | BufferUsageStorage | BufferUsageMapWrite

// recordQueueUsage folds one submission's usage of the buffer into the
// per-queue track and advances the buffer's overall last-usage serial.
func (b *Buffer) recordQueueUsage(q track.QueueType, usage BufferUsage, stages ShaderStages, s serial.Serial) {
	t := &b.usageTrack[q]
	if usage&bufferWriteUsages != 0 && usage&BufferUsageReadOnlyStorage == 0 {
		t.lastWriteUsage = usage
		t.lastWriteStages = stages
		t.readUsage = 0
		t.readStages = 0
	} else {
		t.readUsage |= usage
		t.readStages |= stages
	}
	t.lastSerial = s
	b.markUsed(s)
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the buffer's usage flags.
func (b *Buffer) Usage() BufferUsage { return b.usage }

// Label returns the buffer's debug label.
func (b *Buffer) Label() string { return b.label }

// MapState returns the buffer's current map state.
func (b *Buffer) MapState() BufferMapState { return b.mapState }

// MapAsync requests the buffer's bytes be made host-visible for mode
// access. size may be WholeSize to map through the end of the buffer.
//
// The call never blocks: it moves the buffer to PendingMap and files a
// completion task with the device's queue, gated on the last submission
// that used this buffer. cb fires from a later Queue.Tick with the final
// status; on success the buffer is Mapped and GetMappedRange is legal.
func (b *Buffer) MapAsync(mode MapMode, offset, size uint64, cb func(MapAsyncStatus)) error {
	if b.released {
		return ErrReleased
	}
	if b.mapState != BufferMapStateUnmapped {
		return newStateError("Buffer", "MapAsync", b.mapState.String())
	}
	switch mode {
	case MapModeRead:
		if b.usage&BufferUsageMapRead == 0 {
			return newValidationError("Buffer", "Usage", "MapAsync(read) requires BufferUsageMapRead")
		}
	case MapModeWrite:
		if b.usage&BufferUsageMapWrite == 0 {
			return newValidationError("Buffer", "Usage", "MapAsync(write) requires BufferUsageMapWrite")
		}
	default:
		return newValidationError("Buffer", "Mode", "MapAsync mode must be read or write")
	}
	if size == WholeSize {
		if offset > b.size {
			return newValidationError("Buffer", "Offset", "map offset exceeds buffer size")
		}
		size = b.size - offset
	}
	if offset+size > b.size {
		return newValidationError("Buffer", "Size", "map range exceeds buffer size")
	}

	b.mapState = BufferMapStatePendingMap
	b.mapMode = mode
	b.mapOffset = offset
	b.mapSize = size
	b.device.queue.OnMapAsync(b, offset, size, cb)
	return nil
}

// completeMapAsync resolves an outstanding MapAsync request. Only a
// successful resolution leaves the buffer Mapped; every other status
// returns a still-live buffer to Unmapped.
func (b *Buffer) completeMapAsync(status MapAsyncStatus, offset, size uint64) {
	if b.mapState != BufferMapStatePendingMap {
		return
	}
	if status == MapAsyncStatusSuccess {
		b.mapState = BufferMapStateMapped
		b.mapOffset = offset
		b.mapSize = size
		return
	}
	b.mapState = BufferMapStateUnmapped
}

// GetMappedRange returns the buffer's host-visible bytes in [offset,
// offset+size). size may be WholeSize to address through the end of the
// mapped region. Only legal while the buffer is Mapped or
// MappedAtCreation, and only within the range MapAsync named.
func (b *Buffer) GetMappedRange(offset, size uint64) ([]byte, error) {
	if b.released {
		return nil, ErrReleased
	}
	switch b.mapState {
	case BufferMapStateMapped, BufferMapStateMappedAtCreation:
	default:
		return nil, newStateError("Buffer", "GetMappedRange", b.mapState.String())
	}
	base, limit := b.mapOffset, b.mapOffset+b.mapSize
	if b.mapState == BufferMapStateMappedAtCreation {
		base, limit = 0, b.size
	}
	if size == WholeSize {
		if offset > limit {
			return nil, newValidationError("Buffer", "Offset", "mapped range offset out of bounds")
		}
		size = limit - offset
	}
	if offset < base || offset+size > limit {
		return nil, newValidationError("Buffer", "Size", "range exceeds the mapped region")
	}
	mapped := b.hal.MappedBytes()
	if mapped == nil || offset+size > uint64(len(mapped)) {
		return nil, newValidationError("Buffer", "", "buffer has no host-visible memory")
	}
	return mapped[offset : offset+size], nil
}

// Unmap releases the buffer's host-visible mapping, returning it to
// Unmapped. Unmapping an already-unmapped buffer is a state error.
func (b *Buffer) Unmap() error {
	if b.released {
		return ErrReleased
	}
	switch b.mapState {
	case BufferMapStateMapped, BufferMapStateMappedAtCreation:
		b.mapState = BufferMapStateUnmapped
		return nil
	default:
		return newStateError("Buffer", "Unmap", b.mapState.String())
	}
}

// markUsed records that the submission bearing s named this buffer.
func (b *Buffer) markUsed(s serial.Serial) {
	if s > b.lastUsage {
		b.lastUsage = s
	}
}

// Release destroys the buffer. An outstanding MapAsync callback still
// fires, with status DestroyedBeforeCallback.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.mapState = BufferMapStateDestroyed
	b.TrackingData.Release()
	b.device.lists.buffers.untrack(b)
	halDevice := b.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyBuffer(b.hal)
	}
}

// halBuffer returns the underlying HAL buffer, or nil if released.
func (b *Buffer) halBuffer() hal.Buffer {
	if b.released {
		return nil
	}
	return b.hal
}
