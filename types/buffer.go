package types

// BufferUsage describes how a buffer can be used.
type BufferUsage uint32

const (
	// BufferUsageMapRead allows mapping the buffer for reading.
	BufferUsageMapRead BufferUsage = 1 << iota
	// BufferUsageMapWrite allows mapping the buffer for writing.
	BufferUsageMapWrite
	// BufferUsageCopySrc allows the buffer to be a copy source.
	BufferUsageCopySrc
	// BufferUsageCopyDst allows the buffer to be a copy destination.
	BufferUsageCopyDst
	// BufferUsageIndex allows use as an index buffer.
	BufferUsageIndex
	// BufferUsageVertex allows use as a vertex buffer.
	BufferUsageVertex
	// BufferUsageUniform allows use as a uniform buffer.
	BufferUsageUniform
	// BufferUsageStorage allows use as a storage buffer.
	BufferUsageStorage
	// BufferUsageIndirect allows use for indirect draw/dispatch.
	BufferUsageIndirect
	// BufferUsageQueryResolve allows use for query result resolution.
	BufferUsageQueryResolve
	// BufferUsageReadOnlyStorage marks a storage usage recorded as
	// read-only; binding-type-derived usages that only ever read the
	// buffer imply this in addition to BufferUsageStorage.
	BufferUsageReadOnlyStorage
)

// WholeSize, passed where a byte size is expected, means "from the given
// offset to the end of the buffer".
const WholeSize uint64 = ^uint64(0)

// BufferDescriptor describes a buffer.
type BufferDescriptor struct {
	// Label is a debug label.
	Label string
	// Size is the buffer size in bytes.
	Size uint64
	// Usage describes how the buffer will be used.
	Usage BufferUsage
	// MappedAtCreation indicates if the buffer is mapped at creation.
	MappedAtCreation bool
}

// BufferMapState describes the map state of a buffer, mirroring the five
// states a buffer's map-async lifecycle moves through: created unmapped,
// requesting a map, holding one, created already mapped, or torn down.
type BufferMapState uint8

const (
	// BufferMapStateUnmapped means the buffer is not mapped.
	BufferMapStateUnmapped BufferMapState = iota
	// BufferMapStatePendingMap means a MapAsync call is outstanding, waiting
	// on the GPU to finish the buffer's last recorded usage.
	BufferMapStatePendingMap
	// BufferMapStateMapped means the buffer is mapped and its bytes are
	// host-visible.
	BufferMapStateMapped
	// BufferMapStateMappedAtCreation means the buffer was mapped at
	// creation time (MappedAtCreation) and has not yet been unmapped.
	BufferMapStateMappedAtCreation
	// BufferMapStateDestroyed means the buffer has been destroyed; any
	// still-pending map callback resolves as DestroyedBeforeCallback.
	BufferMapStateDestroyed
)

// String returns the state's name, used in state-error messages.
func (s BufferMapState) String() string {
	switch s {
	case BufferMapStateUnmapped:
		return "Unmapped"
	case BufferMapStatePendingMap:
		return "PendingMap"
	case BufferMapStateMapped:
		return "Mapped"
	case BufferMapStateMappedAtCreation:
		return "MappedAtCreation"
	case BufferMapStateDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// MapMode describes the access mode for buffer mapping.
type MapMode uint8

const (
	// MapModeRead maps the buffer for reading.
	MapModeRead MapMode = 1 << iota
	// MapModeWrite maps the buffer for writing.
	MapModeWrite
)

// MapAsyncStatus is the runtime outcome reported to a MapAsync callback.
type MapAsyncStatus uint8

const (
	// MapAsyncStatusSuccess means the buffer is now mapped.
	MapAsyncStatusSuccess MapAsyncStatus = iota
	// MapAsyncStatusNone means the callback ran without a specific result.
	// Reserved; not produced by this implementation.
	MapAsyncStatusNone
	// MapAsyncStatusDeviceLost means the device was lost before the map
	// could complete.
	MapAsyncStatusDeviceLost
	// MapAsyncStatusDestroyedBeforeCallback means the buffer was destroyed,
	// or the queue shut down, before the map could complete.
	MapAsyncStatusDestroyedBeforeCallback
)

// String returns the status's name, used in log messages and tests.
func (s MapAsyncStatus) String() string {
	switch s {
	case MapAsyncStatusSuccess:
		return "Success"
	case MapAsyncStatusNone:
		return "None"
	case MapAsyncStatusDeviceLost:
		return "DeviceLost"
	case MapAsyncStatusDestroyedBeforeCallback:
		return "DestroyedBeforeCallback"
	default:
		return "Unknown"
	}
}

// BufferBindingType describes how a buffer is bound.
type BufferBindingType uint8

const (
	// BufferBindingTypeUndefined is an undefined binding type.
	BufferBindingTypeUndefined BufferBindingType = iota
	// BufferBindingTypeUniform binds as a uniform buffer.
	BufferBindingTypeUniform
	// BufferBindingTypeStorage binds as a storage buffer (read-write).
	BufferBindingTypeStorage
	// BufferBindingTypeReadOnlyStorage binds as a read-only storage buffer.
	BufferBindingTypeReadOnlyStorage
)

// IndexFormat describes the format of index buffer data.
type IndexFormat uint8

const (
	// IndexFormatUint16 uses 16-bit unsigned integers.
	IndexFormatUint16 IndexFormat = iota
	// IndexFormatUint32 uses 32-bit unsigned integers.
	IndexFormatUint32
)
