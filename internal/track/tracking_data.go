package track

import "sync/atomic"

// TrackingData holds the per-resource tracking index. It is embedded in
// every resource kind (Buffer, Texture, ...) to give O(1) access to that
// resource's tracking index during encoding.
//
// # Thread safety
//
// TrackingData is safe for concurrent use. The index is immutable after
// creation; Release uses a CAS to guard against double-free.
type TrackingData struct {
	index     TrackerIndex
	allocator *TrackerIndexAllocator
	released  atomic.Uint32
}

// NewTrackingData allocates an index from allocator and returns tracking
// data for it. A nil allocator yields an always-invalid index (used by
// resources, like the empty BindSetLayout singleton, that are not torn down
// through the ordinary per-kind sweep).
func NewTrackingData(allocator *TrackerIndexAllocator) *TrackingData {
	if allocator == nil {
		return &TrackingData{index: InvalidTrackerIndex}
	}
	return &TrackingData{index: allocator.Alloc(), allocator: allocator}
}

// Index returns the tracker index.
func (t *TrackingData) Index() TrackerIndex {
	return t.index
}

// IsReleased reports whether Release has already run.
func (t *TrackingData) IsReleased() bool {
	return t.released.Load() != 0
}

// Release frees the tracker index for reuse. Idempotent: subsequent calls
// are no-ops.
func (t *TrackingData) Release() {
	if !t.released.CompareAndSwap(0, 1) {
		return
	}
	if t.allocator != nil {
		t.allocator.Free(t.index)
	}
}
