// Package track provides resource state tracking infrastructure: dense
// tracker indices for O(1) per-resource state lookup, subresource-compressed
// usage storage, and the per-pass sync-scope usage tracker that the encoder
// consults while recording.
//
// # Architecture
//
// Each Device owns a TrackerIndexAllocators which manages a separate
// allocator per resource kind. When a resource is created it is handed a
// TrackerIndex from the matching allocator; when destroyed, the index is
// returned for reuse so dense per-kind arrays never grow unbounded.
//
// # Thread Safety
//
// TrackerIndexAllocator is safe for concurrent use via an internal mutex.
package track

import "sync"

// TrackerIndex is a dense index for efficient resource state tracking.
// Unlike resource handles (which may be sparse), tracker indices are always
// dense (0, 1, 2, ...) for efficient array access.
type TrackerIndex uint32

// InvalidTrackerIndex represents an unassigned tracker index.
const InvalidTrackerIndex TrackerIndex = ^TrackerIndex(0)

// IsValid returns true if this is a valid tracker index.
func (i TrackerIndex) IsValid() bool {
	return i != InvalidTrackerIndex
}

// TrackerIndexAllocator allocates dense tracker indices, reusing released
// ones to keep the live set compact.
type TrackerIndexAllocator struct {
	mu        sync.Mutex
	unused    []TrackerIndex
	nextIndex TrackerIndex
}

// NewTrackerIndexAllocator creates a new allocator.
func NewTrackerIndexAllocator() *TrackerIndexAllocator {
	return &TrackerIndexAllocator{unused: make([]TrackerIndex, 0, 64)}
}

// Alloc allocates a new tracker index, reusing a released one (LIFO, for
// cache locality) when available.
func (a *TrackerIndexAllocator) Alloc() TrackerIndex {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.unused); n > 0 {
		idx := a.unused[n-1]
		a.unused = a.unused[:n-1]
		return idx
	}

	idx := a.nextIndex
	a.nextIndex++
	return idx
}

// Free releases idx for reuse. Safe to call with InvalidTrackerIndex.
func (a *TrackerIndexAllocator) Free(idx TrackerIndex) {
	if idx == InvalidTrackerIndex {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unused = append(a.unused, idx)
}

// Size returns the number of currently allocated (not-yet-freed) indices.
func (a *TrackerIndexAllocator) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.nextIndex) - len(a.unused)
}

// HighWaterMark returns the highest index ever allocated.
func (a *TrackerIndexAllocator) HighWaterMark() TrackerIndex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nextIndex == 0 {
		return InvalidTrackerIndex
	}
	return a.nextIndex - 1
}

// Allocators bundles one TrackerIndexAllocator per resource kind named in
// the data model: Buffer, Texture, TextureView, Sampler, BindSetLayout,
// BindSet, PipelineLayout, RenderPipeline, ComputePipeline, ShaderModule.
type Allocators struct {
	Buffers          *TrackerIndexAllocator
	Textures         *TrackerIndexAllocator
	TextureViews     *TrackerIndexAllocator
	Samplers         *TrackerIndexAllocator
	BindSets         *TrackerIndexAllocator
	BindSetLayouts   *TrackerIndexAllocator
	PipelineLayouts  *TrackerIndexAllocator
	RenderPipelines  *TrackerIndexAllocator
	ComputePipelines *TrackerIndexAllocator
	ShaderModules    *TrackerIndexAllocator
}

// NewAllocators creates allocators for every resource kind.
func NewAllocators() *Allocators {
	return &Allocators{
		Buffers:          NewTrackerIndexAllocator(),
		Textures:         NewTrackerIndexAllocator(),
		TextureViews:     NewTrackerIndexAllocator(),
		Samplers:         NewTrackerIndexAllocator(),
		BindSets:         NewTrackerIndexAllocator(),
		BindSetLayouts:   NewTrackerIndexAllocator(),
		PipelineLayouts:  NewTrackerIndexAllocator(),
		RenderPipelines:  NewTrackerIndexAllocator(),
		ComputePipelines: NewTrackerIndexAllocator(),
		ShaderModules:    NewTrackerIndexAllocator(),
	}
}
