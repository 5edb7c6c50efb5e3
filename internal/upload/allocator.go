package upload

import "github.com/gogpu/rhi/internal/serial"

// StagingBuffer is the minimal contract a backend's mapped staging buffer
// must satisfy to back an Allocation. MappedBytes must return a slice that
// stays valid (and stays mapped) until the buffer is destroyed.
type StagingBuffer interface {
	MappedBytes() []byte
}

// Factory creates the staging buffers an Allocator suballocates from,
// including the one-buffer-per-request buffers of the large-allocation
// fallback path. It does not destroy buffers: Deallocate only drops the
// Allocator's references to them.
type Factory interface {
	CreateStagingBuffer(size uint64) (StagingBuffer, error)
}

// Allocation is a ready-to-write region of a mapped staging buffer, plus the
// buffer and offset the caller must later reference in a CopyBufferTo* or
// WriteBuffer command.
type Allocation struct {
	Buffer StagingBuffer
	Offset uint64
	Mapped []byte
}

type pooledRing struct {
	ring   *Ring
	buffer StagingBuffer
}

// Allocator sub-allocates staging memory for CPU-to-GPU transfers out of a
// pool of fixed-size ring buffers, falling back to a dedicated buffer for
// requests larger than one ring.
type Allocator struct {
	factory Factory
	rings   []*pooledRing
	large   serial.Map[StagingBuffer]
}

// NewAllocator returns an allocator that creates staging buffers via
// factory.
func NewAllocator(factory Factory) *Allocator {
	return &Allocator{factory: factory}
}

// Allocate reserves allocationSize bytes tagged with s for a pending
// transfer, respecting offsetAlignment. Requests larger than RingSize each
// get a dedicated staging buffer, freed once s has completed.
func (a *Allocator) Allocate(allocationSize uint64, s serial.Serial, offsetAlignment uint64) (Allocation, error) {
	if allocationSize > RingSize {
		buf, err := a.factory.CreateStagingBuffer(alignUp(allocationSize, 4))
		if err != nil {
			return Allocation{}, err
		}
		a.large.Push(s, buf)
		return Allocation{Buffer: buf, Mapped: buf.MappedBytes()[:allocationSize]}, nil
	}

	if len(a.rings) == 0 {
		a.rings = append(a.rings, &pooledRing{ring: NewRing(RingSize)})
	}

	var target *pooledRing
	startOffset := InvalidOffset
	for _, pr := range a.rings {
		startOffset = pr.ring.Allocate(allocationSize, s, offsetAlignment)
		if startOffset != InvalidOffset {
			target = pr
			break
		}
	}

	if startOffset == InvalidOffset {
		target = &pooledRing{ring: NewRing(RingSize)}
		a.rings = append(a.rings, target)
		startOffset = target.ring.Allocate(allocationSize, s, offsetAlignment)
	}

	if target.buffer == nil {
		buf, err := a.factory.CreateStagingBuffer(alignUp(target.ring.Size(), 4))
		if err != nil {
			return Allocation{}, err
		}
		target.buffer = buf
	}

	mapped := target.buffer.MappedBytes()
	return Allocation{
		Buffer: target.buffer,
		Offset: startOffset,
		Mapped: mapped[startOffset : startOffset+allocationSize],
	}, nil
}

// Deallocate reclaims every staging allocation whose serial has completed:
// ring-buffer ranges are returned to their ring, and large dedicated
// buffers are dropped. A fully-drained ring is removed from the pool unless
// it is the last one, so the pool never shrinks below one ring (avoiding a
// churn of recreating it on the next request).
func (a *Allocator) Deallocate(lastCompletedSerial serial.Serial) {
	remaining := len(a.rings)
	live := a.rings[:0]
	for _, pr := range a.rings {
		pr.ring.Deallocate(lastCompletedSerial)
		if pr.ring.Empty() && remaining > 1 {
			remaining--
			continue
		}
		live = append(live, pr)
	}
	a.rings = live

	a.large.IterateUpTo(lastCompletedSerial, func(_ serial.Serial, _ StagingBuffer) {})
}
