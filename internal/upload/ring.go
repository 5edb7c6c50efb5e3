// Package upload implements staging-buffer sub-allocation for CPU-to-GPU
// data transfer: a pool of fixed-size ring buffers for small/medium
// requests, falling back to a dedicated staging buffer for anything larger
// than one ring.
package upload

import "github.com/gogpu/rhi/internal/serial"

// RingSize is the fixed byte size of every pooled ring buffer. Requests
// larger than this always take the large-allocation fallback path.
const RingSize = 4 * 1024 * 1024

// InvalidOffset is returned by Ring.Allocate when a request cannot be
// satisfied by the ring in its current state.
const InvalidOffset = ^uint64(0)

type ringRequest struct {
	endOffset uint64
	size      uint64
}

// Ring is a single fixed-size ring buffer sub-allocator. Requests are
// FIFO: Allocate hands out byte ranges in submission order, and Deallocate
// reclaims the ranges of every request whose serial has completed, in that
// same order, keeping the ring's used region contiguous (mod wraparound).
type Ring struct {
	maxSize         uint64
	usedStartOffset uint64
	usedEndOffset   uint64
	usedSize        uint64
	inflight        serial.Map[ringRequest]
}

// NewRing returns an empty ring of the given byte size.
func NewRing(maxSize uint64) *Ring {
	return &Ring{maxSize: maxSize}
}

func alignUp(v, alignment uint64) uint64 {
	if alignment <= 1 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}

// Allocate reserves allocationSize bytes tagged with s, respecting
// offsetAlignment, and returns the starting offset, or InvalidOffset if the
// ring has no room.
func (r *Ring) Allocate(allocationSize uint64, s serial.Serial, offsetAlignment uint64) uint64 {
	if r.usedSize >= r.maxSize {
		return InvalidOffset
	}
	if allocationSize > r.maxSize-r.usedSize {
		return InvalidOffset
	}

	alignedEnd := alignUp(r.usedEndOffset, offsetAlignment)
	alignmentPad := alignedEnd - r.usedEndOffset

	startOffset := InvalidOffset
	var requestSize uint64

	if r.usedStartOffset <= r.usedEndOffset {
		// Not wrapped: prefer sub-allocating at the tail.
		if alignedEnd+allocationSize <= r.maxSize {
			startOffset = alignedEnd
			requestSize = allocationSize + alignmentPad
		} else if allocationSize <= r.usedStartOffset {
			// Wrap to the front; charge the skipped tail space too, so a
			// later Allocate can't be fooled into thinking it's free.
			requestSize = (r.maxSize - r.usedEndOffset) + allocationSize
			startOffset = 0
		}
	} else if alignedEnd+allocationSize <= r.usedStartOffset {
		startOffset = alignedEnd
		requestSize = allocationSize + alignmentPad
	}

	if startOffset == InvalidOffset {
		return InvalidOffset
	}

	r.usedSize += requestSize
	r.usedEndOffset = startOffset + allocationSize
	r.inflight.Push(s, ringRequest{endOffset: r.usedEndOffset, size: requestSize})
	return startOffset
}

// Deallocate reclaims every in-flight request whose serial is <=
// lastCompletedSerial, advancing the ring's used-start offset past them.
func (r *Ring) Deallocate(lastCompletedSerial serial.Serial) {
	r.inflight.IterateUpTo(lastCompletedSerial, func(_ serial.Serial, req ringRequest) {
		r.usedStartOffset = req.endOffset
		r.usedSize -= req.size
	})
}

// Size returns the ring's total capacity in bytes.
func (r *Ring) Size() uint64 { return r.maxSize }

// UsedSize returns the number of bytes currently reserved by in-flight
// requests.
func (r *Ring) UsedSize() uint64 { return r.usedSize }

// Empty reports whether the ring has no in-flight requests.
func (r *Ring) Empty() bool { return r.inflight.Empty() }
